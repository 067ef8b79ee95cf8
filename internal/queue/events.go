package queue

import (
	"context"
	"time"

	"storefront-order-service/internal/metrics"
	"storefront-order-service/internal/order"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	EventsExchange = "storefront.events"
	EventsQueue    = "storefront.notifications"

	RoutingOrderCreated = "order.created"
	RoutingOrderStatus  = "order.status.updated"

	NotificationJobsExchange = "storefront.notification_jobs"
	NotificationJobsQueue    = "storefront.notification_jobs.process"
	NotificationJobsDLQ      = "storefront.notification_jobs.dlq"
	NotificationJobsRK       = "process"
	NotificationJobsDeadRK   = "dead"
)

const publishTimeout = 2 * time.Second

type OrderEvent struct {
	Type          string       `json:"type"`
	OrderID       string       `json:"orderId"`
	OrderNumber   int64        `json:"orderNumber"`
	BusinessID    string       `json:"businessId"`
	BusinessName  string       `json:"businessName"`
	BusinessPhone string       `json:"businessPhone,omitempty"`
	CustomerName  string       `json:"customerName"`
	CustomerPhone string       `json:"customerPhone"`
	Status        order.Status `json:"status"`
	Previous      order.Status `json:"previousStatus,omitempty"`
	Total         float64      `json:"total"`
	Actor         string       `json:"actor,omitempty"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// EventFromChange maps an order change to its routing key and payload.
// Payment and notes edits are not published.
func EventFromChange(c order.Change) (string, OrderEvent, bool) {
	if c.Order == nil {
		return "", OrderEvent{}, false
	}
	var rk string
	switch c.Kind {
	case order.ChangeCreated:
		rk = RoutingOrderCreated
	case order.ChangeStatus:
		rk = RoutingOrderStatus
	default:
		return "", OrderEvent{}, false
	}
	o := c.Order
	return rk, OrderEvent{
		Type:          rk,
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		BusinessID:    o.Business.ID,
		BusinessName:  o.Business.Name,
		BusinessPhone: o.Business.Phone,
		CustomerName:  o.Customer.Name,
		CustomerPhone: o.Customer.Phone,
		Status:        o.Status,
		Previous:      c.Previous,
		Total:         o.Pricing.GrandTotal,
		Actor:         c.Actor,
		UpdatedAt:     o.UpdatedAt,
	}, true
}

// Publisher forwards order changes to the events exchange. Failures are
// logged and counted; the order mutation has already been committed.
type Publisher struct {
	pub    JSONPublisher
	logger *zap.Logger
}

func NewPublisher(pub JSONPublisher, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{pub: pub, logger: logger}
}

func (p *Publisher) OrderChanged(ctx context.Context, c order.Change) {
	rk, evt, ok := EventFromChange(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.pub.PublishJSON(ctx, EventsExchange, rk, evt); err != nil {
		metrics.PublishFailures.Inc()
		p.logger.Warn("order event publish failed",
			zap.String("routingKey", rk),
			zap.String("orderId", evt.OrderID),
			zap.Error(err),
		)
	}
}

var _ order.Listener = (*Publisher)(nil)

// EnsureTopology declares the events exchange with its notification queue,
// and the notification job exchange with a dead-letter queue.
func EnsureTopology(qc *Client) error {
	if qc == nil {
		return nil
	}
	if err := qc.EnsureExchange(EventsExchange, amqp.ExchangeTopic); err != nil {
		return err
	}
	if _, err := qc.EnsureQueue(EventsQueue, nil); err != nil {
		return err
	}
	if err := qc.BindQueue(EventsQueue, EventsExchange, "order.#"); err != nil {
		return err
	}

	if err := qc.EnsureExchange(NotificationJobsExchange, amqp.ExchangeDirect); err != nil {
		return err
	}
	if _, err := qc.EnsureQueue(NotificationJobsDLQ, nil); err != nil {
		return err
	}
	if err := qc.BindQueue(NotificationJobsDLQ, NotificationJobsExchange, NotificationJobsDeadRK); err != nil {
		return err
	}
	_, err := qc.EnsureQueue(NotificationJobsQueue, amqp.Table{
		"x-dead-letter-exchange":    NotificationJobsExchange,
		"x-dead-letter-routing-key": NotificationJobsDeadRK,
	})
	if err != nil {
		return err
	}
	return qc.BindQueue(NotificationJobsQueue, NotificationJobsExchange, NotificationJobsRK)
}
