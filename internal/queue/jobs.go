package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"storefront-order-service/internal/order"
	"storefront-order-service/internal/whatsapp"

	"go.uber.org/zap"
)

const (
	JobBusinessNewOrder    = "whatsapp.business_new_order"
	JobCustomerOrderStatus = "whatsapp.customer_order_status"
)

type NotificationJob struct {
	Kind      string    `json:"kind"`
	OrderID   string    `json:"orderId"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"createdAt"`
	Attempt   int       `json:"attempt"`
}

// notifiedStatuses are the statuses a customer hears about.
var notifiedStatuses = map[order.Status]bool{
	order.StatusConfirmed: true,
	order.StatusReady:     true,
	order.StatusInTransit: true,
	order.StatusDelivered: true,
	order.StatusCancelled: true,
}

// BuildJobs turns one order event into notification jobs. Events without a
// reachable phone produce no job.
func BuildJobs(evt OrderEvent, fallbackPhone string, now time.Time) []NotificationJob {
	var jobs []NotificationJob
	switch evt.Type {
	case RoutingOrderCreated:
		phone := evt.BusinessPhone
		if whatsapp.Digits(phone) == "" {
			phone = fallbackPhone
		}
		text := "Nuevo pedido " + evt.OrderID + " de " + evt.CustomerName
		if link, err := whatsapp.Link(phone, text); err == nil {
			jobs = append(jobs, NotificationJob{Kind: JobBusinessNewOrder, OrderID: evt.OrderID, To: whatsapp.Digits(phone), Text: text, Link: link})
		}
	case RoutingOrderStatus:
		if !notifiedStatuses[evt.Status] {
			return nil
		}
		text := whatsapp.RenderStatusMessage(evt.OrderID, evt.BusinessName, evt.Status)
		if link, err := whatsapp.Link(evt.CustomerPhone, text); err == nil {
			jobs = append(jobs, NotificationJob{Kind: JobCustomerOrderStatus, OrderID: evt.OrderID, To: whatsapp.Digits(evt.CustomerPhone), Text: text, Link: link})
		}
	}
	for i := range jobs {
		jobs[i].CreatedAt = now.UTC()
		jobs[i].Attempt = 1
	}
	return jobs
}

// ProcessEventToJobs is the events-queue handler: it decodes an order event
// and enqueues its notification jobs.
func ProcessEventToJobs(ctx context.Context, pub JSONPublisher, fallbackPhone string, body []byte) error {
	if pub == nil {
		return nil
	}
	var evt OrderEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return err
	}
	if strings.TrimSpace(evt.Type) == "" {
		return nil
	}
	for _, job := range BuildJobs(evt, fallbackPhone, time.Now()) {
		if err := pub.PublishJSON(ctx, NotificationJobsExchange, NotificationJobsRK, job); err != nil {
			return err
		}
	}
	return nil
}

// NotificationHandler consumes notification jobs. Messages go out through
// the recipient's own chat client, so the job ends with a logged deep link.
func NotificationHandler(logger *zap.Logger) HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(_ context.Context, body []byte) error {
		var job NotificationJob
		if err := json.Unmarshal(body, &job); err != nil {
			return err
		}
		if job.Link == "" {
			return errors.New("notification job without link")
		}
		logger.Info("whatsapp notification ready",
			zap.String("kind", job.Kind),
			zap.String("orderId", job.OrderID),
			zap.String("to", job.To),
			zap.String("link", job.Link),
		)
		return nil
	}
}
