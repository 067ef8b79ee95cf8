package queue

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type HandlerFunc func(ctx context.Context, body []byte) error

const retryHeader = "x-retry-count"

// ConsumeWithRetry runs handler for every delivery on queue. A failed
// delivery is republished with an incremented retry header until maxRetries,
// then rejected so the queue's dead-letter exchange takes it.
func (c *Client) ConsumeWithRetry(ctx context.Context, queue string, handler HandlerFunc, maxRetries int, retryDelay time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	msgs, err := c.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		var msg amqp.Delivery
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok = <-msgs:
			if !ok {
				return errors.New("consumer closed")
			}
		}

		err := handler(ctx, msg.Body)
		if err == nil {
			_ = msg.Ack(false)
			continue
		}

		retryCount := retryCountOf(msg.Headers)
		if retryCount >= maxRetries {
			logger.Error("message dead-lettered", zap.String("queue", queue), zap.Int("retries", retryCount), zap.Error(err))
			_ = msg.Nack(false, false)
			continue
		}

		headers := msg.Headers
		if headers == nil {
			headers = amqp.Table{}
		}
		headers[retryHeader] = int32(retryCount + 1)
		logger.Warn("message retry scheduled", zap.String("queue", queue), zap.Int("retry", retryCount+1), zap.Error(err))

		select {
		case <-ctx.Done():
			_ = msg.Nack(false, true)
			return ctx.Err()
		case <-time.After(retryDelay):
		}
		pubErr := c.publish(ctx, "", queue, amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			Body:         msg.Body,
			Headers:      headers,
			Timestamp:    time.Now(),
		})
		if pubErr != nil {
			_ = msg.Nack(false, true)
			continue
		}
		_ = msg.Ack(false)
	}
}

func retryCountOf(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch t := headers[retryHeader].(type) {
	case int32:
		return int(t)
	case int64:
		return int(t)
	case int:
		return t
	}
	return 0
}
