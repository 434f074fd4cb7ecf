package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"canteen-service/config"
	"canteen-service/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

type PendingCanceller interface {
	CancelIfPending(ctx context.Context, orderID int64) (bool, error)
}

type OrderConsumer struct {
	orders PendingCanceller
}

func NewOrderConsumer(orders PendingCanceller) *OrderConsumer {
	return &OrderConsumer{orders: orders}
}

// Start consumes the order queue and the dead-letter queue until ctx is done
// or the channel closes.
func (oc *OrderConsumer) Start(ctx context.Context, ch *amqp.Channel, cfg *config.Config) error {
	msgs, err := ch.ConsumeWithContext(ctx, cfg.OrderQueue, "canteen-service", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register order consumer: %w", err)
	}

	dlqMsgs, err := ch.ConsumeWithContext(ctx, cfg.DeadLetterQueue, "canteen-service-dlq", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register dead letter consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			oc.ProcessOrderMessage(ctx, msg)
		}
	}()

	go func() {
		for msg := range dlqMsgs {
			processDeadLetterMessage(msg)
		}
	}()
	return nil
}

// ProcessOrderMessage handles one order event. Malformed messages are
// rejected without requeue so they land in the dead-letter queue.
func (oc *OrderConsumer) ProcessOrderMessage(ctx context.Context, msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered from panic in message processing", "panic", r)
			_ = msg.Nack(false, false)
		}
	}()

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.OrderID == 0 {
		slog.Warn("invalid order event", "body", string(msg.Body), "error", err)
		_ = msg.Nack(false, false)
		return
	}

	logger := slog.With("order_id", event.OrderID, "type", event.Type)

	switch event.Type {
	case "created":
		logger.Info("order created", "customer", event.Customer, "vendor", event.Vendor, "total", event.Total)
	case "status_updated":
		logger.Info("order status updated", "status", event.Status)
	case "pending_timeout":
		cancelled, err := oc.orders.CancelIfPending(ctx, event.OrderID)
		if err != nil {
			logger.Error("failed to cancel pending order", "error", err)
			_ = msg.Nack(false, true)
			return
		}
		if cancelled {
			logger.Info("cancelled order left pending")
		}
	default:
		logger.Warn("unknown event type")
	}

	if err := msg.Ack(false); err != nil {
		logger.Error("ack failed", "error", err)
	}
}

func processDeadLetterMessage(msg amqp.Delivery) {
	slog.Warn("received dead letter", "body", string(msg.Body))
	if err := msg.Ack(false); err != nil {
		slog.Error("dead letter ack failed", "error", err)
	}
}
