package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"canteen-service/config"
	"canteen-service/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	msg      amqp.Publishing
}

type fakeChannel struct {
	exchanges   []string
	queues      map[string]amqp.Table
	bindings    []string
	published   []published
	delayedFail bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	if kind == "x-delayed-message" && f.delayedFail {
		return errors.New("unknown exchange type")
	}
	f.exchanges = append(f.exchanges, name)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	if f.queues == nil {
		f.queues = map[string]amqp.Table{}
	}
	f.queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, _, exchange string, _ bool, _ amqp.Table) error {
	f.bindings = append(f.bindings, exchange+"->"+name)
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, _ string, _, _ bool, msg amqp.Publishing) error {
	f.published = append(f.published, published{exchange: exchange, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func newTestRabbit() (*RabbitMQ, *fakeChannel) {
	ch := &fakeChannel{}
	cfg := &config.Config{
		OrderExchange:   "orders_x",
		OrderQueue:      "orders_q",
		DeadLetterQueue: "dlq",
		DelayExchange:   "delay_x",
		MaxPriority:     10,
		PendingTimeout:  30 * time.Minute,
	}
	return &RabbitMQ{Channel: ch, Cfg: cfg}, ch
}

func TestSetupQueues(t *testing.T) {
	r, ch := newTestRabbit()

	require.NoError(t, r.SetupQueues())

	assert.ElementsMatch(t, []string{"dlq_exchange", "orders_x", "delay_x"}, ch.exchanges)
	assert.Equal(t, 10, ch.queues["orders_q"]["x-max-priority"])
	assert.Equal(t, "dlq_exchange", ch.queues["orders_q"]["x-dead-letter-exchange"])
	assert.Contains(t, ch.bindings, "orders_x->orders_q")
	assert.Contains(t, ch.bindings, "dlq_exchange->dlq")
	assert.Contains(t, ch.bindings, "delay_x->orders_q")
}

func TestSetupQueues_WithoutDelayPlugin(t *testing.T) {
	r, ch := newTestRabbit()
	ch.delayedFail = true

	err := r.SetupQueues()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "delayed exchange")
	assert.NotContains(t, ch.queues, "orders_q")
}

func TestSetupQueues_PendingTimeoutDisabled(t *testing.T) {
	r, ch := newTestRabbit()
	r.Cfg.PendingTimeout = 0
	ch.delayedFail = true

	require.NoError(t, r.SetupQueues())

	assert.NotContains(t, ch.exchanges, "delay_x")
	assert.NotContains(t, ch.bindings, "delay_x->orders_q")
	assert.Contains(t, ch.bindings, "orders_x->orders_q")
}

func TestPublishOrderEvent(t *testing.T) {
	r, ch := newTestRabbit()
	event := models.OrderEvent{OrderID: 42, Customer: "bob", Vendor: "StallA", Type: "created", Total: 100, Occurred: time.Now().UTC()}

	require.NoError(t, r.PublishOrderEvent(context.Background(), event, 9))

	require.Len(t, ch.published, 1)
	msg := ch.published[0].msg
	assert.Equal(t, "orders_x", ch.published[0].exchange)
	assert.Equal(t, uint8(9), msg.Priority)
	assert.Equal(t, "application/json", msg.ContentType)

	var got models.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, int64(42), got.OrderID)
	assert.Equal(t, "created", got.Type)
}

func TestPublishDelayedEvent(t *testing.T) {
	r, ch := newTestRabbit()

	require.NoError(t, r.PublishDelayedEvent(context.Background(), models.OrderEvent{OrderID: 1, Type: "pending_timeout"}, 15*time.Minute))

	require.Len(t, ch.published, 1)
	assert.Equal(t, "delay_x", ch.published[0].exchange)
	assert.Equal(t, int64(900000), ch.published[0].msg.Headers["x-delay"])
}
