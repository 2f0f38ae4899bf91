package events

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"topicspin-api/internal/models"
)

// AMQP publishes to a fanout exchange so every instance's queue gets a copy.
type AMQP struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQP(url, exchange string) *AMQP {
	return &AMQP{url: url, exchange: exchange}
}

// DeclareExchange declares the fanout exchange events are published to.
func DeclareExchange(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(name, amqp.ExchangeFanout, true, false, false, false, nil)
}

func (a *AMQP) Publish(ctx context.Context, ev models.AssignmentEvent) error {
	b, err := Encode(ev)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	ch, err := a.channelLocked()
	if err != nil {
		observe("amqp", err)
		return err
	}
	err = ch.PublishWithContext(ctx, a.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    ev.ID,
		Timestamp:    ev.TS,
		DeliveryMode: amqp.Transient,
		Body:         b,
	})
	if err != nil {
		a.resetLocked()
	}
	observe("amqp", err)
	return err
}

func (a *AMQP) channelLocked() (*amqp.Channel, error) {
	if a.ch != nil && !a.ch.IsClosed() {
		return a.ch, nil
	}
	a.resetLocked()
	conn, err := amqp.Dial(a.url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := DeclareExchange(ch, a.exchange); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange %s: %w", a.exchange, err)
	}
	a.conn, a.ch = conn, ch
	return ch, nil
}

func (a *AMQP) resetLocked() {
	if a.ch != nil {
		_ = a.ch.Close()
	}
	if a.conn != nil {
		_ = a.conn.Close()
	}
	a.conn, a.ch = nil, nil
}

func (a *AMQP) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
	return nil
}
