package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"topicspin-api/internal/events"
)

type Consumer struct {
	url      string
	exchange string
	handler  *events.Handler
}

func New(url, exchange string, h *events.Handler) *Consumer {
	return &Consumer{url: url, exchange: exchange, handler: h}
}

// Run binds a private queue to the fanout exchange and applies events until
// ctx ends or the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := events.DeclareExchange(ch, c.exchange); err != nil {
		return err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(q.Name, "", c.exchange, false, nil); err != nil {
		return err
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			ev, err := events.Decode(m.Body)
			if err != nil {
				log.Warn().Err(err).Msg("amqp decode")
				continue
			}
			c.handler.Handle(ev)
		}
	}
}
