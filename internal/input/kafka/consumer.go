package kafka

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"topicspin-api/internal/events"
)

type Consumer struct {
	reader  *kafka.Reader
	handler *events.Handler
}

// New reads the event topic in its own consumer group so every instance sees
// every event. Only events produced after startup matter.
func New(brokers []string, topic, group string, h *events.Handler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     group,
		StartOffset: kafka.LastOffset,
		MaxBytes:    10e6,
	})
	return &Consumer{reader: r, handler: h}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		ev, err := events.Decode(m.Value)
		if err != nil {
			log.Warn().Err(err).Msg("kafka decode")
			continue
		}
		c.handler.Handle(ev)
	}
}
