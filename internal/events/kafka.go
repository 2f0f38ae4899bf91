package events

import (
	"context"

	"github.com/segmentio/kafka-go"

	"topicspin-api/internal/models"
)

type Kafka struct {
	w *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (k *Kafka) Publish(ctx context.Context, ev models.AssignmentEvent) error {
	b, err := Encode(ev)
	if err != nil {
		return err
	}
	key := ev.ID
	if ev.Assignment != nil {
		key = ev.Assignment.EmployeeID
	}
	err = k.w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b})
	observe("kafka", err)
	return err
}

func (k *Kafka) Close() error { return k.w.Close() }
