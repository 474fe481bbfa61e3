package outbox

import (
	"context"
	"log/slog"

	"backoffice/internal/domain/model"

	"github.com/segmentio/kafka-go"
)

// Producerは*kafka.Writerが満たす
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Dispatcher struct {
	log      *slog.Logger
	producer Producer
	topic    string
}

func NewDispatcher(log *slog.Logger, producer Producer, topic string) *Dispatcher {
	return &Dispatcher{log: log, producer: producer, topic: topic}
}

// Dispatchは集約IDをキーにして送る（同じ注文のイベントは同じパーティション）
func (d *Dispatcher) Dispatch(ctx context.Context, event model.OutboxEvent) error {
	msg := kafka.Message{
		Topic: d.topic,
		Key:   []byte(event.AggregateType + ":" + event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "aggregate_type", Value: []byte(event.AggregateType)},
		},
		Time: event.CreatedAt,
	}
	if err := d.producer.WriteMessages(ctx, msg); err != nil {
		d.log.Error("outbox dispatch failed", "event_id", event.EventID, "err", err)
		return err
	}
	d.log.Info("outbox dispatched", "event_id", event.EventID, "type", event.Type)
	return nil
}
