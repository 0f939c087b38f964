package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/pkg/kafka"
)

// Publisher is the part of the RabbitMQ client used to enqueue.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// RabbitQueue enqueues tasks on a RabbitMQ work queue.
type RabbitQueue struct {
	publisher Publisher
}

func NewRabbitQueue(p Publisher) *RabbitQueue {
	return &RabbitQueue{publisher: p}
}

func (q *RabbitQueue) Enqueue(ctx context.Context, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	return q.publisher.Publish(ctx, body)
}

// KafkaQueue enqueues tasks on a Kafka topic, keyed by template.
type KafkaQueue struct {
	writer kafka.Writer
}

func NewKafkaQueue(w kafka.Writer) *KafkaQueue {
	return &KafkaQueue{writer: w}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, task Task) error {
	if q.writer == nil {
		return kafka.ErrDisabled
	}
	if err := kafka.PublishJSON(ctx, q.writer, task.Template, task); err != nil {
		return fmt.Errorf("failed to publish task to kafka: %w", err)
	}
	return nil
}
