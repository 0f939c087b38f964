package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"storefront/internal/logging"
	"storefront/pkg/kafka"
)

// Worker consumes queued tasks and delivers them.
type Worker struct {
	deliverer Deliverer
	logger    *slog.Logger
}

func NewWorker(d Deliverer, logger *slog.Logger) *Worker {
	return &Worker{deliverer: d, logger: logger}
}

// Handle decodes and delivers one queued payload. Undecodable payloads are logged and
// dropped (nil error) because redelivering them cannot succeed.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var task Task
	if err := json.Unmarshal(body, &task); err != nil {
		w.logger.Error("dropping malformed task", "error", err)
		return nil
	}
	ctx = logging.IntoContext(ctx, w.logger)
	if err := w.deliverer.Send(ctx, task); err != nil {
		w.logger.Error("task delivery failed", "template", task.Template, "error", err)
		return err
	}
	return nil
}

// RunKafka fetches, delivers and commits messages until ctx is done. Failed deliveries
// are committed as well; Kafka has no per-message requeue.
func (w *Worker) RunKafka(ctx context.Context, reader kafka.Reader) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		// Handle logs failures; the offset is committed either way.
		_ = w.Handle(ctx, msg.Value)
		if err := reader.CommitMessages(ctx, msg); err != nil {
			w.logger.Error("kafka commit failed", "offset", msg.Offset, "error", err)
		}
	}
}
