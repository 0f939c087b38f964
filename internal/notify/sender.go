package notify

import (
	"context"
	"errors"

	"storefront/internal/logging"
)

// Deliverer sends a task synchronously.
type Deliverer interface {
	Send(ctx context.Context, task Task) error
}

// Sender renders a task and hands the result to a Mailer.
type Sender struct {
	renderer *Renderer
	mailer   Mailer
	from     string
	cc       []string
}

func NewSender(renderer *Renderer, mailer Mailer, from string, cc []string) *Sender {
	return &Sender{renderer: renderer, mailer: mailer, from: from, cc: cc}
}

// Send renders and delivers task. Every failure is returned as a *DeliveryError.
func (s *Sender) Send(ctx context.Context, task Task) error {
	if len(task.To) == 0 {
		return &DeliveryError{Template: task.Template, Err: errors.New("no recipients")}
	}
	content, err := s.renderer.Render(task.Template, task.Data)
	if err != nil {
		return &DeliveryError{Template: task.Template, Err: err}
	}
	msg := Message{
		From:    s.from,
		To:      task.To,
		Cc:      s.cc,
		Subject: content.Subject,
		Text:    content.Text,
		HTML:    content.HTML,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return &DeliveryError{Template: task.Template, Err: err}
	}
	logging.FromContext(ctx).Info("email sent", "template", task.Template, "to", task.To)
	return nil
}
