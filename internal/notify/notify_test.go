package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/logging"
	"storefront/internal/models"
	kafkaclient "storefront/pkg/kafka"
)

type mockDeliverer struct {
	mock.Mock
}

func (m *mockDeliverer) Send(ctx context.Context, task Task) error {
	return m.Called(task).Error(0)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(ctx context.Context, task Task) error {
	return m.Called(task).Error(0)
}

type recordingMailer struct {
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type recordingPublisher struct {
	bodies [][]byte
}

func (p *recordingPublisher) Publish(_ context.Context, body []byte) error {
	p.bodies = append(p.bodies, body)
	return nil
}

type recordingWriter struct {
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

type sliceReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
}

func (r *sliceReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, context.Canceled
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *sliceReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func sampleOrder() (*models.Order, *models.User) {
	user := &models.User{ID: "u1", Username: "ana", Email: "ana@example.com", FirstName: "Ana", LastName: "Lee"}
	order := &models.Order{
		ID:              "o1",
		UserID:          user.ID,
		ShippingAddress: "1 Main St",
		PaymentMethod:   "card",
		TotalPrice:      decimal.RequireFromString("20.00"),
		Items: []models.OrderItem{{
			ProductID: "p1",
			Product:   &models.Product{ID: "p1", Name: "Widget"},
			Quantity:  2,
			Price:     decimal.RequireFromString("10.00"),
		}},
	}
	return order, user
}

func TestRenderer_OrderConfirmation(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	order, user := sampleOrder()
	task := OrderConfirmation(order, user)
	out, err := r.Render(task.Template, task.Data)
	require.NoError(t, err)

	assert.Equal(t, "Order #o1 Confirmation", out.Subject)
	assert.Contains(t, out.Text, "Hi Ana Lee")
	assert.Contains(t, out.Text, "$20.00")
	assert.Contains(t, out.Text, "2 x Widget @ 10.00")
	assert.Contains(t, out.HTML, "<strong>#o1</strong>")
}

func TestRenderer_EscapesHTML(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	out, err := r.Render(TemplatePasswordReset, map[string]string{
		"name":       "<b>x</b>",
		"reset_link": "https://shop.example/reset-password-confirm/?uid=1&token=t",
	})
	require.NoError(t, err)
	assert.Contains(t, out.Text, "<b>x</b>")
	assert.NotContains(t, out.HTML, "<b>x</b>")
	assert.Contains(t, out.HTML, "https://shop.example/reset-password-confirm/?uid=1&amp;token=t")
}

func TestRenderer_Errors(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	_, err = r.Render("nope", nil)
	assert.Error(t, err)

	_, err = r.Render(TemplatePasswordReset, map[string]string{"name": "x"})
	assert.Error(t, err, "missing keys must fail rendering")

	_, err = newRenderer(fstest.MapFS{"t/bad.tmpl": {Data: []byte("{{define")}}, "t")
	assert.Error(t, err)
}

func TestSender_Send(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	mailer := &recordingMailer{}
	sender := NewSender(r, mailer, "shop@example.com", []string{"audit@example.com"})

	order, user := sampleOrder()
	require.NoError(t, sender.Send(context.Background(), OrderConfirmation(order, user)))
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "shop@example.com", msg.From)
	assert.Equal(t, []string{"ana@example.com"}, msg.To)
	assert.Equal(t, []string{"audit@example.com"}, msg.Cc)
	assert.Equal(t, "Order #o1 Confirmation", msg.Subject)
}

func TestSender_WrapsFailures(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	smtpErr := errors.New("connection refused")
	sender := NewSender(r, &recordingMailer{err: smtpErr}, "shop@example.com", nil)

	order, user := sampleOrder()
	err = sender.Send(context.Background(), OrderConfirmation(order, user))
	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, TemplateOrderConfirmation, de.Template)
	assert.ErrorIs(t, err, smtpErr)

	err = sender.Send(context.Background(), Task{Template: TemplatePasswordReset})
	assert.ErrorAs(t, err, &de)
}

func TestQueued_EnqueueSuccessSkipsSender(t *testing.T) {
	q := new(mockQueue)
	d := new(mockDeliverer)
	task := Task{Template: TemplatePasswordReset, To: []string{"a@example.com"}}
	q.On("Enqueue", task).Return(nil).Once()

	err := New(true, q, d).Dispatch(context.Background(), task)
	assert.NoError(t, err)
	q.AssertExpectations(t)
	d.AssertNotCalled(t, "Send", mock.Anything)
}

func TestQueued_FallsBackToSender(t *testing.T) {
	var logs bytes.Buffer
	ctx := logging.IntoContext(context.Background(), logging.NewWithWriter(&logs, "debug"))

	q := new(mockQueue)
	d := new(mockDeliverer)
	task := Task{Template: TemplateOrderConfirmation, To: []string{"a@example.com"}}
	q.On("Enqueue", task).Return(errors.New("broker down")).Once()
	d.On("Send", task).Return(nil).Once()

	err := New(true, q, d).Dispatch(ctx, task)
	assert.NoError(t, err)
	q.AssertExpectations(t)
	d.AssertExpectations(t)
	assert.Contains(t, logs.String(), "enqueue failed")
}

func TestNew_SelectsDirect(t *testing.T) {
	d := new(mockDeliverer)
	task := Task{Template: TemplatePasswordReset}
	d.On("Send", task).Return(errors.New("smtp down")).Twice()

	assert.IsType(t, &Direct{}, New(false, new(mockQueue), d))
	assert.IsType(t, &Direct{}, New(true, nil, d))
	assert.Error(t, New(false, nil, d).Dispatch(context.Background(), task))
	assert.Error(t, New(true, nil, d).Dispatch(context.Background(), task))
	d.AssertExpectations(t)
}

func TestQueues_EncodeTask(t *testing.T) {
	task := Task{Template: TemplatePasswordReset, To: []string{"a@example.com"}, Data: map[string]string{"name": "A"}}

	pub := &recordingPublisher{}
	require.NoError(t, NewRabbitQueue(pub).Enqueue(context.Background(), task))
	require.Len(t, pub.bodies, 1)
	var decoded Task
	require.NoError(t, json.Unmarshal(pub.bodies[0], &decoded))
	assert.Equal(t, task, decoded)

	w := &recordingWriter{}
	require.NoError(t, NewKafkaQueue(w).Enqueue(context.Background(), task))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, TemplatePasswordReset, string(w.msgs[0].Key))
	assert.JSONEq(t, string(pub.bodies[0]), string(w.msgs[0].Value))

	assert.ErrorIs(t, NewKafkaQueue(nil).Enqueue(context.Background(), task), kafkaclient.ErrDisabled)
}

func TestWorker_Handle(t *testing.T) {
	d := new(mockDeliverer)
	w := NewWorker(d, logging.Discard())
	task := Task{Template: TemplatePasswordReset, To: []string{"a@example.com"}}
	body, err := json.Marshal(task)
	require.NoError(t, err)

	d.On("Send", task).Return(nil).Once()
	assert.NoError(t, w.Handle(context.Background(), body))

	d.On("Send", task).Return(errors.New("smtp down")).Once()
	assert.Error(t, w.Handle(context.Background(), body))

	assert.NoError(t, w.Handle(context.Background(), []byte("not json")))
	d.AssertExpectations(t)
}

func TestWorker_RunKafkaCommitsEveryMessage(t *testing.T) {
	d := new(mockDeliverer)
	w := NewWorker(d, logging.Discard())
	ok := Task{Template: TemplatePasswordReset, To: []string{"a@example.com"}}
	bad := Task{Template: TemplateOrderConfirmation, To: []string{"b@example.com"}}
	okBody, _ := json.Marshal(ok)
	badBody, _ := json.Marshal(bad)
	d.On("Send", ok).Return(nil).Once()
	d.On("Send", bad).Return(errors.New("smtp down")).Once()

	reader := &sliceReader{msgs: []kafka.Message{{Value: okBody, Offset: 1}, {Value: badBody, Offset: 2}}}
	require.NoError(t, w.RunKafka(context.Background(), reader))
	assert.Len(t, reader.committed, 2)
	d.AssertExpectations(t)
}
