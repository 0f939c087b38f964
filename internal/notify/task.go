package notify

import (
	"fmt"
	"strings"

	"storefront/internal/models"
)

// Template names known to the Renderer.
const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplatePasswordReset     = "password_reset"
)

// Task is one email to render and deliver. It is the unit carried by the queues, so it
// holds plain strings only.
type Task struct {
	Template string            `json:"template"`
	To       []string          `json:"to"`
	Data     map[string]string `json:"data"`
}

// OrderConfirmation builds the confirmation email for a freshly checked out order.
// Items must have their Product loaded for names to appear.
func OrderConfirmation(order *models.Order, user *models.User) Task {
	lines := make([]string, 0, len(order.Items))
	for _, it := range order.Items {
		name := it.ProductID
		if it.Product != nil {
			name = it.Product.Name
		}
		lines = append(lines, fmt.Sprintf("%d x %s @ %s", it.Quantity, name, it.Price.StringFixed(2)))
	}
	return Task{
		Template: TemplateOrderConfirmation,
		To:       []string{user.Email},
		Data: map[string]string{
			"order_id":         order.ID,
			"name":             user.FullName(),
			"total":            order.TotalPrice.StringFixed(2),
			"shipping_address": order.ShippingAddress,
			"payment_method":   order.PaymentMethod,
			"items":            strings.Join(lines, "\n"),
		},
	}
}

// PasswordReset builds the email carrying a password reset link.
func PasswordReset(user *models.User, resetLink string) Task {
	return Task{
		Template: TemplatePasswordReset,
		To:       []string{user.Email},
		Data: map[string]string{
			"name":       user.FullName(),
			"reset_link": resetLink,
		},
	}
}

// DeliveryError reports a failed render or send. Callers log it; it never reaches clients.
type DeliveryError struct {
	Template string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notification %s not delivered: %v", e.Template, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
