package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"gorm.io/gorm"
)

// Kind classifies service errors for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalid
	KindForbidden
	KindConflict
	KindUnauthorized
	KindUnavailable
)

type kinded interface {
	Kind() Kind
}

// KindOf returns the Kind of the first classified error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// EmptyCartError is returned when checking out a cart without items.
type EmptyCartError struct{}

func (e *EmptyCartError) Error() string { return "cart is empty, add products before checking out" }
func (e *EmptyCartError) Kind() Kind    { return KindInvalid }

// ValidationError lists offending input fields with a message for each.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Kind() Kind { return KindInvalid }

// InsufficientStockError names the product whose stock cannot cover the requested quantity.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (requested: %d, available: %d)", e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Kind() Kind { return KindInvalid }

// InvalidTransitionError rejects an order status change that the current status does not allow.
type InvalidTransitionError struct {
	Status models.OrderStatus
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s an order with status %s", e.Action, e.Status)
}

func (e *InvalidTransitionError) Kind() Kind { return KindInvalid }

type AlreadyCancelledError struct{}

func (e *AlreadyCancelledError) Error() string { return "order is already cancelled" }
func (e *AlreadyCancelledError) Kind() Kind    { return KindInvalid }

// ImmutableOrderError rejects edits to an order that is no longer pending.
type ImmutableOrderError struct {
	Status models.OrderStatus
}

func (e *ImmutableOrderError) Error() string {
	return fmt.Sprintf("only pending orders can be updated, order is %s", e.Status)
}

func (e *ImmutableOrderError) Kind() Kind { return KindInvalid }

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Resource, e.ID) }
func (e *NotFoundError) Kind() Kind    { return KindNotFound }

type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }
func (e *ForbiddenError) Kind() Kind    { return KindForbidden }

type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }
func (e *ConflictError) Kind() Kind    { return KindConflict }

// AuthError is a failed authentication. The message never says which credential was wrong.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }
func (e *AuthError) Kind() Kind    { return KindUnauthorized }

// TransactionError is an infrastructure failure inside a transaction. Nothing was committed,
// so the request may be retried.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s failed, please retry: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }
func (e *TransactionError) Kind() Kind    { return KindUnavailable }

// txError passes classified errors through and wraps everything else as a TransactionError.
func txError(op string, err error) error {
	if err == nil || KindOf(err) != KindInternal {
		return err
	}
	return &TransactionError{Op: op, Err: err}
}

// lookupError turns a repository miss into a NotFoundError.
func lookupError(resource, id string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return &NotFoundError{Resource: resource, ID: id}
	}
	return err
}

// writeError turns constraint violations reported by the database into ConflictErrors.
func writeError(resource string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &ConflictError{Reason: resource + " already exists"}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &ConflictError{Reason: resource + " is still referenced"}
	}
	return err
}
