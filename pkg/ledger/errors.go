package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrForbidden is returned when the actor lacks the capability or is
	// scoped to a different bank.
	ErrForbidden = errors.New("forbidden")
	// ErrNoMorePayments is returned by NextPayment once every installment is paid.
	ErrNoMorePayments = errors.New("no more payments")
)

// FieldError is one rejected input.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every input rule an operation rejected. Nothing is
// written when one is returned.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return e.Fields[0].Message
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// err returns nil when nothing was added.
func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IllegalTransitionError is returned when an action is not allowed from the
// entity's current status.
type IllegalTransitionError struct {
	Entity string
	From   string
	Action string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s in status %s", e.Action, e.Entity, e.From)
}

// InsufficientFundsError is returned when a provider cannot cover a loan.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s",
		e.Required.StringFixed(2), e.Available.StringFixed(2))
}

type AlreadyPaidError struct {
	LoanID            uuid.UUID
	InstallmentNumber int
}

func (e *AlreadyPaidError) Error() string {
	return fmt.Sprintf("installment %d of loan %s is already paid", e.InstallmentNumber, e.LoanID)
}

// OutOfOrderPaymentError is returned under strict ordering when an
// installment is paid before an earlier unpaid one.
type OutOfOrderPaymentError struct {
	Requested int
	Next      int
}

func (e *OutOfOrderPaymentError) Error() string {
	return fmt.Sprintf("installment %d cannot be paid before installment %d", e.Requested, e.Next)
}
