package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrQuantityOutOfRange      = errors.New("quantity must be between 1 and 10")
	ErrEmptyCart               = errors.New("cart is empty, nothing to checkout")
	ErrCartNotPriced           = errors.New("cart has items without a price")
	ErrEmptyCoupon             = errors.New("coupon code is empty")
	ErrIllegalTransition       = errors.New("illegal transition of checkout state")
	ErrMissingDescriptorFields = errors.New("payment descriptor is missing fields")
)

// FieldError is one invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is raised on the client before any request is made.
type ValidationError struct {
	Fields []FieldError
	Err    error
}

func NewValidationError(err error, field, message string) *ValidationError {
	return &ValidationError{Err: err, Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Messages returns one message per invalid field, in field order.
func (e *ValidationError) Messages() []string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return msgs
}

// NetworkError means no response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError means the request outlived its deadline and was aborted.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ServiceError is a non-success response; Message comes from the body.
type ServiceError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: service error (%d): %s", e.Op, e.Status, e.Message)
}

// BusinessRuleError is a domain rejection such as an expired coupon or a
// quantity above available stock.
type BusinessRuleError struct {
	Op      string
	Status  int
	Code    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: rejected (%s): %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: rejected: %s", e.Op, e.Message)
}

// Message turns any error into text suitable for a banner.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var (
		validation *ValidationError
		rule       *BusinessRuleError
		service    *ServiceError
		timeout    *TimeoutError
		network    *NetworkError
	)
	switch {
	case errors.As(err, &validation):
		return strings.Join(validation.Messages(), "\n")
	case errors.As(err, &rule):
		return rule.Message
	case errors.As(err, &service):
		return service.Message
	case errors.As(err, &timeout):
		return "The store took too long to answer. Please try again."
	case errors.As(err, &network):
		return "Could not reach the store. Check your connection and try again."
	default:
		return err.Error()
	}
}
