package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDatabase       = errors.New("database error")
	ErrPartialFailure = errors.New("partial failure")
	ErrValidation     = errors.New("invalid order")
	ErrTotalMismatch  = errors.New("declared total does not match catalog prices")
)

// Stage names an order assembly step. They appear in failure messages.
type Stage string

const (
	StageReceived         Stage = "received"
	StageCustomerResolved Stage = "customer_resolved"
	StageVendorResolved   Stage = "vendor_resolved"
	StageOrderCreated     Stage = "order_created"
	StageItemsProcessed   Stage = "items_processed"
	StageResponded        Stage = "responded"
)

// StageError is a failure at one stage of order assembly. Message is safe to
// show to the client.
type StageError struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, message string, err error) *StageError {
	return &StageError{Stage: stage, Message: message, Err: err}
}
