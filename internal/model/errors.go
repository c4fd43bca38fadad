package model

import (
	"errors"
	"fmt"
)

// Lookup and permission errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrNotAuthorized = errors.New("not authorized")
	ErrEmailTaken    = errors.New("user already exists")
)

// Swap errors.
var (
	ErrAlreadyProcessed          = errors.New("swap request already processed")
	ErrItemUnavailable           = errors.New("item not available for swap")
	ErrSelfSwap                  = errors.New("cannot swap your own item")
	ErrInsufficientOfferedPoints = errors.New("insufficient points offered")
	ErrInsufficientBalance       = errors.New("not enough points in your account")
	ErrInvalidOfferedItem        = errors.New("invalid item offered")
)

// ErrNotAwaitingModeration is returned when approving or rejecting an item
// that is not in the moderation queue.
var ErrNotAwaitingModeration = errors.New("item is not awaiting moderation")

// ErrValidation marks malformed or out-of-range input.
var ErrValidation = errors.New("validation failed")

// ValidationError reports which input field was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid returns a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFound wraps ErrNotFound with the kind of entity that was missing.
func NotFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}
