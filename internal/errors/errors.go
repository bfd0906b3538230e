package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Timeless error code.
type ErrorCode string

const (
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"       // 400
	ErrMissingFields        ErrorCode = "MISSING_FIELDS"        // 400
	ErrEmailRequired        ErrorCode = "EMAIL_REQUIRED"        // 400
	ErrAddressRequired      ErrorCode = "ADDRESS_REQUIRED"      // 400
	ErrDateNotFuture        ErrorCode = "DATE_NOT_FUTURE"       // 400
	ErrMicrophoneDenied     ErrorCode = "MICROPHONE_DENIED"     // 403
	ErrNotFound             ErrorCode = "NOT_FOUND"             // 404
	ErrConflict             ErrorCode = "CONFLICT"              // 409
	ErrSealed               ErrorCode = "SEALED"                // 409
	ErrBusy                 ErrorCode = "BUSY"                  // 409
	ErrAttachmentTooLarge   ErrorCode = "ATTACHMENT_TOO_LARGE"  // 413
	ErrStoreLocked          ErrorCode = "STORE_LOCKED"          // 423
	ErrConfirmationRequired ErrorCode = "CONFIRMATION_REQUIRED" // 428
	ErrInternal             ErrorCode = "INTERNAL"              // 500
	ErrCreateFailed         ErrorCode = "CREATE_FAILED"         // 502
)

// TimelessError represents a structured error with code, status, and details.
type TimelessError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *TimelessError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *TimelessError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TimelessError {
	return &TimelessError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewMissingFields creates a 400 error when a base capsule field is empty.
func NewMissingFields() *TimelessError {
	return &TimelessError{
		Code:    ErrMissingFields,
		Status:  400,
		Message: "Please fill in all required fields: Recipient Name, Delivery Date, and Message.",
	}
}

// NewEmailRequired creates a 400 error for a digital capsule without an email.
func NewEmailRequired() *TimelessError {
	return &TimelessError{
		Code:    ErrEmailRequired,
		Status:  400,
		Message: "Please provide the recipient's email for digital delivery.",
	}
}

// NewAddressRequired creates a 400 error for a physical capsule without an address.
func NewAddressRequired() *TimelessError {
	return &TimelessError{
		Code:    ErrAddressRequired,
		Status:  400,
		Message: "Please provide the recipient's physical address for letter delivery.",
	}
}

// NewDateNotFuture creates a 400 error when the delivery date is not after now.
func NewDateNotFuture() *TimelessError {
	return &TimelessError{
		Code:    ErrDateNotFuture,
		Status:  400,
		Message: "Delivery date must be in the future.",
	}
}

// NewMicrophoneDenied creates a 403 error when audio capture cannot start.
func NewMicrophoneDenied(err error) *TimelessError {
	return &TimelessError{
		Code:    ErrMicrophoneDenied,
		Status:  403,
		Message: "Microphone access was denied. Please allow microphone access in your browser settings.",
		cause:   err,
	}
}

// NewNotFound creates a 404 error for when a capsule (or other resource) cannot be found.
func NewNotFound(identifier string) *TimelessError {
	return &TimelessError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *TimelessError {
	return &TimelessError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewSealed creates a 409 error when a sealed capsule is targeted by a mutation.
func NewSealed(id string) *TimelessError {
	return &TimelessError{
		Code:    ErrSealed,
		Status:  409,
		Message: fmt.Sprintf("capsule %s is sealed and cannot be edited or deleted", id),
		Details: map[string]any{"id": id},
	}
}

// NewBusy creates a 409 error when a capsule is already being created.
func NewBusy() *TimelessError {
	return &TimelessError{
		Code:    ErrBusy,
		Status:  409,
		Message: "a capsule is already being created; wait for it to finish",
	}
}

// NewAttachmentTooLarge creates a 413 error when an attachment exceeds the size limit.
func NewAttachmentTooLarge(max, actual int64) *TimelessError {
	return &TimelessError{
		Code:    ErrAttachmentTooLarge,
		Status:  413,
		Message: fmt.Sprintf("attachment exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewStoreLocked creates a 423 error when another process owns the store.
func NewStoreLocked(path string) *TimelessError {
	return &TimelessError{
		Code:    ErrStoreLocked,
		Status:  423,
		Message: "capsule store is in use by another timeless process",
		Details: map[string]any{"lock": path},
	}
}

// NewConfirmationRequired creates a 428 error for a missing, used, or expired intent token.
func NewConfirmationRequired(token string) *TimelessError {
	return &TimelessError{
		Code:    ErrConfirmationRequired,
		Status:  428,
		Message: "confirmation token is unknown or expired; request the action again",
		Details: map[string]any{"token": token},
	}
}

// NewCreateFailed creates a 502 error for capsule creation failing after validation.
func NewCreateFailed(err error) *TimelessError {
	return &TimelessError{
		Code:    ErrCreateFailed,
		Status:  502,
		Message: "Failed to create capsule. Could not generate or process the cover/letter image.",
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *TimelessError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &TimelessError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// As extracts a TimelessError from err, wrapping anything else as internal.
func As(err error) *TimelessError {
	var tErr *TimelessError
	if stderrors.As(err, &tErr) {
		return tErr
	}
	return NewInternal(err)
}

// Is checks if an error is a TimelessError with the given code.
func Is(err error, code ErrorCode) bool {
	var tErr *TimelessError
	if stderrors.As(err, &tErr) {
		return tErr.Code == code
	}
	return false
}
