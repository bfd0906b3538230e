package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestTimelessError_Error(t *testing.T) {
	err := &TimelessError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "not found: abc",
	}

	expected := "NOT_FOUND: not found: abc"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestConstructors_CodeAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *TimelessError
		code   ErrorCode
		status int
	}{
		{"invalid request", NewInvalidRequest("bad"), ErrInvalidRequest, 400},
		{"missing fields", NewMissingFields(), ErrMissingFields, 400},
		{"email required", NewEmailRequired(), ErrEmailRequired, 400},
		{"address required", NewAddressRequired(), ErrAddressRequired, 400},
		{"date not future", NewDateNotFuture(), ErrDateNotFuture, 400},
		{"microphone denied", NewMicrophoneDenied(nil), ErrMicrophoneDenied, 403},
		{"not found", NewNotFound("x"), ErrNotFound, 404},
		{"conflict", NewConflict("dup"), ErrConflict, 409},
		{"sealed", NewSealed("x"), ErrSealed, 409},
		{"busy", NewBusy(), ErrBusy, 409},
		{"too large", NewAttachmentTooLarge(10, 20), ErrAttachmentTooLarge, 413},
		{"locked", NewStoreLocked("/tmp/x.lock"), ErrStoreLocked, 423},
		{"confirmation", NewConfirmationRequired("tok"), ErrConfirmationRequired, 428},
		{"create failed", NewCreateFailed(nil), ErrCreateFailed, 502},
		{"internal", NewInternal(nil), ErrInternal, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Status != tt.status {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.status)
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("01HXYZ")

	if err.Details["identifier"] != "01HXYZ" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "01HXYZ")
	}
}

func TestNewAttachmentTooLarge(t *testing.T) {
	err := NewAttachmentTooLarge(100, 150)

	if err.Details["max_bytes"] != int64(100) {
		t.Errorf("Details[max_bytes] = %v, want 100", err.Details["max_bytes"])
	}
	if err.Details["actual_bytes"] != int64(150) {
		t.Errorf("Details[actual_bytes] = %v, want 150", err.Details["actual_bytes"])
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("disk full"))
	if err.Message != "disk full" {
		t.Errorf("Message = %q, want %q", err.Message, "disk full")
	}

	err = NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("gateway down")
	err := NewCreateFailed(cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestIs(t *testing.T) {
	err := NewSealed("abc")

	if !Is(err, ErrSealed) {
		t.Error("Is(err, ErrSealed) = false, want true")
	}
	if Is(err, ErrNotFound) {
		t.Error("Is(err, ErrNotFound) = true, want false")
	}

	wrapped := fmt.Errorf("delete: %w", err)
	if !Is(wrapped, ErrSealed) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}

	if Is(fmt.Errorf("plain"), ErrInternal) {
		t.Error("plain errors are not TimelessErrors")
	}
	if Is(nil, ErrInternal) {
		t.Error("nil is not a TimelessError")
	}
}

func TestAs(t *testing.T) {
	sealed := NewSealed("abc")
	if got := As(fmt.Errorf("wrap: %w", sealed)); got != sealed {
		t.Errorf("As returned %v, want the wrapped sealed error", got)
	}

	got := As(fmt.Errorf("boom"))
	if got.Code != ErrInternal {
		t.Errorf("As(plain).Code = %q, want %q", got.Code, ErrInternal)
	}
}
