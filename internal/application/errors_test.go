package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/class-booker/internal/portal"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"time": "must be HH:MM", "date": "is required"}}
	if got := withFields.Error(); got != "validation failed: date is required; time must be HH:MM" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	base := &ValidationError{}
	base.add("date", "is in the past")
	if !base.HasErrors() || base.FieldErrors["date"] != "is in the past" {
		t.Fatalf("expected add to populate map, got %+v", base.FieldErrors)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("%w: dial", ErrUnavailable), "unavailable"},
		{ErrNotConfigured, "not_configured"},
		{&ValidationError{FieldErrors: map[string]string{"time": "bad"}}, "validation"},
		{fmt.Errorf("wrap: %w", portal.ErrSessionInvalid), "session_invalid"},
		{portal.ErrBusy, "busy"},
		{errors.New("boom"), "unexpected"},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
