package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestHelpersWrapSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
		msg  string
	}{
		{"invalid", Invalid("team ids are required"), ErrInvalidArgument, "invalid argument: team ids are required"},
		{"not found", NotFound("master %s", "m-1"), ErrNotFound, "not found: master m-1"},
		{"forbidden", Forbidden("no active shift"), ErrForbidden, "forbidden: no active shift"},
		{"conflict", Conflict("cursor moved"), ErrConflict, "conflict: cursor moved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.want)
			}
			if tt.err.Error() != tt.msg {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.msg)
			}
		})
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("series: edit: %w", NotFound("exception e-1"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrapped error lost its sentinel: %v", err)
	}
	if errors.Is(err, ErrConflict) {
		t.Fatal("wrapped not-found error should not match ErrConflict")
	}
}
