package aggregates

import (
	"errors"
	"testing"

	"github.com/ds4psb/komission-core/internal/platform/apperr"
	"gorm.io/gorm"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", apperr.CodeOf(err), err)
	}
}

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("stale"))
	if !apperr.Is(err, apperr.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", apperr.CodeOf(err), err)
	}
}

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", apperr.CodeOf(err), err)
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := apperr.New(apperr.CodeRetryable, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
}
