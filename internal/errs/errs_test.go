package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	sentinel := New(KindConcurrency, "seat_already_booked", "seat already booked")
	wrapped := fmt.Errorf("book seat: %w", sentinel)

	if got := KindOf(wrapped); got != KindConcurrency {
		t.Fatalf("KindOf = %v, want %v", got, KindConcurrency)
	}
	if got := CodeOf(wrapped); got != "seat_already_booked" {
		t.Fatalf("CodeOf = %q", got)
	}
	if !errors.Is(wrapped, sentinel) {
		t.Fatal("errors.Is lost the sentinel")
	}
}

func TestUnclassifiedIsFatal(t *testing.T) {
	err := errors.New("connection refused")
	if KindOf(err) != KindFatal {
		t.Fatalf("expected fatal kind")
	}
	if CodeOf(err) != "internal" {
		t.Fatalf("expected internal code, got %q", CodeOf(err))
	}
	if KindOf(nil) != KindFatal {
		t.Fatalf("nil should report fatal")
	}
}

func TestValidationFormats(t *testing.T) {
	err := Validation("section %q repeated", "VIP")
	if err.Kind != KindValidation || err.Code != "invalid_argument" {
		t.Fatalf("unexpected error %+v", err)
	}
	if err.Error() != `section "VIP" repeated` {
		t.Fatalf("message = %q", err.Error())
	}
}
