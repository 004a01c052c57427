package kerrors

import (
	"fmt"
	"testing"
)

func TestClassifyWrapped(t *testing.T) {
	err := fmt.Errorf("player 01MH: %w", ErrNotFound)
	if got := Classify(err); got != KindNotFound {
		t.Fatalf("Classify() = %q, want %q", got, KindNotFound)
	}
}

func TestClassifyUnknown(t *testing.T) {
	if got := Classify(fmt.Errorf("boom")); got != KindUnknown {
		t.Fatalf("Classify() = %q, want %q", got, KindUnknown)
	}
	if got := Classify(nil); got != KindUnknown {
		t.Fatalf("Classify(nil) = %q, want %q", got, KindUnknown)
	}
}

func TestUserString(t *testing.T) {
	got := UserString(ErrValidation)
	want := "❌ validation error"
	if got != want {
		t.Fatalf("UserString() = %q, want %q", got, want)
	}
}
