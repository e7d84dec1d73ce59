package library

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestCodeOfTypedAndUntyped(t *testing.T) {
	if got := CodeOf(NewError(CodeOutOfStock, "no copies")); got != CodeOutOfStock {
		t.Fatalf("want OUT_OF_STOCK, got %s", got)
	}
	if got := CodeOf(stdErrors.New("boom")); got != CodeInternal {
		t.Fatalf("untyped errors default to INTERNAL, got %s", got)
	}
	if got := CodeOf(nil); got != CodeInternal {
		t.Fatalf("nil defaults to INTERNAL, got %s", got)
	}
}

func TestNotFoundCarriesKind(t *testing.T) {
	err := NotFound("material")
	if !IsCode(err, CodeNotFound) {
		t.Fatalf("want NOT_FOUND, got %v", err)
	}
	if err.Kind() != "material" {
		t.Fatalf("want kind material, got %q", err.Kind())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("disk on fire")
	err := WrapError(CodeDeserialization, cause, "malformed document")

	if !stdErrors.Is(err, cause) {
		t.Fatalf("wrapped cause should survive errors.Is")
	}
	if !IsCode(err, CodeDeserialization) {
		t.Fatalf("want DESERIALIZATION, got %v", err)
	}
}

func TestAsErrorThroughWrapping(t *testing.T) {
	inner := NewError(CodeDuplicateKey, "member exists")
	outer := fmt.Errorf("registering: %w", inner)

	typed := AsError(outer)
	if typed == nil || typed.Code() != CodeDuplicateKey {
		t.Fatalf("typed error should unwrap through fmt wrapping, got %v", typed)
	}
}
