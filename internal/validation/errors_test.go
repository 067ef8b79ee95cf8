package validation

import (
	"fmt"
	"net/http"
	"testing"
)

func TestFieldsErr(t *testing.T) {
	f := Fields{}
	if f.Err() != nil {
		t.Fatalf("expected nil error for empty fields")
	}

	f.Require("name", "  ")
	f.Require("phone", "555")
	f.Check(false, "price", "must be >= 0")
	f.Check(false, "price", "ignored second message")

	err := f.Err()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	verr, ok := As(fmt.Errorf("wrapped: %w", err))
	if !ok {
		t.Fatalf("expected As to unwrap validation error")
	}
	if verr.StatusCode != http.StatusBadRequest || verr.Code != ErrValidation {
		t.Fatalf("unexpected error %+v", verr)
	}
	if len(verr.Fields) != 2 || verr.Fields["price"] != "must be >= 0" {
		t.Fatalf("unexpected fields %v", verr.Fields)
	}
	if got := verr.Error(); got != "Invalid input (name: is required; price: must be >= 0)" {
		t.Fatalf("unexpected message %q", got)
	}
}
