package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]string{"id": "1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var body struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data["id"] != "1" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	FieldErrors(rec, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", map[string]string{"name": "is required"})
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	fields, ok := body["fields"].(map[string]any)
	if !ok || fields["name"] != "is required" || body["success"] != false {
		t.Fatalf("unexpected body %v", body)
	}
}
