package handlers

import (
	"net/http"

	"storefront-order-service/pkg/response"
)

type adjustRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) AdminInventoryGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	rec, err := h.Inventory.Get(r.Context(), p.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, rec)
}

// AdminInventoryAdjust applies a manual stock correction. Stock may go
// negative.
func (h *Handler) AdminInventoryAdjust(w http.ResponseWriter, r *http.Request) {
	var body adjustRequest
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	if body.Delta == 0 {
		response.FieldErrors(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", map[string]string{"delta": "must not be zero"})
		return
	}
	p, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	if err := h.Inventory.Adjust(r.Context(), p.ID, body.Delta); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.Inventory.Get(r.Context(), p.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, rec)
}
