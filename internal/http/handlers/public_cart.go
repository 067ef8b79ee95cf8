package handlers

import (
	"net/http"

	"storefront-order-service/internal/cart"
	"storefront-order-service/pkg/response"
)

type cartItemRequest struct {
	ProductID string   `json:"productId"`
	VariantID string   `json:"variantId"`
	Quantity  int      `json:"quantity"`
	Size      string   `json:"size"`
	Modifiers []string `json:"modifiers"`
}

type cartRemoveRequest struct {
	ProductID  string `json:"productId"`
	VariantID  string `json:"variantId"`
	BusinessID string `json:"businessId"`
}

type cartLocationRequest struct {
	Location string `json:"location"`
}

// PublicCartSessionCreate hands out a fresh cart session id.
func (h *Handler) PublicCartSessionCreate(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Carts.Summary(r.Context(), cart.NewSessionID())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, summary)
}

func (h *Handler) PublicCartGet(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Carts.Summary(r.Context(), readPathString(r, "session"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, summary)
}

// PublicCartAddItem prices the line from the catalog; the client only says
// what and how many.
func (h *Handler) PublicCartAddItem(w http.ResponseWriter, r *http.Request) {
	var body cartItemRequest
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	line, err := h.Catalog.Quote(r.Context(), body.ProductID, body.VariantID, body.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	line.Size = body.Size
	line.Modifiers = body.Modifiers

	summary, err := h.Carts.Add(r.Context(), readPathString(r, "session"), line)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, summary)
}

func (h *Handler) PublicCartRemoveItem(w http.ResponseWriter, r *http.Request) {
	var body cartRemoveRequest
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	key := cart.LineItem{ProductID: body.ProductID, VariantID: body.VariantID, BusinessID: body.BusinessID}.Key()
	summary, err := h.Carts.Remove(r.Context(), readPathString(r, "session"), key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, summary)
}

func (h *Handler) PublicCartClear(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Carts.Clear(r.Context(), readPathString(r, "session"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, summary)
}

func (h *Handler) PublicCartSetLocation(w http.ResponseWriter, r *http.Request) {
	var body cartLocationRequest
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	summary, err := h.Carts.SetLocation(r.Context(), readPathString(r, "session"), body.Location)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, summary)
}
