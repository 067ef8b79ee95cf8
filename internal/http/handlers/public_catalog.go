package handlers

import (
	"net/http"

	"storefront-order-service/pkg/response"
)

func (h *Handler) PublicBusinessList(w http.ResponseWriter, r *http.Request) {
	businesses, err := h.Catalog.ListBusinesses(r.Context(), true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, businesses)
}

func (h *Handler) PublicBusinessDetail(w http.ResponseWriter, r *http.Request) {
	b, err := h.Catalog.GetBusiness(r.Context(), readPathString(r, "id"))
	if err != nil || !b.Active {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Comercio not found")
		return
	}
	response.Success(w, b)
}

func (h *Handler) PublicBusinessProducts(w http.ResponseWriter, r *http.Request) {
	b, err := h.Catalog.GetBusiness(r.Context(), readPathString(r, "id"))
	if err != nil || !b.Active {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Comercio not found")
		return
	}
	products, err := h.Catalog.ListProducts(r.Context(), b.ID, true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, products)
}
