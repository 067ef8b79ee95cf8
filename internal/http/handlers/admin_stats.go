package handlers

import (
	"net/http"
	"strings"

	"storefront-order-service/internal/auth"
	"storefront-order-service/pkg/response"
)

// AdminStats reports today/week/month totals. Without businessId it covers
// every comercio, which only national admins may ask for.
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	businessID := strings.TrimSpace(r.URL.Query().Get("businessId"))
	scope := claimsOf(r).Scope()
	if scope.Role == auth.RoleBusiness {
		businessID = scope.BusinessID
	}
	if businessID == "" && !scope.All() {
		response.Error(w, http.StatusBadRequest, "BUSINESS_REQUIRED", "businessId is required")
		return
	}
	if businessID != "" && !h.guard(w, r, businessID) {
		return
	}
	response.Success(w, h.Stats.Summary(businessID, h.Orders.Now()))
}
