package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"storefront-order-service/internal/auth"
	"storefront-order-service/internal/cart"
	"storefront-order-service/internal/catalog"
	"storefront-order-service/internal/checkout"
	"storefront-order-service/internal/inventory"
	"storefront-order-service/internal/middleware"
	"storefront-order-service/internal/order"
	"storefront-order-service/internal/pricing"
	"storefront-order-service/internal/validation"
	"storefront-order-service/internal/voucher"
	"storefront-order-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

var errBadJSON = errors.New("invalid json body")

func readPathString(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errBadJSON
	}
	return nil
}

func invalidBody(w http.ResponseWriter) {
	response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
}

func forbidden(w http.ResponseWriter) {
	response.Error(w, http.StatusForbidden, "FORBIDDEN", "You do not have access to this comercio")
}

// writeError maps domain errors onto the JSON error envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if v, ok := validation.As(err); ok {
		status := v.StatusCode
		if status == 0 {
			status = http.StatusBadRequest
		}
		if len(v.Fields) > 0 {
			response.FieldErrors(w, status, string(v.Code), v.Message, v.Fields)
			return
		}
		response.Error(w, status, string(v.Code), v.Message)
		return
	}

	var verr *voucher.Error
	if errors.As(err, &verr) {
		response.JSON(w, verr.StatusCode, map[string]any{
			"success": false,
			"error":   string(verr.Code),
			"message": verr.Message,
			"details": verr.Details,
		})
		return
	}

	switch {
	case errors.Is(err, order.ErrNotFound):
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
	case errors.Is(err, order.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, order.ErrInvalidStatus):
		response.Error(w, http.StatusBadRequest, "INVALID_STATUS", err.Error())
	case errors.Is(err, order.ErrInvalidEvent):
		response.Error(w, http.StatusBadRequest, "INVALID_EVENT", err.Error())
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, inventory.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Not found")
	case errors.Is(err, catalog.ErrVariantNotFound):
		response.Error(w, http.StatusNotFound, "VARIANT_NOT_FOUND", "Product variant not found")
	case errors.Is(err, cart.ErrSessionRequired), errors.Is(err, cart.ErrInvalidItem):
		response.Error(w, http.StatusBadRequest, "INVALID_CART", err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		response.Error(w, http.StatusBadRequest, "CART_EMPTY", "Cart is empty")
	case errors.Is(err, pricing.ErrUnknownLocation):
		response.Error(w, http.StatusBadRequest, "UNKNOWN_LOCATION", "Unknown location")
	case errors.Is(err, auth.ErrEmailInUse):
		response.Error(w, http.StatusConflict, string(validation.ErrEmailInUse), "Email is already registered")
	case errors.Is(err, auth.ErrInvalidCredentials):
		response.Error(w, http.StatusUnauthorized, string(validation.ErrInvalidLogin), "Invalid email or password")
	case errors.Is(err, auth.ErrUserNotFound):
		response.Error(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, context.Canceled):
		response.Error(w, http.StatusRequestTimeout, "CANCELLED", "Request cancelled")
	default:
		h.Logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("requestId", middleware.RequestIDFrom(r)),
			zap.Error(err),
		)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

func claimsOf(r *http.Request) *auth.Claims {
	claims, _ := middleware.ClaimsFrom(r.Context())
	if claims == nil {
		return &auth.Claims{}
	}
	return claims
}

func actorOf(r *http.Request) string {
	c := claimsOf(r)
	if c.Email != "" {
		return c.Email
	}
	return c.UserID
}

// canManage reports whether the session may act on the given business.
func (h *Handler) canManage(ctx context.Context, scope auth.Scope, businessID string) (bool, error) {
	if scope.All() {
		return true, nil
	}
	if businessID == "" {
		return false, nil
	}
	b, err := h.Catalog.GetBusiness(ctx, businessID)
	if errors.Is(err, catalog.ErrNotFound) {
		return scope.Role == auth.RoleBusiness && scope.BusinessID == businessID, nil
	}
	if err != nil {
		return false, err
	}
	return scope.Allows(b.ID, b.Region), nil
}

// guard writes the error or forbidden response and reports whether the
// request may continue.
func (h *Handler) guard(w http.ResponseWriter, r *http.Request, businessID string) bool {
	ok, err := h.canManage(r.Context(), claimsOf(r).Scope(), businessID)
	if err != nil {
		h.writeError(w, r, err)
		return false
	}
	if !ok {
		forbidden(w)
		return false
	}
	return true
}
