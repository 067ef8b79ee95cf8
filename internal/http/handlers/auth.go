package handlers

import (
	"net/http"

	"storefront-order-service/internal/auth"
	"storefront-order-service/pkg/response"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type roleRequest struct {
	Role       string `json:"role"`
	BusinessID string `json:"businessId"`
	Region     string `json:"region"`
}

func (h *Handler) AuthSignup(w http.ResponseWriter, r *http.Request) {
	var body auth.SignupInput
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	session, err := h.Auth.Signup(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, session)
}

func (h *Handler) AuthLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	session, err := h.Auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, session)
}

func (h *Handler) AuthMe(w http.ResponseWriter, r *http.Request) {
	c := claimsOf(r)
	response.Success(w, map[string]any{
		"userId":     c.UserID,
		"email":      c.Email,
		"role":       c.Role,
		"businessId": c.BusinessID,
		"region":     c.Region,
	})
}

func (h *Handler) AdminAssignRole(w http.ResponseWriter, r *http.Request) {
	var body roleRequest
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	u, err := h.Auth.AssignRole(r.Context(), readPathString(r, "id"), auth.Role(body.Role), body.BusinessID, body.Region)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, u)
}
