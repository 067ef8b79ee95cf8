package httpapi

import (
	"net/http"

	"storefront-order-service/internal/auth"
	"storefront-order-service/internal/http/handlers"
	"storefront-order-service/internal/metrics"
	"storefront-order-service/internal/middleware"
	"storefront-order-service/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func NewRouter(h *handlers.Handler, hub *ws.Hub) http.Handler {
	cfg := h.Config
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(h.Logger))

	if cfg.IsDevelopment() || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"X-Request-Id",
				"Cache-Control",
			},
			ExposedHeaders:   []string{"X-Request-Id", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.IsDevelopment() {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	checkoutLimiter := middleware.NewRateLimiter(int(cfg.CheckoutRatePerMinute))

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/comercios", h.PublicBusinessList)
		r.Get("/comercios/{id}", h.PublicBusinessDetail)
		r.Get("/comercios/{id}/products", h.PublicBusinessProducts)

		r.Post("/cart", h.PublicCartSessionCreate)
		r.Get("/cart/{session}", h.PublicCartGet)
		r.Delete("/cart/{session}", h.PublicCartClear)
		r.Post("/cart/{session}/items", h.PublicCartAddItem)
		r.Delete("/cart/{session}/items", h.PublicCartRemoveItem)
		r.Put("/cart/{session}/location", h.PublicCartSetLocation)

		r.With(checkoutLimiter.Middleware).Post("/checkout", h.PublicCheckout)
		r.Get("/orders/{id}", h.PublicOrderTrack)
		r.Post("/vouchers/validate", h.PublicVoucherValidate)
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", h.AuthSignup)
		r.Post("/login", h.AuthLogin)
		r.With(middleware.RequireAuth(h.Auth)).Get("/me", h.AuthMe)
	})

	adminOnly := middleware.RequireRoles(auth.RoleSuperAdmin, auth.RoleAdminNational, auth.RoleAdminRegional)
	nationalOnly := middleware.RequireRoles(auth.RoleSuperAdmin, auth.RoleAdminNational)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.Auth))
		r.Use(middleware.RequireRoles(auth.RoleSuperAdmin, auth.RoleAdminNational, auth.RoleAdminRegional, auth.RoleBusiness))

		r.Get("/orders", h.AdminOrderList)
		r.Get("/orders/{id}", h.AdminOrderDetail)
		r.Put("/orders/{id}/status", h.AdminOrderStatus)
		r.Post("/orders/{id}/events", h.AdminOrderEvent)
		r.Put("/orders/{id}/payment", h.AdminOrderPayment)
		r.Put("/orders/{id}/notes", h.AdminOrderNotes)
		r.Post("/orders/{id}/duplicate", h.AdminOrderDuplicate)
		r.Get("/orders/{id}/receipt", h.AdminOrderReceipt)

		r.Get("/stats", h.AdminStats)

		r.Get("/comercios", h.AdminBusinessList)
		r.With(adminOnly).Post("/comercios", h.AdminBusinessCreate)
		r.Put("/comercios/{id}", h.AdminBusinessUpdate)
		r.With(adminOnly).Delete("/comercios/{id}", h.AdminBusinessDelete)
		r.Get("/comercios/{id}/products", h.AdminProductList)
		r.Post("/comercios/{id}/products", h.AdminProductCreate)

		r.Put("/products/{productId}", h.AdminProductUpdate)
		r.Delete("/products/{productId}", h.AdminProductDelete)
		r.Post("/products/{productId}/image", h.AdminProductImage)
		r.Get("/products/{productId}/inventory", h.AdminInventoryGet)
		r.Post("/products/{productId}/inventory", h.AdminInventoryAdjust)

		r.With(nationalOnly).Put("/users/{id}/role", h.AdminAssignRole)
	})

	if hub != nil {
		r.Get("/ws/business/{id}", hub.BusinessOrdersWS)
	}

	return r
}
