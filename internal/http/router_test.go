package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-order-service/internal/auth"
	"storefront-order-service/internal/cart"
	"storefront-order-service/internal/catalog"
	"storefront-order-service/internal/checkout"
	"storefront-order-service/internal/config"
	"storefront-order-service/internal/http/handlers"
	"storefront-order-service/internal/order"
	"storefront-order-service/internal/pricing"
	"storefront-order-service/internal/stats"
	"storefront-order-service/internal/storage"
	"storefront-order-service/internal/voucher"
	"storefront-order-service/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "router-test-secret"

type testAPI struct {
	t       *testing.T
	server  *httptest.Server
	catalog *catalog.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := zap.NewNop()
	cfg := config.Config{Env: "test", JWTSecret: testSecret, MaxFileSizeBytes: 1 << 20, CheckoutRatePerMinute: 100, Timezone: "UTC"}

	catRepo := catalog.NewMemoryRepository()
	catSvc := catalog.NewService(catRepo, storage.NewMemoryStore("http://media.test"), log)
	carts := cart.NewService(cart.NewMemoryStore(), pricing.Config{CommissionPercent: 10, ServiceFee: 1}, log)
	orders := order.NewService(order.NewMemoryRepository(), catRepo, log)
	agg := stats.NewAggregator(time.UTC)
	orders.Subscribe(agg)
	authSvc := auth.NewService(auth.NewMemoryRepository(), testSecret, time.Hour, log)

	vouchers := voucher.NewService(voucher.NewMemoryStore([]voucher.Voucher{
		{Code: "HOLA", DiscountType: voucher.DiscountFixed, DiscountValue: 4, Active: true},
	}), time.UTC)
	co := checkout.NewService(carts, catSvc, orders, "5355550000", log).WithVouchers(vouchers)

	h := &handlers.Handler{
		Logger:    log,
		Config:    cfg,
		Auth:      authSvc,
		Catalog:   catSvc,
		Carts:     carts,
		Checkout:  co,
		Orders:    orders,
		Stats:     agg,
		Inventory: catRepo,
		Vouchers:  vouchers,
	}
	hub := ws.NewHub(authSvc, catSvc, orders, time.Second, log)
	orders.Subscribe(hub)

	srv := httptest.NewServer(NewRouter(h, hub))
	t.Cleanup(srv.Close)
	return &testAPI{t: t, server: srv, catalog: catSvc}
}

func token(t *testing.T, role auth.Role, businessID string) string {
	t.Helper()
	tok, _, err := auth.IssueAccessToken(auth.User{ID: "u-" + string(role), Email: string(role) + "@test.local", Role: role, BusinessID: businessID}, testSecret, time.Hour, time.Now())
	require.NoError(t, err)
	return tok
}

type envelope struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Data    json.RawMessage   `json:"data"`
	Fields  map[string]string `json:"fields"`
}

func (a *testAPI) do(method, path, bearer string, body any) (int, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (a *testAPI) seed() (catalog.Business, catalog.Product) {
	a.t.Helper()
	ctx := context.Background()
	b, err := a.catalog.CreateBusiness(ctx, catalog.BusinessInput{Name: "Paladar Habana", Phone: "+53 5111 2222", Region: "occidente"})
	require.NoError(a.t, err)
	p, err := a.catalog.CreateProduct(ctx, b.ID, catalog.ProductInput{Name: "Croquetas", Price: 10, Stock: 5})
	require.NoError(a.t, err)
	return b, p
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/health", "/metrics"} {
		resp, err := http.Get(api.server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestCartCheckoutAndOrderLifecycle(t *testing.T) {
	api := newTestAPI(t)
	b, p := api.seed()
	admin := token(t, auth.RoleSuperAdmin, "")

	status, env := api.do(http.MethodGet, "/api/public/comercios/"+b.ID+"/products", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeData[[]catalog.Product](t, env), 1)

	session := "session-1"
	status, env = api.do(http.MethodPost, "/api/public/cart/"+session+"/items", "", map[string]any{"productId": p.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, status)
	summary := decodeData[cart.Summary](t, env)
	assert.Equal(t, 2, summary.Count)
	assert.InDelta(t, 23.0, summary.Pricing.GrandTotal, 0.001)

	status, env = api.do(http.MethodPost, "/api/public/checkout", "", map[string]any{
		"sessionId": session,
		"customer":  map[string]string{"name": "Ana", "phone": "+53 5000 0000", "address": "Calle 23"},
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	result := decodeData[checkout.Result](t, env)
	require.Len(t, result.Orders, 1)
	placed := result.Orders[0]
	assert.Contains(t, placed.WhatsAppLink, "https://wa.me/5351112222?text=")
	assert.Equal(t, 0, result.Cart.Count)
	orderID := placed.Order.ID

	status, _ = api.do(http.MethodGet, "/api/public/orders/"+orderID+"?token="+placed.TrackingToken, "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, env = api.do(http.MethodGet, "/api/public/orders/"+orderID+"?token=forged", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "ORDER_NOT_FOUND", env.Error)

	status, env = api.do(http.MethodGet, "/api/admin/orders?bucket=today&search=ana", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeData[[]*order.Order](t, env), 1)

	status, _ = api.do(http.MethodPut, "/api/admin/orders/"+orderID+"/status", admin, map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, status)

	status, env = api.do(http.MethodGet, "/api/admin/products/"+p.ID+"/inventory", admin, nil)
	require.Equal(t, http.StatusOK, status)
	var rec struct {
		Stock int `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, 3, rec.Stock)

	status, env = api.do(http.MethodPut, "/api/admin/orders/"+orderID+"/status", admin, map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", env.Error)

	status, env = api.do(http.MethodGet, "/api/admin/stats?businessId="+b.ID, admin, nil)
	require.Equal(t, http.StatusOK, status)
	summaryStats := decodeData[stats.Summary](t, env)
	assert.Equal(t, 1, summaryStats.Today.Orders)
	assert.InDelta(t, 23.0, summaryStats.Today.Sales, 0.001)
	assert.InDelta(t, 3.0, summaryStats.Today.Commission, 0.001)

	status, _ = api.do(http.MethodPut, "/api/admin/orders/"+orderID+"/status", admin, map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, status)
	_, env = api.do(http.MethodGet, "/api/admin/products/"+p.ID+"/inventory", admin, nil)
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, 5, rec.Stock)
}

func TestCheckoutRequiresCustomer(t *testing.T) {
	api := newTestAPI(t)
	_, p := api.seed()
	api.do(http.MethodPost, "/api/public/cart/s2/items", "", map[string]any{"productId": p.ID})

	status, env := api.do(http.MethodPost, "/api/public/checkout", "", map[string]any{"sessionId": "s2"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "is required", env.Fields["customer.name"])

	status, env = api.do(http.MethodPost, "/api/public/checkout", "", map[string]any{
		"sessionId": "empty",
		"customer":  map[string]string{"name": "Ana", "phone": "1"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "CART_EMPTY", env.Error)
}

func TestAdminScope(t *testing.T) {
	api := newTestAPI(t)
	b, p := api.seed()
	other, err := api.catalog.CreateBusiness(context.Background(), catalog.BusinessInput{Name: "Tienda Oriente", Phone: "5399", Region: "oriente"})
	require.NoError(t, err)

	status, _ := api.do(http.MethodGet, "/api/admin/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	owner := token(t, auth.RoleBusiness, b.ID)
	status, _ = api.do(http.MethodGet, "/api/admin/comercios/"+b.ID+"/products", owner, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodGet, "/api/admin/comercios/"+other.ID+"/products", owner, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = api.do(http.MethodDelete, "/api/admin/comercios/"+b.ID, owner, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := api.do(http.MethodPost, "/api/admin/products/"+p.ID+"/inventory", owner, map[string]int{"delta": -7})
	require.Equal(t, http.StatusOK, status)
	var rec struct {
		Stock int `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, -2, rec.Stock)

	regional := token(t, auth.RoleAdminRegional, "")
	status, _ = api.do(http.MethodGet, "/api/admin/stats", regional, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestOrderStatusUnknownOrder(t *testing.T) {
	api := newTestAPI(t)
	admin := token(t, auth.RoleAdminNational, "")

	status, env := api.do(http.MethodPut, "/api/admin/orders/ORD-missing/status", admin, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "ORDER_NOT_FOUND", env.Error)

	status, env = api.do(http.MethodPut, "/api/admin/orders/ORD-missing/status", admin, map[string]string{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_STATUS", env.Error)
}

func TestSignupAndLogin(t *testing.T) {
	api := newTestAPI(t)
	body := map[string]string{"email": "Dueno@Example.com", "password": "secreto1", "name": "Dueño"}

	status, env := api.do(http.MethodPost, "/api/auth/signup", "", body)
	require.Equal(t, http.StatusCreated, status)
	session := decodeData[auth.Session](t, env)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, auth.RoleBusiness, session.User.Role)

	status, env = api.do(http.MethodPost, "/api/auth/signup", "", body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "EMAIL_ALREADY_IN_USE", env.Error)

	status, _ = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "dueno@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "dueno@example.com", "password": "secreto1"})
	require.Equal(t, http.StatusOK, status)
	login := decodeData[auth.Session](t, env)

	status, _ = api.do(http.MethodGet, "/api/auth/me", login.Token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestVoucherValidateAndCheckout(t *testing.T) {
	api := newTestAPI(t)
	_, p := api.seed()
	api.do(http.MethodPost, "/api/public/cart/sv/items", "", map[string]any{"productId": p.ID, "quantity": 1})

	status, env := api.do(http.MethodPost, "/api/public/vouchers/validate", "", map[string]string{"sessionId": "sv", "code": "hola"})
	require.Equal(t, http.StatusOK, status)
	preview := decodeData[map[string]any](t, env)
	assert.Equal(t, true, preview["valid"])

	status, env = api.do(http.MethodPost, "/api/public/vouchers/validate", "", map[string]string{"sessionId": "sv", "code": "nada"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "VOUCHER_NOT_FOUND", env.Error)

	status, env = api.do(http.MethodPost, "/api/public/checkout", "", map[string]any{
		"sessionId":   "sv",
		"voucherCode": "HOLA",
		"customer":    map[string]string{"name": "Ana", "phone": "+53 5000 0000"},
	})
	require.Equal(t, http.StatusCreated, status)
	result := decodeData[checkout.Result](t, env)
	require.Len(t, result.Orders, 1)
	// 10 + 1 platform + 1 service - 4 discount
	assert.InDelta(t, 8.0, result.Orders[0].Order.Pricing.GrandTotal, 0.001)
}

func TestOrderEvents(t *testing.T) {
	api := newTestAPI(t)
	_, p := api.seed()
	admin := token(t, auth.RoleSuperAdmin, "")

	api.do(http.MethodPost, "/api/public/cart/s-events/items", "", map[string]any{"productId": p.ID, "quantity": 2})
	status, env := api.do(http.MethodPost, "/api/public/checkout", "", map[string]any{
		"sessionId": "s-events",
		"customer":  map[string]string{"name": "Ana", "phone": "+53 5000 0000"},
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	orderID := decodeData[checkout.Result](t, env).Orders[0].Order.ID
	path := "/api/admin/orders/" + orderID + "/events"

	status, env = api.do(http.MethodPost, path, admin, map[string]string{"event": "confirm"})
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Equal(t, order.StatusConfirmed, decodeData[order.Order](t, env).Status)

	var rec struct {
		Stock int `json:"stock"`
	}
	_, env = api.do(http.MethodGet, "/api/admin/products/"+p.ID+"/inventory", admin, nil)
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, 3, rec.Stock)

	status, env = api.do(http.MethodPost, path, admin, map[string]string{"event": "report_problem", "note": "no answer"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, order.StatusProblem, decodeData[order.Order](t, env).Status)

	status, env = api.do(http.MethodPost, path, admin, map[string]string{"event": "confirm"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", env.Error)

	status, env = api.do(http.MethodPost, path, admin, map[string]string{"event": "teleport"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_EVENT", env.Error)

	status, _ = api.do(http.MethodPost, path, admin, map[string]string{"event": "cancel"})
	require.Equal(t, http.StatusOK, status)
	_, env = api.do(http.MethodGet, "/api/admin/products/"+p.ID+"/inventory", admin, nil)
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, 5, rec.Stock)

	status, env = api.do(http.MethodPost, "/api/admin/orders/ORD-missing/events", admin, map[string]string{"event": "confirm"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "ORDER_NOT_FOUND", env.Error)
}
