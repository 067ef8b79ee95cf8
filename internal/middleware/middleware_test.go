package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-order-service/internal/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequestIDPropagates(t *testing.T) {
	h := RequestID()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-Id", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "abc" {
		t.Fatalf("expected propagated id, got %q", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("X-Request-Id"); len(got) != 36 {
		t.Fatalf("expected generated uuid, got %q", got)
	}
}

func TestRequireAuthAndRoles(t *testing.T) {
	svc := auth.NewService(auth.NewMemoryRepository(), "mw-secret", time.Hour, nil)
	h := RequireAuth(svc)(RequireRoles(auth.RoleSuperAdmin)(okHandler()))

	cases := []struct {
		name string
		user *auth.User
		want int
	}{
		{"no token", nil, http.StatusUnauthorized},
		{"wrong role", &auth.User{ID: "u1", Role: auth.RoleBusiness}, http.StatusForbidden},
		{"allowed", &auth.User{ID: "u2", Role: auth.RoleSuperAdmin}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.user != nil {
				token, _, err := auth.IssueAccessToken(*tc.user, "mw-secret", time.Hour, time.Now())
				if err != nil {
					t.Fatalf("issue token: %v", err)
				}
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2)
	h := rl.Middleware(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("other client should not be limited, got %d", rec.Code)
	}
}

func TestPercentile(t *testing.T) {
	values := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(values, 50); got != 5 {
		t.Fatalf("p50: got %d", got)
	}
	if got := percentile(values, 95); got != 10 {
		t.Fatalf("p95: got %d", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty: got %d", got)
	}
}
