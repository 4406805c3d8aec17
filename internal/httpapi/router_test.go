package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dishdash-be/internal/account"
	"dishdash-be/internal/apperr"
	"dishdash-be/internal/auth"
	"dishdash-be/internal/catalog"
	"dishdash-be/internal/metrics"
	"dishdash-be/internal/middleware"
	"dishdash-be/internal/order"
	"dishdash-be/internal/storage/redisstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	store   *redisstore.Store
	mr      *miniredis.Miniredis
}

func newTestAPI(t *testing.T, opts ...func(*Deps)) *testAPI {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := redisstore.New(rdb, "test")
	m := metrics.New()

	accounts := account.NewService(store, auth.NewTokens("test-secret", time.Hour))
	orders := order.NewService(store, store, order.Options{
		DeliveryFee: decimal.NewFromInt(5),
		CheckPrices: true,
		Metrics:     m,
	})

	deps := Deps{
		Accounts:       accounts,
		Catalog:        catalog.NewService(store),
		Orders:         orders,
		Health:         store,
		Metrics:        m,
		CORSOrigin:     "http://localhost:3000",
		StorageTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &testAPI{t: t, handler: NewRouter(deps), store: store, mr: mr}
}

func (a *testAPI) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

// register signs up an account and returns its token and id.
func (a *testAPI) register(name, email string) (string, string) {
	a.t.Helper()

	w := a.do("POST", "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123", "phone": "555-0100",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var session struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &session))
	return session.Token, session.User.ID
}

func (a *testAPI) promote(email string, role account.Role) {
	a.t.Helper()

	ctx := context.Background()
	acct, err := a.store.FindAccountByEmail(ctx, email)
	require.NoError(a.t, err)
	require.NotNil(a.t, acct)
	acct.Role = role
	_, err = a.store.UpdateAccount(ctx, *acct)
	require.NoError(a.t, err)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]map[string]string](t, w)
	return body["error"]["code"]
}

func TestOrderFlow(t *testing.T) {
	api := newTestAPI(t)

	annToken, annID := api.register("Ann", "ann@example.com")
	bobToken, _ := api.register("Bob", "bob@example.com")
	adminToken, _ := api.register("Root", "root@example.com")
	api.promote("root@example.com", account.RoleAdmin)

	w := api.do("POST", "/api/menu", adminToken, map[string]any{
		"name": "Tea", "price": 2.5, "category": "drinks",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tea := decode[map[string]any](t, w)
	teaID := tea["id"].(string)
	assert.Equal(t, 2.5, tea["price"])

	w = api.do("POST", "/api/menu", annToken, map[string]any{"name": "Cake", "price": 4})
	assert.Equal(t, http.StatusForbidden, w.Code)

	newOrder := map[string]any{
		"items":           []map[string]any{{"menuItem": teaID, "quantity": 2, "price": 2.5}},
		"deliveryType":    "delivery",
		"deliveryAddress": "1 Main St",
		"phone":           "555-0100",
	}

	var orderID string
	t.Run("Create", func(t *testing.T) {
		w := api.do("POST", "/api/orders", annToken, newOrder, "Idempotency-Key", "k-1")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		o := decode[map[string]any](t, w)
		orderID = o["id"].(string)
		assert.Equal(t, 10.0, o["totalPrice"])
		assert.Equal(t, "pending", o["status"])
		assert.Equal(t, annID, o["userId"])
		assert.NotContains(t, o, "user")
	})

	t.Run("Idempotent Retry", func(t *testing.T) {
		w := api.do("POST", "/api/orders", annToken, newOrder, "Idempotency-Key", "k-1")
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, orderID, decode[map[string]any](t, w)["id"])

		w = api.do("GET", "/api/orders", annToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]map[string]any](t, w), 1)
	})

	t.Run("Validation", func(t *testing.T) {
		bad := map[string]any{
			"items":        []map[string]any{{"menuItem": teaID, "quantity": 1, "price": 2.5}},
			"deliveryType": "delivery",
			"phone":        "555-0100",
		}
		w := api.do("POST", "/api/orders", annToken, bad)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_input", errorCode(t, w))

		w = api.do("POST", "/api/orders", annToken, `{"items": [`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = api.do("POST", "/api/orders", "", newOrder)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Visibility", func(t *testing.T) {
		w := api.do("GET", "/api/orders/"+orderID, bobToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = api.do("GET", "/api/orders", bobToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decode[[]map[string]any](t, w))

		w = api.do("GET", "/api/orders", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		all := decode[[]map[string]any](t, w)
		require.Len(t, all, 1)
		owner := all[0]["user"].(map[string]any)
		assert.Equal(t, "Ann", owner["name"])

		w = api.do("GET", "/api/orders/does-not-exist", adminToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Status Updates", func(t *testing.T) {
		w := api.do("PATCH", "/api/orders/"+orderID+"/status", annToken, map[string]string{"status": "ready"})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = api.do("PATCH", "/api/orders/"+orderID+"/status", adminToken, map[string]string{"status": "ready"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "ready", decode[map[string]any](t, w)["status"])

		w = api.do("PATCH", "/api/orders/"+orderID+"/status", adminToken, map[string]string{"status": "pending"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = api.do("PATCH", "/api/orders/missing/status", adminToken, map[string]string{"status": "ready"})
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = api.do("POST", "/api/orders/"+orderID+"/cancel", annToken, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Statistics", func(t *testing.T) {
		w := api.do("GET", "/api/orders/stats", annToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = api.do("GET", "/api/orders/stats", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		stats := decode[map[string]any](t, w)
		assert.Equal(t, 1.0, stats["total"])
		assert.Equal(t, 10.0, stats["revenue"])
	})

	t.Run("Metrics", func(t *testing.T) {
		w := api.do("GET", "/metrics", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `dishdash_orders_created_total{mode="delivery"} 1`)
		assert.Contains(t, w.Body.String(), `route="/api/orders/{id}"`)
	})
}

func TestCancelPendingOrder(t *testing.T) {
	api := newTestAPI(t)
	annToken, _ := api.register("Ann", "ann@example.com")
	adminToken, _ := api.register("Root", "root@example.com")
	api.promote("root@example.com", account.RoleAdmin)

	w := api.do("POST", "/api/menu", adminToken, map[string]any{"name": "Soup", "price": 6})
	require.Equal(t, http.StatusCreated, w.Code)
	soupID := decode[map[string]any](t, w)["id"].(string)

	w = api.do("POST", "/api/orders", annToken, map[string]any{
		"items":          []map[string]any{{"menuItem": soupID, "quantity": 1, "price": 6}},
		"deliveryType":   "pickup",
		"pickupDateTime": "2030-05-01T12:30",
		"phone":          "555-0100",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	o := decode[map[string]any](t, w)
	assert.Equal(t, 6.0, o["totalPrice"])
	assert.Equal(t, "2030-05-01T12:30:00Z", o["pickupDateTime"])

	w = api.do("POST", "/api/orders/"+o["id"].(string)+"/cancel", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode[map[string]any](t, w)["status"])
}

func TestAuthRoutes(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("Ann", "Ann@Example.com")

	t.Run("Duplicate Email", func(t *testing.T) {
		w := api.do("POST", "/api/auth/register", "", map[string]string{
			"name": "Other", "email": "ann@example.com", "password": "secret123",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "conflict", errorCode(t, w))
	})

	t.Run("Login", func(t *testing.T) {
		w := api.do("POST", "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "secret123"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, decode[map[string]any](t, w)["token"])

		w = api.do("POST", "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = api.do("POST", "/api/auth/login", "", map[string]string{"email": "ann@example.com"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Me And Profile", func(t *testing.T) {
		w := api.do("GET", "/api/auth/me", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		me := decode[map[string]any](t, w)
		assert.Equal(t, "ann@example.com", me["email"])
		assert.NotContains(t, me, "passwordHash")

		w = api.do("PUT", "/api/auth/theme-preference", token, map[string]string{"themePreference": "dark"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "dark", decode[map[string]any](t, w)["themePreference"])

		w = api.do("PUT", "/api/auth/theme-preference", token, map[string]string{"themePreference": "neon"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = api.do("PUT", "/api/auth/profile", token, map[string]string{"name": "Annie", "phone": "555-0199"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Annie", decode[map[string]any](t, w)["name"])
	})

	t.Run("Change Password", func(t *testing.T) {
		w := api.do("PUT", "/api/auth/change-password", token, map[string]string{
			"currentPassword": "wrong", "newPassword": "another1",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = api.do("PUT", "/api/auth/change-password", token, map[string]string{
			"currentPassword": "secret123", "newPassword": "another1",
		})
		require.Equal(t, http.StatusOK, w.Code)

		w = api.do("POST", "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "another1"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Admin Only", func(t *testing.T) {
		w := api.do("GET", "/api/auth/users", token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		adminToken, _ := api.register("Root", "root@example.com")
		api.promote("root@example.com", account.RoleAdmin)

		w = api.do("GET", "/api/auth/users?role=customer", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]map[string]any](t, w), 1)

		me := decode[map[string]any](t, api.do("GET", "/api/auth/me", token, nil))
		w = api.do("PUT", "/api/auth/users/"+me["id"].(string)+"/role", adminToken, map[string]string{"role": "staff"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "staff", decode[map[string]any](t, w)["role"])

		// The new role applies to the token issued before the change.
		w = api.do("GET", "/api/orders/stats", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Bad Token", func(t *testing.T) {
		w := api.do("GET", "/api/menu", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMenuRoutes(t *testing.T) {
	api := newTestAPI(t)
	adminToken, _ := api.register("Root", "root@example.com")
	api.promote("root@example.com", account.RoleAdmin)

	for _, item := range []map[string]any{
		{"name": "Tea", "price": 2.5, "category": "drinks"},
		{"name": "Pie", "price": 4, "category": "desserts", "available": false},
		{"name": "Bread", "price": 1},
	} {
		w := api.do("POST", "/api/menu", adminToken, item)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	names := func(w *httptest.ResponseRecorder) []string {
		var out []string
		for _, it := range decode[[]map[string]any](t, w) {
			out = append(out, it["name"].(string))
		}
		return out
	}

	w := api.do("GET", "/api/menu", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []string{"Tea", "Bread"}, names(w))

	w = api.do("GET", "/api/menu?includeUnavailable=true", "", nil)
	assert.ElementsMatch(t, []string{"Tea", "Pie", "Bread"}, names(w))

	w = api.do("GET", "/api/menu?available=false", "", nil)
	assert.ElementsMatch(t, []string{"Pie"}, names(w))

	w = api.do("GET", "/api/menu?category=drinks", "", nil)
	assert.ElementsMatch(t, []string{"Tea"}, names(w))

	w = api.do("GET", "/api/menu?available=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do("GET", "/api/menu/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"none", "desserts", "drinks"}, decode[[]string](t, w))

	w = api.do("GET", "/api/menu/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	tea := decode[[]map[string]any](t, api.do("GET", "/api/menu?category=drinks", "", nil))[0]
	w = api.do("PUT", "/api/menu/"+tea["id"].(string), adminToken, map[string]any{"available": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode[map[string]any](t, w)["available"])
	assert.Equal(t, "Tea", decode[map[string]any](t, w)["name"])
}

func TestHealthAndPlumbing(t *testing.T) {
	api := newTestAPI(t)

	w := api.do("GET", "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "redis", decode[map[string]string](t, w)["engine"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = api.do("GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do("OPTIONS", "/api/orders", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = api.do("GET", "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCode(t, w))

	api.mr.Close()
	w = api.do("GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "storage_unavailable", errorCode(t, w))
}

// deadlineAccounts records whether token lookups ran under a deadline.
type deadlineAccounts struct {
	account.Service
	hadDeadline bool
}

func (d *deadlineAccounts) Authenticate(ctx context.Context, token string) (account.Principal, error) {
	_, d.hadDeadline = ctx.Deadline()
	return d.Service.Authenticate(ctx, token)
}

func TestAuthenticateRunsUnderStorageTimeout(t *testing.T) {
	rec := &deadlineAccounts{}
	api := newTestAPI(t, func(d *Deps) {
		rec.Service = d.Accounts
		d.Accounts = rec
	})
	token, _ := api.register("Ann", "ann@example.com")

	w := api.do("GET", "/api/auth/me", token, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, rec.hadDeadline)
}

func TestLoginRateLimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := newTestAPI(t, func(d *Deps) { d.Limiter = middleware.NewRateLimiter(ctx) })

	var last int
	for i := 0; i < 10; i++ {
		w := api.do("POST", "/api/auth/login", "", map[string]string{"email": "x@example.com", "password": "secret123"})
		last = w.Code
		if last == http.StatusTooManyRequests {
			break
		}
		assert.Equal(t, http.StatusUnauthorized, last)
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	// Other tiers keep their own quota.
	w := api.do("GET", "/api/menu", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.Invalid("x"), http.StatusBadRequest},
		{apperr.Unauthenticated("x"), http.StatusUnauthorized},
		{apperr.Forbidden("x"), http.StatusForbidden},
		{apperr.NotFound("x"), http.StatusNotFound},
		{apperr.Conflict("x"), http.StatusConflict},
		{apperr.Unavailable(errors.New("down"), "x"), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(apperr.Code(tt.err)), tt.err.Error())
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, httptest.NewRequest("GET", "/", nil), errors.New("pq: relation does not exist"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode[map[string]map[string]string](t, w)
	assert.Equal(t, "internal", body["error"]["code"])
	assert.Equal(t, "internal server error", body["error"]["message"])
}
