package httpapi

import (
	"context"
	"net/http"
	"time"

	"dishdash-be/internal/account"
	"dishdash-be/internal/catalog"
	"dishdash-be/internal/logger"
	"dishdash-be/internal/metrics"
	"dishdash-be/internal/middleware"
	"dishdash-be/internal/order"
	"dishdash-be/internal/utils"

	"github.com/gorilla/mux"
)

// Health is the part of the store the health endpoints need.
type Health interface {
	Engine() string
	Ping(ctx context.Context) error
}

type Deps struct {
	Accounts account.Service
	Catalog  catalog.Service
	Orders   order.Service
	Health   Health
	Metrics  *metrics.Metrics
	Limiter  *middleware.RateLimiter

	CORSOrigin     string
	StorageTimeout time.Duration
}

type handler struct {
	accounts account.Service
	catalog  catalog.Service
	orders   order.Service
	health   Health
}

// NewRouter wires every route. CORS, request ids and access logs wrap the
// whole mux so preflights and unmatched paths get them too.
func NewRouter(d Deps) http.Handler {
	h := &handler{accounts: d.Accounts, catalog: d.Catalog, orders: d.Orders, health: d.Health}

	r := mux.NewRouter()
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}
	// Token lookups hit storage too, so the deadline is set first.
	if d.StorageTimeout > 0 {
		r.Use(withTimeout(d.StorageTimeout))
	}
	r.Use(middleware.Authenticate(d.Accounts))
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}

	r.HandleFunc("/", h.banner).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	authed := middleware.RequireAuth
	admin := middleware.RequireRole(account.RoleAdmin)
	staff := middleware.RequireRole(account.RoleStaff, account.RoleAdmin)

	a := r.PathPrefix("/api/auth").Subrouter()
	a.HandleFunc("/register", h.register).Methods(http.MethodPost)
	a.HandleFunc("/login", h.login).Methods(http.MethodPost)
	a.Handle("/me", authed(http.HandlerFunc(h.me))).Methods(http.MethodGet)
	a.Handle("/profile", authed(http.HandlerFunc(h.updateProfile))).Methods(http.MethodPut)
	a.Handle("/theme-preference", authed(http.HandlerFunc(h.updateTheme))).Methods(http.MethodPut)
	a.Handle("/change-password", authed(http.HandlerFunc(h.changePassword))).Methods(http.MethodPut)
	a.Handle("/users", admin(http.HandlerFunc(h.listUsers))).Methods(http.MethodGet)
	a.Handle("/users/{id}/role", admin(http.HandlerFunc(h.updateRole))).Methods(http.MethodPut)

	m := r.PathPrefix("/api/menu").Subrouter()
	m.HandleFunc("", h.listMenu).Methods(http.MethodGet)
	m.HandleFunc("/categories", h.menuCategories).Methods(http.MethodGet)
	m.HandleFunc("/{id}", h.getMenuItem).Methods(http.MethodGet)
	m.Handle("", admin(http.HandlerFunc(h.createMenuItem))).Methods(http.MethodPost)
	m.Handle("/{id}", admin(http.HandlerFunc(h.updateMenuItem))).Methods(http.MethodPut)

	o := r.PathPrefix("/api/orders").Subrouter()
	o.Handle("", authed(http.HandlerFunc(h.createOrder))).Methods(http.MethodPost)
	o.Handle("", authed(http.HandlerFunc(h.listOrders))).Methods(http.MethodGet)
	o.Handle("/stats", staff(http.HandlerFunc(h.orderStats))).Methods(http.MethodGet)
	o.Handle("/{id}", authed(http.HandlerFunc(h.getOrder))).Methods(http.MethodGet)
	o.Handle("/{id}/status", staff(http.HandlerFunc(h.updateOrderStatus))).Methods(http.MethodPatch)
	o.Handle("/{id}/cancel", authed(http.HandlerFunc(h.cancelOrder))).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSONError(w, http.StatusNotFound, "not_found", "route not found")
	})

	var root http.Handler = r
	root = middleware.CORS(d.CORSOrigin)(root)
	root = logger.LoggingMiddleware(root)
	root = logger.RequestIDMiddleware(root)
	return root
}

// withTimeout bounds how long a request may wait on storage.
func withTimeout(d time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (h *handler) banner(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "dishdash API",
		"engine":  h.health.Engine(),
	})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"engine": h.health.Engine(),
	})
}
