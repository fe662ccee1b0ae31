package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/croix-presskit/presskit/internal/platform/httpx"
)

const (
	apiPrefix           = "/api/v1"
	defaultAdminTimeout = 60 * time.Second
)

// RouteRegistrar attaches a handler group to r.
type RouteRegistrar func(r chi.Router)

// Option customises NewRouter.
type Option func(*routerConfig)

type routerConfig struct {
	middlewares  []func(http.Handler) http.Handler
	health       *HealthHandlers
	public       RouteRegistrar
	admin        RouteRegistrar
	adminTimeout time.Duration
}

// NewRouter builds the HTTP surface:
//
//	/healthz, /readyz
//	/api/v1/public/...  read-only content and the change feed (no timeout)
//	/api/v1/admin/...   editing, uploads and debug endpoints (timed)
//
// A group without a registrar answers 501.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{adminTimeout: defaultAdminTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", "no route for "+req.URL.Path, http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", req.Method+" is not allowed on "+req.URL.Path, http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(apiPrefix, func(api chi.Router) {
		// The websocket feed under /public outlives any request timeout.
		api.Route("/public", mountOrStub("public", cfg.public))
		api.With(middleware.Timeout(cfg.adminTimeout)).Route("/admin", mountOrStub("admin", cfg.admin))
	})
	return r
}

func mountOrStub(name string, registrar RouteRegistrar) func(chi.Router) {
	if registrar != nil {
		return registrar
	}
	return func(r chi.Router) {
		stub := func(w http.ResponseWriter, req *http.Request) {
			httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", name+" routes are not configured", http.StatusNotImplemented))
		}
		r.HandleFunc("/", stub)
		r.HandleFunc("/*", stub)
	}
}

// WithMiddlewares appends global middleware after request id and real ip.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

func WithPublicRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.public = reg
	}
}

func WithAdminRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.admin = reg
	}
}

// WithAdminTimeout bounds admin requests. Uploads of a full batch must fit.
func WithAdminTimeout(d time.Duration) Option {
	return func(cfg *routerConfig) {
		if d > 0 {
			cfg.adminTimeout = d
		}
	}
}
