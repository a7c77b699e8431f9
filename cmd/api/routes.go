package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/backend-zawadi/internal/app"
	"github.com/noah-isme/backend-zawadi/internal/cart"
	"github.com/noah-isme/backend-zawadi/internal/common"
	"github.com/noah-isme/backend-zawadi/internal/customize"
	"github.com/noah-isme/backend-zawadi/internal/health"
	"github.com/noah-isme/backend-zawadi/internal/menu"
	"github.com/noah-isme/backend-zawadi/internal/obs"
	"github.com/noah-isme/backend-zawadi/internal/order"
	"github.com/noah-isme/backend-zawadi/internal/queue"
	"github.com/noah-isme/backend-zawadi/internal/ratelimit"
	"github.com/noah-isme/backend-zawadi/internal/security"
)

func newRouter(d *app.Dependencies) (http.Handler, error) {
	cfg := d.Config
	logger := d.Logger

	menuHandler := menu.NewHandler(d.Catalog)
	customizeHandler := &customize.Handler{Svc: d.Sessions}
	cartHandler := &cart.Handler{Svc: d.Carts, Sessions: d.Sessions}
	orderHandler := &order.Handler{Svc: d.Orders}
	queueAdmin := &queue.AdminHandler{Store: queue.NewStore(d.DB), Queue: d.Queue}
	healthHandler := health.Handler{
		Checker:       health.Backends{DB: d.DB, Redis: d.Redis},
		Catalog:       d.Catalog,
		POSConfigured: cfg.POS.Configured(),
		QueueBackend:  cfg.Queue.Backend,
	}

	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL, Prefix: cfg.Queue.RedisPrefix + ":idem"}

	onLimitErr := func(err error) {
		logger.Warn().Err(err).Msg("rate limiter unavailable")
	}
	var requestLimit, checkoutLimit func(http.Handler) http.Handler
	if cfg.Limits.Enabled {
		requestLimit = ratelimit.Handler{
			Limiter: ratelimit.SlidingWindow{
				Limiter: ratelimit.Limiter{Client: d.Redis, Prefix: cfg.Queue.RedisPrefix + ":ratelimit:"},
				Window:  cfg.Limits.Window,
				Max:     cfg.Limits.Max,
			},
			Key:     ratelimit.ByClientIP("api"),
			OnError: onLimitErr,
		}.Middleware

		fixed, err := ratelimit.NewFixedWindow(d.Redis, cfg.Queue.RedisPrefix+":ratelimit:checkout", time.Minute, cfg.Limits.CheckoutPerMin)
		if err != nil {
			return nil, err
		}
		checkoutLimit = ratelimit.Handler{Limiter: fixed, Key: ratelimit.ByClientIP("checkout"), OnError: onLimitErr}.Middleware
	} else {
		requestLimit = passThrough
		checkoutLimit = passThrough
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.Tracing.Enabled {
		r.Use(obs.TracingMiddleware)
	}
	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.HTTPBuckets), nil)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.IsProduction()}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After", "Idempotent-Replayed"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", healthHandler.Status)
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		v.Use(requestLimit)

		v.Route("/menu", func(m chi.Router) {
			m.Get("/", menuHandler.List)
			m.Get("/{name}", menuHandler.Detail)
			m.Get("/{name}/options", menuHandler.Options)
			m.Post("/{name}/quote", customizeHandler.Quote)
		})

		v.Route("/customizations", func(c chi.Router) {
			c.Post("/", customizeHandler.Open)
			c.Get("/{id}", customizeHandler.Get)
			c.Post("/{id}/actions", customizeHandler.Act)
			c.Delete("/{id}", customizeHandler.Discard)
		})

		v.Route("/carts", func(c chi.Router) {
			c.Get("/{id}", cartHandler.Get)
			c.Delete("/{id}", cartHandler.Delete)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/", cartHandler.Create)
				g.Post("/{id}/items", cartHandler.AddItem)
				g.Post("/{id}/customizations/{sessionID}", cartHandler.AddCustomization)
				g.Patch("/{id}/items/{lineID}", cartHandler.UpdateItem)
				g.Delete("/{id}/items/{lineID}", cartHandler.RemoveItem)
			})
		})

		v.With(checkoutLimit, idem.Middleware).Post("/orders", orderHandler.Create)
		v.Get("/orders/{id}", orderHandler.Get)

		v.Route("/admin/queue", func(a chi.Router) {
			a.Use(security.AdminToken{Token: cfg.AdminToken}.Middleware)
			a.Get("/dlq", queueAdmin.ListDLQ)
			a.Post("/dlq/replay", queueAdmin.ReplayDLQ)
			a.Get("/stats", queueAdmin.Stats)
		})
	})

	return r, nil
}

func passThrough(next http.Handler) http.Handler { return next }

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
