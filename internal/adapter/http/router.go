package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	tbotel "github.com/Strob0t/taskboard/internal/adapter/otel"
	"github.com/Strob0t/taskboard/internal/middleware"
	"github.com/Strob0t/taskboard/internal/port/cache"
)

// RouterOptions configures the middleware chain built by NewRouter.
type RouterOptions struct {
	ServiceName    string // enables otelhttp spans when set
	CORSOrigin     string
	RequestTimeout time.Duration

	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	Idempotency    cache.Cache             // nil disables Idempotency-Key replay
	IdempotencyTTL time.Duration

	Events http.HandlerFunc // live change feed at /api/tasks/events
	MCP    http.Handler     // MCP endpoint at /mcp
}

// NewRouter assembles the full HTTP surface. Streaming endpoints are
// mounted outside the request timeout and the replay cache.
func NewRouter(h *Handlers, o RouterOptions) chi.Router {
	r := chi.NewRouter()

	if o.ServiceName != "" {
		r.Use(tbotel.HTTPMiddleware(o.ServiceName))
	}
	r.Use(CORS(o.CORSOrigin))
	r.Use(SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Group(func(r chi.Router) {
		if o.Events != nil {
			r.Get("/api/tasks/events", o.Events)
		}
		if o.MCP != nil {
			r.With(o.RateLimiter.Handler).Handle("/mcp", o.MCP)
		}
	})

	r.Group(func(r chi.Router) {
		if o.RequestTimeout > 0 {
			r.Use(chimw.Timeout(o.RequestTimeout))
		}
		r.Use(o.RateLimiter.Handler)
		if o.Idempotency != nil {
			r.Use(middleware.Idempotency(o.Idempotency, o.IdempotencyTTL))
		}
		MountRoutes(r, h)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
