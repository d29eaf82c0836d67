package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/core"
	"fintrack/internal/dialog"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/auth"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
)

// Conversation answers chat messages. *dialog.Machine implements it.
type Conversation interface {
	Handle(ctx context.Context, msg dialog.Message) []dialog.Reply
}

// UserReader looks up a user with both ledgers.
type UserReader interface {
	User(ctx context.Context, id string) (core.User, error)
}

// ReadyFunc reports whether dependencies can serve traffic.
type ReadyFunc func(ctx context.Context) error

// Deps are the collaborators the server routes to.
type Deps struct {
	Conversation Conversation
	Users        UserReader
	Ready        ReadyFunc
	Metrics      *metrics.Collector
	Logger       *log.Logger
	Clock        func() time.Time

	// APIToken is the bearer token required on /api. Empty disables the API.
	APIToken string

	// RequestsPerMinute limits POST /api/messages per client IP.
	RequestsPerMinute int
}

type Server struct {
	http.Server
	deps     Deps
	limiter  *ratelimit.Limiter
	detector *security.Detector
	logger   *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Default(log.ComponentHTTP)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Ready == nil {
		deps.Ready = func(context.Context) error { return nil }
	}

	s := &Server{
		deps:     deps,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RequestsPerMinute}),
		detector: security.NewDetector(),
		logger:   deps.Logger.WithComponent(log.ComponentHTTP),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(trace.Middleware)
	r.Use(log.AccessMiddleware)
	r.Use(s.observe)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, NotFoundError("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, ErrorResponse(http.StatusMethodNotAllowed, "method not allowed"))
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Bearer(s.deps.APIToken, func(w http.ResponseWriter, r *http.Request, message string) {
			s.fail(w, r, UnauthorizedError(message))
		}))
		r.With(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			s.fail(w, r, TooManyRequestsError("rate limit exceeded, try again later"))
		})).Post("/messages", s.handleMessage)
		r.Get("/users/{id}/records", s.handleRecords)
	})

	return r
}

// observe records request count and latency per route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.deps.Metrics.ObserveHTTP(r.Method, route, status, time.Since(start))
	})
}

// fail writes an error response tagged with the request ID.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, b *JSONResponseBuilder) {
	if body, ok := b.body.(ErrorBody); ok {
		body.RequestID = trace.GetRequestID(r.Context())
		b.Body(body)
	}
	b.Write(w)
}

// Shutdown gracefully shuts down the server and its cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
