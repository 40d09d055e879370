package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"activityboard/internal/adapters/http/middleware"
	"activityboard/internal/adapters/http/perf"
	auditStore "activityboard/internal/adapters/storage/audit"
	"activityboard/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds everything the HTTP adapter serves from.
type Deps struct {
	// Sessions owns one board controller per viewer.
	Sessions *middleware.SessionStore
	// Limiter may be nil to disable rate limiting.
	Limiter   *middleware.RateLimiter
	Collector *perf.Collector
	Metrics   *metrics.Metrics
	// AuditStore and AuditDB are nil when the audit trail is off.
	AuditStore auditStore.Store
	AuditDB    Pinger

	CSRFKey        []byte
	SecureCookies  bool
	TrustedOrigins []string
	SlowRequest    time.Duration
	// Markdown renders activity descriptions as Markdown.
	Markdown bool
}

// server carries the dependencies handlers read from.
type server struct {
	deps   Deps
	render *renderer
	now    func() time.Time
}

// NewMux wires HTTP handlers for the board.
// PRE: deps.Sessions is set; deps.CSRFKey is 32 bytes
// POST: Returns the fully wrapped handler
func NewMux(deps Deps) http.Handler {
	s := &server{
		deps:   deps,
		render: newRenderer(deps.Markdown),
		now:    time.Now,
	}

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	// Board routes need a viewer session and CSRF protection.
	board := http.NewServeMux()
	board.HandleFunc("GET /{$}", s.handleBoard)
	board.HandleFunc("POST /board/signup", s.handleSignup)
	board.HandleFunc("POST /board/unregister", s.handleUnregister)
	board.HandleFunc("POST /board/reload", s.handleReload)
	board.HandleFunc("GET /board/status", s.handleStatus)
	boardHandler := middleware.Chain(board,
		middleware.CSRF(deps.CSRFKey, middleware.CSRFOptions{Secure: deps.SecureCookies, TrustedOrigins: deps.TrustedOrigins}),
		middleware.Viewer(deps.Sessions, deps.SecureCookies),
	)

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", boardHandler)
	mux.Handle("/board/", boardHandler)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", deps.Metrics.Handler())
	mux.HandleFunc("GET /admin/perf", s.handleAdminPerf)
	mux.HandleFunc("GET /admin/audit", s.handleAdminAudit)

	// Apply middleware: Timing -> RateLimit -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.RateLimit(deps.Limiter),
		middleware.Timing(deps.Collector, deps.SlowRequest),
	)
}
