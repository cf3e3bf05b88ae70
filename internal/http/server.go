// Package http exposes the workspace, ledger, receipt, report and advisor
// operations as a JSON API.
package http

import (
	"context"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"tally/internal/advisor"
	"tally/internal/cache"
	applog "tally/internal/log"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/security"
	"tally/internal/middleware/trace"
	"tally/internal/services"
)

const (
	maxChatSessions   = 1024
	janitorInterval   = time.Minute
	readHeaderTimeout = 10 * time.Second
)

// Services bundles the operations served by the API. Advisor may be nil,
// in which case chat and advice answer with an upstream failure.
type Services struct {
	Workspaces  *services.WorkspaceService
	Categories  *services.CategoryRegistry
	Budgets     *services.BudgetStore
	Ledger      *services.LedgerStore
	Receipts    *services.ReceiptArchive
	Reports     *services.ReportEngine
	Ingestion   *services.IngestionPipeline
	Corrections *services.CorrectionProcessor
	Advisor     *advisor.Advisor
}

// Options configures the server.
type Options struct {
	Addr            string
	RequestTimeout  time.Duration
	MaxUploadBytes  int64
	IngestRateLimit int
	ChatWindow      int
	ChatSessionTTL  time.Duration
	Logger          *applog.Logger
	// Ready reports whether dependencies are reachable; nil means always.
	Ready func(context.Context) error
}

type Server struct {
	http.Server

	svc      Services
	opts     Options
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	sessions *cache.LRUCache[*advisor.Session]

	stopJanitor  context.CancelFunc
	janitor      *cache.Janitor
	shutdownOnce sync.Once
}

// NewServer builds the server and starts its background cache sweeper.
// Shutdown releases it.
func NewServer(opts Options, svc Services) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 90 * time.Second
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.ChatWindow <= 0 {
		opts.ChatWindow = advisor.DefaultWindow
	}
	if opts.ChatSessionTTL <= 0 {
		opts.ChatSessionTTL = 30 * time.Minute
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	clientIP := security.NewClientIP()

	s := &Server{
		svc:      svc,
		opts:     opts,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.IngestRateLimit}),
		tracer:   trace.NewMiddleware(logger, clientIP.Extract),
		sessions: cache.NewLRUCache[*advisor.Session](maxChatSessions, opts.ChatSessionTTL),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = recoverPanics(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      opts.RequestTimeout + 10*time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopJanitor = cancel
	s.janitor = cache.NewJanitor(s.sessions)
	go s.janitor.Run(ctx, janitorInterval)

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	s.handle(mux, "POST /v1/instances", s.handleCreateWorkspace)
	s.handle(mux, "GET /v1/instances", s.handleListWorkspaces)
	s.handle(mux, "GET /v1/instances/{id}", s.handleGetWorkspace)
	s.handle(mux, "PUT /v1/instances/{id}", s.handleUpdateWorkspace)
	s.handle(mux, "DELETE /v1/instances/{id}", s.handleDeleteWorkspace)

	s.handle(mux, "POST /v1/instances/{id}/initialize", s.handleInitializeCategories)
	s.handle(mux, "GET /v1/instances/{id}/categories", s.handleListCategories)
	s.handle(mux, "POST /v1/instances/{id}/categories", s.handleAddCategory)
	s.handle(mux, "POST /v1/instances/{id}/categories/{cat}", s.handleRenameCategory)
	s.handle(mux, "DELETE /v1/instances/{id}/categories/{cat}", s.handleDeleteCategory)

	s.handle(mux, "GET /v1/instances/{id}/budgets", s.handleListBudgets)
	s.handle(mux, "POST /v1/instances/{id}/budgets", s.handleUpsertBudget)

	s.handle(mux, "GET /v1/instances/{id}/transactions", s.handleQueryLedger)

	ingest := s.limiter.Middleware(func(r *http.Request) string { return ownerFrom(r.Context()) }, func(w http.ResponseWriter, r *http.Request) {
		writeStatusError(w, http.StatusTooManyRequests, errRateLimited, "too many receipt uploads, retry later")
	})(http.HandlerFunc(s.handleIngestReceipt))
	s.handle(mux, "POST /v1/instances/{id}/receipts", ingest.ServeHTTP)
	s.handle(mux, "GET /v1/receipts/{id}", s.handleGetReceipt)
	s.handle(mux, "POST /v1/receipts/{id}/corrections", s.handleCorrectReceipt)

	s.handle(mux, "GET /v1/instances/{id}/reports", s.handleReport)
	s.handle(mux, "GET /v1/instances/{id}/charts/{kind}", s.handleChart)

	s.handle(mux, "POST /v1/instances/{id}/chat", s.handleChat)
	s.handle(mux, "GET /v1/instances/{id}/advice", s.handleAdvice)
}

// handle registers an authenticated API route bounded by the request timeout.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, requireOwner(s.withTimeout(h)))
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panicked",
					"panic", v, "stack", string(debug.Stack()))
				writeStatusError(w, http.StatusInternalServerError, "storage_failure", "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the background sweeper and the rate limiter, then shuts
// the HTTP server down gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.stopJanitor()
		<-s.janitor.Done()
		s.limiter.Stop()

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		if err := s.opts.Ready(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
