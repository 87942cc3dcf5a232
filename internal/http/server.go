// Package http exposes the ledger services as a JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"

	applog "fintrack/internal/log"
)

// Services groups the application services the API dispatches to.
type Services struct {
	Users        *services.UserService
	Accounts     *services.AccountService
	Categories   *services.CategoryService
	Transactions *services.TransactionService
	Dashboard    *services.DashboardService
	Reports      *services.ReportService
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures NewServer. Zero values fall back to defaults.
type Options struct {
	Addr string

	// CORSOrigins lists the allowed browser origins. AllowAnyOrigin echoes
	// every origin and is meant for development.
	CORSOrigins    []string
	AllowAnyOrigin bool

	// LoginRatePerMinute bounds /users/register and /token per client IP.
	LoginRatePerMinute int

	Logger *applog.Logger
	Ready  Pinger
}

type Server struct {
	http.Server

	svc      Services
	ready    Pinger
	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:      svc,
		ready:    opts.Ready,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.LoginRatePerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(logger, detector.ExtractClientIP),
		started:  time.Now(),
	}

	r := s.routes()
	cors := security.NewCORS(opts.CORSOrigins, opts.AllowAnyOrigin)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	// Outermost first. CORS runs before the router so preflight requests
	// are answered without a matching OPTIONS route.
	var h http.Handler = r
	h = cors.Middleware(h)
	h = detector.Middleware(h)
	h = headers.Middleware(h)
	h = s.recoverer(h)
	h = s.tracer.Middleware(h)
	s.Handler = h
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.StrictSlash(true)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorKind(w, http.StatusNotFound, kindNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorKind(w, http.StatusMethodNotAllowed, kindMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).
			WarnContext(r.Context(), "Rate limit exceeded", applog.FieldPath, r.URL.Path)
		writeErrorKind(w, http.StatusTooManyRequests, kindRateLimited, "rate limit exceeded, try again later")
	})
	r.Handle("/users/register", limited(http.HandlerFunc(s.handleRegister))).Methods(http.MethodPost)
	r.Handle("/token", limited(http.HandlerFunc(s.handleToken))).Methods(http.MethodPost)

	api := r.PathPrefix("/").Subrouter()
	api.Use(s.requireAuth)

	api.HandleFunc("/users/me", s.handleGetMe).Methods(http.MethodGet)
	api.HandleFunc("/users/me", s.handleUpdateMe).Methods(http.MethodPut)

	api.HandleFunc("/accounts", s.handleCreateAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/shared", s.handleListSharedAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}", s.handleGetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}", s.handleUpdateAccount).Methods(http.MethodPut)
	api.HandleFunc("/accounts/{id}", s.handleDeleteAccount).Methods(http.MethodDelete)
	api.HandleFunc("/accounts/{id}/summary", s.handleAccountSummary).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/share", s.handleShareAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}/share/{user_id}", s.handleRevokeShare).Methods(http.MethodDelete)

	api.HandleFunc("/categories", s.handleCreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories/{id}", s.handleGetCategory).Methods(http.MethodGet)
	api.HandleFunc("/categories/{id}", s.handleUpdateCategory).Methods(http.MethodPut)
	api.HandleFunc("/categories/{id}", s.handleDeleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods(http.MethodDelete)
	api.HandleFunc("/transactions/{id}/pay-installment", s.handlePayInstallment).Methods(http.MethodPost)

	api.HandleFunc("/dashboard/summary", s.handleDashboardSummary).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/transactions/{year:[0-9]{4}}", s.handleDeleteYear).Methods(http.MethodDelete)
	api.HandleFunc("/reports/expenses-by-category", s.handleExpensesByCategory).Methods(http.MethodGet)
	api.HandleFunc("/reports/income-vs-expenses", s.handleIncomeVsExpenses).Methods(http.MethodGet)

	return r
}

// recoverer turns a handler panic into a 500 response.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panic",
					applog.FieldPath, r.URL.Path,
					applog.FieldError, fmt.Sprint(rec),
					"stack", string(debug.Stack()))
				writeErrorKind(w, http.StatusInternalServerError, kindInternal, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
