// Package http serves the Evergreen Bank site: marketing pages, sign-up and
// sign-in, and the authenticated dashboard rendered as HTML with htmx
// partials.
package http

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"evergreen/internal/accounts"
	"evergreen/internal/api"
	"evergreen/internal/core"
	"evergreen/internal/kyc"
	"evergreen/internal/log"
	"evergreen/internal/middleware/ratelimit"
	"evergreen/internal/middleware/security"
	"evergreen/internal/middleware/trace"
	"evergreen/internal/services"
	"evergreen/internal/session"
	"evergreen/internal/transactions"
	"evergreen/internal/viewstate"
	appweb "evergreen/web"
)

const (
	loginPath     = "/login"
	dashboardPath = "/user"
)

// Backend is the banking API surface the handlers call. *api.Client
// implements it.
type Backend interface {
	accounts.Backend
	transactions.Backend
	kyc.Submitter
	kyc.DocumentUpdater
	Register(ctx context.Context, in api.RegisterRequest) error
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Logout(ctx context.Context, refresh string) error
	GetKYC(ctx context.Context) (*core.KYCRecord, error)
}

// Deps are the collaborators wired by main.
type Deps struct {
	Backend      Backend
	Sessions     *session.Manager
	Accounts     *accounts.Service
	Transactions *transactions.Service
	Drafts       *kyc.DraftStore
	Reuploader   *kyc.Reuploader
	Activity     *services.ActivityService
	Tracker      *viewstate.Tracker

	// Ready reports whether session storage is reachable. Optional.
	Ready func(ctx context.Context) error
	// Templates and Static default to the embedded web assets.
	Templates fs.FS
	Static    fs.FS
}

type Config struct {
	Addr               string
	RateLimitPerMinute int
}

type Server struct {
	http.Server

	backend      Backend
	sessions     *session.Manager
	accounts     *accounts.Service
	transactions *transactions.Service
	drafts       *kyc.DraftStore
	reuploader   *kyc.Reuploader
	activity     *services.ActivityService
	tracker      *viewstate.Tracker
	ready        func(ctx context.Context) error

	render          *Renderer
	rateLimiter     *ratelimit.Limiter
	detector        *security.Detector
	traceMiddleware *trace.Middleware

	logger  *log.Logger
	now     func() time.Time
	started time.Time

	shutdownOnce sync.Once
}

// NewServer parses templates and builds the router.
func NewServer(cfg Config, deps Deps, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if deps.Templates == nil {
		deps.Templates = appweb.TemplatesFS
	}
	if deps.Static == nil {
		deps.Static = appweb.StaticFS
	}
	if deps.Tracker == nil {
		deps.Tracker = viewstate.NewTracker()
	}

	render, err := NewRenderer(deps.Templates, logger)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		backend:      deps.Backend,
		sessions:     deps.Sessions,
		accounts:     deps.Accounts,
		transactions: deps.Transactions,
		drafts:       deps.Drafts,
		reuploader:   deps.Reuploader,
		activity:     deps.Activity,
		tracker:      deps.Tracker,
		ready:        deps.Ready,
		render:       render,
		logger:       logger.WithComponent(log.ComponentHTTP),
		now:          time.Now,
		started:      time.Now(),
	}
	s.detector = security.NewDetector(logger)
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}, logger)
	s.traceMiddleware = trace.NewMiddleware(logger, s.detector.ClientIP)

	handler, err := s.routes(deps.Static)
	if err != nil {
		s.rateLimiter.Stop()
		return nil, err
	}
	s.Handler = handler
	return s, nil
}

func (s *Server) routes(static fs.FS) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(s.traceMiddleware.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	sub, err := fs.Sub(static, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)
		r.Use(s.rateLimiter.Middleware(s.detector.ClientIP, s.handleRateLimited))

		r.Get("/", s.handleHome)
		r.Get("/about", s.handleAbout)
		r.Get("/faq", s.handleFAQ)
		r.Get("/contact", s.handleContactForm)
		r.Post("/contact", s.handleContactSubmit)

		r.Get("/register", s.handleRegisterForm)
		r.Post("/register", s.handleRegister)
		r.Get(loginPath, s.handleLoginForm)
		r.Post(loginPath, s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Route(dashboardPath, func(r chi.Router) {
			r.Use(s.sessions.RequireAuth(loginPath))
			r.Use(security.NoStore)

			r.Get("/", s.handleDashboard)

			r.Get("/accounts", s.handleAccounts)
			r.Post("/accounts", s.handleOpenAccount)
			r.Post("/accounts/select", s.handleSelectAccount)

			r.Get("/transactions", s.handleTransactions)
			r.Get("/transactions/export", s.handleExportTransactions)
			r.Get("/transactions/stats", s.handleTransactionStats)

			r.Get("/kyc", s.handleKYCDocuments)
			r.Post("/kyc/documents/{id}", s.handleReuploadDocument)

			r.Route("/kyc/onboarding", func(r chi.Router) {
				r.Get("/", s.handleOnboarding)
				r.Post("/personal", s.handleOnboardingPersonal)
				r.Post("/back", s.handleOnboardingBack)
				r.Post("/documents/{type}", s.handleOnboardingAttach)
				r.Post("/documents/{type}/remove", s.handleOnboardingRemove)
				r.Post("/submit", s.handleOnboardingSubmit)
			})
		})
	})

	r.NotFound(s.handleNotFound)
	return r, nil
}

// Shutdown stops background work and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
