// Package web serves the application wizard over HTTP. Each browser gets a
// session cookie; its wizard state lives in the session store.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"joinnow/internal/application/wizard"
	"joinnow/internal/common/errors"
	"joinnow/internal/common/logger"
	"joinnow/internal/common/observability"
	"joinnow/internal/common/session"
)

const (
	DefaultCookieName    = "joinnow_session"
	DefaultSubmitTimeout = 30 * time.Second
)

//go:embed templates/*.html
var templateFS embed.FS

// Server holds the handlers and their dependencies.
type Server struct {
	sessions      *session.Manager
	submitter     wizard.Submitter
	logger        logger.Logger
	errorHandler  *errors.ErrorHandler
	obs           *observability.Observability
	tmpl          *template.Template
	health        func(ctx context.Context) error
	cookieName    string
	cookieSecure  bool
	submitTimeout time.Duration
	metricsPath   string
}

type ServerOptions struct {
	Sessions  *session.Manager
	Submitter wizard.Submitter
	Logger    logger.Logger
	// Observability may be nil.
	Observability *observability.Observability
	// Health is called by /healthz when set.
	Health        func(ctx context.Context) error
	CookieName    string
	CookieSecure  bool
	SubmitTimeout time.Duration
	// MetricsPath mounts promhttp when non-empty.
	MetricsPath string
}

func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if opts.Submitter == nil {
		return nil, fmt.Errorf("submitter is required")
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		sessions:      opts.Sessions,
		submitter:     opts.Submitter,
		logger:        loggerInstance,
		errorHandler:  errors.NewErrorHandler(loggerInstance),
		obs:           opts.Observability,
		tmpl:          tmpl,
		health:        opts.Health,
		cookieName:    opts.CookieName,
		cookieSecure:  opts.CookieSecure,
		submitTimeout: opts.SubmitTimeout,
		metricsPath:   opts.MetricsPath,
	}
	if s.cookieName == "" {
		s.cookieName = DefaultCookieName
	}
	if s.submitTimeout <= 0 {
		s.submitTimeout = DefaultSubmitTimeout
	}
	return s, nil
}

// Router builds the mux router with middleware and every route.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.Use(LoggingMiddleware(s.logger))
	r.Use(MetricsMiddleware(s.obs))
	r.Use(RecoveryMiddleware(s.logger))

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/step/next", s.handleNext).Methods(http.MethodPost)
	r.HandleFunc("/step/back", s.handleBack).Methods(http.MethodPost)
	r.HandleFunc("/submit", s.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/focus", s.handleFocus).Methods(http.MethodPost)
	r.HandleFunc("/api/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	if s.metricsPath != "" {
		r.Handle(s.metricsPath, promhttp.Handler()).Methods(http.MethodGet)
	}

	return r
}
