package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"github.com/teemow/bookshelf/internal/catalog"
	"github.com/teemow/bookshelf/internal/google"
	"github.com/teemow/bookshelf/internal/instrumentation"
	"github.com/teemow/bookshelf/internal/logging"
)

// OAuthClient runs the provider side of the sign-in flow.
type OAuthClient interface {
	AuthCodeURL(ctx context.Context, redirectURL string) (string, error)
	Exchange(ctx context.Context, code, redirectURL string) (*google.Profile, error)
}

// Options configures a Server.
type Options struct {
	Books    *catalog.Service
	Identity *catalog.Identity
	OAuth    OAuthClient
	Sessions sessions.Store

	// Store is pinged by the readiness probe. Optional.
	Store Pinger

	// BaseURL is the externally visible origin used to build the OAuth
	// callback. When empty it is derived from each request.
	BaseURL string

	// RequireLoginForWrites redirects anonymous create, edit and delete
	// requests to /login.
	RequireLoginForWrites bool

	Logger    *slog.Logger
	AccessLog io.Writer
	Metrics   *instrumentation.Metrics
	Audit     *instrumentation.AuditLogger
}

// Server serves the book catalog over HTTP.
type Server struct {
	books        *catalog.Service
	identity     *catalog.Identity
	oauth        OAuthClient
	login        *LoginManager
	health       *HealthChecker
	baseURL      string
	requireLogin bool
	logger       *slog.Logger
	metrics      *instrumentation.Metrics
	audit        *instrumentation.AuditLogger
	handler      http.Handler
}

// New builds a Server and its router.
func New(opts Options) (*Server, error) {
	var errs []error
	if opts.Books == nil {
		errs = append(errs, errors.New("books service is required"))
	}
	if opts.Identity == nil {
		errs = append(errs, errors.New("identity service is required"))
	}
	if opts.OAuth == nil {
		errs = append(errs, errors.New("oauth client is required"))
	}
	if opts.Sessions == nil {
		errs = append(errs, errors.New("session store is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AccessLog == nil {
		opts.AccessLog = os.Stderr
	}
	if opts.Metrics == nil {
		opts.Metrics = &instrumentation.Metrics{}
	}

	logger := logging.WithComponent(opts.Logger, "http")
	s := &Server{
		books:        opts.Books,
		identity:     opts.Identity,
		oauth:        opts.OAuth,
		login:        NewLoginManager(opts.Sessions, opts.Identity, opts.Logger),
		health:       NewHealthChecker(opts.Store),
		baseURL:      opts.BaseURL,
		requireLogin: opts.RequireLoginForWrites,
		logger:       logger,
		metrics:      opts.Metrics,
		audit:        opts.Audit,
	}

	r := s.router()
	var h http.Handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
	)(r)
	h = handlers.CombinedLoggingHandler(opts.AccessLog, h)
	s.handler = handlers.ProxyHeaders(h)
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Health returns the checker backing the probe endpoints.
func (s *Server) Health() *HealthChecker {
	return s.health
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	for _, rt := range routeTable {
		h := rt.handler(s)
		switch rt.Auth {
		case AuthWrite:
			if s.requireLogin {
				h = s.login.RequireLogin(h)
			}
		case AuthSession:
			h = s.login.RequireAuth(h)
		}
		r.Methods(rt.Methods...).Path(rt.Path).Name(rt.Name).Handler(h)
	}
	r.Use(s.instrument, s.login.LoadUser)
	r.NotFoundHandler = s.login.LoadUser(s.handle(func(http.ResponseWriter, *http.Request) *appError {
		return &appError{Message: "The requested page does not exist.", Code: http.StatusNotFound}
	}))
	return r
}
