package server

import "net/http"

// Access levels for routes.
const (
	// AuthNone routes are public.
	AuthNone = "none"
	// AuthWrite routes require a signed-in user when login is required for
	// writes.
	AuthWrite = "write"
	// AuthSession routes always require a signed-in user.
	AuthSession = "session"
)

// Route describes one registered endpoint.
type Route struct {
	Name        string
	Methods     []string
	Path        string
	Auth        string
	Description string
}

type routeEntry struct {
	Route
	handler func(s *Server) http.Handler
}

var routeTable = []routeEntry{
	{
		Route{"index", []string{http.MethodGet}, "/", AuthNone,
			"List all books; anonymous visitors get a login link"},
		func(s *Server) http.Handler { return s.handle(s.indexHandler) },
	},
	{
		Route{"redirect", []string{http.MethodGet}, "/redirect", AuthNone,
			"Landing page after a successful login"},
		func(s *Server) http.Handler { return s.handle(s.redirectHandler) },
	},
	{
		Route{"login", []string{http.MethodGet}, "/login", AuthNone,
			"Redirect to the identity provider"},
		func(s *Server) http.Handler { return s.handle(s.loginHandler) },
	},
	{
		Route{"callback", []string{http.MethodGet}, "/login/callback", AuthNone,
			"Complete the sign-in and create the user on first login"},
		func(s *Server) http.Handler { return s.handle(s.callbackHandler) },
	},
	{
		Route{"logout", []string{http.MethodGet}, "/logout", AuthSession,
			"Sign out"},
		func(s *Server) http.Handler { return s.handle(s.logoutHandler) },
	},
	{
		Route{"create", []string{http.MethodGet, http.MethodPost}, "/create", AuthWrite,
			"Show the create form or add a book"},
		func(s *Server) http.Handler { return s.handle(s.createHandler) },
	},
	{
		Route{"detail", []string{http.MethodGet}, "/{id:[0-9]+}", AuthNone,
			"Show one book"},
		func(s *Server) http.Handler { return s.handle(s.detailHandler) },
	},
	{
		Route{"edit", []string{http.MethodGet, http.MethodPost}, "/{id:[0-9]+}/edit", AuthWrite,
			"Show the edit form or update a book"},
		func(s *Server) http.Handler { return s.handle(s.editHandler) },
	},
	{
		Route{"delete", []string{http.MethodPost}, "/{id:[0-9]+}/delete", AuthWrite,
			"Delete a book"},
		func(s *Server) http.Handler { return s.handle(s.deleteHandler) },
	},
	{
		Route{"healthz", []string{http.MethodGet}, "/healthz", AuthNone,
			"Liveness probe"},
		func(s *Server) http.Handler { return s.health.LivenessHandler() },
	},
	{
		Route{"readyz", []string{http.MethodGet}, "/readyz", AuthNone,
			"Readiness probe"},
		func(s *Server) http.Handler { return s.health.ReadinessHandler() },
	},
	{
		Route{"healthz_detailed", []string{http.MethodGet}, "/healthz/detailed", AuthNone,
			"Detailed health information"},
		func(s *Server) http.Handler { return s.health.DetailedHealthHandler() },
	},
}

// Routes lists every endpoint the server registers, in registration order.
func Routes() []Route {
	out := make([]Route, len(routeTable))
	for i, rt := range routeTable {
		out[i] = rt.Route
		out[i].Methods = append([]string(nil), rt.Methods...)
	}
	return out
}
