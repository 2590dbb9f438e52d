// Package server serves the book catalog over HTTP.
//
// Routes are registered on a gorilla/mux router from a single table (see
// Routes). Pages are html/template files embedded in the binary, each one
// rendered inside templates/base.html.
//
// Sign-in uses the OAuth authorization code flow against Google. The
// LoginManager keeps the signed-in user's id in a signed cookie session
// (gorilla/sessions) and loads the user record once per request. The same
// session carries one-shot flash messages.
//
// Create, edit and delete require a signed-in user unless
// Options.RequireLoginForWrites is false. Logout always requires one.
//
// HealthChecker backs the /healthz, /readyz and /healthz/detailed probes and
// MetricsServer exposes Prometheus metrics on a separate listener.
package server
