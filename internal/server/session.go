package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/samber/lo"

	"github.com/teemow/bookshelf/internal/catalog"
	"github.com/teemow/bookshelf/internal/logging"
)

const (
	sessionName    = "bookshelf"
	sessionUserKey = "user_id"
)

// UserLoader resolves the user id stored in a session to a user record.
// It returns nil, nil when the user no longer exists.
type UserLoader interface {
	Lookup(ctx context.Context, id string) (*catalog.User, error)
}

type userContextKey struct{}

// NewCookieStore returns a session store whose cookies are signed with
// secret and expire after maxAge. secure marks the cookie HTTPS-only.
func NewCookieStore(secret string, maxAge time.Duration, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(int(maxAge.Seconds()))
	return store
}

// LoginManager tracks which user a client is signed in as. The user id lives
// in a signed session cookie; the user row is loaded once per request.
type LoginManager struct {
	store  sessions.Store
	users  UserLoader
	logger *slog.Logger
}

// NewLoginManager creates a LoginManager.
func NewLoginManager(store sessions.Store, users UserLoader, logger *slog.Logger) *LoginManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginManager{
		store:  store,
		users:  users,
		logger: logging.WithComponent(logger, "login"),
	}
}

// session returns the request's session. A cookie that fails to decode (for
// example after the secret changed) yields a fresh, empty session.
func (m *LoginManager) session(r *http.Request) *sessions.Session {
	sess, err := m.store.Get(r, sessionName)
	if err != nil {
		m.logger.Debug("discarding undecodable session", logging.Err(err))
	}
	return sess
}

// CurrentUser returns the signed-in user, or nil for anonymous requests.
func (m *LoginManager) CurrentUser(r *http.Request) (*catalog.User, error) {
	id, ok := m.session(r).Values[sessionUserKey].(string)
	if !ok || id == "" {
		return nil, nil
	}
	return m.users.Lookup(r.Context(), id)
}

// Login marks the client's session as belonging to user.
func (m *LoginManager) Login(w http.ResponseWriter, r *http.Request, user *catalog.User) error {
	sess := m.session(r)
	sess.Values[sessionUserKey] = user.ID
	return sess.Save(r, w)
}

// Logout removes the user from the session. Pending flash messages survive.
func (m *LoginManager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess := m.session(r)
	delete(sess.Values, sessionUserKey)
	return sess.Save(r, w)
}

// Flash queues a message for the next rendered page.
func (m *LoginManager) Flash(w http.ResponseWriter, r *http.Request, msg string) error {
	sess := m.session(r)
	sess.AddFlash(msg)
	return sess.Save(r, w)
}

// Flashes pops the queued messages. It must run before the response is
// written since it rewrites the session cookie.
func (m *LoginManager) Flashes(w http.ResponseWriter, r *http.Request) []string {
	sess := m.session(r)
	flashes := sess.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		m.logger.Warn("failed to save session after reading flashes", logging.Err(err))
	}
	return lo.FilterMap(flashes, func(v interface{}, _ int) (string, bool) {
		s, ok := v.(string)
		return s, ok
	})
}

// LoadUser resolves the signed-in user and stores it in the request context.
// A failed lookup is logged and the request continues anonymously.
func (m *LoginManager) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.CurrentUser(r)
		if err != nil {
			m.logger.Warn("failed to load session user", logging.Err(err))
		}
		if user != nil {
			r = r.WithContext(context.WithValue(r.Context(), userContextKey{}, user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireLogin sends anonymous callers to the login page.
func (m *LoginManager) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userFromContext(r.Context()) == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects anonymous callers with 401.
func (m *LoginManager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userFromContext(r.Context()) == nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFromContext(ctx context.Context) *catalog.User {
	u, _ := ctx.Value(userContextKey{}).(*catalog.User)
	return u
}
