package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/teemow/bookshelf/internal/catalog"
	"github.com/teemow/bookshelf/internal/google"
	"github.com/teemow/bookshelf/internal/instrumentation"
	"github.com/teemow/bookshelf/internal/logging"
)

const loginLink = `<a class="button" href="/login">Google Login</a>`

func (s *Server) render(w http.ResponseWriter, r *http.Request, tmpl *appTemplate, data interface{}) *appError {
	p := page{
		User:    userFromContext(r.Context()),
		Flashes: s.login.Flashes(w, r),
		Data:    data,
	}
	if err := tmpl.Execute(w, http.StatusOK, p); err != nil {
		return s.appErrorf(err, "could not render page")
	}
	return nil
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) *appError {
	if userFromContext(r.Context()) == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, loginLink)
		return nil
	}
	books, err := s.books.List(r.Context())
	if err != nil {
		return s.appErrorf(err, "could not list books")
	}
	return s.render(w, r, indexTmpl, books)
}

func (s *Server) redirectHandler(w http.ResponseWriter, r *http.Request) *appError {
	return s.render(w, r, redirectTmpl, nil)
}

func (s *Server) detailHandler(w http.ResponseWriter, r *http.Request) *appError {
	book, appErr := s.bookFromRequest(r)
	if appErr != nil {
		return appErr
	}
	return s.render(w, r, bookTmpl, book)
}

func (s *Server) createHandler(w http.ResponseWriter, r *http.Request) *appError {
	if r.Method != http.MethodPost {
		return s.render(w, r, createTmpl, formView{})
	}

	form := catalog.BookForm{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
		Count:   r.PostFormValue("count"),
	}
	user := userFromContext(r.Context())
	event := instrumentation.NewAuditEvent(instrumentation.OperationCreate).WithSpanContext(r.Context())
	withUser(event, user)

	book, err := s.books.Create(r.Context(), form)
	if book != nil {
		event.WithBook(book.ID, book.Title)
	}
	s.recordMutation(r, event, instrumentation.OperationCreate, err)
	if err != nil {
		if msg := catalog.UserMessage(err); msg != "" {
			return s.render(w, r, createTmpl, formView{Form: form, Message: msg})
		}
		return s.appErrorf(err, "could not save book")
	}

	s.logger.Info("book created", logging.BookID(book.ID))
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

func (s *Server) editHandler(w http.ResponseWriter, r *http.Request) *appError {
	book, appErr := s.bookFromRequest(r)
	if appErr != nil {
		return appErr
	}
	if r.Method != http.MethodPost {
		return s.render(w, r, editTmpl, formView{Book: book, Form: catalog.FormFromBook(book)})
	}

	form := catalog.BookForm{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("summary"),
		Count:   r.PostFormValue("count"),
	}
	event := instrumentation.NewAuditEvent(instrumentation.OperationUpdate).WithSpanContext(r.Context())
	withUser(event, userFromContext(r.Context()))
	event.WithBook(book.ID, book.Title)

	_, err := s.books.Update(r.Context(), book.ID, form)
	s.recordMutation(r, event, instrumentation.OperationUpdate, err)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return notFound(err)
	case err != nil:
		if msg := catalog.UserMessage(err); msg != "" {
			return s.render(w, r, editTmpl, formView{Book: book, Form: form, Message: msg})
		}
		return s.appErrorf(err, "could not update book")
	}

	s.logger.Info("book updated", logging.BookID(book.ID))
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) *appError {
	id, appErr := bookID(r)
	if appErr != nil {
		return appErr
	}
	event := instrumentation.NewAuditEvent(instrumentation.OperationDelete).WithSpanContext(r.Context())
	withUser(event, userFromContext(r.Context()))

	book, err := s.books.Delete(r.Context(), id)
	if book != nil {
		event.WithBook(book.ID, book.Title)
	} else {
		event.WithBook(id, "")
	}
	s.recordMutation(r, event, instrumentation.OperationDelete, err)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return notFound(err)
	case err != nil:
		return s.appErrorf(err, "could not delete book")
	}

	if err := s.login.Flash(w, r, fmt.Sprintf(`"%s" was successfully deleted!`, book.Title)); err != nil {
		s.logger.Warn("failed to save flash message", logging.Err(err))
	}
	s.logger.Info("book deleted", logging.BookID(book.ID))
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) *appError {
	authURL, err := s.oauth.AuthCodeURL(r.Context(), s.callbackURL(r))
	if err != nil {
		return s.appErrorf(err, "could not start login")
	}
	http.Redirect(w, r, authURL, http.StatusFound)
	return nil
}

func (s *Server) callbackHandler(w http.ResponseWriter, r *http.Request) *appError {
	ctx := r.Context()
	event := instrumentation.NewAuditEvent(instrumentation.OperationLogin).WithSpanContext(ctx)

	profile, err := s.oauth.Exchange(ctx, r.URL.Query().Get("code"), s.callbackURL(r))
	if err != nil {
		s.audit.LogEvent(event.Complete(err))
		if errors.Is(err, google.ErrEmailUnverified) {
			return badRequest(msgUnverifiedEmail)
		}
		return s.appErrorf(err, "could not complete login")
	}
	event.WithUser(profile.ID, profile.Email)

	user, created, err := s.identity.EnsureUser(ctx, catalog.User{
		ID:         profile.ID,
		Name:       profile.Name,
		Email:      profile.Email,
		ProfilePic: profile.Picture,
	})
	if err != nil {
		s.audit.LogEvent(event.Complete(err))
		return s.appErrorf(err, "could not store user")
	}
	if err := s.login.Login(w, r, user); err != nil {
		s.audit.LogEvent(event.Complete(err))
		return s.appErrorf(err, "could not save session")
	}

	if userFromContext(ctx) == nil {
		s.metrics.IncrementActiveSessions(ctx)
	}
	s.audit.LogEvent(event.Complete(nil))
	s.logger.Info("user logged in", logging.UserHash(user.Email), "created", created)
	http.Redirect(w, r, "/redirect", http.StatusFound)
	return nil
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) *appError {
	ctx := r.Context()
	event := instrumentation.NewAuditEvent(instrumentation.OperationLogout).WithSpanContext(ctx)
	withUser(event, userFromContext(ctx))

	if err := s.login.Logout(w, r); err != nil {
		s.audit.LogEvent(event.Complete(err))
		return s.appErrorf(err, "could not clear session")
	}
	s.metrics.DecrementActiveSessions(ctx)
	s.audit.LogEvent(event.Complete(nil))
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

// callbackURL is where the provider sends the user back to.
func (s *Server) callbackURL(r *http.Request) string {
	base := s.baseURL
	if base == "" {
		scheme := r.URL.Scheme
		if scheme == "" {
			scheme = "http"
			if r.TLS != nil {
				scheme = "https"
			}
		}
		base = scheme + "://" + r.Host
	}
	return strings.TrimRight(base, "/") + "/login/callback"
}

func (s *Server) bookFromRequest(r *http.Request) (*catalog.Book, *appError) {
	id, appErr := bookID(r)
	if appErr != nil {
		return nil, appErr
	}
	book, err := s.books.Get(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, notFound(err)
	}
	if err != nil {
		return nil, s.appErrorf(err, "could not load book")
	}
	return book, nil
}

func (s *Server) recordMutation(r *http.Request, event *instrumentation.AuditEvent, action string, err error) {
	result := instrumentation.ResultSuccess
	switch {
	case errors.Is(err, catalog.ErrValidation):
		result = instrumentation.ResultRejected
	case errors.Is(err, catalog.ErrNotFound):
		result = instrumentation.ResultRejected
	case err != nil:
		result = instrumentation.ResultError
	}
	s.metrics.RecordCatalogMutation(r.Context(), action, result, event.UserEmail)
	s.audit.LogEvent(event.Complete(err))
}

// bookID parses the {id} route variable. The route pattern only admits
// digits, so a failure here means the value overflowed.
func bookID(r *http.Request) (int64, *appError) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, notFound(err)
	}
	return id, nil
}

func withUser(event *instrumentation.AuditEvent, user *catalog.User) {
	if user != nil {
		event.WithUser(user.ID, user.Email)
	}
}
