package server

import (
	"fmt"
	"net/http"

	"github.com/teemow/bookshelf/internal/logging"
)

const msgUnverifiedEmail = "User email not available or not verified by Google."

type appError struct {
	Err     error
	Message string
	Code    int
}

// appHandler adapts handlers that return an *appError. Errors are logged and
// turned into a status page.
type appHandler struct {
	s  *Server
	fn func(http.ResponseWriter, *http.Request) *appError
}

func (h appHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e := h.fn(w, r)
	if e == nil {
		return
	}
	h.s.renderError(w, r, e)
}

func (s *Server) handle(fn func(http.ResponseWriter, *http.Request) *appError) http.Handler {
	return appHandler{s: s, fn: fn}
}

func (s *Server) appErrorf(err error, format string, v ...interface{}) *appError {
	return &appError{
		Err:     err,
		Message: fmt.Sprintf(format, v...),
		Code:    http.StatusInternalServerError,
	}
}

func notFound(err error) *appError {
	return &appError{Err: err, Message: "Book not found", Code: http.StatusNotFound}
}

func badRequest(msg string) *appError {
	return &appError{Message: msg, Code: http.StatusBadRequest}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, e *appError) {
	route := routeTemplate(r)
	switch e.Code {
	case http.StatusNotFound:
		s.logger.Debug("not found", logging.Route(route), logging.Err(e.Err))
		p := page{User: userFromContext(r.Context()), Data: e.Message}
		if err := notFoundTmpl.Execute(w, http.StatusNotFound, p); err != nil {
			http.Error(w, e.Message, http.StatusNotFound)
		}
	case http.StatusBadRequest:
		s.logger.Info("bad request", logging.Route(route), "message", e.Message)
		http.Error(w, e.Message, http.StatusBadRequest)
	default:
		s.logger.Error("request failed",
			logging.Route(route),
			"message", e.Message,
			logging.Err(e.Err))
		p := page{User: userFromContext(r.Context())}
		if err := errorTmpl.Execute(w, e.Code, p); err != nil {
			http.Error(w, http.StatusText(e.Code), e.Code)
		}
	}
}
