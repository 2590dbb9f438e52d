package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
)

// Attribute keys shared by every package that logs.
const (
	KeyComponent = "component"
	KeyUserHash  = "user_hash"
	KeyBookID    = "book_id"
	KeyRoute     = "route"
	KeyError     = "error"
)

// WithComponent returns a logger with the component attribute set.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String(KeyComponent, component))
}

// BookID returns a slog attribute for a book id.
func BookID(id int64) slog.Attr {
	return slog.String(KeyBookID, strconv.FormatInt(id, 10))
}

// Route returns a slog attribute for a route template such as "/{id}/edit".
func Route(route string) slog.Attr {
	return slog.String(KeyRoute, route)
}

// Err returns a slog attribute for an error. A nil error yields an empty
// group, which handlers omit.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail hashes an email so log lines about the same user can be
// correlated without storing the address.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized user email.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken masks a token or authorization code, keeping its length.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
