// Package logging provides structured logging utilities for the bookshelf server.
//
// It builds slog loggers (New, ParseLevel), defines the attribute keys used
// across packages, and hashes personal data before it reaches a log line.
//
// # Usage Patterns
//
//	logger := logging.WithComponent(slog.Default(), "catalog")
//	logger.Info("book deleted", logging.BookID(id), logging.UserHash(email))
//
// User emails are hashed and OAuth codes and tokens are reduced to their
// length; neither is ever logged directly.
package logging
