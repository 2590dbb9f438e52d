// Package cmd implements the command-line interface for bookshelf.
//
// This package provides the following commands:
//   - serve: Start the catalog web server
//   - initdb: Create or upgrade the SQLite schema
//   - routes: Print the HTTP routes as a markdown table
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
