// Package server holds the HTTP server configuration.
//
// While the start command handles the server startup, this package defines the
// configuration structure and its validation: listen port, API key, body
// limit and graceful shutdown timeout.
//
// # Usage
//
// This package is primarily used by the core/config package to embed server
// settings and by cmd/start to configure the Fiber application.
package server
