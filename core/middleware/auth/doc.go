// Package auth implements API key authentication for the Fiber application.
package auth
