// Package utils provides common utility functions for the relsave application.
// It includes helpers for type conversion, decoded JSON normalization, and
// parsing primary keys typed on the command line.
package utils
