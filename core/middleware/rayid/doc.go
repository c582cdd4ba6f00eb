// Package rayid assigns a request id to every incoming request.
package rayid
