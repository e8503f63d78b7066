// Package middleware provides the HTTP middleware chain: W3C access
// logging, Prometheus request metrics, and gzip compression for API
// responses. Stream routes bypass compression so byte-range delivery stays
// exact.
package middleware
