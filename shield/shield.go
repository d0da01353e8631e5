// CLAUDE:SUMMARY HTTP middleware for bookpress: security headers, trace id with per-request logger, body limit, bcrypt API key.
// Package shield provides reusable HTTP security middleware.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.Stack(shield.Options{MaxBody: 32 << 20, APIKeyHash: hash}) {
//	    r.Use(mw)
//	}
package shield

import "net/http"

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// Options selects the middleware of Stack.
type Options struct {
	// MaxBody caps request bodies. 0 disables the limit.
	MaxBody int64
	// APIKeyHash is a bcrypt hash of the accepted bearer key. Empty disables
	// authentication.
	APIKeyHash string
	// Public paths skip authentication (health checks).
	Public []string
	// Headers overrides the default API security headers.
	Headers map[string]string
}

// Stack returns the standard middleware stack, ordered:
// Headers → TraceID → MaxBody → APIKey.
func Stack(opts Options) []func(http.Handler) http.Handler {
	stack := []func(http.Handler) http.Handler{
		Headers(opts.Headers),
		TraceID,
	}
	if opts.MaxBody > 0 {
		stack = append(stack, MaxBody(opts.MaxBody))
	}
	if opts.APIKeyHash != "" {
		stack = append(stack, APIKey(opts.APIKeyHash, opts.Public...))
	}
	return stack
}
