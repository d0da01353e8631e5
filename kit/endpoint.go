// CLAUDE:SUMMARY Transport-agnostic endpoint type and middleware chaining shared by the HTTP and MCP surfaces.
// Package kit holds the small shared vocabulary of bookpress surfaces:
// endpoints, middleware and the context keys they agree on.
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint is one operation independent of its transport.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware decorates an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middleware; the first one is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs each call with its duration and the ids found on ctx.
func Logging(logger *slog.Logger, name string) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := append([]any{"endpoint", name, "duration", time.Since(start)}, LogAttrs(ctx)...)
			if err != nil {
				logger.Warn("endpoint failed", append(attrs, "error", err)...)
			} else {
				logger.Debug("endpoint done", attrs...)
			}
			return resp, err
		}
	}
}
