package shield

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/bookpress/idgen"
	"github.com/hazyhaar/bookpress/kit"
)

// TraceHeader carries the trace id in both directions.
const TraceHeader = "X-Trace-ID"

var newTraceID = idgen.NanoID(12)

// TraceID tags the request with a trace id (kept from an upstream
// X-Trace-ID when it is at most 64 safe characters), echoes it in the
// response and attaches a request logger to the context. One line is logged
// per request once the handler returns.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(TraceHeader)
		if !acceptTraceID(id) {
			id = newTraceID()
		}
		w.Header().Set(TraceHeader, id)

		ctx := kit.WithTraceID(r.Context(), id)
		ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)
		ctx = kit.WithTransport(ctx, "http")
		logger := slog.Default().With(kit.LogAttrs(ctx)...).With("method", r.Method, "path", r.URL.Path)
		ctx = context.WithValue(ctx, LoggerKey, logger)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r.WithContext(ctx))

		level := slog.LevelInfo
		if sw.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "request", "status", sw.status, "bytes", sw.written, "duration", time.Since(start))
	})
}

func acceptTraceID(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	return strings.IndexFunc(s, func(c rune) bool {
		return !(c == '-' || c == '_' ||
			(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'))
	}) < 0
}

// GetLogger returns the request logger set by TraceID, or slog.Default().
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
