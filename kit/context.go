package kit

import "context"

type contextKey string

// Context keys shared by the surfaces and the exporter.
const (
	TransportKey  contextKey = "kit_transport" // "http", "mcp", "cli"
	TraceIDKey    contextKey = "kit_trace_id"
	ExportIDKey   contextKey = "kit_export_id"
	RemoteAddrKey contextKey = "kit_remote_addr"
)

func with(ctx context.Context, k contextKey, v string) context.Context {
	return context.WithValue(ctx, k, v)
}

func get(ctx context.Context, k contextKey) string {
	v, _ := ctx.Value(k).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context { return with(ctx, TransportKey, t) }

// GetTransport defaults to "http".
func GetTransport(ctx context.Context) string {
	if v := get(ctx, TransportKey); v != "" {
		return v
	}
	return "http"
}

func WithTraceID(ctx context.Context, id string) context.Context { return with(ctx, TraceIDKey, id) }
func GetTraceID(ctx context.Context) string                      { return get(ctx, TraceIDKey) }

// WithExportID tags the context with the export being produced.
func WithExportID(ctx context.Context, id string) context.Context { return with(ctx, ExportIDKey, id) }
func GetExportID(ctx context.Context) string                      { return get(ctx, ExportIDKey) }

func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return with(ctx, RemoteAddrKey, addr)
}
func GetRemoteAddr(ctx context.Context) string { return get(ctx, RemoteAddrKey) }

// LogAttrs returns the slog key/value pairs of the ids set on ctx, so a log
// line can be tied back to its request and export.
func LogAttrs(ctx context.Context) []any {
	attrs := []any{"transport", GetTransport(ctx)}
	for _, kv := range []struct {
		key string
		k   contextKey
	}{
		{"trace_id", TraceIDKey},
		{"export_id", ExportIDKey},
		{"remote_addr", RemoteAddrKey},
	} {
		if v := get(ctx, kv.k); v != "" {
			attrs = append(attrs, kv.key, v)
		}
	}
	return attrs
}
