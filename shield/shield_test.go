package shield

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/bookpress/kit"
)

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		w.Write([]byte(kit.GetTraceID(r.Context())))
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHeaders(t *testing.T) {
	h := Headers(nil)(okHandler(t))
	rec := serve(h, httptest.NewRequest("GET", "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("headers = %v", rec.Header())
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("cache-control = %q", rec.Header().Get("Cache-Control"))
	}

	// WHY: a deployment behind a CDN may want artifacts cached.
	h = Headers(map[string]string{"Cache-Control": "private, max-age=60", "X-Frame-Options": ""})(okHandler(t))
	rec = serve(h, httptest.NewRequest("GET", "/", nil))
	if rec.Header().Get("Cache-Control") != "private, max-age=60" {
		t.Fatalf("override ignored: %v", rec.Header())
	}
	if _, ok := rec.Header()["X-Frame-Options"]; ok {
		t.Fatal("empty override should remove the header")
	}
}

func TestTraceID(t *testing.T) {
	h := TraceID(okHandler(t))

	rec := serve(h, httptest.NewRequest("GET", "/", nil))
	id := rec.Header().Get("X-Trace-ID")
	if len(id) != 12 || rec.Body.String() != id {
		t.Fatalf("generated trace id %q, body %q", id, rec.Body.String())
	}

	// WHY: callers propagate their own trace id across services.
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Trace-ID", "upstream-42")
	if got := serve(h, req).Header().Get("X-Trace-ID"); got != "upstream-42" {
		t.Fatalf("propagated = %q", got)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Trace-ID", "bad id\n")
	if got := serve(h, req).Header().Get("X-Trace-ID"); got == "bad id\n" {
		t.Fatal("unsafe trace id propagated")
	}
}

func TestTraceID_LogsStatus(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		GetLogger(r.Context()).Info("inside")
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	req := httptest.NewRequest("GET", "/v1/export/pdf", nil)
	req.Header.Set(TraceHeader, "trc-9")
	serve(h, req)

	out := buf.String()
	for _, want := range []string{"msg=inside", "trace_id=trc-9", "transport=http", "status=502", "level=ERROR", "path=/v1/export/pdf"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestMaxBody(t *testing.T) {
	h := MaxBody(8)(okHandler(t))
	rec := serve(h, httptest.NewRequest("POST", "/", strings.NewReader("0123456789")))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("code = %d", rec.Code)
	}
	rec = serve(h, httptest.NewRequest("POST", "/", strings.NewReader("small")))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestAPIKey(t *testing.T) {
	hash, err := HashAPIKey("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	h := APIKey(hash, "/healthz")(okHandler(t))

	cases := []struct {
		path, auth string
		want       int
	}{
		{"/v1/export/pdf", "", http.StatusUnauthorized},
		{"/v1/export/pdf", "Bearer wrong", http.StatusUnauthorized},
		{"/v1/export/pdf", "s3cret", http.StatusUnauthorized},
		{"/v1/export/pdf", "Bearer s3cret", http.StatusOK},
		{"/healthz", "", http.StatusOK},
	}
	for _, c := range cases {
		req := httptest.NewRequest("GET", c.path, nil)
		if c.auth != "" {
			req.Header.Set("Authorization", c.auth)
		}
		if got := serve(h, req).Code; got != c.want {
			t.Errorf("%s %q: code = %d, want %d", c.path, c.auth, got, c.want)
		}
	}
}

func TestStack(t *testing.T) {
	if n := len(Stack(Options{})); n != 2 {
		t.Fatalf("bare stack = %d", n)
	}
	if n := len(Stack(Options{MaxBody: 1, APIKeyHash: "x"})); n != 4 {
		t.Fatalf("full stack = %d", n)
	}
}
