package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/bookpress/bookexport/internal/book"
	"github.com/hazyhaar/bookpress/horosafe"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x42}, 200)...)

func newTestServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/img/ok.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(pngBytes)
	})
	mux.HandleFunc("/img/photo.JPEG", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("\xff\xd8\xff\xe0jpegdata"))
	})
	mux.HandleFunc("/img/slow.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		w.Write(pngBytes)
	})
	mux.HandleFunc("/img/big.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(bytes.Repeat([]byte{1}, 4096))
	})
	mux.HandleFunc("/img/flaky.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testResolver(cfg Config) *Resolver {
	if cfg.URLValidator == nil {
		cfg.URLValidator = horosafe.ValidateURLAllowPrivate
	}
	return NewResolver(cfg)
}

func TestResolve_InlinePayload(t *testing.T) {
	// WHAT: A long inline payload resolves without any network access.
	// WHY: Inline images come from the generator and must never be re-fetched.
	r := testResolver(Config{})
	payload := base64.StdEncoding.EncodeToString(pngBytes)

	out := r.Resolve(context.Background(), &book.AssetRef{Data: payload, URL: "http://unreachable.invalid/x.jpg"})
	if !out.Resolved() {
		t.Fatalf("expected resolved, got absent: %s", out.Reason)
	}
	if out.Asset.MIMEType != DefaultMIME {
		t.Fatalf("inline mime = %q, want %q", out.Asset.MIMEType, DefaultMIME)
	}
	if !bytes.Equal(out.Asset.Data, pngBytes) {
		t.Fatal("decoded payload differs")
	}
	if !strings.HasPrefix(out.Asset.DataURI(), "data:image/png;base64,") {
		t.Fatalf("data uri: %q", out.Asset.DataURI()[:30])
	}
}

func TestResolve_InlineDataURIPrefix(t *testing.T) {
	r := testResolver(Config{})
	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	out := r.Resolve(context.Background(), &book.AssetRef{Data: payload})
	if !out.Resolved() {
		t.Fatalf("expected resolved: %s", out.Reason)
	}
	if out.Asset.MIMEType != DefaultMIME {
		t.Fatalf("inline mime must stay default, got %q", out.Asset.MIMEType)
	}
}

func TestResolve_PlaceholderFallsBackToLocator(t *testing.T) {
	// WHAT: A tiny inline payload is ignored in favour of the URL.
	// WHY: Empty/placeholder payloads must not shadow a real remote image.
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	r := testResolver(Config{})

	out := r.Resolve(context.Background(), &book.AssetRef{Data: "AAAA", URL: srv.URL + "/img/ok.png"})
	if !out.Resolved() {
		t.Fatalf("expected resolved: %s", out.Reason)
	}
	if out.Asset.Origin != srv.URL+"/img/ok.png" {
		t.Fatalf("origin = %q", out.Asset.Origin)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, want 1", hits.Load())
	}
}

func TestResolve_PlaceholderWithoutLocator(t *testing.T) {
	r := testResolver(Config{})
	out := r.Resolve(context.Background(), &book.AssetRef{Data: "AAAA"})
	if out.Resolved() {
		t.Fatal("expected absent")
	}
}

func TestResolve_BadBase64(t *testing.T) {
	r := testResolver(Config{})
	out := r.Resolve(context.Background(), &book.AssetRef{Data: strings.Repeat("!", 200)})
	if out.Resolved() {
		t.Fatal("expected absent for undecodable payload")
	}
	if !strings.Contains(out.Reason, "base64") {
		t.Fatalf("reason = %q", out.Reason)
	}
}

func TestResolve_Remote(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	r := testResolver(Config{})

	tests := []struct {
		path     string
		resolved bool
		mime     string
	}{
		{"/img/ok.png", true, MIMEPNG},
		{"/img/photo.JPEG", true, MIMEJPEG},
		{"/img/missing.png", false, ""},
		{"/img/flaky.png", false, ""},
	}
	for _, tt := range tests {
		out := r.Resolve(context.Background(), &book.AssetRef{URL: srv.URL + tt.path})
		if out.Resolved() != tt.resolved {
			t.Errorf("%s: resolved=%v want %v (%s)", tt.path, out.Resolved(), tt.resolved, out.Reason)
			continue
		}
		if tt.resolved && out.Asset.MIMEType != tt.mime {
			t.Errorf("%s: mime=%q want %q", tt.path, out.Asset.MIMEType, tt.mime)
		}
	}
}

func TestResolve_NoRetry(t *testing.T) {
	// WHAT: A failing fetch is attempted exactly once.
	// WHY: Deterministic outcome, no hidden retry latency.
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	r := testResolver(Config{})

	out := r.Resolve(context.Background(), &book.AssetRef{URL: srv.URL + "/img/flaky.png"})
	if out.Resolved() {
		t.Fatal("expected absent")
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, want exactly 1", hits.Load())
	}
}

func TestResolve_Timeout(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	r := testResolver(Config{Timeout: 100 * time.Millisecond})

	start := time.Now()
	out := r.Resolve(context.Background(), &book.AssetRef{URL: srv.URL + "/img/slow.png"})
	if out.Resolved() {
		t.Fatal("expected absent on timeout")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not honoured: %v", time.Since(start))
	}
}

func TestResolve_TooLarge(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	r := testResolver(Config{MaxBytes: 1024})

	out := r.Resolve(context.Background(), &book.AssetRef{URL: srv.URL + "/img/big.png"})
	if out.Resolved() {
		t.Fatal("expected absent for oversized body")
	}
}

func TestResolve_SSRFBlocked(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	r := NewResolver(Config{}) // default validator refuses loopback

	out := r.Resolve(context.Background(), &book.AssetRef{URL: srv.URL + "/img/ok.png"})
	if out.Resolved() {
		t.Fatal("loopback locator must be blocked by default")
	}
	if hits.Load() != 0 {
		t.Fatalf("blocked locator was fetched %d times", hits.Load())
	}
}

func TestResolveAll_Isolation(t *testing.T) {
	// WHAT: One failing illustration does not affect its siblings.
	// WHY: Graceful degradation, only the failed image is omitted.
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	r := testResolver(Config{Concurrency: 2})

	doc := &book.Document{
		Title: "T",
		Body:  "x",
		Cover: book.Cover{ShowImage: true, Image: &book.AssetRef{URL: srv.URL + "/img/missing.png"}},
		Illustrations: []book.Illustration{
			{Source: book.AssetRef{URL: srv.URL + "/img/ok.png"}, Caption: " first "},
			{Source: book.AssetRef{URL: srv.URL + "/img/missing.png"}, Caption: "gone"},
			{Source: book.AssetRef{URL: srv.URL + "/img/photo.JPEG"}},
		},
	}

	set := r.ResolveAll(context.Background(), doc)
	if set.Cover.Resolved() {
		t.Fatal("cover should be absent")
	}
	resolved := set.Resolved()
	if len(resolved) != 2 {
		t.Fatalf("resolved = %d, want 2", len(resolved))
	}
	if resolved[0].Caption != "first" {
		t.Fatalf("caption = %q", resolved[0].Caption)
	}
	if resolved[1].Asset.MIMEType != MIMEJPEG {
		t.Fatalf("order not preserved: %q", resolved[1].Asset.MIMEType)
	}

	omitted := set.Omitted()
	if len(omitted) != 2 {
		t.Fatalf("omitted = %v", omitted)
	}
	if omitted[0].Role != RoleCover || omitted[1].Role != RoleIllustration || omitted[1].Index != 1 {
		t.Fatalf("omitted = %v", omitted)
	}
	if set.MediaCount() != 2 {
		t.Fatalf("media = %d", set.MediaCount())
	}
}

func TestResolveAll_CoverDisabled(t *testing.T) {
	r := testResolver(Config{})
	payload := base64.StdEncoding.EncodeToString(pngBytes)
	doc := &book.Document{
		Cover: book.Cover{ShowImage: false, Image: &book.AssetRef{Data: payload}},
	}
	set := r.ResolveAll(context.Background(), doc)
	if set.CoverAsset() != nil {
		t.Fatal("cover image disabled but resolved")
	}
	if len(set.Omitted()) != 0 {
		t.Fatalf("disabled cover must not count as omitted: %v", set.Omitted())
	}
}

func TestDigest_Stable(t *testing.T) {
	a := &Asset{MIMEType: MIMEPNG, Data: pngBytes}
	b := &Asset{MIMEType: MIMEPNG, Data: append([]byte(nil), pngBytes...)}
	if a.FileName() != b.FileName() {
		t.Fatal("same payload must give same file name")
	}
	if len(a.Digest()) != 16 {
		t.Fatalf("digest length = %d", len(a.Digest()))
	}
}

func TestMIMEFromLocator(t *testing.T) {
	tests := map[string]string{
		"https://cdn.example.com/a.jpg":         MIMEJPEG,
		"https://cdn.example.com/a.jpeg?w=200":  MIMEJPEG,
		"https://cdn.example.com/a.webp":        MIMEPNG,
		"https://cdn.example.com/download?id=3": MIMEPNG,
	}
	for in, want := range tests {
		if got := MIMEFromLocator(in); got != want {
			t.Errorf("MIMEFromLocator(%q) = %q, want %q", in, got, want)
		}
	}
}
