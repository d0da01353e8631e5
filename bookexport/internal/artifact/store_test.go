package artifact

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/bookpress/horosafe"
)

func TestKey(t *testing.T) {
	at := time.Date(2026, 3, 9, 23, 0, 0, 0, time.FixedZone("x", -5*3600))
	got := Key("exp_01", "the-quiet-harbor", "epub", at)
	want := "exports/2026/03/exp_01/the-quiet-harbor.epub"
	if got != want {
		t.Fatalf("Key = %q, want %q", got, want)
	}
}

func TestLocal_PutGet(t *testing.T) {
	root := t.TempDir()
	st, err := NewLocal(root)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	key := "exports/2026/03/exp_01/book.pdf"
	if err := st.Put(ctx, key, strings.NewReader("%PDF-1.7"), "application/pdf"); err != nil {
		t.Fatal(err)
	}
	rc, err := st.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "%PDF-1.7" {
		t.Fatalf("data = %q", data)
	}
	if loc := st.Location(key); loc != filepath.Join(root, "exports", "2026", "03", "exp_01", "book.pdf") {
		t.Fatalf("location = %q", loc)
	}
}

func TestLocal_Overwrite(t *testing.T) {
	st, _ := NewLocal(t.TempDir())
	ctx := context.Background()
	st.Put(ctx, "a/b.docx", bytes.NewReader([]byte("one")), "")
	st.Put(ctx, "a/b.docx", bytes.NewReader([]byte("two")), "")
	rc, err := st.Get(ctx, "a/b.docx")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "two" {
		t.Fatalf("data = %q", data)
	}
}

func TestLocal_Errors(t *testing.T) {
	st, _ := NewLocal(t.TempDir())
	ctx := context.Background()

	// WHY: keys come from titles; a crafted key must not escape the root.
	if err := st.Put(ctx, "../escape.pdf", strings.NewReader("x"), ""); !errors.Is(err, horosafe.ErrPathTraversal) {
		t.Fatalf("traversal err = %v", err)
	}
	if _, err := st.Get(ctx, "missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := st.Put(cancelled, "x.pdf", strings.NewReader("x"), ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled err = %v", err)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	st, err := New(ctx, Options{Adapter: "none"})
	if err != nil || st != nil {
		t.Fatalf("none = %v, %v", st, err)
	}
	if _, err := New(ctx, Options{Adapter: "ftp"}); err == nil {
		t.Fatal("unknown adapter accepted")
	}
	if _, err := New(ctx, Options{Adapter: "local"}); err == nil {
		t.Fatal("empty root accepted")
	}
	if _, err := New(ctx, Options{Adapter: "s3"}); err == nil {
		t.Fatal("empty bucket accepted")
	}
}

func TestS3_ObjectKeyAndLocation(t *testing.T) {
	// WHAT: static credentials and a custom endpoint build a client
	// without touching the network.
	st, err := NewS3(context.Background(), S3Options{
		Bucket:          "books",
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		Prefix:          "/press/",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := st.Location("exports/x.pdf"); got != "s3://books/press/exports/x.pdf" {
		t.Fatalf("location = %q", got)
	}
}

// fakeBucket answers path-style PUT and GET like a minimal S3 server.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"1"`)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3_PutGet(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(bucket)
	defer srv.Close()

	ctx := context.Background()
	st, err := NewS3(ctx, S3Options{
		Bucket: "books", Region: "us-east-1", Endpoint: srv.URL,
		AccessKeyID: "test", SecretAccessKey: "test", Prefix: "tenant-a",
	})
	if err != nil {
		t.Fatal(err)
	}

	key := "exports/2026/10/exp_1/harbor.epub"
	if err := st.Put(ctx, key, strings.NewReader("PK-epub"), "application/epub+zip"); err != nil {
		t.Fatal(err)
	}
	// WHY: a custom endpoint implies path style, so the bucket is in the path.
	path := "/books/tenant-a/" + key
	if string(bucket.objects[path]) != "PK-epub" || bucket.types[path] != "application/epub+zip" {
		t.Fatalf("stored %v", bucket.objects)
	}

	rc, err := st.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != "PK-epub" {
		t.Fatalf("got %q", got)
	}

	if _, err := st.Get(ctx, "exports/missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing key err = %v", err)
	}
}
