package bookexport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/bookpress/bookexport/internal/browser"
	"github.com/hazyhaar/bookpress/idgen"
)

// fakeRenderer prints the visible text of the loaded markup into a
// single-page PDF, so pdfcpu inspection runs without Chrome.
type fakeRenderer struct {
	block bool // WaitResources blocks until ctx is done

	mu     sync.Mutex
	opened int
	closed int
}

func (r *fakeRenderer) Open(ctx context.Context) (browser.Session, error) {
	r.mu.Lock()
	r.opened++
	r.mu.Unlock()
	return &fakeSession{r: r}, nil
}

func (r *fakeRenderer) counts() (opened, closed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened, r.closed
}

type fakeSession struct {
	r      *fakeRenderer
	markup string
}

func (s *fakeSession) Load(_ context.Context, markup string) error {
	s.markup = markup
	return nil
}

func (s *fakeSession) WaitResources(ctx context.Context) error {
	if s.r.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (s *fakeSession) Print(_ context.Context, _ browser.PageSetup) ([]byte, error) {
	return textPDF(visibleText(s.markup)), nil
}

func (s *fakeSession) Close() error {
	s.r.mu.Lock()
	s.r.closed++
	s.r.mu.Unlock()
	return nil
}

func visibleText(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var parts []string
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, inBody bool) {
		if n.Type == html.ElementNode && (n.Data == "style" || n.Data == "title") {
			return
		}
		if n.Type == html.ElementNode && n.Data == "body" {
			inBody = true
		}
		if inBody && n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}
	}
	walk(doc, false)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// textPDF builds a minimal valid PDF with one Helvetica text run.
func textPDF(text string) []byte {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + r.Replace(text) + ") Tj\nET"

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, 6)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		"<< /Length " + strconv.Itoa(len(stream)) + " >>\nstream\n" + stream + "\nendstream",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	for i, obj := range objects {
		offsets[i+1] = b.Len()
		b.WriteString(strconv.Itoa(i+1) + " 0 obj\n" + obj + "\nendobj\n")
	}
	xref := b.Len()
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		b.WriteString(pad10(offsets[i]) + " 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n" + strconv.Itoa(xref) + "\n%%EOF\n")
	return []byte(b.String())
}

func pad10(n int) string {
	s := strconv.Itoa(n)
	return strings.Repeat("0", 10-len(s)) + s
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x42}, 200)...)

// assetServer serves /ok.png and /other.png; everything else is 404.
// /slow.png answers only when the client goes away.
func assetServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pngBytes)
	})
	mux.HandleFunc("/other.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x07}, 300)...))
	})
	mux.HandleFunc("/slow.png", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestExporter builds an Exporter with a fake renderer and private URLs
// allowed, so httptest servers are reachable.
func newTestExporter(t *testing.T, cfg Config) (*Exporter, *fakeRenderer) {
	t.Helper()
	fr, _ := cfg.Renderer.(*fakeRenderer)
	if cfg.Renderer == nil {
		fr = &fakeRenderer{}
		cfg.Renderer = fr
	}
	cfg.AllowPrivateURLs = true
	if cfg.NewID == nil {
		cfg.NewID = idgen.Sequence("exp_")
	}
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	ex, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ex.Close() })
	return ex, fr
}

func sampleDoc(assets string) *Document {
	return &Document{
		Title:    "The Quiet Harbor",
		Author:   "Ada Finch",
		Language: "en",
		Cover: Cover{
			Image:     &AssetRef{URL: assets + "/ok.png"},
			ShowImage: true,
			Transform: DefaultTransform(),
			Theme:     DefaultTheme(),
		},
		Body: "# Chapter One\nHello.\n\n## Tides\nThe sea was calm.",
		Illustrations: []Illustration{
			{Source: AssetRef{URL: assets + "/other.png"}, Caption: "The pier"},
			{Source: AssetRef{URL: assets + "/missing.png"}, Caption: "Lost"},
		},
	}
}
