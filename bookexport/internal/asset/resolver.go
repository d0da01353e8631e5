// CLAUDE:SUMMARY Asset Resolver: inline payloads become data URIs, remote locators get one bounded, SSRF-checked fetch; failures become Absent.
// Package asset turns cover and illustration references into embeddable,
// MIME-typed payloads.
//
// Resolution never fails as an error: every reference yields an Outcome,
// either resolved or absent with a reason. There is one network attempt per
// remote reference, no retry and no cache.
package asset

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/bookpress/bookexport/internal/book"
	"github.com/hazyhaar/bookpress/horosafe"
)

// Config configures the resolver.
type Config struct {
	// Timeout bounds each remote fetch. Default: 15s.
	Timeout time.Duration
	// MaxBytes caps a fetched body. Default: horosafe.MaxAssetBody.
	MaxBytes int64
	// InlineMinLength is the minimal inline payload length considered real.
	// Shorter payloads are treated as placeholders. Default: 100.
	InlineMinLength int
	// Concurrency bounds parallel illustration fetches. Default: 4.
	Concurrency int
	// UserAgent sent with fetches.
	UserAgent string
	// URLValidator vets locators before fetch. Default: horosafe.ValidateURL.
	URLValidator func(context.Context, string) error
	// Client overrides the HTTP client (tests).
	Client *http.Client

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = horosafe.MaxAssetBody
	}
	if c.InlineMinLength <= 0 {
		c.InlineMinLength = 100
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.UserAgent == "" {
		c.UserAgent = "bookpress/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = horosafe.ValidateURL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Resolver resolves asset references. Safe for concurrent use; it keeps no
// state between calls.
type Resolver struct {
	cfg    Config
	client *http.Client
}

// NewResolver creates a Resolver. Redirects are re-validated against the URL
// validator.
func NewResolver(cfg Config) *Resolver {
	cfg.defaults()
	client := cfg.Client
	if client == nil {
		validate := cfg.URLValidator
		client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.Context(), req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		}
	}
	return &Resolver{cfg: cfg, client: client}
}

// Resolve resolves a single reference. A nil or empty reference is absent.
func (r *Resolver) Resolve(ctx context.Context, ref *book.AssetRef) Outcome {
	if ref == nil || ref.IsZero() {
		return absent("", "no reference")
	}

	if payload, ok := r.inlinePayload(ref.Data); ok {
		data, err := decodeBase64(payload)
		if err != nil {
			return absent("inline", "inline payload is not base64: "+err.Error())
		}
		return Outcome{
			Asset:  &Asset{MIMEType: DefaultMIME, Data: data, Origin: "inline"},
			Source: "inline",
		}
	}

	locator := strings.TrimSpace(ref.URL)
	if locator == "" {
		return absent("inline", "inline payload too short and no locator")
	}
	return r.fetch(ctx, locator)
}

// ResolveAll resolves the cover and every illustration. Illustrations are
// fetched concurrently; outcomes keep document order and one failure never
// affects another.
func (r *Resolver) ResolveAll(ctx context.Context, doc *book.Document) *Set {
	set := &Set{
		Illustrations: make([]Outcome, len(doc.Illustrations)),
		Captions:      make([]string, len(doc.Illustrations)),
	}
	for i, il := range doc.Illustrations {
		set.Captions[i] = strings.TrimSpace(il.Caption)
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.cfg.Concurrency)

	if ref := doc.CoverRef(); ref != nil {
		set.requested = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			set.Cover = r.Resolve(ctx, ref)
		}()
	}

	for i := range doc.Illustrations {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				set.Illustrations[i] = absent(doc.Illustrations[i].Source.URL, "cancelled: "+ctx.Err().Error())
				return
			}
			defer func() { <-semaphore }()
			ref := doc.Illustrations[i].Source
			set.Illustrations[i] = r.Resolve(ctx, &ref)
		}(i)
	}
	wg.Wait()

	for _, om := range set.Omitted() {
		r.cfg.Logger.Warn("asset: omitted", "role", om.Role, "index", om.Index, "source", om.Source, "reason", om.Reason)
	}
	return set
}

func (r *Resolver) inlinePayload(data string) (string, bool) {
	data = strings.TrimSpace(data)
	if strings.HasPrefix(data, "data:") {
		if i := strings.Index(data, ","); i >= 0 {
			data = data[i+1:]
		}
	}
	if len(data) <= r.cfg.InlineMinLength {
		return "", false
	}
	return data, true
}

func (r *Resolver) fetch(ctx context.Context, locator string) Outcome {
	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	if err := r.cfg.URLValidator(fetchCtx, locator); err != nil {
		return absent(locator, "blocked: "+err.Error())
	}

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, locator, nil)
	if err != nil {
		return absent(locator, "bad request: "+err.Error())
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := r.client.Do(req)
	if err != nil {
		return absent(locator, "fetch: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return absent(locator, fmt.Sprintf("http %d", resp.StatusCode))
	}

	body, err := horosafe.LimitedReadAll(resp.Body, r.cfg.MaxBytes)
	if err != nil {
		return absent(locator, "read body: "+err.Error())
	}
	if len(body) == 0 {
		return absent(locator, "empty body")
	}

	return Outcome{
		Asset:  &Asset{MIMEType: MIMEFromLocator(locator), Data: body, Origin: locator},
		Source: locator,
	}
}

// MIMEFromLocator classifies by file-extension suffix only: .jpg/.jpeg are
// JPEG, everything else is the default raster type. The payload is never
// sniffed.
func MIMEFromLocator(locator string) string {
	p := locator
	if u, err := url.Parse(locator); err == nil {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".jpg", ".jpeg":
		return MIMEJPEG
	}
	return DefaultMIME
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	if data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(s)
}
