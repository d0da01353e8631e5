// CLAUDE:SUMMARY PDF encoder: composes markup, drives one renderer session (always released), validates the printed bytes.
// Package pdf renders a document to a paginated PDF through a browser
// Renderer. Any failure of the engine is reported as ErrRender.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/bookpress/bookexport/internal/asset"
	"github.com/hazyhaar/bookpress/bookexport/internal/book"
	"github.com/hazyhaar/bookpress/bookexport/internal/browser"
	"github.com/hazyhaar/bookpress/bookexport/internal/content"
)

// ErrRender marks every fatal failure of the PDF path.
var ErrRender = errors.New("pdf: render failure")

// Config configures the encoder.
type Config struct {
	Renderer browser.Renderer

	// Page is the paper setup. Zero = A4, no margins, backgrounds on.
	Page browser.PageSetup

	// LoadTimeout bounds loading the markup and waiting for its resources.
	// Default: 60s.
	LoadTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Page == (browser.PageSetup{}) {
		c.Page = browser.A4()
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Encoder produces PDF documents.
type Encoder struct {
	cfg Config
}

// NewEncoder creates an Encoder. cfg.Renderer is required.
func NewEncoder(cfg Config) *Encoder {
	cfg.defaults()
	return &Encoder{cfg: cfg}
}

// Encode renders doc. The renderer session is closed on every path.
func (e *Encoder) Encode(ctx context.Context, doc *book.Document, nodes []content.Node, set *asset.Set) ([]byte, *Report, error) {
	if e.cfg.Renderer == nil {
		return nil, nil, fmt.Errorf("%w: no renderer configured", ErrRender)
	}
	markup, err := ComposeMarkup(doc, nodes, set)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	sess, err := e.cfg.Renderer.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open renderer: %w", ErrRender, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			e.cfg.Logger.Debug("pdf: close session", "error", cerr)
		}
	}()

	loadCtx, cancel := context.WithTimeout(ctx, e.cfg.LoadTimeout)
	defer cancel()
	if err := sess.Load(loadCtx, markup); err != nil {
		return nil, nil, fmt.Errorf("%w: load: %w", ErrRender, err)
	}
	if err := sess.WaitResources(loadCtx); err != nil {
		return nil, nil, fmt.Errorf("%w: wait resources: %w", ErrRender, err)
	}

	data, err := sess.Print(ctx, e.cfg.Page)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: print: %w", ErrRender, err)
	}

	report, err := Inspect(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid output: %w", ErrRender, err)
	}
	if report.Pages == 0 {
		return nil, nil, fmt.Errorf("%w: document has no pages", ErrRender)
	}
	return data, report, nil
}
