// CLAUDE:SUMMARY Public API of the export pipeline: re-exported document model, Result, and the supported formats.
// Package bookexport turns a finished book (cover, body text, illustrations)
// into PDF, EPUB or DOCX.
//
// One export resolves the book's images once, parses the body into typed
// lines and hands both to the encoder of the requested format:
//
//	ex, err := bookexport.New(ctx, bookexport.Config{Renderer: mgr})
//	res, err := ex.Export(ctx, doc, bookexport.FormatEPUB)
//	os.WriteFile(res.Filename, res.Data, 0o644)
//
// Missing images never fail an export: they are left out and listed in
// Result.Omitted. Every other failure is an *ExportError, except a caller
// cancellation which returns the context's error.
package bookexport

import (
	"time"

	"github.com/hazyhaar/bookpress/bookexport/internal/asset"
	"github.com/hazyhaar/bookpress/bookexport/internal/book"
	"github.com/hazyhaar/bookpress/bookexport/internal/browser"
)

// Document model, re-exported from internal/book.
type (
	Document     = book.Document
	AssetRef     = book.AssetRef
	Illustration = book.Illustration
	Cover        = book.Cover
	Transform    = book.Transform
	Theme        = book.Theme
	Format       = book.Format
)

const (
	FormatPDF  = book.FormatPDF
	FormatEPUB = book.FormatEPUB
	FormatDOCX = book.FormatDOCX
)

// Formats lists every supported output format.
func Formats() []Format { return book.Formats() }

// ParseFormat maps a user-supplied name ("pdf", "EPUB", "word") onto a Format.
func ParseFormat(s string) (Format, bool) { return book.ParseFormat(s) }

// DefaultTransform and DefaultTheme are applied to requests that omit them.
func DefaultTransform() Transform { return book.DefaultTransform() }
func DefaultTheme() Theme         { return book.DefaultTheme() }

// Omission is an image left out of an export, with the reason.
type Omission = asset.Omission

// Renderer is the capability the PDF encoder prints through. Use
// NewBrowser for Chrome; tests provide a fake.
type Renderer = browser.Renderer

// Stats summarises one export.
type Stats struct {
	Nodes    int           `json:"nodes"`
	Sections int           `json:"sections,omitempty"`
	Media    int           `json:"media"`
	Pages    int           `json:"pages,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result is one finished export.
type Result struct {
	ID          string     `json:"id"`
	Format      Format     `json:"format"`
	Data        []byte     `json:"-"`
	ContentType string     `json:"content_type"`
	Filename    string     `json:"filename"`
	Omitted     []Omission `json:"omitted,omitempty"`
	Stats       Stats      `json:"stats"`
	// ArtifactKey is set when the export was kept in the artifact store.
	ArtifactKey string `json:"artifact_key,omitempty"`
}
