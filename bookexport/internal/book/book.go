// CLAUDE:SUMMARY Core book data model shared by the resolver, parser and the three encoders.
// Package book defines the logical document handed to the export pipeline.
//
// A Document is immutable once built: encoders read it, nothing writes it.
package book

import (
	"regexp"
	"strings"
)

// Format identifies an output container.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatEPUB Format = "epub"
	FormatDOCX Format = "docx"
)

// Formats lists every supported output format in a stable order.
func Formats() []Format {
	return []Format{FormatPDF, FormatEPUB, FormatDOCX}
}

// ParseFormat maps a user-supplied name onto a Format.
func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPDF:
		return FormatPDF, true
	case FormatEPUB:
		return FormatEPUB, true
	case FormatDOCX, "word":
		return FormatDOCX, true
	}
	return "", false
}

// Ext returns the file extension, without dot.
func (f Format) Ext() string { return string(f) }

// ContentType returns the MIME type of the container.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatEPUB:
		return "application/epub+zip"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/octet-stream"
}

// AssetRef points at an image either inline (base64 payload) or remotely (URL).
// The inline payload wins when it is long enough to be real.
type AssetRef struct {
	Data string `json:"image_base64,omitempty" yaml:"image_base64,omitempty"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

// IsZero reports whether the reference carries nothing at all.
func (r AssetRef) IsZero() bool {
	return strings.TrimSpace(r.Data) == "" && strings.TrimSpace(r.URL) == ""
}

// Illustration is one ordered image of the book with an optional caption.
type Illustration struct {
	Source  AssetRef `json:"source"`
	Caption string   `json:"caption,omitempty"`
}

// Transform positions the cover background image.
// X and Y are percentages of the page box; Scale multiplies the cover fit.
type Transform struct {
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Scale float64 `json:"scale" yaml:"scale"`
}

// DefaultTransform centres the image at its natural cover size.
func DefaultTransform() Transform {
	return Transform{X: 50, Y: 50, Scale: 1}
}

// Theme is the cover color scheme, as CSS hex colors.
type Theme struct {
	Background string `json:"background" yaml:"background"`
	Text       string `json:"text" yaml:"text"`
	Accent     string `json:"accent" yaml:"accent"`
}

// DefaultTheme is used when the request carries no valid theme.
func DefaultTheme() Theme {
	return Theme{Background: "#1f2933", Text: "#ffffff", Accent: "#f5a623"}
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidColor reports whether c is a #rgb or #rrggbb color.
func ValidColor(c string) bool { return hexColor.MatchString(c) }

// Normalized replaces every invalid color with its default.
func (t Theme) Normalized() Theme {
	def := DefaultTheme()
	if !ValidColor(t.Background) {
		t.Background = def.Background
	}
	if !ValidColor(t.Text) {
		t.Text = def.Text
	}
	if !ValidColor(t.Accent) {
		t.Accent = def.Accent
	}
	return t
}

// Normalized fills the zero scale and clamps it to (0, 10]. X and Y are
// clamped to [0, 100].
func (t Transform) Normalized() Transform {
	if t.Scale <= 0 {
		t.Scale = 1
	}
	t.Scale = min(t.Scale, 10)
	t.X = min(max(t.X, 0), 100)
	t.Y = min(max(t.Y, 0), 100)
	return t
}

// Cover holds the cover page design.
type Cover struct {
	Image     *AssetRef `json:"image,omitempty"`
	ShowImage bool      `json:"show_image"`
	Transform Transform `json:"transform"`
	Theme     Theme     `json:"theme"`
}

// Document is the finished logical book.
type Document struct {
	Title         string         `json:"title"`
	Subtitle      string         `json:"subtitle,omitempty"`
	Author        string         `json:"author"`
	Language      string         `json:"language"`
	Cover         Cover          `json:"cover"`
	Body          string         `json:"body"`
	Illustrations []Illustration `json:"illustrations,omitempty"`
}

// CoverRef returns the cover reference to resolve, or nil when the cover
// image is disabled or missing.
func (d *Document) CoverRef() *AssetRef {
	if !d.Cover.ShowImage || d.Cover.Image == nil || d.Cover.Image.IsZero() {
		return nil
	}
	return d.Cover.Image
}
