// CLAUDE:SUMMARY Post-render PDF validation with pdfcpu: page count, painted images, text layer decoded through font ToUnicode maps.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Report summarises a rendered PDF.
type Report struct {
	Pages     int  `json:"pages"`
	HasImages bool `json:"has_images"`
}

func read(data []byte) (*model.Context, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("pdf: empty document")
	}
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	return ctx, nil
}

// Inspect parses and validates data. HasImages is true when some page paints
// an image, directly or through a form XObject.
func Inspect(data []byte) (*Report, error) {
	ctx, err := read(data)
	if err != nil {
		return nil, err
	}
	w := newTextWalker(ctx)
	for nr := 1; nr <= ctx.PageCount && w.images == 0; nr++ {
		_ = w.page(nr)
	}
	return &Report{Pages: ctx.PageCount, HasImages: w.images > 0}, nil
}

// ExtractText returns the text layer, one entry per page with text. Strings
// are mapped through each font's ToUnicode CMap, so the two-byte glyph runs
// Chrome writes for embedded fonts come back as Unicode.
func ExtractText(data []byte) ([]string, error) {
	ctx, err := read(data)
	if err != nil {
		return nil, err
	}
	w := newTextWalker(ctx)
	var pages []string
	for nr := 1; nr <= ctx.PageCount; nr++ {
		w.reset()
		if err := w.page(nr); err != nil {
			return nil, fmt.Errorf("pdf: page %d: %w", nr, err)
		}
		if text := tidy(w.text.String()); text != "" {
			pages = append(pages, text)
		}
	}
	return pages, nil
}
