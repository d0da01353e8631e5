// CLAUDE:SUMMARY Reads an exported file back: detects its format from the bytes and returns the EPUB package, DOCX paragraphs or PDF pages.
package bookexport

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/hazyhaar/bookpress/bookexport/internal/docx"
	"github.com/hazyhaar/bookpress/bookexport/internal/epub"
	"github.com/hazyhaar/bookpress/bookexport/internal/pdf"
)

type (
	EPUBPackage = epub.Package
	DOCXReport  = docx.Report
	PDFReport   = pdf.Report
)

// Inspection is the structure of one exported file. Exactly one of EPUB,
// DOCX and PDF is set.
type Inspection struct {
	Format Format       `json:"format"`
	Size   int          `json:"size"`
	EPUB   *EPUBPackage `json:"epub,omitempty"`
	DOCX   *DOCXReport  `json:"docx,omitempty"`
	PDF    *PDFReport   `json:"pdf,omitempty"`
	// Text is the PDF text layer, one entry per page with text.
	Text []string `json:"text,omitempty"`
}

// DetectFormat guesses the format of an exported file from its bytes.
func DetectFormat(data []byte) (Format, bool) {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return FormatPDF, true
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil || len(zr.File) == 0 {
		return "", false
	}
	if zr.File[0].Name == "mimetype" {
		return FormatEPUB, true
	}
	for _, f := range zr.File {
		if f.Name == docx.DocumentPath {
			return FormatDOCX, true
		}
	}
	return "", false
}

// Inspect validates data as an export of its detected format.
func Inspect(data []byte) (*Inspection, error) {
	format, ok := DetectFormat(data)
	if !ok {
		return nil, fmt.Errorf("bookexport: inspect: %w", ErrUnsupportedFormat)
	}
	in := &Inspection{Format: format, Size: len(data)}
	var err error
	switch format {
	case FormatPDF:
		if in.PDF, err = pdf.Inspect(data); err != nil {
			return nil, err
		}
		in.Text, err = pdf.ExtractText(data)
	case FormatEPUB:
		in.EPUB, err = epub.Inspect(data)
	case FormatDOCX:
		in.DOCX, err = docx.Inspect(data)
	}
	if err != nil {
		return nil, err
	}
	return in, nil
}
