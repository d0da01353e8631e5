package bookexport

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/bookpress/bookexport/internal/docx"
	"github.com/hazyhaar/bookpress/bookexport/internal/epub"
	"github.com/hazyhaar/bookpress/bookexport/internal/pdf"
)

// Failure kinds. Match them with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrRenderFailure     = errors.New("render failure")
	ErrPackagingFailure  = errors.New("packaging failure")
	ErrTimeout           = errors.New("export timed out")
)

// ExportError is the error every failed export returns.
type ExportError struct {
	Kind   error
	Format Format
	Err    error
}

func (e *ExportError) Error() string {
	msg := "bookexport: "
	if e.Format != "" {
		msg += string(e.Format) + ": "
	}
	msg += e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExportError) Unwrap() error { return e.Err }

func (e *ExportError) Is(target error) bool { return target == e.Kind }

// KindName is the stable machine name of the failure kind, used in HTTP and
// MCP error bodies.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrRenderFailure):
		return "render_failure"
	case errors.Is(err, ErrPackagingFailure):
		return "packaging_failure"
	}
	return "internal"
}

func invalid(field, reason string) error {
	return &ExportError{Kind: ErrInvalidInput, Err: fmt.Errorf("%s %s", field, reason)}
}

// classify maps an encoder error onto the taxonomy. A deadline anywhere in
// the chain, or on ctx, is a timeout whatever the encoder reported.
func classify(ctx context.Context, format Format, err error) error {
	kind := ErrPackagingFailure
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = ErrTimeout
	case errors.Is(err, pdf.ErrRender):
		kind = ErrRenderFailure
	case errors.Is(err, epub.ErrPackaging), errors.Is(err, docx.ErrPackaging):
		kind = ErrPackagingFailure
	case format == FormatPDF:
		kind = ErrRenderFailure
	}
	return &ExportError{Kind: kind, Format: format, Err: err}
}
