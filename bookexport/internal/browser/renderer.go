// CLAUDE:SUMMARY Renderer capability: load markup, wait for resources, print paginated output and release. Manager implements it; tests fake it.
package browser

import (
	"context"
	"errors"
)

// ErrClosed is returned when a session is requested from a closed Manager.
var ErrClosed = errors.New("browser: manager is closed")

// Renderer hands out rendering sessions. Every session must be closed.
type Renderer interface {
	Open(ctx context.Context) (Session, error)
}

// Session is one markup-to-document rendering, scoped to a single export.
type Session interface {
	// Load replaces the page content with markup.
	Load(ctx context.Context, markup string) error
	// WaitResources blocks until every network-dependent resource
	// (images, fonts) has finished loading.
	WaitResources(ctx context.Context) error
	// Print captures the page as a paginated document.
	Print(ctx context.Context, setup PageSetup) ([]byte, error)
	// Close releases the page, and the engine when it is not shared.
	Close() error
}

// PageSetup describes the paper. Sizes are in inches.
type PageSetup struct {
	Width           float64
	Height          float64
	MarginTop       float64
	MarginBottom    float64
	MarginLeft      float64
	MarginRight     float64
	PrintBackground bool
}

// A4 is the default paper: 210mm × 297mm, no margins, backgrounds printed.
func A4() PageSetup {
	return PageSetup{Width: 8.27, Height: 11.69, PrintBackground: true}
}
