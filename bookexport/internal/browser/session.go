// CLAUDE:SUMMARY One Rod page per export: set content, optional remote-request blocking, wait for images/fonts, print to PDF, close.
package browser

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// awaitAssets resolves once every <img> has loaded (or failed) and decoded
// and the font set is ready.
const awaitAssets = `() => Promise.all([
	...Array.from(document.images).map(img => img.complete
		? (img.decode ? img.decode().catch(() => {}) : null)
		: new Promise(r => { img.addEventListener('load', r); img.addEventListener('error', r); })),
	document.fonts ? document.fonts.ready : null,
]).then(() => document.images.length)`

type rodSession struct {
	mgr    *Manager
	eng    *engine
	page   *rod.Page
	router *rod.HijackRouter

	once sync.Once
}

func newSession(ctx context.Context, m *Manager, e *engine) (*rodSession, error) {
	var page *rod.Page
	var err error
	if m.cfg.Stealth {
		page, err = stealth.Page(e.browser)
	} else {
		page, err = e.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	s := &rodSession{mgr: m, eng: e, page: page}
	if m.cfg.BlockRemote {
		s.router = blockRemote(page, m.cfg.AllowHosts)
	}
	return s, nil
}

// blockRemote fails every http(s) request whose host is not allow-listed.
// data: and about: URLs never reach the router.
func blockRemote(page *rod.Page, allow []string) *rod.HijackRouter {
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		u := h.Request.URL()
		if isRemote(u) && !slices.Contains(allow, u.Hostname()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

func isRemote(u *url.URL) bool {
	return u != nil && (u.Scheme == "http" || u.Scheme == "https")
}

func (s *rodSession) Load(ctx context.Context, markup string) error {
	if err := s.page.Context(ctx).SetDocumentContent(markup); err != nil {
		return fmt.Errorf("browser: set content: %w", err)
	}
	return nil
}

func (s *rodSession) WaitResources(ctx context.Context) error {
	p := s.page.Context(ctx)
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load: %w", err)
	}
	res, err := p.Eval(awaitAssets)
	if err != nil {
		return fmt.Errorf("browser: wait assets: %w", err)
	}
	if err := p.WaitIdle(s.mgr.cfg.IdleWait); err != nil {
		// Idle is best effort: images and fonts are already settled.
		s.mgr.cfg.Logger.Debug("browser: wait idle", "error", err)
	}
	s.mgr.cfg.Logger.Debug("browser: resources ready", "images", res.Value.Int())
	return ctx.Err()
}

func (s *rodSession) Print(ctx context.Context, setup PageSetup) ([]byte, error) {
	start := time.Now()
	r, err := s.page.Context(ctx).PDF(&proto.PagePrintToPDF{
		PrintBackground:   setup.PrintBackground,
		PreferCSSPageSize: true,
		PaperWidth:        num(setup.Width),
		PaperHeight:       num(setup.Height),
		MarginTop:         num(setup.MarginTop),
		MarginBottom:      num(setup.MarginBottom),
		MarginLeft:        num(setup.MarginLeft),
		MarginRight:       num(setup.MarginRight),
	})
	if err != nil {
		return nil, fmt.Errorf("browser: print: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("browser: read pdf stream: %w", err)
	}
	s.mgr.cfg.Logger.Debug("browser: printed", "bytes", len(data), "duration", time.Since(start))
	return data, nil
}

// Close is idempotent.
func (s *rodSession) Close() error {
	var err error
	s.once.Do(func() {
		if s.router != nil {
			if stopErr := s.router.Stop(); stopErr != nil {
				s.mgr.cfg.Logger.Debug("browser: stop router", "error", stopErr)
			}
		}
		err = s.page.Close()
		s.mgr.release(s.eng)
	})
	return err
}

func num(f float64) *float64 { return &f }
