// CLAUDE:SUMMARY Chrome lifecycle for PDF rendering: ephemeral engine per session or one shared engine recycled by age/render count.
// Package browser drives headless Chrome through Rod to print composed markup
// to PDF.
//
// In ephemeral mode every session launches its own Chrome and kills it on
// Close. In shared mode one Chrome is launched lazily, each session gets its
// own page, and the engine is recycled after RecycleInterval or MaxRenders
// once no session uses it. The Manager mutex is never held across a launch
// or a kill.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty = launch a local Chrome via launcher. A remote engine is always
	// shared and never killed by the Manager.
	RemoteURL string

	// Bin is the Chrome binary path. Empty = launcher lookup/download.
	Bin string

	// Ephemeral launches one Chrome per session.
	Ephemeral bool

	// Stealth opens pages with go-rod/stealth evasions.
	Stealth bool

	// BlockRemote fails every http(s) request the page makes, except to
	// AllowHosts. Composed markup only embeds data: URIs, so nothing
	// legitimate is lost.
	BlockRemote bool
	AllowHosts  []string

	// NoSandbox disables the Chrome sandbox (containers running as root).
	NoSandbox bool

	// RecycleInterval is the maximum lifetime of a shared Chrome. Default: 1h.
	RecycleInterval time.Duration

	// MaxRenders recycles a shared Chrome after that many sessions. Default: 200.
	MaxRenders int

	// IdleWait bounds the network-idle wait. Default: 10s.
	IdleWait time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = time.Hour
	}
	if c.MaxRenders <= 0 {
		c.MaxRenders = 200
	}
	if c.IdleWait <= 0 {
		c.IdleWait = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// engine is one Chrome process (or remote connection) and its bookkeeping.
type engine struct {
	browser *rod.Browser
	lnch    *launcher.Launcher
	remote  bool
	startAt time.Time
	renders int
	active  int
	retired bool
}

func (e *engine) shutdown(log *slog.Logger) {
	if e.browser != nil && !e.remote {
		if err := e.browser.Close(); err != nil {
			log.Debug("browser: close", "error", err)
		}
	}
	if e.lnch != nil {
		e.lnch.Cleanup()
	}
	log.Debug("browser: engine released", "uptime", time.Since(e.startAt), "renders", e.renders)
}

// Manager implements Renderer on top of Chrome.
type Manager struct {
	cfg    Config
	mu     sync.Mutex
	cur    *engine
	closed bool
}

// NewManager creates a Manager. Chrome is launched on first Open.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Open returns a rendering session backed by a fresh page.
func (m *Manager) Open(ctx context.Context) (Session, error) {
	e, err := m.acquire(ctx)
	if err != nil {
		return nil, err
	}
	s, err := newSession(ctx, m, e)
	if err != nil {
		m.release(e)
		return nil, err
	}
	return s, nil
}

// Close shuts the shared engine down. Sessions still running keep their
// engine until they are closed.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	e := m.cur
	m.cur = nil
	var kill bool
	if e != nil {
		e.retired = true
		kill = e.active == 0
	}
	m.mu.Unlock()

	if kill {
		e.shutdown(m.cfg.Logger)
	}
	return nil
}

func (m *Manager) acquire(ctx context.Context) (*engine, error) {
	if m.cfg.Ephemeral && m.cfg.RemoteURL == "" {
		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}
		e, err := m.launch(ctx)
		if err != nil {
			return nil, err
		}
		e.retired = true
		e.active = 1
		return e, nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if e := m.cur; e != nil && !m.expired(e) {
		e.active++
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	fresh, err := m.launch(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		fresh.shutdown(m.cfg.Logger)
		return nil, ErrClosed
	}
	if e := m.cur; e != nil && !m.expired(e) {
		// Another session launched concurrently; keep theirs.
		e.active++
		m.mu.Unlock()
		fresh.shutdown(m.cfg.Logger)
		return e, nil
	}
	old := m.cur
	m.cur = fresh
	fresh.active = 1
	var killOld bool
	if old != nil {
		old.retired = true
		killOld = old.active == 0
	}
	m.mu.Unlock()

	if killOld {
		m.cfg.Logger.Info("browser: recycled", "uptime", time.Since(old.startAt), "renders", old.renders)
		old.shutdown(m.cfg.Logger)
	}
	return fresh, nil
}

func (m *Manager) release(e *engine) {
	m.mu.Lock()
	e.active--
	e.renders++
	if e == m.cur && m.expired(e) {
		e.retired = true
		m.cur = nil
	}
	kill := e.retired && e.active == 0
	m.mu.Unlock()

	if kill {
		e.shutdown(m.cfg.Logger)
	}
}

func (m *Manager) expired(e *engine) bool {
	if e.remote {
		return false
	}
	return time.Since(e.startAt) > m.cfg.RecycleInterval || e.renders >= m.cfg.MaxRenders
}

func (m *Manager) launch(ctx context.Context) (*engine, error) {
	log := m.cfg.Logger
	e := &engine{startAt: time.Now()}

	var wsURL string
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		e.remote = true
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(true)
		if m.cfg.Bin != "" {
			l = l.Bin(m.cfg.Bin)
		}
		if m.cfg.NoSandbox {
			l = l.NoSandbox(true)
		}
		l = l.Set("disable-gpu").Set("hide-scrollbars")

		u, err := l.Launch()
		if err != nil {
			l.Cleanup()
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		e.lnch = l
		log.Debug("browser: launched local chrome", "url", wsURL, "ephemeral", m.cfg.Ephemeral)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if e.lnch != nil {
			e.lnch.Cleanup()
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	e.browser = b
	return e, nil
}
