package browser

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.defaults()
	if c.RecycleInterval != time.Hour || c.MaxRenders != 200 || c.IdleWait != 10*time.Second {
		t.Fatalf("defaults = %+v", c)
	}
	if c.Logger == nil {
		t.Fatal("logger not set")
	}
}

func TestManager_OpenAfterClose(t *testing.T) {
	// WHAT: A closed manager refuses sessions without launching Chrome.
	m := NewManager(Config{})
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Open(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}

	e := NewManager(Config{Ephemeral: true})
	e.Close()
	if _, err := e.Open(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("ephemeral err = %v, want ErrClosed", err)
	}
}

func TestManager_Expired(t *testing.T) {
	m := NewManager(Config{RecycleInterval: time.Minute, MaxRenders: 3})

	fresh := &engine{startAt: time.Now()}
	if m.expired(fresh) {
		t.Fatal("fresh engine expired")
	}
	old := &engine{startAt: time.Now().Add(-2 * time.Minute)}
	if !m.expired(old) {
		t.Fatal("old engine not expired")
	}
	busy := &engine{startAt: time.Now(), renders: 3}
	if !m.expired(busy) {
		t.Fatal("engine past MaxRenders not expired")
	}
	remote := &engine{startAt: time.Now().Add(-2 * time.Minute), renders: 99, remote: true}
	if m.expired(remote) {
		t.Fatal("remote engine must never be recycled")
	}
}

func TestManager_ReleaseRetires(t *testing.T) {
	// WHAT: The shared engine is detached once it reaches MaxRenders, and
	// only while a session still holds it is it kept alive.
	// WHY: Recycling must never pull Chrome out from under a running print.
	m := NewManager(Config{MaxRenders: 2})
	e := &engine{startAt: time.Now(), active: 2}
	m.cur = e

	m.release(e)
	if m.cur != e || e.retired {
		t.Fatalf("engine retired too early: renders=%d", e.renders)
	}
	m.release(e)
	if m.cur != nil || !e.retired {
		t.Fatal("engine not retired after MaxRenders")
	}
	if e.active != 0 {
		t.Fatalf("active = %d", e.active)
	}
}

func TestIsRemote(t *testing.T) {
	tests := map[string]bool{
		"https://example.com/a.png": true,
		"http://example.com/":       true,
		"data:image/png;base64,AA":  false,
		"about:blank":               false,
	}
	for raw, want := range tests {
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatal(err)
		}
		if got := isRemote(u); got != want {
			t.Errorf("isRemote(%q) = %v, want %v", raw, got, want)
		}
	}
}
