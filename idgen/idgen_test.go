package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestNanoID(t *testing.T) {
	for _, n := range []int{1, 12, 40} {
		id := NanoID(n)()
		if len(id) != n {
			t.Fatalf("NanoID(%d) = %q", n, id)
		}
		if strings.Trim(id, base36) != "" {
			t.Fatalf("NanoID(%d) = %q has characters outside base 36", n, id)
		}
	}

	gen := NanoID(12)
	seen := make(map[string]bool)
	for range 5000 {
		id := gen()
		if seen[id] {
			t.Fatalf("duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for range 100 {
		id := gen()
		u, err := uuid.Parse(id)
		if err != nil || u.Version() != 7 {
			t.Fatalf("%q: version %v, err %v", id, u.Version(), err)
		}
		if id <= prev {
			t.Fatalf("%q sorts before %q", id, prev)
		}
		prev = id
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("exp_", UUIDv7())()
	rest, ok := strings.CutPrefix(id, "exp_")
	if !ok {
		t.Fatalf("id = %q", id)
	}
	if _, err := uuid.Parse(rest); err != nil {
		t.Fatalf("suffix %q: %v", rest, err)
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("exp_")
	if a, b := gen(), gen(); a != "exp_1" || b != "exp_2" {
		t.Fatalf("got %q, %q", a, b)
	}

	// WHAT: concurrent callers never share an id.
	gen = Sequence("")
	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				id := gen()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != 800 {
		t.Fatalf("distinct ids = %d", len(seen))
	}
}
