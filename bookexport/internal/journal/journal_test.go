package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/bookpress/bookexport/internal/asset"
	"github.com/hazyhaar/bookpress/dbopen"
)

func newJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	return j
}

func TestRecordAndGet(t *testing.T) {
	j := newJournal(t)
	ctx := context.Background()
	in := Entry{
		ID:       "exp_1",
		Format:   "pdf",
		Title:    "The Quiet Harbor",
		Status:   StatusOK,
		Bytes:    1234,
		Omitted:  []asset.Omission{{Role: asset.RoleIllustration, Index: 1, Source: "https://x/y.png", Reason: "http status 404"}},
		Duration: 1500 * time.Millisecond,
	}
	if err := j.Record(ctx, in); err != nil {
		t.Fatal(err)
	}
	got, err := j.Get(ctx, "exp_1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != in.Title || got.Bytes != 1234 || got.Duration != in.Duration || got.Status != StatusOK {
		t.Fatalf("got %+v", got)
	}
	if len(got.Omitted) != 1 || got.Omitted[0] != in.Omitted[0] {
		t.Fatalf("omitted = %+v", got.Omitted)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}
}

func TestGet_NotFound(t *testing.T) {
	j := newJournal(t)
	if _, err := j.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	j := newJournal(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c"} {
		e := Entry{ID: id, Format: "epub", Title: id, Status: StatusOK, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := j.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	got, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("recent = %+v", got)
	}
	if got[0].Omitted != nil {
		t.Fatal("empty omission list should decode as nil")
	}
}

func TestRecord_Failure(t *testing.T) {
	j := newJournal(t)
	ctx := context.Background()
	if err := j.Record(ctx, Entry{ID: "f", Format: "docx", Title: "t", Status: StatusFailed, Error: "docx: packaging failure"}); err != nil {
		t.Fatal(err)
	}
	got, err := j.Get(ctx, "f")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusFailed || got.Error == "" {
		t.Fatalf("got %+v", got)
	}
	if err := j.Record(ctx, Entry{ID: "f", Format: "docx", Title: "t", Status: StatusOK}); err == nil {
		t.Fatal("duplicate id accepted")
	}
}

func TestPrune(t *testing.T) {
	j := newJournal(t)
	ctx := context.Background()
	j.Record(ctx, Entry{ID: "old", Format: "pdf", Title: "o", Status: StatusOK, CreatedAt: time.Now().Add(-48 * time.Hour)})
	j.Record(ctx, Entry{ID: "new", Format: "pdf", Title: "n", Status: StatusOK})

	n, err := j.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("pruned = %d", n)
	}
	if _, err := j.Get(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Fatal("old entry survived")
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	if err := j.Record(context.Background(), Entry{ID: "x", Format: "pdf", Title: "x", Status: StatusOK}); err != nil {
		t.Fatal(err)
	}
}
