package checkpoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goclaw/recall/pkg/memory"
)

func testEntries(n int) []*memory.Entry {
	entries := make([]*memory.Entry, n)
	for i := range entries {
		entries[i] = &memory.Entry{
			ID:         string(rune('a' + i)),
			Content:    "entry content",
			Importance: 0.5,
			Timestamp:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}
	}
	return entries
}

func TestManagerSaveLoadRoundTrip(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	meta, err := mgr.Save(ctx, testEntries(3), Metadata{
		Description: "before refactor",
		SessionID:   "s1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if meta.ID == "" {
		t.Fatal("expected generated id")
	}
	if meta.EntryCount != 3 {
		t.Errorf("entry count = %d, want 3", meta.EntryCount)
	}

	doc, err := mgr.Load(ctx, meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Metadata.Description != "before refactor" || doc.Metadata.SessionID != "s1" {
		t.Errorf("metadata not preserved: %+v", doc.Metadata)
	}
	if len(doc.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(doc.Entries))
	}
	if doc.Entries[0].Content != "entry content" {
		t.Errorf("entry content lost: %q", doc.Entries[0].Content)
	}
}

func TestManagerListNewestFirst(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	mgr, err := NewManager(t.TempDir(), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ts := now.Add(time.Duration(i) * time.Hour)
		if _, err := mgr.Save(ctx, nil, Metadata{Timestamp: ts}); err != nil {
			t.Fatal(err)
		}
	}

	metas, err := mgr.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 3 {
		t.Fatalf("expected 3 checkpoints, got %d", len(metas))
	}
	for i := 1; i < len(metas); i++ {
		if metas[i].Timestamp.After(metas[i-1].Timestamp) {
			t.Errorf("listing not newest-first at %d", i)
		}
	}

	latest, err := mgr.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !latest.Timestamp.Equal(metas[0].Timestamp) {
		t.Errorf("latest = %v, want %v", latest.Timestamp, metas[0].Timestamp)
	}
}

func TestManagerRetentionPrunesOldest(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mgr, err := NewManager(t.TempDir(), WithMaxCheckpoints(3))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		if _, err := mgr.Save(ctx, nil, Metadata{Timestamp: ts}); err != nil {
			t.Fatal(err)
		}
	}

	metas, err := mgr.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 3 {
		t.Fatalf("expected retention to keep 3, got %d", len(metas))
	}
	// The three newest survive.
	for i, meta := range metas {
		want := base.Add(time.Duration(7-i) * time.Minute)
		if !meta.Timestamp.Equal(want) {
			t.Errorf("checkpoint %d timestamp = %v, want %v", i, meta.Timestamp, want)
		}
	}
}

func TestManagerSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := mgr.Save(ctx, testEntries(1), Metadata{}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	metas, err := mgr.List(ctx)
	if err != nil {
		t.Fatalf("corrupt file must not fail listing: %v", err)
	}
	if len(metas) != 1 {
		t.Errorf("expected the valid checkpoint only, got %d", len(metas))
	}
}

func TestManagerNotFound(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := mgr.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("load: expected ErrNotFound, got %v", err)
	}
	if err := mgr.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete: expected ErrNotFound, got %v", err)
	}
	if _, err := mgr.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("latest: expected ErrNotFound on empty dir, got %v", err)
	}
}

func TestManagerDelete(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	meta, err := mgr.Save(ctx, testEntries(2), Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.Delete(ctx, meta.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Load(ctx, meta.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestManagerStats(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	stats, err := mgr.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Count != 0 || stats.TotalSize != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mgr.Save(ctx, testEntries(1), Metadata{Timestamp: base})
	mgr.Save(ctx, testEntries(1), Metadata{Timestamp: base.Add(time.Hour)})

	stats, err = mgr.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Count != 2 {
		t.Errorf("count = %d, want 2", stats.Count)
	}
	if stats.TotalSize <= 0 {
		t.Errorf("expected positive total size, got %d", stats.TotalSize)
	}
	if !stats.Newest.Equal(base.Add(time.Hour)) || !stats.Oldest.Equal(base) {
		t.Errorf("time range wrong: oldest=%v newest=%v", stats.Oldest, stats.Newest)
	}
}

func TestManagerContextCancellation(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mgr.Save(ctx, nil, Metadata{}); !errors.Is(err, context.Canceled) {
		t.Errorf("save: expected context.Canceled, got %v", err)
	}
	if _, err := mgr.List(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("list: expected context.Canceled, got %v", err)
	}
}
