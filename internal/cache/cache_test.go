package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetGetRoundTripThroughDisk(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	err = c.Set("Artist", "Title", &LyricEntry{TrackName: "Title", SyncedLyrics: "[00:01.00]hi"})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// a fresh cache over the same directory only has the disk copy
	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	entry, err := reopened.Get("artist", "TITLE")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.SyncedLyrics != "[00:01.00]hi" {
		t.Errorf("unexpected synced lyrics %q", entry.SyncedLyrics)
	}
	if entry.Version != cacheVersion {
		t.Errorf("expected version %d, got %d", cacheVersion, entry.Version)
	}
}

func TestGetMiss(t *testing.T) {
	c := Memory()

	if _, err := c.Get("nobody", "nothing"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
	if _, err := c.Get("", ""); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss for empty key, got %v", err)
	}
}

func TestExpiredEntriesArePruned(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	start := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return start }

	if err := c.Set("a", "b", &LyricEntry{}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	c.now = func() time.Time { return start.Add(defaultTTL + time.Hour) }

	pruned, err := c.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned entry, got %d", pruned)
	}

	if _, err := c.Get("a", "b"); err == nil {
		t.Error("expected expired entry to be gone")
	}
}

func TestCorruptFileIsReported(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	path := filepath.Join(dir, generateKey("a", "b")+entryExtension)
	if err := os.WriteFile(path, []byte("not gob"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := c.Get("a", "b"); !errors.Is(err, ErrCacheCorrupt) {
		t.Errorf("expected ErrCacheCorrupt, got %v", err)
	}
}

func TestStatsListDeleteClear(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for _, title := range []string{"one", "two", "three"} {
		if err := c.Set("artist", title, &LyricEntry{TrackName: title}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	count, size, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if count != 3 || size <= 0 {
		t.Errorf("unexpected stats count=%d size=%d", count, size)
	}

	if err := c.Delete("artist", "two"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	entries, err := c.ListAll()
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries after delete, got %d", len(entries))
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	count, _, _ = c.Stats()
	if count != 0 {
		t.Errorf("expected empty cache after clear, got %d", count)
	}
}
