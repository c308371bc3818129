// Package store keeps offline lyrics and per-track sync adjustments in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"karolbroda.com/lyricsync/internal/live"
)

const schemaVersion = "1"

var ErrNotFound = errors.New("not found")

// Entry is one stored lyrics blob.
type Entry struct {
	TrackID   string
	Lyrics    string
	UpdatedAt time.Time
}

// DB implements the lyrics and sync stores the session controller reads
// from. observers of a track are fed from memory on writes made through this
// DB, and from Watch for writes made by other processes.
type DB struct {
	db   *sql.DB
	path string

	mu          sync.Mutex
	lyricsFeeds map[string]*live.Value[string]
	syncFeeds   map[string]*live.Value[int64]
}

// Open opens (or creates) the database at path and makes sure the schema is
// in place.
func Open(path string) (*DB, error) {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{
		db:          db,
		path:        path,
		lyricsFeeds: make(map[string]*live.Value[string]),
		syncFeeds:   make(map[string]*live.Value[int64]),
	}

	err = d.initSchema()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debug().Str("path", path).Msg("store opened")
	return d, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Path() string {
	return d.path
}

func (d *DB) initSchema() error {
	_, err := d.db.Exec(`
	CREATE TABLE IF NOT EXISTS offline_lyrics (
		track_id TEXT PRIMARY KEY,
		lyrics TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_adjustments (
		track_id TEXT PRIMARY KEY,
		millis INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var version string
	err = d.db.QueryRow("SELECT value FROM store_meta WHERE key = 'schema_version'").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = d.db.Exec("INSERT INTO store_meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
		return err
	case err != nil:
		return err
	case version != schemaVersion:
		return fmt.Errorf("unsupported schema version %s", version)
	}
	return nil
}

// Lyrics returns the stored entry for trackID, or ErrNotFound.
func (d *DB) Lyrics(ctx context.Context, trackID string) (*Entry, error) {
	var (
		entry   = Entry{TrackID: trackID}
		updated string
	)

	err := d.db.QueryRowContext(ctx,
		"SELECT lyrics, updated_at FROM offline_lyrics WHERE track_id = ?", trackID,
	).Scan(&entry.Lyrics, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read lyrics: %w", err)
	}

	entry.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &entry, nil
}

// LoadLyrics returns the lyrics for trackID, or "" if none are stored.
func (d *DB) LoadLyrics(ctx context.Context, trackID string) (string, error) {
	entry, err := d.Lyrics(ctx, trackID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return entry.Lyrics, nil
}

func (d *DB) PersistLyrics(ctx context.Context, trackID string, text string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO offline_lyrics (track_id, lyrics, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET lyrics = excluded.lyrics, updated_at = excluded.updated_at
	`, trackID, text, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write lyrics: %w", err)
	}

	d.mu.Lock()
	feed := d.lyricsFeeds[trackID]
	d.mu.Unlock()
	if feed != nil {
		feed.Set(text)
	}
	return nil
}

func (d *DB) DeleteLyrics(ctx context.Context, trackID string) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM offline_lyrics WHERE track_id = ?", trackID)
	if err != nil {
		return fmt.Errorf("failed to delete lyrics: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}

	d.mu.Lock()
	feed := d.lyricsFeeds[trackID]
	d.mu.Unlock()
	if feed != nil {
		feed.Set("")
	}
	return nil
}

// ListLyrics returns every stored entry, most recently updated first.
func (d *DB) ListLyrics(ctx context.Context) ([]Entry, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT track_id, lyrics, updated_at FROM offline_lyrics ORDER BY updated_at DESC, track_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list lyrics: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry   Entry
			updated string
		)
		err = rows.Scan(&entry.TrackID, &entry.Lyrics, &updated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lyrics: %w", err)
		}
		entry.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ObserveLyrics emits the current lyrics for trackID and then every change,
// until ctx is done.
func (d *DB) ObserveLyrics(ctx context.Context, trackID string) (<-chan string, error) {
	d.mu.Lock()
	feed, ok := d.lyricsFeeds[trackID]
	d.mu.Unlock()

	if !ok {
		text, err := d.LoadLyrics(ctx, trackID)
		if err != nil {
			return nil, err
		}

		d.mu.Lock()
		feed, ok = d.lyricsFeeds[trackID]
		if !ok {
			feed = live.New(text)
			d.lyricsFeeds[trackID] = feed
		}
		d.mu.Unlock()
	}

	return feed.Subscribe(ctx), nil
}

// GetSyncAdjustment returns the stored offset for trackID, 0 if unset.
func (d *DB) GetSyncAdjustment(ctx context.Context, trackID string) (int64, error) {
	var millis int64
	err := d.db.QueryRowContext(ctx,
		"SELECT millis FROM sync_adjustments WHERE track_id = ?", trackID,
	).Scan(&millis)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read sync adjustment: %w", err)
	}
	return millis, nil
}

func (d *DB) SetSyncAdjustment(ctx context.Context, trackID string, millis int64) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO sync_adjustments (track_id, millis, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET millis = excluded.millis, updated_at = excluded.updated_at
	`, trackID, millis, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write sync adjustment: %w", err)
	}

	d.mu.Lock()
	feed := d.syncFeeds[trackID]
	d.mu.Unlock()
	if feed != nil {
		feed.Set(millis)
	}
	return nil
}

func (d *DB) ObserveSyncAdjustment(ctx context.Context, trackID string) (<-chan int64, error) {
	d.mu.Lock()
	feed, ok := d.syncFeeds[trackID]
	d.mu.Unlock()

	if !ok {
		millis, err := d.GetSyncAdjustment(ctx, trackID)
		if err != nil {
			return nil, err
		}

		d.mu.Lock()
		feed, ok = d.syncFeeds[trackID]
		if !ok {
			feed = live.New(millis)
			d.syncFeeds[trackID] = feed
		}
		d.mu.Unlock()
	}

	return feed.Subscribe(ctx), nil
}

// Stats counts stored rows.
type Stats struct {
	Lyrics          int
	SyncAdjustments int
	SchemaVersion   string
}

func (d *DB) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM offline_lyrics").Scan(&stats.Lyrics)
	if err != nil {
		return nil, err
	}
	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_adjustments WHERE millis != 0").Scan(&stats.SyncAdjustments)
	if err != nil {
		return nil, err
	}
	err = d.db.QueryRowContext(ctx, "SELECT value FROM store_meta WHERE key = 'schema_version'").Scan(&stats.SchemaVersion)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
