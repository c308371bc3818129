package session

import "context"

// LyricsStore loads and saves raw lyrics by track id. a track without lyrics
// loads as "".
type LyricsStore interface {
	LoadLyrics(ctx context.Context, trackID string) (string, error)
	// ObserveLyrics emits the current lyrics and then every change until ctx
	// is done.
	ObserveLyrics(ctx context.Context, trackID string) (<-chan string, error)
	PersistLyrics(ctx context.Context, trackID string, text string) error
}

// SyncStore keeps the manual offset per track. unset offsets read as 0.
type SyncStore interface {
	GetSyncAdjustment(ctx context.Context, trackID string) (int64, error)
	SetSyncAdjustment(ctx context.Context, trackID string, millis int64) error
	ObserveSyncAdjustment(ctx context.Context, trackID string) (<-chan int64, error)
}
