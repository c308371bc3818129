package store

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Watch polls sqlite's data_version until ctx is done. the value changes
// whenever another connection commits, which is how edits made by a second
// lyricsync process (the cli) reach observers in this one.
func (d *DB) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// -1 forces one refresh on the first tick, covering writes that landed
	// before the watch started
	last := int64(-1)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		version, err := d.dataVersion(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Debug().Err(err).Msg("failed to read data version")
			}
			continue
		}
		if version == last {
			continue
		}
		last = version
		d.refreshFeeds(ctx)
	}
}

func (d *DB) dataVersion(ctx context.Context) (int64, error) {
	var version int64
	err := d.db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&version)
	return version, err
}

// refreshFeeds re-reads every observed track and pushes values that changed.
func (d *DB) refreshFeeds(ctx context.Context) {
	d.mu.Lock()
	lyricsIDs := make([]string, 0, len(d.lyricsFeeds))
	for id := range d.lyricsFeeds {
		lyricsIDs = append(lyricsIDs, id)
	}
	syncIDs := make([]string, 0, len(d.syncFeeds))
	for id := range d.syncFeeds {
		syncIDs = append(syncIDs, id)
	}
	d.mu.Unlock()

	for _, id := range lyricsIDs {
		text, err := d.LoadLyrics(ctx, id)
		if err != nil {
			continue
		}
		d.mu.Lock()
		feed := d.lyricsFeeds[id]
		d.mu.Unlock()
		if current, _ := feed.Get(); current != text {
			log.Debug().Str("track_id", id).Msg("lyrics changed externally")
			feed.Set(text)
		}
	}

	for _, id := range syncIDs {
		millis, err := d.GetSyncAdjustment(ctx, id)
		if err != nil {
			continue
		}
		d.mu.Lock()
		feed := d.syncFeeds[id]
		d.mu.Unlock()
		if current, _ := feed.Get(); current != millis {
			feed.Set(millis)
		}
	}
}
