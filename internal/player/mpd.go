package player

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"

	"karolbroda.com/lyricsync/internal/track"
)

// MPD follows a music player daemon. one connection answers status queries,
// a second one idles on the "player" subsystem to catch changes early.
type MPD struct {
	addr     string
	password string

	mu     sync.Mutex
	client *mpd.Client

	watcher  *mpd.Watcher
	changes  chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
}

func DialMPD(addr string, password string) (*MPD, error) {
	m := &MPD{
		addr:     addr,
		password: password,
		changes:  make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}

	err := m.connectLocked()
	if err != nil {
		return nil, err
	}

	watcher, err := mpd.NewWatcher("tcp", addr, password, "player")
	if err != nil {
		m.client.Close()
		return nil, fmt.Errorf("failed to create mpd watcher: %w", err)
	}
	m.watcher = watcher

	go m.watchLoop()
	return m, nil
}

func (m *MPD) Name() string {
	return "mpd:" + m.addr
}

func (m *MPD) connectLocked() error {
	client, err := mpd.DialAuthenticated("tcp", m.addr, m.password)
	if err != nil {
		return fmt.Errorf("failed to connect to mpd at %s: %w", m.addr, err)
	}
	m.client = client
	return nil
}

// ensureConnected pings the status connection and redials it once if mpd
// dropped it, which it does after its idle timeout.
func (m *MPD) ensureConnected() error {
	if m.client == nil {
		return m.connectLocked()
	}

	err := m.client.Ping()
	if err == nil {
		return nil
	}

	log.Debug().Err(err).Str("addr", m.addr).Msg("mpd connection lost, reconnecting")
	m.client.Close()
	m.client = nil
	return m.connectLocked()
}

func (m *MPD) Snapshot(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.ensureConnected()
	if err != nil {
		return nil, err
	}

	status, err := m.client.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read mpd status: %w", err)
	}

	song, err := m.client.CurrentSong()
	if err != nil {
		song = mpd.Attrs{}
	}

	return snapshotFromAttrs(status, song), nil
}

func (m *MPD) Changes() <-chan struct{} {
	return m.changes
}

func (m *MPD) Close() error {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.watcher.Close()
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	err := m.client.Close()
	m.client = nil
	return err
}

func (m *MPD) watchLoop() {
	for {
		select {
		case <-m.stopChan:
			return
		case _, ok := <-m.watcher.Event:
			if !ok {
				return
			}
			select {
			case m.changes <- struct{}{}:
			default:
			}
		case err, ok := <-m.watcher.Error:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("addr", m.addr).Msg("mpd watcher error")
			select {
			case <-m.stopChan:
				return
			case <-time.After(time.Second):
			}
		}
	}
}

// snapshotFromAttrs maps the replies of "status" and "currentsong".
func snapshotFromAttrs(status mpd.Attrs, song mpd.Attrs) *Snapshot {
	snap := &Snapshot{Rate: 1}

	switch status["state"] {
	case "play":
		snap.Status = StatusPlaying
	case "pause":
		snap.Status = StatusPaused
	default:
		snap.Status = StatusStopped
		return snap
	}

	if elapsed, err := strconv.ParseFloat(status["elapsed"], 64); err == nil {
		snap.PositionMillis = int64(math.Round(elapsed * 1000))
	}

	if len(song) == 0 {
		return snap
	}

	info := &track.Info{
		Title:    song["Title"],
		Artist:   song["Artist"],
		Album:    song["Album"],
		SourceID: song["file"],
	}
	if duration, err := strconv.ParseFloat(status["duration"], 64); err == nil {
		info.DurationMillis = int64(math.Round(duration * 1000))
	} else if seconds, err := strconv.ParseFloat(song["Time"], 64); err == nil {
		info.DurationMillis = int64(math.Round(seconds * 1000))
	}
	if info.Title == "" {
		info.Title = song["Name"]
	}
	snap.Track = info

	return snap
}
