package player

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"karolbroda.com/lyricsync/internal/track"
)

type Status int

const (
	StatusStopped Status = iota
	StatusPaused
	StatusPlaying
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Snapshot is the player state at one moment.
type Snapshot struct {
	Track          *track.Info
	PositionMillis int64
	Status         Status
	Rate           float64
}

// Speed is the rate the position advances at: 0 unless playing.
func (s *Snapshot) Speed() float64 {
	if s.Status != StatusPlaying {
		return 0
	}
	if s.Rate <= 0 {
		return 1
	}
	return s.Rate
}

// Source is a music player lyricsync can follow.
type Source interface {
	Name() string
	Snapshot(ctx context.Context) (*Snapshot, error)
	// Changes fires when the player announces a change, so Feed does not have
	// to wait for the next poll. may return nil.
	Changes() <-chan struct{}
	Close() error
}

// Sink receives what Feed derives from a Source.
type Sink interface {
	SetCurrentTrack(trackID string)
	ReportPlaybackState(positionMillis int64, speed float64)
}

// seekThreshold is how far the reported position may drift from the
// extrapolated one before it counts as a seek.
const seekThreshold = 1500 * time.Millisecond

// Feed polls a Source and forwards track changes, play/pause/rate changes and
// seeks to a Sink. plain progress is left to the sink's own clock.
type Feed struct {
	src      Source
	sink     Sink
	interval time.Duration
	now      func() time.Time
	onTrack  func(*track.Info)
	onError  func(error)

	track      *track.Info
	reported   bool
	position   int64
	speed      float64
	reportedAt time.Time
}

func NewFeed(src Source, sink Sink, interval time.Duration) *Feed {
	return &Feed{
		src:      src,
		sink:     sink,
		interval: interval,
		now:      time.Now,
	}
}

// OnTrack registers fn to be called with every new track (nil when playback
// stops).
func (f *Feed) OnTrack(fn func(*track.Info)) {
	f.onTrack = fn
}

// OnError registers fn to be called when the source stops answering, and
// with nil once it answers again.
func (f *Feed) OnError(fn func(error)) {
	f.onError = fn
}

// Run polls until ctx is done.
func (f *Feed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	changes := f.src.Changes()
	failures := 0

	for {
		snap, err := f.src.Snapshot(ctx)
		if err != nil {
			if failures == 0 && ctx.Err() == nil {
				log.Warn().Err(err).Str("source", f.src.Name()).Msg("failed to read player state")
				if f.onError != nil {
					f.onError(err)
				}
			}
			failures++
			snap = &Snapshot{}
		} else {
			if failures > 0 && f.onError != nil {
				f.onError(nil)
			}
			failures = 0
		}
		f.observe(snap)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-changes:
		}
	}
}

// observe compares snap against what was last reported and forwards the
// difference.
func (f *Feed) observe(snap *Snapshot) {
	now := f.now()

	current := snap.Track
	if !current.IsValid() {
		current = nil
	}

	if !current.IsSameTrack(f.track) {
		f.track = current
		f.sink.SetCurrentTrack(current.ID())
		if f.onTrack != nil {
			f.onTrack(current)
		}
		log.Debug().Str("track_id", current.ID()).Msg("track changed")
		f.report(snap, now)
		return
	}

	if current == nil {
		return
	}

	speed := snap.Speed()
	if !f.reported || speed != f.speed {
		f.report(snap, now)
		return
	}

	expected := f.position + int64(float64(now.Sub(f.reportedAt).Milliseconds())*f.speed)
	drift := time.Duration(snap.PositionMillis-expected) * time.Millisecond
	if drift < 0 {
		drift = -drift
	}
	if drift > seekThreshold {
		log.Debug().Int64("position", snap.PositionMillis).Dur("drift", drift).Msg("seek detected")
		f.report(snap, now)
	}
}

func (f *Feed) report(snap *Snapshot, now time.Time) {
	f.reported = true
	f.position = snap.PositionMillis
	f.speed = snap.Speed()
	f.reportedAt = now
	f.sink.ReportPlaybackState(f.position, f.speed)
}
