// Package session drives the lyrics shown for the current track: it loads and
// parses lyrics when the track changes, moves the highlight along with the
// reported playback position, and writes edits back to the stores.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"karolbroda.com/lyricsync/internal/clock"
	"karolbroda.com/lyricsync/internal/display"
	"karolbroda.com/lyricsync/internal/live"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/task"
)

var ErrNoTrack = errors.New("no track selected")

const writeTimeout = 10 * time.Second

type Options struct {
	Lyrics LyricsStore
	Sync   SyncStore
	// RefreshInterval is clamped to clock.MinInterval.
	RefreshInterval time.Duration
	// Timer defaults to clock.Wall.
	Timer clock.Timer
	// Theme defaults to display.DefaultTheme().
	Theme *display.Theme
}

// cueSet is a parsed cue set tagged with the track it belongs to. a pending
// cue set stands in for a track whose lyrics are still loading.
type cueSet struct {
	trackID string
	set     lyrics.CueSet
	theme   display.Theme
	pending bool
}

type Controller struct {
	lyricsStore LyricsStore
	syncStore   SyncStore
	interval    time.Duration
	timer       clock.Timer
	logger      zerolog.Logger

	trackID  *live.Value[string]
	cueSets  *live.Value[cueSet]
	playback *live.Value[clock.State]
	frames   *live.Value[display.Frame]

	syncMillis atomic.Int64

	mu        sync.Mutex
	current   string
	rawLyrics string
	theme     display.Theme

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	pipelines task.Group

	lyricsWrite task.Switch
	syncWrite   task.Switch
}

func New(opts Options) *Controller {
	timer := opts.Timer
	if timer == nil {
		timer = clock.Wall
	}
	theme := display.DefaultTheme()
	if opts.Theme != nil {
		theme = *opts.Theme
	}

	return &Controller{
		lyricsStore: opts.Lyrics,
		syncStore:   opts.Sync,
		interval:    clock.Interval(opts.RefreshInterval),
		timer:       timer,
		logger:      log.With().Str("session", uuid.NewString()).Logger(),
		trackID:     live.New(""),
		cueSets:     live.New(cueSet{set: lyrics.Plain(""), theme: theme}),
		playback:    live.New(clock.State{Speed: 1}),
		frames:      live.New(display.Empty()),
		theme:       theme,
	}
}

// Activate starts the load, highlight and sync pipelines. calling it while
// already active does nothing.
func (c *Controller) Activate(ctx context.Context) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.pipelines.Go(func() { c.runLoad(ctx) })
	c.pipelines.Go(func() { c.runHighlight(ctx) })
	c.pipelines.Go(func() { c.runSync(ctx) })

	c.logger.Debug().Msg("session activated")
}

// Deactivate stops every pipeline and returns once they have exited; no frame
// is published after it returns. safe to call more than once.
func (c *Controller) Deactivate() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
	c.pipelines.Wait()

	c.logger.Debug().Msg("session deactivated")
}

// SetCurrentTrack switches to trackID; "" means nothing is playing. work still
// running for the previous track is cancelled and its results dropped.
func (c *Controller) SetCurrentTrack(trackID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == trackID {
		return
	}
	c.current = trackID
	c.rawLyrics = ""
	// stops the previous track's highlight before the new track's load starts
	c.cueSets.Set(cueSet{trackID: trackID, set: lyrics.Plain(""), theme: c.theme, pending: true})
	c.trackID.Set(trackID)
}

func (c *Controller) CurrentTrack() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// ReportPlaybackState restarts the clock from positionMillis at speed.
func (c *Controller) ReportPlaybackState(positionMillis int64, speed float64) {
	c.playback.Set(clock.State{ReferenceMillis: positionMillis, Speed: speed, ReportedAt: c.timer.Now()})
}

// SetTheme restyles the current lyrics. the highlight is recomputed on the
// next tick.
func (c *Controller) SetTheme(theme display.Theme) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.theme = theme
	if cs, ok := c.cueSets.Get(); ok {
		cs.theme = theme
		c.cueSets.Set(cs)
	}
}

// ObserveDisplay streams display frames until ctx is done. slow readers only
// see the latest frame.
func (c *Controller) ObserveDisplay(ctx context.Context) <-chan display.Frame {
	return c.frames.Subscribe(ctx)
}

// Display returns the most recent frame.
func (c *Controller) Display() display.Frame {
	f, _ := c.frames.Get()
	return f
}

// RawLyrics is the unparsed text last loaded for the current track.
func (c *Controller) RawLyrics() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rawLyrics
}

// UpdateSyncAdjustment stores millis as the offset for the current track in
// the background. a pending save from an earlier call is cancelled first, so
// the last value wins. failures are logged, not returned.
func (c *Controller) UpdateSyncAdjustment(millis int64) {
	trackID := c.CurrentTrack()
	if trackID == "" {
		return
	}

	c.syncWrite.Go(context.Background(), func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()

		err := c.syncStore.SetSyncAdjustment(ctx, trackID, millis)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn().Err(err).Str("track_id", trackID).Int64("millis", millis).Msg("failed to save sync adjustment")
		}
	})
}

// SyncAdjustment reads the stored offset for the current track.
func (c *Controller) SyncAdjustment(ctx context.Context) (string, error) {
	trackID := c.CurrentTrack()
	if trackID == "" {
		return "", ErrNoTrack
	}

	millis, err := c.syncStore.GetSyncAdjustment(ctx, trackID)
	if err != nil {
		return "", fmt.Errorf("failed to read sync adjustment: %w", err)
	}
	return fmt.Sprintf("%d", millis), nil
}

// UpdateLyrics saves text as the lyrics of the current track in the
// background. a pending save from an earlier call is cancelled first.
func (c *Controller) UpdateLyrics(text string) {
	trackID := c.CurrentTrack()
	if trackID == "" {
		return
	}

	c.lyricsWrite.Go(context.Background(), func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()

		err := c.lyricsStore.PersistLyrics(ctx, trackID, text)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn().Err(err).Str("track_id", trackID).Msg("failed to save lyrics")
		}
	})
}

// Wait blocks until background writes started so far have finished.
func (c *Controller) Wait() {
	c.lyricsWrite.Wait()
	c.syncWrite.Wait()
}

// runLoad follows the current track and feeds parsed lyrics to the
// highlighter.
func (c *Controller) runLoad(ctx context.Context) {
	var sw task.Switch
	defer sw.Stop()

	for trackID := range c.trackID.Subscribe(ctx) {
		sw.Go(ctx, func(ctx context.Context) {
			c.loadTrack(ctx, trackID)
		})
	}
}

func (c *Controller) loadTrack(ctx context.Context, trackID string) {
	if trackID == "" {
		c.publishLyrics(trackID, "")
		return
	}

	updates, err := c.lyricsStore.ObserveLyrics(ctx, trackID)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn().Err(err).Str("track_id", trackID).Msg("failed to load lyrics")
			c.publishLyrics(trackID, "")
		}
		return
	}

	for text := range updates {
		if ctx.Err() != nil {
			return
		}
		c.publishLyrics(trackID, text)
	}
}

// publishLyrics drops results for a track that is no longer current.
func (c *Controller) publishLyrics(trackID string, text string) {
	set := lyrics.Parse(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != trackID {
		c.logger.Debug().Str("track_id", trackID).Msg("dropping stale lyrics")
		return
	}

	c.rawLyrics = text
	c.cueSets.Set(cueSet{trackID: trackID, set: set, theme: c.theme})

	c.logger.Debug().
		Str("track_id", trackID).
		Str("kind", set.Kind.String()).
		Int("cues", len(set.Cues)).
		Msg("lyrics loaded")
}

// runHighlight rebuilds the display buffer for every cue set and ticks the
// highlight over it.
func (c *Controller) runHighlight(ctx context.Context) {
	var sw task.Switch
	defer sw.Stop()

	for cs := range c.cueSets.Subscribe(ctx) {
		sw.Go(ctx, func(ctx context.Context) {
			c.highlight(ctx, cs)
		})
	}
}

func (c *Controller) highlight(ctx context.Context, cs cueSet) {
	// replayed after a reactivation while another track was selected
	if cs.trackID != c.CurrentTrack() {
		return
	}

	if cs.pending {
		c.publishFrame(cs.trackID, display.Empty())
		return
	}

	h := display.NewHighlighter(display.Build(cs.set, cs.theme))
	c.publishFrame(cs.trackID, h.Buffer().Frame(cs.trackID, h.LastIndex()))

	if cs.trackID == "" || !cs.set.IsSynced() {
		return
	}

	// every playback report restarts the clock; the highlighter carries over
	var sw task.Switch
	defer sw.Stop()

	for state := range c.playback.Subscribe(ctx) {
		state = state.At(c.timer.Now())
		sw.Go(ctx, func(ctx context.Context) {
			c.tick(ctx, cs.trackID, h, state)
		})
	}
}

func (c *Controller) tick(ctx context.Context, trackID string, h *display.Highlighter, state clock.State) {
	speed := func() float64 { return state.Speed }

	for tick := range clock.Ticks(ctx, c.timer, c.interval, speed) {
		state.SyncAdjustmentMillis = c.syncMillis.Load()
		current := clock.Project(tick, state, c.interval)

		before := h.LastIndex()
		buf := h.OnTick(current)
		if h.LastIndex() != before && ctx.Err() == nil {
			c.publishFrame(trackID, buf.Frame(trackID, h.LastIndex()))
		}
	}
}

// publishFrame publishes f only while trackID is still current. holding mu
// orders it against SetCurrentTrack, so no frame of a previous track appears
// after a switch.
func (c *Controller) publishFrame(trackID string, f display.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != trackID {
		return
	}
	c.frames.Set(f)
}

// runSync mirrors the stored offset of the current track into syncMillis.
func (c *Controller) runSync(ctx context.Context) {
	var sw task.Switch
	defer sw.Stop()

	for trackID := range c.trackID.Subscribe(ctx) {
		sw.Go(ctx, func(ctx context.Context) {
			c.observeSync(ctx, trackID)
		})
	}
}

func (c *Controller) observeSync(ctx context.Context, trackID string) {
	c.syncMillis.Store(0)
	if trackID == "" {
		return
	}

	updates, err := c.syncStore.ObserveSyncAdjustment(ctx, trackID)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn().Err(err).Str("track_id", trackID).Msg("failed to observe sync adjustment")
		}
		return
	}

	for millis := range updates {
		c.syncMillis.Store(millis)
	}
}
