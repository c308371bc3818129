package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/lyricsync/internal/artwork"
	"karolbroda.com/lyricsync/internal/display"
	"karolbroda.com/lyricsync/internal/track"
)

const pulseInterval = 250 * time.Millisecond

// Engine is the part of the session controller the TUI talks to.
type Engine interface {
	ObserveDisplay(ctx context.Context) <-chan display.Frame
	UpdateSyncAdjustment(millis int64)
	SyncAdjustment(ctx context.Context) (string, error)
	SetTheme(theme display.Theme)
}

type PulseMsg time.Time

// FrameMsg carries a new display frame from the engine.
type FrameMsg struct {
	Frame display.Frame
}

// TrackMsg is sent by the player feed whenever the playing track changes.
type TrackMsg struct {
	Track *track.Info
}

// SourceErrMsg reports that the player could not be read.
type SourceErrMsg struct {
	Err error
}

type PaletteMsg struct {
	TrackID string
	Palette *artwork.Palette
}

type SyncMsg struct {
	TrackID string
	Millis  int64
}

type Model struct {
	engine     Engine
	frames     <-chan display.Frame
	source     string
	hideHeader bool

	frame      display.Frame
	track      *track.Info
	palette    *artwork.Palette
	syncMillis int64
	syncLoaded bool
	err        error

	pulse    int
	quitting bool
	width    int
	height   int
}

type ModelConfig struct {
	Engine     Engine
	Source     string
	HideHeader bool
}

// NewModel subscribes to the engine's frames for as long as ctx lives.
func NewModel(ctx context.Context, cfg ModelConfig) Model {
	return Model{
		engine:     cfg.Engine,
		frames:     cfg.Engine.ObserveDisplay(ctx),
		source:     cfg.Source,
		hideHeader: cfg.HideHeader,
		frame:      display.Empty(),
		palette:    artwork.DefaultPalette(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(pulseCmd(), m.listenForFrames())
}

func pulseCmd() tea.Cmd {
	return tea.Tick(pulseInterval, func(t time.Time) tea.Msg {
		return PulseMsg(t)
	})
}

func (m Model) listenForFrames() tea.Cmd {
	return func() tea.Msg {
		frame, ok := <-m.frames
		if !ok {
			return nil
		}
		return FrameMsg{Frame: frame}
	}
}

func (m Model) trackID() string {
	return m.track.ID()
}

func (m Model) Frame() display.Frame      { return m.frame }
func (m Model) Track() *track.Info        { return m.track }
func (m Model) Palette() *artwork.Palette { return m.palette }
func (m Model) SyncMillis() int64         { return m.syncMillis }
func (m Model) HideHeader() bool          { return m.hideHeader }
func (m Model) Err() error                { return m.err }
func (m Model) IsQuitting() bool          { return m.quitting }
