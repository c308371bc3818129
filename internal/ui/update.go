package ui

import (
	"context"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/lyricsync/internal/artwork"
)

const (
	fineStep   = 100
	coarseStep = 500
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case FrameMsg:
		m.frame = msg.Frame
		return m, m.listenForFrames()

	case TrackMsg:
		return m.handleTrackChange(msg)

	case SourceErrMsg:
		m.err = msg.Err
		return m, nil

	case PaletteMsg:
		if msg.TrackID == m.trackID() && msg.Palette != nil {
			m.palette = msg.Palette
			m.engine.SetTheme(msg.Palette.Theme())
		}
		return m, nil

	case SyncMsg:
		if msg.TrackID == m.trackID() {
			m.syncMillis = msg.Millis
			m.syncLoaded = true
		}
		return m, nil

	case PulseMsg:
		m.pulse++
		return m, pulseCmd()
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "k", "+", "=":
		return m.shiftSync(fineStep), nil

	case "down", "j", "-":
		return m.shiftSync(-fineStep), nil

	case "right", "l":
		return m.shiftSync(coarseStep), nil

	case "left", "h":
		return m.shiftSync(-coarseStep), nil

	case "0":
		return m.shiftSync(-m.syncMillis), nil

	case "tab", "i":
		m.hideHeader = !m.hideHeader
		return m, nil
	}

	return m, nil
}

// shiftSync moves the offset of the current track by delta and saves it. the
// engine picks the stored value up on its next tick. keys do nothing until the
// stored offset has been read, otherwise the shift would start from zero.
func (m Model) shiftSync(delta int64) Model {
	if m.track == nil || !m.syncLoaded || delta == 0 {
		return m
	}
	m.syncMillis += delta
	m.engine.UpdateSyncAdjustment(m.syncMillis)
	return m
}

func (m Model) handleTrackChange(msg TrackMsg) (tea.Model, tea.Cmd) {
	m.track = msg.Track
	m.palette = artwork.DefaultPalette()
	m.syncMillis = 0
	m.syncLoaded = false
	m.err = nil

	if !m.track.IsValid() {
		return m, nil
	}

	m.engine.SetTheme(m.palette.Theme())

	cmds := []tea.Cmd{loadSyncCmd(m.engine, m.trackID())}
	if m.track.ArtworkURL != "" {
		cmds = append(cmds, fetchPaletteCmd(m.trackID(), m.track.ArtworkURL))
	}
	return m, tea.Batch(cmds...)
}

func loadSyncCmd(engine Engine, trackID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		raw, err := engine.SyncAdjustment(ctx)
		if err != nil {
			return nil
		}
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil
		}
		return SyncMsg{TrackID: trackID, Millis: millis}
	}
}

func fetchPaletteCmd(trackID string, artworkURL string) tea.Cmd {
	return func() tea.Msg {
		img, err := artwork.Fetch(context.Background(), artworkURL)
		if err != nil {
			return nil
		}
		return PaletteMsg{TrackID: trackID, Palette: artwork.ExtractPalette(img)}
	}
}
