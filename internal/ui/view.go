package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"

	"karolbroda.com/lyricsync/internal/artwork"
	"karolbroda.com/lyricsync/internal/colors"
	"karolbroda.com/lyricsync/internal/display"
)

func (m Model) View() string {
	width := m.width
	height := m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	if m.quitting {
		return ""
	}

	if !m.track.IsValid() {
		return m.renderWaitingScreen(width, height)
	}
	return m.renderMainScreen(width, height)
}

func (m Model) renderWaitingScreen(width int, height int) string {
	palette := m.palette
	var lines []string

	banner := figure.NewFigure("lyricsync", "standard", true).Slicify()
	if width >= 60 && height >= len(banner)+4 {
		gradient := colors.Gradient(palette.Primary, palette.Secondary, 12)
		for _, row := range banner {
			lines = append(lines, centerText(colors.RenderGradientText(row, gradient, false), width))
		}
		lines = append(lines, "")
	}

	waitText := "awaiting music"
	if m.err != nil {
		waitText = m.err.Error()
	}
	lines = append(lines, centerText(lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Italic(true).Render(waitText), width))

	pulseChars := []string{"·", "•", "●", "•"}
	pulse := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary)).Render(pulseChars[m.pulse%len(pulseChars)])
	lines = append(lines, centerText(pulse, width))

	return lipgloss.PlaceVertical(height, lipgloss.Center, strings.Join(lines, "\n"))
}

func (m Model) renderMainScreen(width int, height int) string {
	var lines []string

	if !m.hideHeader {
		lines = append(lines, m.renderHeader(m.palette, width)...)
	}

	lyricsHeight := height - len(lines)
	if lyricsHeight < 1 {
		lyricsHeight = 1
	}

	body := m.renderLyrics(width, lyricsHeight)
	lines = append(lines, lipgloss.PlaceVertical(lyricsHeight, lipgloss.Center, body))

	return strings.Join(lines, "\n")
}

func (m Model) renderHeader(palette *artwork.Palette, width int) []string {
	title := colors.RenderGradientText(m.track.Title, colors.Gradient(palette.Primary, palette.Accent, 16), true)
	artist := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary)).Render(m.track.Artist)

	meta := m.source
	if m.track.DurationMillis > 0 {
		meta += "  " + colors.FormatMillis(m.track.DurationMillis)
	}
	if m.syncMillis != 0 {
		meta += fmt.Sprintf("  offset %+.1fs", float64(m.syncMillis)/1000)
	}
	metaLine := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Render(meta)

	rule := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Render(strings.Repeat("─", max(0, width-4)))

	return []string{
		"",
		centerText(title, width),
		centerText(artist, width),
		centerText(metaLine, width),
		centerText(rule, width),
	}
}

func (m Model) renderLyrics(width int, height int) string {
	frame := m.frame
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim)).Italic(true)

	if frame.TrackID != m.trackID() {
		return centerText(dim.Render("loading lyrics..."), width)
	}
	if frame.IsEmpty() {
		hint := fmt.Sprintf("no lyrics stored for %q", m.trackID())
		return strings.Join([]string{
			centerText(dim.Render(hint), width),
			centerText(dim.Render("lyricsync lyrics fetch --current"), width),
		}, "\n")
	}

	return display.Render(frame, width, height)
}

func centerText(text string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, text)
}
