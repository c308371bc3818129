package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Line is one synced cue inside a Frame.
type Line struct {
	Text            string
	TimestampMillis int64
	Style           Style
}

// Frame is an immutable copy of a buffer, safe to hand to other goroutines.
// plain lyrics only carry Text.
type Frame struct {
	TrackID     string
	Text        string
	Synced      bool
	Lines       []Line
	Highlighted int
}

// Empty is the frame shown when nothing is loaded.
func Empty() Frame {
	return Frame{Highlighted: -1}
}

func (f Frame) IsEmpty() bool {
	return strings.TrimSpace(f.Text) == ""
}

// Window returns the half-open range of line indexes to show in height rows,
// keeping the highlighted line roughly in the middle.
func (f Frame) Window(height int) (int, int) {
	total := len(f.Lines)
	if !f.Synced {
		total = len(strings.Split(f.Text, "\n"))
	}
	if height <= 0 || total == 0 {
		return 0, 0
	}
	if total <= height {
		return 0, total
	}

	center := f.Highlighted
	if center < 0 {
		center = 0
	}

	start := center - height/2
	if start < 0 {
		start = 0
	}
	end := start + height
	if end > total {
		end = total
		start = end - height
	}
	return start, end
}

// Render draws the frame into at most height rows of width columns.
func Render(f Frame, width int, height int) string {
	start, end := f.Window(height)
	if start == end {
		return ""
	}

	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)

	rows := make([]string, 0, end-start)
	if !f.Synced {
		plain := DefaultTheme().Default.Lipgloss()
		for _, text := range strings.Split(f.Text, "\n")[start:end] {
			rows = append(rows, center.Render(plain.Render(truncate(text, width))))
		}
		return strings.Join(rows, "\n")
	}

	for _, line := range f.Lines[start:end] {
		text := truncate(line.Text, width)
		if text == "" {
			text = "♪"
		}
		rows = append(rows, center.Render(line.Style.Lipgloss().Render(text)))
	}
	return strings.Join(rows, "\n")
}

func truncate(text string, width int) string {
	if width <= 0 || lipgloss.Width(text) <= width {
		return text
	}

	runes := []rune(text)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
