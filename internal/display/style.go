package display

import "github.com/charmbracelet/lipgloss"

// Style is how one cue is drawn. Size is the nominal text size; terminals
// have a single font size, so renderers only use it to tell lines apart.
type Style struct {
	Color string
	Bold  bool
	Size  int
}

type Theme struct {
	Default Style
	Current Style
}

const (
	DefaultColor = "#757575"
	CurrentColor = "#FFFFFF"
	DefaultSize  = 25
	CurrentSize  = 30
)

func DefaultTheme() Theme {
	return Theme{
		Default: Style{Color: DefaultColor, Size: DefaultSize},
		Current: Style{Color: CurrentColor, Bold: true, Size: CurrentSize},
	}
}

// ThemeFromColors keeps the default sizes but swaps in a highlight color and
// a muted color, typically taken from album artwork. empty values keep the
// defaults.
func ThemeFromColors(current string, muted string) Theme {
	theme := DefaultTheme()
	if current != "" {
		theme.Current.Color = current
	}
	if muted != "" {
		theme.Default.Color = muted
	}
	return theme
}

func (s Style) Lipgloss() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.Color)).
		Bold(s.Bold)
}
