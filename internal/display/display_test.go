package display

import (
	"strings"
	"testing"

	"karolbroda.com/lyricsync/internal/lyrics"
)

func sampleSet() lyrics.CueSet {
	return lyrics.Synced([]lyrics.Cue{
		{TimestampMillis: 1000, Text: "first"},
		{TimestampMillis: 2000, Text: "second"},
		{TimestampMillis: 3000, Text: "third"},
	})
}

func TestBuildSyncedRanges(t *testing.T) {
	buf := Build(sampleSet(), DefaultTheme())

	if got := buf.Text(); got != "first\nsecond\nthird\n" {
		t.Fatalf("unexpected text %q", got)
	}

	want := []Range{{0, 5}, {6, 12}, {13, 18}}
	if buf.Len() != len(want) {
		t.Fatalf("expected %d ranges, got %d", len(want), buf.Len())
	}
	for i, r := range want {
		if buf.Range(i) != r {
			t.Errorf("range %d: expected %v, got %v", i, r, buf.Range(i))
		}
		if buf.Style(i) != DefaultTheme().Default {
			t.Errorf("cue %d should start in the default style", i)
		}
	}

	if got := buf.Line(1); got != "second" {
		t.Errorf("expected line 1 to be second, got %q", got)
	}
}

func TestBuildPlain(t *testing.T) {
	buf := Build(lyrics.Plain("just words"), DefaultTheme())

	if buf.Synced() {
		t.Error("plain buffer should not be synced")
	}
	if buf.Text() != "just words" {
		t.Errorf("unexpected text %q", buf.Text())
	}
	if buf.Len() != 0 {
		t.Errorf("plain buffer should have no ranges, got %d", buf.Len())
	}
}

func TestOnTickMovesHighlight(t *testing.T) {
	theme := DefaultTheme()
	h := NewHighlighter(Build(sampleSet(), theme))

	buf := h.OnTick(1100)
	if h.LastIndex() != 0 {
		t.Fatalf("expected index 0, got %d", h.LastIndex())
	}
	if buf.Style(0) != theme.Current {
		t.Error("cue 0 should be highlighted")
	}

	h.OnTick(2900)
	if h.LastIndex() != 2 {
		t.Fatalf("expected index 2, got %d", h.LastIndex())
	}
	if buf.Style(0) != theme.Default {
		t.Error("cue 0 should be back to the default style")
	}
	if buf.Style(2) != theme.Current {
		t.Error("cue 2 should be highlighted")
	}
	if buf.Style(1) != theme.Default {
		t.Error("cue 1 was never highlighted")
	}
}

func TestOnTickIsIdempotent(t *testing.T) {
	h := NewHighlighter(Build(sampleSet(), DefaultTheme()))

	first := h.OnTick(2000)
	before := first.Frame("t", h.LastIndex())

	second := h.OnTick(2050)
	if first != second {
		t.Fatal("expected the same buffer back")
	}

	after := second.Frame("t", h.LastIndex())
	if before.Highlighted != after.Highlighted {
		t.Errorf("highlight moved from %d to %d", before.Highlighted, after.Highlighted)
	}
	for i := range before.Lines {
		if before.Lines[i] != after.Lines[i] {
			t.Errorf("line %d changed: %+v -> %+v", i, before.Lines[i], after.Lines[i])
		}
	}
}

func TestOnTickEmptyAndPlain(t *testing.T) {
	empty := NewHighlighter(Build(lyrics.Synced(nil), DefaultTheme()))
	if buf := empty.OnTick(500); buf.Text() != "" || empty.LastIndex() != -1 {
		t.Error("empty cue list should stay untouched")
	}

	plain := NewHighlighter(Build(lyrics.Plain("hello"), DefaultTheme()))
	if buf := plain.OnTick(500); buf.Text() != "hello" || plain.LastIndex() != -1 {
		t.Error("plain buffer should pass through")
	}
}

func TestThemeFromColors(t *testing.T) {
	theme := ThemeFromColors("#FF0000", "")
	if theme.Current.Color != "#FF0000" {
		t.Errorf("unexpected current color %s", theme.Current.Color)
	}
	if theme.Default.Color != DefaultColor {
		t.Errorf("empty muted color should keep the default, got %s", theme.Default.Color)
	}
	if theme.Current.Size != CurrentSize || !theme.Current.Bold {
		t.Error("current style should keep its size and weight")
	}
}

func TestFrameWindow(t *testing.T) {
	lines := make([]Line, 10)
	tests := []struct {
		name        string
		highlighted int
		height      int
		start, end  int
	}{
		{"fits", 3, 20, 0, 10},
		{"nothing highlighted", -1, 4, 0, 4},
		{"centered", 5, 4, 3, 7},
		{"clamped to end", 9, 4, 6, 10},
		{"zero height", 5, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Frame{Synced: true, Lines: lines, Highlighted: tt.highlighted}
			start, end := f.Window(tt.height)
			if start != tt.start || end != tt.end {
				t.Errorf("expected [%d,%d), got [%d,%d)", tt.start, tt.end, start, end)
			}
		})
	}
}

func TestRenderContainsLines(t *testing.T) {
	h := NewHighlighter(Build(sampleSet(), DefaultTheme()))
	h.OnTick(2000)

	out := Render(h.Buffer().Frame("t", h.LastIndex()), 40, 10)
	for _, want := range []string{"first", "second", "third"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in rendered output", want)
		}
	}
	if got := strings.Count(out, "\n") + 1; got != 3 {
		t.Errorf("expected 3 rows, got %d", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("unexpected %q", got)
	}
	if got := truncate("a much longer line", 8); got != "a much …" {
		t.Errorf("unexpected %q", got)
	}
}
