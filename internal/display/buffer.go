// Package display turns a cue set into a styled text buffer and moves the
// "current line" highlight around it as the playback position changes.
package display

import (
	"strings"

	"karolbroda.com/lyricsync/internal/lyrics"
)

// Range is a half-open byte range [Start, End) into a buffer's text.
type Range struct {
	Start int
	End   int
}

// Buffer is the concatenated text of a cue set plus one range and one style
// per cue. only the styles change after Build.
type Buffer struct {
	text   string
	synced bool
	cues   []lyrics.Cue
	ranges []Range
	styles []Style
	theme  Theme
}

// Build lays out set. synced cues are written one per line, each followed by
// a newline that is not part of its range. plain text is kept as is, without
// ranges.
func Build(set lyrics.CueSet, theme Theme) *Buffer {
	if !set.IsSynced() {
		return &Buffer{text: set.Text, theme: theme}
	}

	var sb strings.Builder
	ranges := make([]Range, len(set.Cues))
	styles := make([]Style, len(set.Cues))

	for i, cue := range set.Cues {
		start := sb.Len()
		sb.WriteString(cue.Text)
		ranges[i] = Range{Start: start, End: sb.Len()}
		styles[i] = theme.Default
		sb.WriteByte('\n')
	}

	return &Buffer{
		text:   sb.String(),
		synced: true,
		cues:   set.Cues,
		ranges: ranges,
		styles: styles,
		theme:  theme,
	}
}

func (b *Buffer) Text() string      { return b.text }
func (b *Buffer) Synced() bool      { return b.synced }
func (b *Buffer) Len() int          { return len(b.ranges) }
func (b *Buffer) Theme() Theme      { return b.theme }
func (b *Buffer) Range(i int) Range { return b.ranges[i] }
func (b *Buffer) Style(i int) Style { return b.styles[i] }

// Line returns the text of cue i as laid out in the buffer.
func (b *Buffer) Line(i int) string {
	r := b.ranges[i]
	return b.text[r.Start:r.End]
}

func (b *Buffer) setStyle(i int, style Style) {
	b.styles[i] = style
}

// Frame snapshots the buffer. highlighted is the index of the current cue or
// -1.
func (b *Buffer) Frame(trackID string, highlighted int) Frame {
	f := Frame{
		TrackID:     trackID,
		Text:        b.text,
		Synced:      b.synced,
		Highlighted: highlighted,
	}

	if b.synced {
		f.Lines = make([]Line, len(b.ranges))
		for i := range b.ranges {
			f.Lines[i] = Line{
				Text:            b.Line(i),
				TimestampMillis: b.cues[i].TimestampMillis,
				Style:           b.styles[i],
			}
		}
	}
	return f
}
