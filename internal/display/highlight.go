package display

import "karolbroda.com/lyricsync/internal/lyrics"

// Highlighter owns a buffer and keeps exactly one cue in the current style.
// it is not safe for concurrent use; one pipeline owns it.
type Highlighter struct {
	buf  *Buffer
	last int
}

func NewHighlighter(buf *Buffer) *Highlighter {
	return &Highlighter{buf: buf, last: -1}
}

func (h *Highlighter) Buffer() *Buffer { return h.buf }

// LastIndex is the highlighted cue, or -1 before the first highlight.
func (h *Highlighter) LastIndex() int { return h.last }

// OnTick moves the highlight to the cue closest to currentMillis. the buffer
// is left untouched when it is plain, has no cues, or the closest cue is the
// one already highlighted.
func (h *Highlighter) OnTick(currentMillis int64) *Buffer {
	if !h.buf.synced {
		return h.buf
	}

	closest := lyrics.IndexOfClosest(h.buf.cues, currentMillis)
	if closest == -1 || closest == h.last {
		return h.buf
	}

	if h.last != -1 {
		h.buf.setStyle(h.last, h.buf.theme.Default)
	}
	h.buf.setStyle(closest, h.buf.theme.Current)
	h.last = closest

	return h.buf
}
