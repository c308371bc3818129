package lyrics

import (
	"fmt"
	"regexp"
	"strings"
)

// tagPattern matches a [MM:SS.ff] or [MM:SS.fff] timestamp tag. the fraction
// must follow a '.'; [MM:SS:ff] is not a timestamp.
var tagPattern = regexp.MustCompile(`\[(\d{2}):(\d{2})\.(\d{2,3})\]`)

type Cue struct {
	TimestampMillis int64
	Text            string
}

type Kind int

const (
	KindPlain Kind = iota
	KindSynced
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindSynced:
		return "synced"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// CueSet is either plain text or an ordered list of timed cues. it is never
// mutated after Parse returns it.
type CueSet struct {
	Kind Kind
	Text string
	Cues []Cue
}

func Plain(text string) CueSet {
	return CueSet{Kind: KindPlain, Text: text}
}

func Synced(cues []Cue) CueSet {
	return CueSet{Kind: KindSynced, Cues: cues}
}

func (s CueSet) IsSynced() bool {
	return s.Kind == KindSynced
}

// Parse turns raw lyrics into a CueSet. cues keep input order, so out of order
// or duplicated timestamps are passed through unchanged.
func Parse(raw string) CueSet {
	// trailing newline makes sure the last cue's text is captured
	sanitized := strings.TrimSpace(raw) + "\n"

	matches := tagPattern.FindAllStringSubmatchIndex(sanitized, -1)
	if len(matches) == 0 {
		return Plain(raw)
	}

	cues := make([]Cue, 0, len(matches))
	for i, m := range matches {
		textEnd := len(sanitized)
		if i+1 < len(matches) {
			textEnd = matches[i+1][0]
		}

		minutes := decodeDigits(sanitized[m[2]:m[3]])
		seconds := decodeDigits(sanitized[m[4]:m[5]])
		fraction := sanitized[m[6]:m[7]]

		fractionMillis := decodeDigits(fraction)
		if len(fraction) == 2 {
			fractionMillis *= 10
		}

		cues = append(cues, Cue{
			TimestampMillis: minutes*60_000 + seconds*1_000 + fractionMillis,
			Text:            strings.TrimSpace(sanitized[m[1]:textEnd]),
		})
	}

	return Synced(cues)
}

// decodeDigits reads a fixed-width run of ascii digits. the pattern guarantees
// the input is digits only.
func decodeDigits(s string) int64 {
	var value int64
	for i := 0; i < len(s); i++ {
		value = value*10 + int64(s[i]-'0')
	}
	return value
}

// IndexOfClosest returns the index of the cue whose timestamp is nearest to
// millis. on a tie the earlier index wins. returns -1 for an empty list.
func IndexOfClosest(cues []Cue, millis int64) int {
	closest := -1
	var best int64

	for i, cue := range cues {
		diff := cue.TimestampMillis - millis
		if diff < 0 {
			diff = -diff
		}
		if closest == -1 || diff < best {
			closest = i
			best = diff
		}
	}

	return closest
}

// FormatTimestamp renders millis back into the MM:SS.ff tag form.
func FormatTimestamp(millis int64) string {
	if millis < 0 {
		millis = 0
	}
	minutes := millis / 60_000
	seconds := (millis / 1_000) % 60
	hundredths := (millis % 1_000) / 10
	return fmt.Sprintf("%02d:%02d.%02d", minutes, seconds, hundredths)
}
