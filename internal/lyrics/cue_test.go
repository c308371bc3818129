package lyrics

import (
	"reflect"
	"testing"
)

func TestParsePlainWithoutTags(t *testing.T) {
	inputs := []string{
		"",
		"just some words",
		"line one\nline two\n",
		"[ar:Someone]\n[ti:Song]\nno timing here",
		"[0:01.50]one digit minutes",
		"[00:01.5]one digit fraction",
		"[00:01:50]colon before the fraction",
	}

	for _, raw := range inputs {
		set := Parse(raw)
		if set.IsSynced() {
			t.Errorf("Parse(%q) returned synced lyrics", raw)
			continue
		}
		if set.Text != raw {
			t.Errorf("Parse(%q) text = %q, want input unchanged", raw, set.Text)
		}
	}
}

func TestParseSynced(t *testing.T) {
	set := Parse("[00:01.50]a\n[00:03.00]b\n")
	if !set.IsSynced() {
		t.Fatal("expected synced lyrics")
	}

	want := []Cue{{1500, "a"}, {3000, "b"}}
	if !reflect.DeepEqual(set.Cues, want) {
		t.Errorf("cues = %v, want %v", set.Cues, want)
	}
}

func TestParseTimestampFields(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"[00:00.00]x", 0},
		{"[00:00.05]x", 50},
		{"[00:00.123]x", 123},
		{"[01:02.34]x", 62_340},
		{"[10:59.999]x", 659_999},
		{"[02:03:45]x", 123_450},
	}

	for _, tt := range tests {
		set := Parse(tt.raw)
		if len(set.Cues) != 1 {
			t.Errorf("Parse(%q) produced %d cues", tt.raw, len(set.Cues))
			continue
		}
		if got := set.Cues[0].TimestampMillis; got != tt.want {
			t.Errorf("Parse(%q) timestamp = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseKeepsOrderAndDuplicates(t *testing.T) {
	set := Parse("[00:05.00]late\n[00:01.00]early\n[00:01.00]again")

	want := []Cue{{5000, "late"}, {1000, "early"}, {1000, "again"}}
	if !reflect.DeepEqual(set.Cues, want) {
		t.Errorf("cues = %v, want %v", set.Cues, want)
	}
}

func TestParseTextRunsToNextTag(t *testing.T) {
	set := Parse("[ti:Title]\n[00:01.00]  first  [00:02.00]second\n\n[00:03.00]\n")

	want := []Cue{{1000, "first"}, {2000, "second"}, {3000, ""}}
	if !reflect.DeepEqual(set.Cues, want) {
		t.Errorf("cues = %#v, want %#v", set.Cues, want)
	}
}

func TestIndexOfClosest(t *testing.T) {
	cues := []Cue{{1000, "a"}, {2000, "b"}, {4000, "c"}}

	tests := []struct {
		millis int64
		want   int
	}{
		{-500, 0},
		{0, 0},
		{1400, 0},
		{1500, 0},
		{1501, 1},
		{3000, 1},
		{3001, 2},
		{99_000, 2},
	}

	for _, tt := range tests {
		if got := IndexOfClosest(cues, tt.millis); got != tt.want {
			t.Errorf("IndexOfClosest(%d) = %d, want %d", tt.millis, got, tt.want)
		}
	}
}

func TestIndexOfClosestMidpointTiePrefersLowerIndex(t *testing.T) {
	cues := []Cue{{1000, "a"}, {2000, "b"}}
	if got := IndexOfClosest(cues, 1500); got != 0 {
		t.Errorf("expected lower index on tie, got %d", got)
	}

	dupes := []Cue{{1000, "a"}, {1000, "b"}}
	if got := IndexOfClosest(dupes, 1000); got != 0 {
		t.Errorf("expected first duplicate, got %d", got)
	}
}

func TestIndexOfClosestEmpty(t *testing.T) {
	if got := IndexOfClosest(nil, 1000); got != -1 {
		t.Errorf("expected -1 for empty cues, got %d", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[int64]string{
		0:       "00:00.00",
		1500:    "00:01.50",
		62_340:  "01:02.34",
		659_999: "10:59.99",
		-20:     "00:00.00",
	}
	for in, want := range tests {
		if got := FormatTimestamp(in); got != want {
			t.Errorf("FormatTimestamp(%d) = %q, want %q", in, got, want)
		}
	}
}
