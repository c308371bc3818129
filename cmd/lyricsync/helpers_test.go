package main

import (
	"bytes"
	"strings"
	"testing"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/lyrics"
)

func TestTrackIDFromArgs(t *testing.T) {
	if got := trackIDFromArgs([]string{"Daft  Punk", "One More Time"}); got != "daft punk - one more time" {
		t.Errorf("unexpected id %q", got)
	}
	if got := trackIDFromArgs([]string{"/music/Untagged.flac"}); got != "/music/Untagged.flac" {
		t.Errorf("a single argument should be used as is, got %q", got)
	}
}

func TestTrackFromArgs(t *testing.T) {
	info, err := trackFromArgs(nil, nil, []string{"Artist", "Song"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Artist != "Artist" || info.Title != "Song" {
		t.Errorf("unexpected track %+v", info)
	}

	_, err = trackFromArgs(nil, nil, []string{"Artist"}, false)
	if err == nil {
		t.Error("expected an error for a missing title")
	}
	_, err = trackFromArgs(nil, nil, []string{"Artist", "Song"}, true)
	if err == nil {
		t.Error("expected an error when mixing --current with arguments")
	}
}

func TestOffsetHelpDescribesSign(t *testing.T) {
	if !strings.Contains(lyricsOffsetCmd.Long, "positive values highlight lines earlier") {
		t.Errorf("offset help gets the sign wrong:\n%s", lyricsOffsetCmd.Long)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		512:         "512 B",
		2048:        "2.0 KB",
		5 * 1 << 20: "5.0 MB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestPrintCueSet(t *testing.T) {
	var buf bytes.Buffer
	printCueSet(&buf, lyrics.Parse("[00:01.50]first\n[01:02.25]second"))

	out := buf.String()
	if !strings.Contains(out, "[00:01.50] first") || !strings.Contains(out, "[01:02.25] second") {
		t.Errorf("unexpected output:\n%s", out)
	}

	buf.Reset()
	printCueSet(&buf, lyrics.Parse("just words"))
	if !strings.Contains(buf.String(), "no timestamps") || !strings.Contains(buf.String(), "just words") {
		t.Errorf("unexpected plain output:\n%s", buf.String())
	}
}

func TestSimilarEntries(t *testing.T) {
	diskCache, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	songs := [][2]string{
		{"Daft Punk", "One More Time"},
		{"Daft Punk", "One More Time (Radio Edit)"},
		{"Daft Punk Tribute", "One More Time"},
		{"Other", "Something Else"},
	}
	for _, s := range songs {
		err = diskCache.Set(s[0], s[1], &cache.LyricEntry{ArtistName: s[0], TrackName: s[1], PlainLyrics: "x"})
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	matches := similarEntries(diskCache, "daft punk", "one more")
	if len(matches) != 2 {
		t.Fatalf("expected the two exact artist matches, got %d", len(matches))
	}
	for _, m := range matches {
		if m.ArtistName != "Daft Punk" {
			t.Errorf("unexpected match %s - %s", m.ArtistName, m.TrackName)
		}
	}

	matches = similarEntries(diskCache, "punk", "one more time")
	if len(matches) != 3 {
		t.Errorf("expected fuzzy artist matches, got %d", len(matches))
	}
}

func TestCountLines(t *testing.T) {
	if countLines("") != "none" {
		t.Error("empty text should have no lines")
	}
	if countLines("a\nb\nc") != "3" {
		t.Errorf("expected 3, got %s", countLines("a\nb\nc"))
	}
}
