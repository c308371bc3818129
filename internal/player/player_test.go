package player

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fhs/gompd/v2/mpd"

	"karolbroda.com/lyricsync/internal/track"
)

type report struct {
	position int64
	speed    float64
}

type fakeSink struct {
	tracks  []string
	reports []report
}

func (f *fakeSink) SetCurrentTrack(trackID string) {
	f.tracks = append(f.tracks, trackID)
}

func (f *fakeSink) ReportPlaybackState(positionMillis int64, speed float64) {
	f.reports = append(f.reports, report{positionMillis, speed})
}

func newTestFeed() (*Feed, *fakeSink, *time.Time) {
	sink := &fakeSink{}
	now := time.Unix(1000, 0)
	f := NewFeed(nil, sink, time.Second)
	f.now = func() time.Time { return now }
	return f, sink, &now
}

// flakySource fails its first few snapshots.
type flakySource struct {
	failures atomic.Int32
}

func (s *flakySource) Name() string             { return "flaky" }
func (s *flakySource) Changes() <-chan struct{} { return nil }
func (s *flakySource) Close() error             { return nil }

func (s *flakySource) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s.failures.Add(-1) >= 0 {
		return nil, errors.New("player gone")
	}
	return &Snapshot{Track: song, Status: StatusPlaying, Rate: 1}, nil
}

var song = &track.Info{Artist: "Artist", Title: "Song", SourceID: "/track/1"}

func TestFeedReportsTrackChange(t *testing.T) {
	f, sink, _ := newTestFeed()

	var seen []*track.Info
	f.OnTrack(func(info *track.Info) { seen = append(seen, info) })

	f.observe(&Snapshot{Track: song, PositionMillis: 1200, Status: StatusPlaying, Rate: 1})

	if len(sink.tracks) != 1 || sink.tracks[0] != "artist - song" {
		t.Fatalf("unexpected tracks %v", sink.tracks)
	}
	if len(sink.reports) != 1 || sink.reports[0] != (report{1200, 1}) {
		t.Fatalf("unexpected reports %v", sink.reports)
	}
	if len(seen) != 1 || seen[0] != song {
		t.Error("OnTrack was not called with the new track")
	}

	f.observe(&Snapshot{})
	if got := sink.tracks[len(sink.tracks)-1]; got != "" {
		t.Errorf("expected empty track id when playback stops, got %q", got)
	}
}

func TestFeedIgnoresSteadyProgress(t *testing.T) {
	f, sink, now := newTestFeed()

	f.observe(&Snapshot{Track: song, PositionMillis: 0, Status: StatusPlaying})
	*now = now.Add(2 * time.Second)
	f.observe(&Snapshot{Track: song, PositionMillis: 2000, Status: StatusPlaying})
	*now = now.Add(2 * time.Second)
	f.observe(&Snapshot{Track: song, PositionMillis: 4100, Status: StatusPlaying})

	if len(sink.reports) != 1 {
		t.Errorf("expected a single report, got %v", sink.reports)
	}
}

func TestFeedReportsSeekAndPause(t *testing.T) {
	f, sink, now := newTestFeed()

	f.observe(&Snapshot{Track: song, PositionMillis: 0, Status: StatusPlaying})
	*now = now.Add(time.Second)
	f.observe(&Snapshot{Track: song, PositionMillis: 60_000, Status: StatusPlaying})
	*now = now.Add(time.Second)
	f.observe(&Snapshot{Track: song, PositionMillis: 61_000, Status: StatusPaused})
	*now = now.Add(10 * time.Second)
	f.observe(&Snapshot{Track: song, PositionMillis: 61_000, Status: StatusPaused})

	want := []report{{0, 1}, {60_000, 1}, {61_000, 0}}
	if len(sink.reports) != len(want) {
		t.Fatalf("expected %v, got %v", want, sink.reports)
	}
	for i := range want {
		if sink.reports[i] != want[i] {
			t.Errorf("report %d: expected %v, got %v", i, want[i], sink.reports[i])
		}
	}
}

func TestSnapshotSpeed(t *testing.T) {
	tests := []struct {
		snap Snapshot
		want float64
	}{
		{Snapshot{Status: StatusPlaying, Rate: 1.5}, 1.5},
		{Snapshot{Status: StatusPlaying}, 1},
		{Snapshot{Status: StatusPaused, Rate: 1}, 0},
		{Snapshot{Status: StatusStopped, Rate: 1}, 0},
	}

	for _, tt := range tests {
		if got := tt.snap.Speed(); got != tt.want {
			t.Errorf("%s at rate %v: expected %v, got %v", tt.snap.Status, tt.snap.Rate, tt.want, got)
		}
	}
}

func TestSnapshotFromAttrs(t *testing.T) {
	status := mpd.Attrs{"state": "play", "elapsed": "12.345", "duration": "200.5"}
	song := mpd.Attrs{"Title": "Song", "Artist": "Artist", "file": "music/song.flac"}

	snap := snapshotFromAttrs(status, song)
	if snap.Status != StatusPlaying {
		t.Errorf("expected playing, got %s", snap.Status)
	}
	if snap.PositionMillis != 12_345 {
		t.Errorf("expected 12345ms, got %d", snap.PositionMillis)
	}
	if snap.Track == nil || snap.Track.SourceID != "music/song.flac" || snap.Track.DurationMillis != 200_500 {
		t.Errorf("unexpected track %+v", snap.Track)
	}

	stopped := snapshotFromAttrs(mpd.Attrs{"state": "stop"}, song)
	if stopped.Track != nil || stopped.Speed() != 0 {
		t.Error("stopped mpd should report no track")
	}

	radio := snapshotFromAttrs(mpd.Attrs{"state": "pause", "elapsed": "1"}, mpd.Attrs{"Name": "Radio", "file": "http://stream"})
	if radio.Track.Title != "Radio" || radio.Status != StatusPaused {
		t.Errorf("unexpected radio snapshot %+v", radio)
	}
}

func TestParseMPRISStatus(t *testing.T) {
	if parseMPRISStatus("Playing") != StatusPlaying ||
		parseMPRISStatus("Paused") != StatusPaused ||
		parseMPRISStatus("Stopped") != StatusStopped ||
		parseMPRISStatus("") != StatusStopped {
		t.Error("unexpected status mapping")
	}
}

func TestFeedRunReportsSourceErrors(t *testing.T) {
	src := &flakySource{}
	src.failures.Store(3)
	sink := &fakeSink{}
	f := NewFeed(src, sink, 5*time.Millisecond)

	errs := make(chan error, 4)
	f.OnError(func(err error) { errs <- err })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Run(ctx)
	}()

	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("expected the failure first")
		}
	case <-time.After(time.Second):
		t.Fatal("no error reported")
	}

	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("expected recovery, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("no recovery reported")
	}

	cancel()
	<-done

	if got := sink.tracks[len(sink.tracks)-1]; got != "artist - song" {
		t.Errorf("expected the track after recovery, got %q", got)
	}
}
