package clock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func next(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case tick, ok := <-ch:
		if !ok {
			t.Fatal("tick channel closed")
		}
		return tick
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tick")
	}
	return -1
}

func TestInterval(t *testing.T) {
	tests := []struct {
		configured time.Duration
		want       time.Duration
	}{
		{0, MinInterval},
		{100 * time.Millisecond, MinInterval},
		{250 * time.Millisecond, 250 * time.Millisecond},
		{time.Second, time.Second},
	}

	for _, tt := range tests {
		if got := Interval(tt.configured); got != tt.want {
			t.Errorf("Interval(%s) = %s, want %s", tt.configured, got, tt.want)
		}
	}
}

func TestProject(t *testing.T) {
	state := State{ReferenceMillis: 10_000, SyncAdjustmentMillis: -500, Speed: 1}
	interval := 250 * time.Millisecond

	if got := Project(0, state, interval); got != 9_750 {
		t.Errorf("tick 0: expected 9750, got %d", got)
	}
	if got := Project(3, state, interval); got != 10_500 {
		t.Errorf("tick 3: expected 10500, got %d", got)
	}

	state.Speed = 2
	if got := Project(1, state, interval); got != 10_500 {
		t.Errorf("double speed tick 1: expected 10500, got %d", got)
	}
}

func TestTicksStartImmediatelyAndAdvance(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	timer := NewManual()
	ticks := Ticks(ctx, timer, MinInterval, func() float64 { return 1 })

	if got := next(t, ticks); got != 0 {
		t.Fatalf("expected first tick 0, got %d", got)
	}

	for want := 1; want <= 3; want++ {
		if !timer.Fire(time.Second) {
			t.Fatal("clock never waited on the timer")
		}
		if got := next(t, ticks); got != want {
			t.Fatalf("expected tick %d, got %d", want, got)
		}
	}
}

func TestPausedTicksFreezeProjection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var speed atomic.Value
	speed.Store(1.0)

	timer := NewManual()
	ticks := Ticks(ctx, timer, MinInterval, func() float64 { return speed.Load().(float64) })
	next(t, ticks)

	timer.Fire(time.Second)
	if got := next(t, ticks); got != 1 {
		t.Fatalf("expected tick 1, got %d", got)
	}

	speed.Store(0.0)
	state := State{ReferenceMillis: 42_000, SyncAdjustmentMillis: 300, Speed: 0}

	for i := 0; i < 3; i++ {
		timer.Fire(time.Second)
		tick := next(t, ticks)
		if tick != 0 {
			t.Fatalf("expected paused tick to reset to 0, got %d", tick)
		}
		if got := Project(tick, state, MinInterval); got != 42_300 {
			t.Errorf("expected frozen projection 42300, got %d", got)
		}
	}
}

func TestTicksCloseOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	timer := NewManual()
	ticks := Ticks(ctx, timer, MinInterval, func() float64 { return 1 })
	next(t, ticks)
	cancel()

	select {
	case _, ok := <-ticks:
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("tick channel was not closed")
	}
}

func TestStateAtMovesReferenceForward(t *testing.T) {
	reported := time.Unix(100, 0)
	state := State{ReferenceMillis: 10_000, Speed: 1.5, ReportedAt: reported}

	got := state.At(reported.Add(2 * time.Second))
	if got.ReferenceMillis != 13_000 {
		t.Errorf("expected 13000, got %d", got.ReferenceMillis)
	}
	if !got.ReportedAt.Equal(reported.Add(2 * time.Second)) {
		t.Errorf("expected report time to move, got %v", got.ReportedAt)
	}

	paused := State{ReferenceMillis: 10_000, Speed: 0, ReportedAt: reported}
	if got := paused.At(reported.Add(time.Minute)); got.ReferenceMillis != 10_000 {
		t.Errorf("paused reference moved to %d", got.ReferenceMillis)
	}

	unknown := State{ReferenceMillis: 10_000, Speed: 1}
	if got := unknown.At(reported); got != unknown {
		t.Error("a state without report time should not change")
	}
	if got := state.At(reported.Add(-time.Second)); got != state {
		t.Error("a time before the report should not change the state")
	}
}

func TestManualTimeFollowsFires(t *testing.T) {
	timer := NewManual()
	start := timer.Now()

	timer.After(MinInterval)
	timer.After(time.Second)
	if !timer.Fire(time.Second) {
		t.Fatal("expected pending waiters")
	}

	if got := timer.Now().Sub(start); got != time.Second {
		t.Errorf("expected time to move by the longest wait, got %v", got)
	}
	if timer.Fire(0) {
		t.Error("nothing should be waiting after a fire")
	}
}
