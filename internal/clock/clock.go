// Package clock projects the playback position between reports from the
// player. it ticks on a fixed interval and extrapolates from the last reported
// position using the playback speed.
package clock

import (
	"context"
	"time"
)

// MinInterval is the fastest the clock will ever tick.
const MinInterval = 250 * time.Millisecond

// Timer abstracts time.After and time.Now so ticks can be driven by hand in
// tests.
type Timer interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

type wallTimer struct{}

func (wallTimer) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (wallTimer) Now() time.Time {
	return time.Now()
}

// Wall is the real-time Timer.
var Wall Timer = wallTimer{}

// State is what a tick is projected from.
type State struct {
	ReferenceMillis      int64
	SyncAdjustmentMillis int64
	Speed                float64
	// ReportedAt is when ReferenceMillis was read from the player. zero if
	// unknown.
	ReportedAt time.Time
}

// At moves the reference forward to now, as if the player had been asked
// again. used when the clock restarts without a fresh report.
func (s State) At(now time.Time) State {
	if s.ReportedAt.IsZero() || !now.After(s.ReportedAt) {
		return s
	}
	elapsed := now.Sub(s.ReportedAt).Milliseconds()
	s.ReferenceMillis += int64(float64(elapsed) * s.Speed)
	s.ReportedAt = now
	return s
}

// Interval clamps the configured refresh interval to MinInterval.
func Interval(configured time.Duration) time.Duration {
	if configured < MinInterval {
		return MinInterval
	}
	return configured
}

// Project returns the estimated position for tick:
// reference + sync adjustment + (tick+1) * interval * speed.
func Project(tick int, state State, interval time.Duration) int64 {
	growth := float64(int64(tick+1)*interval.Milliseconds()) * state.Speed
	return state.ReferenceMillis + state.SyncAdjustmentMillis + int64(growth)
}

// Ticks starts an infinite tick sequence. tick 0 is sent right away, after
// that one tick per interval. while speed reports 0 the counter stays at 0,
// so a paused player never advances. the channel is closed when ctx is done;
// to restart, cancel and call Ticks again.
func Ticks(ctx context.Context, timer Timer, interval time.Duration, speed func() float64) <-chan int {
	if timer == nil {
		timer = Wall
	}

	out := make(chan int)
	go func() {
		defer close(out)

		tick := 0
		for {
			select {
			case out <- tick:
			case <-ctx.Done():
				return
			}

			select {
			case <-timer.After(interval):
			case <-ctx.Done():
				return
			}

			if speed() == 0 {
				tick = 0
			} else {
				tick++
			}
		}
	}()
	return out
}
