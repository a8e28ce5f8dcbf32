package clock

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := &RealClock{}

	before := time.Now()
	actual := clock.Now()
	after := time.Now()

	if actual.Before(before) || actual.After(after) {
		t.Errorf("RealClock.Now() = %v, want between %v and %v", actual, before, after)
	}
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	t.Run("returns fixed time", func(t *testing.T) {
		if got := clock.Now(); !got.Equal(start) {
			t.Errorf("Now() = %v, want %v", got, start)
		}
	})

	t.Run("advance accumulates", func(t *testing.T) {
		clock.Set(start)
		clock.Advance(time.Hour)
		clock.Advance(30 * time.Second)

		want := start.Add(time.Hour + 30*time.Second)
		if got := clock.Now(); !got.Equal(want) {
			t.Errorf("Now() = %v, want %v", got, want)
		}
	})

	t.Run("set can move backwards", func(t *testing.T) {
		past := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		clock.Set(past)
		if got := clock.Now(); !got.Equal(past) {
			t.Errorf("Now() = %v, want %v", got, past)
		}
	})
}

func TestSince(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	clock.Advance(1500 * time.Millisecond)

	if got := Since(clock, start); got != 1500*time.Millisecond {
		t.Errorf("Since() = %v, want %v", got, 1500*time.Millisecond)
	}
}
