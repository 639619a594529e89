// Package fps estimates the processed frame rate over fixed windows.
package fps

import "time"

// DefaultWindow is the measurement window length.
const DefaultWindow = time.Second

// Clock returns the current time.
type Clock func() time.Time

// Tracker counts frames and publishes a rate each time a window closes.
// It is not safe for concurrent use.
type Tracker struct {
	now    Clock
	window time.Duration

	frames int
	start  time.Time
	rate   float32
}

// New returns a Tracker. A nil clock selects time.Now and a non-positive
// window selects DefaultWindow.
func New(clock Clock, window time.Duration) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{now: clock, window: window}
}

// Tick records one processed frame. It reports true when the tick closed a
// window and a new rate was published.
func (t *Tracker) Tick() bool {
	now := t.now()
	if t.start.IsZero() {
		t.start = now
	}
	t.frames++

	elapsed := now.Sub(t.start)
	if elapsed < t.window {
		return false
	}
	ms := float32(elapsed.Milliseconds())
	t.rate = float32(t.frames) * 1000 / ms
	t.frames = 0
	t.start = now
	return true
}

// Rate returns the rate of the last closed window, or 0 before the first.
func (t *Tracker) Rate() float32 { return t.rate }

// Pending returns the number of frames counted in the open window.
func (t *Tracker) Pending() int { return t.frames }
