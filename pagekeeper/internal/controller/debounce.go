package controller

import "time"

// debouncer coalesces input events: every touch restarts the quiet
// window, and the save runs once it expires.
type debouncer struct {
	window  time.Duration
	timer   *time.Timer
	timerCh <-chan time.Time
	touches int
}

func newDebouncer(window time.Duration) *debouncer {
	if window <= 0 {
		window = time.Second
	}
	return &debouncer{window: window}
}

// touch (re)starts the window timer.
func (d *debouncer) touch() {
	d.touches++
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(d.window)
	d.timerCh = d.timer.C
}

// timerC returns the channel that fires when the window expires; nil
// while nothing is pending.
func (d *debouncer) timerC() <-chan time.Time {
	return d.timerCh
}

func (d *debouncer) pending() bool { return d.timerCh != nil }

// reset drops the pending window and returns how many touches it held.
func (d *debouncer) reset() int {
	n := d.touches
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.timerCh = nil
	}
	d.touches = 0
	return n
}
