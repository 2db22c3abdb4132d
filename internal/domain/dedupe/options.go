package dedupe

import "time"

// Option applies a configuration option to the in-memory deduper.
type Option func(*windowDeduper)

// WithMaxSize bounds the number of remembered ids. Values <= 0 remove the bound.
func WithMaxSize(maxSize int) Option {
	return func(d *windowDeduper) {
		d.maxSize = maxSize
	}
}

// WithWindow sets how long an id is remembered. Values <= 0 keep ids until
// they are evicted by size.
func WithWindow(window time.Duration) Option {
	return func(d *windowDeduper) {
		d.window = window
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *windowDeduper) {
		if now != nil {
			d.now = now
		}
	}
}
