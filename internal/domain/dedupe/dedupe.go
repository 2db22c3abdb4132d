// Package dedupe remembers recently seen keys so repeated work can be
// acknowledged without being redone.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Deduper records seen keys for a bounded window.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so the same work can be retried, e.g. after a
	// failed delivery.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type record struct {
	id string
	at time.Time
}

// windowDeduper keeps ids in insertion order. Entries older than window
// are pruned lazily from the front; when full, the oldest entry goes first.
type windowDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	window  time.Duration // <= 0 keeps entries until evicted by size
	now     func() time.Time
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &windowDeduper{
		maxSize: 1024,
		window:  10 * time.Minute,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *windowDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.prune(now)

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.remove(d.order.Front())
	}
	d.seen[id] = d.order.PushBack(record{id: id, at: now})
	return false
}

func (d *windowDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		d.remove(el)
	}
}

func (d *windowDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prune(d.now())
	return int64(d.order.Len())
}

// prune drops expired entries. Must be called with d.mu held.
func (d *windowDeduper) prune(now time.Time) {
	if d.window <= 0 {
		return
	}
	for el := d.order.Front(); el != nil; el = d.order.Front() {
		if now.Sub(el.Value.(record).at) < d.window {
			return
		}
		d.remove(el)
	}
}

func (d *windowDeduper) remove(el *list.Element) {
	delete(d.seen, el.Value.(record).id)
	d.order.Remove(el)
}
