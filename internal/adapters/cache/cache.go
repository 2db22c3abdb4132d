// Package cache keeps successful activity feeds for a revalidation window.
package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/portfolio/internal/domain/activity"
	"github.com/okian/portfolio/pkg/metrics"
)

const (
	defaultMaxEntries   = 64
	defaultFetchTimeout = 10 * time.Second
)

type key struct {
	account string
	limit   int
}

func (k key) String() string {
	return k.account + "|" + strconv.Itoa(k.limit)
}

type entry struct {
	feed    activity.Feed
	expires time.Time
}

// Cache is an activity.Fetcher that serves feeds from memory until they
// expire. Failures are never cached. Concurrent misses for the same key
// share one call to the wrapped fetcher. The shared call ignores the
// cancellation of any single caller and is bounded by the fetch timeout;
// each caller stops waiting when its own context is done.
type Cache struct {
	next         activity.Fetcher
	ttl          time.Duration
	now          func() time.Time
	maxEntries   int
	fetchTimeout time.Duration

	mu      sync.RWMutex
	entries map[key]entry
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// New wraps next. Without WithTTL the cache is disabled and every call
// goes to next.
func New(next activity.Fetcher, opts ...Option) *Cache {
	c := &Cache{
		next:         next,
		now:          time.Now,
		maxEntries:   defaultMaxEntries,
		fetchTimeout: defaultFetchTimeout,
		entries:      make(map[key]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRecentActivity implements activity.Fetcher.
func (c *Cache) FetchRecentActivity(ctx context.Context, account string, limit int) (activity.Feed, error) {
	account = strings.TrimSpace(account)
	if c.ttl <= 0 || account == "" || limit <= 0 {
		return c.next.FetchRecentActivity(ctx, account, limit)
	}

	k := key{account: account, limit: limit}
	if feed, ok := c.lookup(k); ok {
		c.hits.Add(1)
		metrics.RecordCacheHit()
		return feed, nil
	}
	c.misses.Add(1)
	metrics.RecordCacheMiss()

	ch := c.group.DoChan(k.String(), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		feed, err := c.next.FetchRecentActivity(fctx, account, limit)
		if err != nil {
			return nil, err
		}
		c.store(k, feed)
		return feed, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return activity.Feed{}, res.Err
		}
		return cloneFeed(res.Val.(activity.Feed)), nil
	case <-ctx.Done():
		return activity.Feed{}, activity.NetworkFailure(ctx.Err())
	}
}

// Stats returns hit and miss counts since construction.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops every cached feed.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[key]entry)
}

func (c *Cache) lookup(k key) (activity.Feed, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[k]
	if !ok || !c.now().Before(e.expires) {
		return activity.Feed{}, false
	}
	return cloneFeed(e.feed), true
}

func (c *Cache) store(k key, feed activity.Feed) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[k]; !exists && len(c.entries) >= c.maxEntries {
		c.evict(now)
	}
	c.entries[k] = entry{feed: cloneFeed(feed), expires: now.Add(c.ttl)}
}

// evict drops expired entries, or the soonest-expiring one if none are.
// Must be called with c.mu held.
func (c *Cache) evict(now time.Time) {
	var (
		oldest    key
		oldestExp time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			continue
		}
		if !found || e.expires.Before(oldestExp) {
			oldest, oldestExp, found = k, e.expires, true
		}
	}
	if len(c.entries) >= c.maxEntries && found {
		delete(c.entries, oldest)
	}
}

func cloneFeed(f activity.Feed) activity.Feed {
	items := make([]activity.Item, len(f.Items))
	copy(items, f.Items)
	return activity.Feed{Account: f.Account, Items: items}
}
