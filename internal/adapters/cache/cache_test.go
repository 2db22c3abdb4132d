package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/portfolio/internal/adapters/cache"
	"github.com/okian/portfolio/internal/domain/activity"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeFetcher struct {
	calls   atomic.Int32
	err     error
	release chan struct{}
}

func (f *fakeFetcher) FetchRecentActivity(ctx context.Context, account string, limit int) (activity.Feed, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return activity.Feed{}, activity.NetworkFailure(ctx.Err())
		}
	}
	if f.err != nil {
		return activity.Feed{}, f.err
	}
	items := make([]activity.Item, 0, limit)
	for i := 0; i < limit; i++ {
		items = append(items, activity.Item{ID: account, Message: "Starred repository"})
	}
	return activity.Feed{Account: account, Items: items}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCache(t *testing.T) {
	Convey("Given a cache with a one hour window", t, func() {
		ctx := context.Background()
		next := &fakeFetcher{}
		clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
		c := cache.New(next, cache.WithTTL(time.Hour), cache.WithClock(clk.Now))

		Convey("When the same feed is requested twice inside the window", func() {
			first, err1 := c.FetchRecentActivity(ctx, "octocat", 3)
			second, err2 := c.FetchRecentActivity(ctx, "octocat", 3)

			Convey("Then the wrapped fetcher should be called once", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second, ShouldResemble, first)
				So(next.calls.Load(), ShouldEqual, 1)
				hits, misses := c.Stats()
				So(hits, ShouldEqual, 1)
				So(misses, ShouldEqual, 1)
			})

			Convey("And callers should not share item storage", func() {
				second.Items[0].Message = "mutated"
				third, _ := c.FetchRecentActivity(ctx, "octocat", 3)
				So(third.Items[0].Message, ShouldEqual, "Starred repository")
			})
		})

		Convey("When the window has passed", func() {
			_, _ = c.FetchRecentActivity(ctx, "octocat", 3)
			clk.Advance(time.Hour)
			_, err := c.FetchRecentActivity(ctx, "octocat", 3)

			Convey("Then the feed should be fetched again", func() {
				So(err, ShouldBeNil)
				So(next.calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When different limits are requested", func() {
			a, _ := c.FetchRecentActivity(ctx, "octocat", 2)
			b, _ := c.FetchRecentActivity(ctx, "octocat", 5)

			Convey("Then they should be cached separately", func() {
				So(a.Items, ShouldHaveLength, 2)
				So(b.Items, ShouldHaveLength, 5)
				So(next.calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When the wrapped fetcher fails", func() {
			next.err = activity.UpstreamUnavailable(502)
			_, err1 := c.FetchRecentActivity(ctx, "octocat", 3)
			next.err = nil
			feed, err2 := c.FetchRecentActivity(ctx, "octocat", 3)

			Convey("Then the failure should not be cached", func() {
				So(err1, ShouldNotBeNil)
				So(err2, ShouldBeNil)
				So(feed.Items, ShouldHaveLength, 3)
				So(next.calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When the account is empty", func() {
			_, _ = c.FetchRecentActivity(ctx, "", 3)
			_, _ = c.FetchRecentActivity(ctx, "", 3)

			Convey("Then every call should pass through", func() {
				So(next.calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When the cache is purged", func() {
			_, _ = c.FetchRecentActivity(ctx, "octocat", 3)
			c.Purge()
			_, _ = c.FetchRecentActivity(ctx, "octocat", 3)

			So(next.calls.Load(), ShouldEqual, 2)
		})
	})

	Convey("Given a disabled cache", t, func() {
		next := &fakeFetcher{}
		c := cache.New(next)

		_, _ = c.FetchRecentActivity(context.Background(), "octocat", 3)
		_, _ = c.FetchRecentActivity(context.Background(), "octocat", 3)

		So(next.calls.Load(), ShouldEqual, 2)
	})

	Convey("Given a cache bounded to two entries", t, func() {
		next := &fakeFetcher{}
		clk := &clock{now: time.Unix(0, 0)}
		c := cache.New(next, cache.WithTTL(time.Hour), cache.WithClock(clk.Now), cache.WithMaxEntries(2))
		ctx := context.Background()

		_, _ = c.FetchRecentActivity(ctx, "a", 1)
		clk.Advance(time.Minute)
		_, _ = c.FetchRecentActivity(ctx, "b", 1)
		clk.Advance(time.Minute)
		_, _ = c.FetchRecentActivity(ctx, "c", 1)

		Convey("Then the soonest-expiring entry should be evicted", func() {
			_, _ = c.FetchRecentActivity(ctx, "b", 1)
			_, _ = c.FetchRecentActivity(ctx, "c", 1)
			So(next.calls.Load(), ShouldEqual, 3)

			_, _ = c.FetchRecentActivity(ctx, "a", 1)
			So(next.calls.Load(), ShouldEqual, 4)
		})
	})

	Convey("Given concurrent misses for the same feed", t, func() {
		next := &fakeFetcher{release: make(chan struct{})}
		c := cache.New(next, cache.WithTTL(time.Hour))

		var wg sync.WaitGroup
		results := make([]activity.Feed, 8)
		for i := range results {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], _ = c.FetchRecentActivity(context.Background(), "octocat", 2)
			}()
		}
		time.Sleep(50 * time.Millisecond)
		close(next.release)
		wg.Wait()

		Convey("Then they should share one upstream call", func() {
			So(next.calls.Load(), ShouldEqual, 1)
			for _, r := range results {
				So(r.Items, ShouldHaveLength, 2)
			}
		})
	})

	Convey("Given a shared miss whose first caller gives up", t, func() {
		next := &fakeFetcher{release: make(chan struct{})}
		c := cache.New(next, cache.WithTTL(time.Hour))

		firstCtx, cancelFirst := context.WithCancel(context.Background())
		var wg sync.WaitGroup
		var firstErr, secondErr error
		var second activity.Feed

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, firstErr = c.FetchRecentActivity(firstCtx, "octocat", 2)
		}()
		for next.calls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			second, secondErr = c.FetchRecentActivity(context.Background(), "octocat", 2)
		}()
		time.Sleep(50 * time.Millisecond)
		cancelFirst()
		time.Sleep(20 * time.Millisecond)
		close(next.release)
		wg.Wait()

		Convey("Then only the caller that gave up should fail", func() {
			So(errors.Is(firstErr, activity.ErrNetworkFailure), ShouldBeTrue)
			So(secondErr, ShouldBeNil)
			So(second.Items, ShouldHaveLength, 2)
			So(next.calls.Load(), ShouldEqual, 1)
		})

		Convey("And the shared result should be cached", func() {
			_, err := c.FetchRecentActivity(context.Background(), "octocat", 2)
			So(err, ShouldBeNil)
			So(next.calls.Load(), ShouldEqual, 1)
		})
	})

	Convey("Given a shared miss that never completes", t, func() {
		next := &fakeFetcher{release: make(chan struct{})}
		c := cache.New(next, cache.WithTTL(time.Hour), cache.WithFetchTimeout(20*time.Millisecond))

		_, err := c.FetchRecentActivity(context.Background(), "octocat", 2)

		Convey("Then the fetch timeout should end it", func() {
			So(errors.Is(err, activity.ErrNetworkFailure), ShouldBeTrue)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})
	})
}
