// Package cache mirrors the assignment store in process. Contents are replaced
// wholesale on every successful refresh and never patched incrementally.
package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"topicspin-api/internal/models"
)

// Fetcher is the single store capability the cache needs.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]models.Assignment, error)
}

// Snapshot is one view of the store. When Err is set the fetch failed and
// Assignments holds the last-known-good contents.
type Snapshot struct {
	Assignments []models.Assignment
	Err         error
	At          time.Time
	Seq         uint64
}

// Listener receives every snapshot produced by a refresh. Listeners run
// synchronously on the refreshing goroutine and must not block.
type Listener func(Snapshot)

type Cache struct {
	src      Fetcher
	cooldown time.Duration
	now      func() time.Time

	flight singleflight.Group
	seq    atomic.Uint64

	mu         sync.RWMutex
	snap       Snapshot
	installed  uint64
	lastDone   time.Time
	stale      bool
	staleAfter uint64
	epoch      uint64

	listeners *xsync.Map[uint64, Listener]
	nextID    atomic.Uint64
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(src Fetcher, cooldown time.Duration, opts ...Option) *Cache {
	c := &Cache{
		src:       src,
		cooldown:  cooldown,
		now:       time.Now,
		listeners: xsync.NewMap[uint64, Listener](),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Current returns the last-known-good snapshot without any I/O.
func (c *Cache) Current() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Assignments refreshes (subject to the cooldown) and returns the contents.
func (c *Cache) Assignments(ctx context.Context) []models.Assignment {
	return c.Refresh(ctx).Assignments
}

// Refresh fetches the full record set unless the previous refresh completed
// within the cooldown, in which case the cached snapshot is returned.
// Concurrent callers share one in-flight fetch. Refresh never fails; fetch
// errors are reported in Snapshot.Err.
func (c *Cache) Refresh(ctx context.Context) Snapshot {
	snap, _ := c.refresh(ctx)
	return snap
}

// RefreshAsync schedules a refresh after delay and returns immediately.
func (c *Cache) RefreshAsync(delay time.Duration) {
	go func() {
		if delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()
			<-t.C
		}
		c.Refresh(context.Background())
	}()
}

// Invalidate makes the next Refresh fetch regardless of the cooldown and
// detaches new callers from any fetch already in flight.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.stale = true
	c.staleAfter = c.seq.Load()
	c.epoch++
	c.mu.Unlock()
}

// Subscribe registers l and delivers the current contents to it after a
// refresh. The returned func deregisters l.
func (c *Cache) Subscribe(l Listener) (unsubscribe func()) {
	id := c.nextID.Add(1)
	c.listeners.Store(id, l)
	listenersGauge.Inc()

	go func() {
		snap, notified := c.refresh(context.Background())
		if notified {
			return
		}
		if cur, ok := c.listeners.Load(id); ok {
			c.deliver(cur, snap)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			if _, ok := c.listeners.LoadAndDelete(id); ok {
				listenersGauge.Dec()
			}
		})
	}
}

// refresh reports whether listeners were notified with the returned snapshot.
func (c *Cache) refresh(ctx context.Context) (Snapshot, bool) {
	c.mu.RLock()
	fresh := c.freshLocked()
	snap := c.snap
	key := strconv.FormatUint(c.epoch, 10)
	c.mu.RUnlock()
	if fresh {
		refreshes.WithLabelValues("hit").Inc()
		return snap, false
	}

	v, _, shared := c.flight.Do(key, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx)), nil
	})
	res := v.(fetchResult)
	if shared {
		refreshes.WithLabelValues("shared").Inc()
	}
	return res.snap, res.notified
}

type fetchResult struct {
	snap     Snapshot
	notified bool
}

func (c *Cache) fetch(ctx context.Context) fetchResult {
	c.mu.RLock()
	if c.freshLocked() {
		snap := c.snap
		c.mu.RUnlock()
		refreshes.WithLabelValues("hit").Inc()
		return fetchResult{snap: snap}
	}
	c.mu.RUnlock()

	seq := c.seq.Add(1)
	list, err := c.src.FetchAll(ctx)
	now := c.now()

	c.mu.Lock()
	var out Snapshot
	switch {
	case err != nil:
		c.lastDone = now
		if seq > c.staleAfter {
			c.stale = false
		}
		out = Snapshot{Assignments: c.snap.Assignments, Err: err, At: now, Seq: c.snap.Seq}
		refreshes.WithLabelValues("failed").Inc()
	case seq > c.installed:
		if list == nil {
			list = []models.Assignment{}
		}
		c.snap = Snapshot{Assignments: list, At: now, Seq: seq}
		c.installed = seq
		c.lastDone = now
		if seq > c.staleAfter {
			c.stale = false
		}
		out = c.snap
		sizeGauge.Set(float64(len(list)))
		refreshes.WithLabelValues("fetched").Inc()
	default:
		// A newer fetch already landed; never let an older one overwrite it.
		snap := c.snap
		c.mu.Unlock()
		refreshes.WithLabelValues("discarded").Inc()
		return fetchResult{snap: snap}
	}
	c.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("cache refresh failed; serving last known data")
	}
	c.notify(out)
	return fetchResult{snap: out, notified: true}
}

func (c *Cache) freshLocked() bool {
	if c.stale || c.lastDone.IsZero() {
		return false
	}
	return c.now().Sub(c.lastDone) < c.cooldown
}

func (c *Cache) notify(snap Snapshot) {
	c.listeners.Range(func(_ uint64, l Listener) bool {
		c.deliver(l, snap)
		return true
	})
}

func (c *Cache) deliver(l Listener, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("cache listener")
		}
	}()
	l(snap)
}
