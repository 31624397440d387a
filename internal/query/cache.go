// Package query caches server state by key. Reads return whatever is cached
// and refresh it in the background; writes declare which keys they make stale.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Key names a cache slot.
type Key string

const (
	KeyProfile Key = "profile"
	KeyTasks   Key = "tasks"
	KeyUsers   Key = "users"
)

// TasksForUser is the key for the tasks assigned to one user.
func TasksForUser(userID string) Key {
	return Key("tasks-for-user:" + userID)
}

// ErrNoFetcher is returned by Refetch for a key that was never queried.
var ErrNoFetcher = errors.New("query: key has no fetcher")

// Fetcher loads the current value for a key.
type Fetcher func(ctx context.Context) (any, error)

// Entry is a snapshot of one slot.
type Entry struct {
	Key       Key
	Data      any
	Loading   bool
	Stale     bool
	Err       error
	UpdatedAt time.Time
}

// HasData reports whether a fetch has ever succeeded for the slot.
func (e Entry) HasData() bool { return !e.UpdatedAt.IsZero() }

// Value returns e.Data as T.
func Value[T any](e Entry) (T, bool) {
	v, ok := e.Data.(T)
	return v, ok
}

type slot struct {
	entry   Entry
	fetcher Fetcher
	subs    map[int]func(Entry)
	// round is bumped by Invalidate. Fetches started in an earlier round
	// neither share with nor overwrite fetches started later.
	round uint64
	id    uint64
}

func (s *slot) listeners() []func(Entry) {
	out := make([]func(Entry), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

// Cache holds one slot per key.
type Cache struct {
	mu       sync.Mutex
	notifyMu sync.Mutex
	slots    map[Key]*slot
	nextID   int
	gen      uint64
	slotSeq  uint64

	group     singleflight.Group
	staleTime time.Duration
	ctx       context.Context
	log       logrus.FieldLogger
	now       func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithStaleTime sets how long a successful fetch stays fresh. Zero means
// every Query refetches.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.staleTime = d }
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// WithContext sets the context background fetches run under.
func WithContext(ctx context.Context) Option {
	return func(c *Cache) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// New returns an empty Cache.
func New(opts ...Option) *Cache {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Cache{
		slots: make(map[Key]*slot),
		ctx:   context.Background(),
		log:   discard,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// slotLocked returns the slot for key, creating it. c.mu must be held.
func (c *Cache) slotLocked(key Key) *slot {
	s, ok := c.slots[key]
	if !ok {
		c.slotSeq++
		s = &slot{entry: Entry{Key: key}, subs: make(map[int]func(Entry)), id: c.slotSeq}
		c.slots[key] = s
	}
	return s
}

func (c *Cache) staleLocked(s *slot) bool {
	e := s.entry
	return !e.HasData() || e.Stale || e.Err != nil || c.now().Sub(e.UpdatedAt) >= c.staleTime
}

// publish delivers e to listeners in the order slots change. It must be
// called with c.mu held and releases it.
func (c *Cache) publish(s *slot) {
	e := s.entry
	listeners := s.listeners()
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	for _, fn := range listeners {
		fn(e)
	}
}

// Query returns the cached entry for key and, when it is absent or stale
// and no fetch is in flight, starts a background fetch. Subscribers see the
// result.
func (c *Cache) Query(key Key, fetcher Fetcher) Entry {
	c.mu.Lock()
	s := c.slotLocked(key)
	s.fetcher = fetcher
	if !c.staleLocked(s) {
		e := s.entry
		c.mu.Unlock()
		return e
	}
	if s.entry.Loading {
		e := s.entry
		c.mu.Unlock()
		return e
	}
	s.entry.Loading = true
	e := s.entry
	c.publish(s)

	go func() {
		_, _ = c.fetch(c.ctx, key)
	}()
	return e
}

// Get returns the cached entry for key without fetching.
func (c *Cache) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[key]
	if !ok {
		return Entry{Key: key}, false
	}
	return s.entry, true
}

// Subscribe calls fn with every change to key's slot. The returned function
// removes the subscription; the slot is dropped once nobody is subscribed.
// fn must not call back into the Cache.
func (c *Cache) Subscribe(key Key, fn func(Entry)) (unsubscribe func()) {
	c.mu.Lock()
	s := c.slotLocked(key)
	id := c.nextID
	c.nextID++
	s.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.slots[key] != s {
				return
			}
			delete(s.subs, id)
			if len(s.subs) == 0 {
				delete(c.slots, key)
			}
		})
	}
}

// Refetch fetches key now using the fetcher from its last Query.
func (c *Cache) Refetch(ctx context.Context, key Key) (Entry, error) {
	return c.fetch(ctx, key)
}

// Invalidate marks keys stale and refetches every one that has a fetcher,
// waiting for all of them. It returns the first refetch error.
func (c *Cache) Invalidate(ctx context.Context, keys ...Key) error {
	var g errgroup.Group
	for _, key := range keys {
		c.mu.Lock()
		s, ok := c.slots[key]
		if !ok {
			c.mu.Unlock()
			continue
		}
		s.entry.Stale = true
		s.round++
		hasFetcher := s.fetcher != nil
		c.publish(s)
		if hasFetcher {
			key := key
			g.Go(func() error {
				_, err := c.fetch(ctx, key)
				return err
			})
		}
	}
	return g.Wait()
}

// Reset drops every slot. Fetches still in flight are discarded when they
// land, and later fetches never join them.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.slots = make(map[Key]*slot)
}

func (c *Cache) fetch(ctx context.Context, key Key) (Entry, error) {
	c.mu.Lock()
	s, ok := c.slots[key]
	if !ok || s.fetcher == nil {
		c.mu.Unlock()
		return Entry{Key: key}, ErrNoFetcher
	}
	fetcher := s.fetcher
	gen, id, round := c.gen, s.id, s.round
	if !s.entry.Loading {
		s.entry.Loading = true
		c.publish(s)
	} else {
		c.mu.Unlock()
	}

	v, err, shared := c.group.Do(flightKey(gen, id, key, round), func() (any, error) {
		return fetcher(ctx)
	})

	c.mu.Lock()
	if c.gen != gen || c.slots[key] != s {
		c.mu.Unlock()
		return Entry{Key: key}, err
	}
	if s.round != round {
		// Superseded by an invalidation; its own fetch settles the slot.
		e := s.entry
		c.mu.Unlock()
		return e, err
	}
	s.entry.Loading = false
	if err != nil {
		s.entry.Err = err
		c.log.WithError(err).WithFields(logrus.Fields{"key": key, "shared": shared}).Warn("query fetch failed")
	} else {
		s.entry.Data = v
		s.entry.Err = nil
		s.entry.Stale = false
		s.entry.UpdatedAt = c.now()
	}
	e := s.entry
	c.publish(s)
	return e, err
}

// flightKey scopes fetch sharing to one cache generation, slot and
// invalidation round.
func flightKey(gen, slotID uint64, key Key, round uint64) string {
	return fmt.Sprintf("%d/%d/%s/%d", gen, slotID, key, round)
}
