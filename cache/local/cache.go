package local

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when a key or member does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

// entry holds a cached string value with an optional expiry.
type entry struct {
	data     string
	expireAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

func newEntry(value string, ttl time.Duration) *entry {
	e := &entry{data: value}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}
	return e
}

// LocalCache is the single-process cache used with the embedded store.
type LocalCache struct {
	mu    sync.Mutex // guards kv for SetNX
	kv    sync.Map   // key → *entry
	zsets sync.Map   // key → *zset
	lists sync.Map   // key → *lockedList

	gcInterval time.Duration
	stopGC     chan struct{}
	closeOnce  sync.Once
}

// NewCache creates a LocalCache and starts the background GC goroutine.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &LocalCache{
		gcInterval: interval,
		stopGC:     make(chan struct{}),
	}
	go c.runGC()
	return c, nil
}

// Close stops the background GC goroutine. It is safe to call twice.
func (c *LocalCache) Close() error {
	c.closeOnce.Do(func() { close(c.stopGC) })
	return nil
}

func (c *LocalCache) runGC() {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			c.kv.Range(func(k, v interface{}) bool {
				if v.(*entry).expired(now) {
					c.kv.Delete(k)
				}
				return true
			})
		case <-c.stopGC:
			return
		}
	}
}

// ---- KV ----

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	v, ok := c.kv.Load(key)
	if !ok {
		return "", ErrNotFound
	}
	e := v.(*entry)
	if e.expired(time.Now()) {
		c.kv.Delete(key)
		return "", ErrNotFound
	}
	return e.data, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.kv.Store(key, newEntry(value, ttl))
	return nil
}

// Del removes keys of any kind.
func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.kv.Delete(k)
		c.zsets.Delete(k)
		c.lists.Delete(k)
	}
	return nil
}

func (c *LocalCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.kv.Load(key); ok && !v.(*entry).expired(time.Now()) {
		return false, nil
	}
	c.kv.Store(key, newEntry(value, ttl))
	return true, nil
}

// ---- ZSet ----

// ZMember is a member with its score.
type ZMember struct {
	Member string
	Score  float64
}

type zset struct {
	mu      sync.Mutex
	entries []ZMember // score descending, ties by member descending
}

func (z *zset) sort() {
	sort.Slice(z.entries, func(a, b int) bool {
		ea, eb := z.entries[a], z.entries[b]
		if ea.Score != eb.Score {
			return ea.Score > eb.Score
		}
		return ea.Member > eb.Member
	})
}

func (z *zset) find(member string) int {
	for i, e := range z.entries {
		if e.Member == member {
			return i
		}
	}
	return -1
}

func (c *LocalCache) getOrCreateZSet(key string) *zset {
	v, _ := c.zsets.LoadOrStore(key, &zset{})
	return v.(*zset)
}

func (c *LocalCache) ZAdd(_ context.Context, key string, score float64, member string) error {
	z := c.getOrCreateZSet(key)
	z.mu.Lock()
	defer z.mu.Unlock()
	if i := z.find(member); i >= 0 {
		z.entries[i].Score = score
	} else {
		z.entries = append(z.entries, ZMember{Member: member, Score: score})
	}
	z.sort()
	return nil
}

func (c *LocalCache) ZAddGT(_ context.Context, key string, score float64, member string) error {
	z := c.getOrCreateZSet(key)
	z.mu.Lock()
	defer z.mu.Unlock()
	if i := z.find(member); i >= 0 {
		if score <= z.entries[i].Score {
			return nil
		}
		z.entries[i].Score = score
	} else {
		z.entries = append(z.entries, ZMember{Member: member, Score: score})
	}
	z.sort()
	return nil
}

func (c *LocalCache) ZRevRange(_ context.Context, key string, start, stop int64) ([]ZMember, error) {
	z := c.getOrCreateZSet(key)
	z.mu.Lock()
	defer z.mu.Unlock()
	lo, hi, ok := span(int64(len(z.entries)), start, stop)
	if !ok {
		return nil, nil
	}
	out := make([]ZMember, hi-lo+1)
	copy(out, z.entries[lo:hi+1])
	return out, nil
}

func (c *LocalCache) ZScore(_ context.Context, key, member string) (float64, error) {
	z := c.getOrCreateZSet(key)
	z.mu.Lock()
	defer z.mu.Unlock()
	if i := z.find(member); i >= 0 {
		return z.entries[i].Score, nil
	}
	return 0, ErrNotFound
}

func (c *LocalCache) ZRevRank(_ context.Context, key, member string) (int64, error) {
	z := c.getOrCreateZSet(key)
	z.mu.Lock()
	defer z.mu.Unlock()
	if i := z.find(member); i >= 0 {
		return int64(i), nil
	}
	return 0, ErrNotFound
}

// ---- List ----

type lockedList struct {
	mu   sync.Mutex
	data []string
}

func (c *LocalCache) getOrCreateList(key string) *lockedList {
	v, _ := c.lists.LoadOrStore(key, &lockedList{})
	return v.(*lockedList)
}

// LPush prepends values one at a time, so the last value ends up first.
func (c *LocalCache) LPush(_ context.Context, key string, values ...string) error {
	l := c.getOrCreateList(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	head := make([]string, 0, len(values)+len(l.data))
	for i := len(values) - 1; i >= 0; i-- {
		head = append(head, values[i])
	}
	l.data = append(head, l.data...)
	return nil
}

func (c *LocalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	l := c.getOrCreateList(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	lo, hi, ok := span(int64(len(l.data)), start, stop)
	if !ok {
		return nil, nil
	}
	out := make([]string, hi-lo+1)
	copy(out, l.data[lo:hi+1])
	return out, nil
}

func (c *LocalCache) LTrim(_ context.Context, key string, start, stop int64) error {
	l := c.getOrCreateList(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	lo, hi, ok := span(int64(len(l.data)), start, stop)
	if !ok {
		l.data = nil
		return nil
	}
	l.data = append([]string(nil), l.data[lo:hi+1]...)
	return nil
}

// span resolves Redis-style inclusive indexes (negative counts from the end)
// against a sequence of length n.
func span(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
