// Package clientcache provides a process-wide TTL cache of database
// client handles keyed by connection descriptor.
//
// Opening a database client is expensive, so resolvers share one handle
// per descriptor. Entries that go unused for the configured TTL are
// evicted by a background sweeper, which closes the underlying client
// through an eviction listener. Acquiring an entry refreshes its last
// access time, so actively used handles never expire.
package clientcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/identd/mongoauth/internal/logger"
)

// Default cache timing parameters.
const (
	// DefaultTTL is the idle time after which a cached client is
	// evicted and closed.
	DefaultTTL = 60 * time.Second

	// DefaultSweepInterval is how often the background sweeper scans
	// for expired entries.
	DefaultSweepInterval = time.Second
)

// Common errors for cache operations.
var (
	// ErrConnect is returned when a client cannot be established for a
	// descriptor, including descriptor parse failures.
	ErrConnect = errors.New("connect failed")

	// ErrClosed is returned when acquiring from a cache that has been
	// shut down.
	ErrClosed = errors.New("client cache is closed")
)

// OpenFunc establishes a client for the endpoints parsed from a
// descriptor.
type OpenFunc[C any] func(ctx context.Context, endpoints []string) (C, error)

// CloseFunc releases a client evicted from the cache.
type CloseFunc[C any] func(ctx context.Context, client C) error

// EvictionListener observes an entry leaving the cache. Listeners run
// after the entry is no longer visible to Acquire. A panicking listener
// does not affect other listeners or the sweeper.
type EvictionListener[C any] func(descriptor string, client C)

// Options configures cache timing.
type Options struct {
	// TTL is the idle time before eviction. Zero or negative disables
	// expiry entirely; entries then live until Shutdown.
	TTL time.Duration

	// SweepInterval is the period of the background sweeper. Zero
	// selects DefaultSweepInterval.
	SweepInterval time.Duration
}

// entry is a single cached client. The ready channel is closed once the
// open attempt finishes; client and err are immutable afterwards.
type entry[C any] struct {
	descriptor string

	ready  chan struct{}
	client C
	err    error

	closeOnce sync.Once

	// lastAccess is guarded by the cache mutex so eviction decisions
	// and access refreshes are linearizable.
	lastAccess time.Time
}

// Cache is a TTL cache of clients keyed by connection descriptor.
// It is safe for concurrent use.
type Cache[C any] struct {
	open      OpenFunc[C]
	close     CloseFunc[C]
	ttl       time.Duration
	sweep     time.Duration
	metrics   Metrics
	listeners []EvictionListener[C]

	mu      sync.Mutex
	entries map[string]*entry[C]
	closed  bool

	stop chan struct{}
	done chan struct{}
}

// New creates a client cache and starts its background sweeper.
// Evicted clients are closed exactly once via closeFn. Call Shutdown to
// stop the sweeper and close all cached clients.
func New[C any](openFn OpenFunc[C], closeFn CloseFunc[C], opts Options) *Cache[C] {
	ttl := opts.TTL
	sweep := opts.SweepInterval
	if sweep <= 0 {
		sweep = DefaultSweepInterval
	}

	c := &Cache[C]{
		open:    openFn,
		close:   closeFn,
		ttl:     ttl,
		sweep:   sweep,
		metrics: NopMetrics{},
		entries: make(map[string]*entry[C]),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if ttl > 0 {
		go c.sweeper()
	} else {
		// Entries never expire; nothing for a sweeper to do.
		close(c.done)
	}

	return c
}

// SetMetrics installs a metrics sink. Call before the cache is shared;
// a nil sink restores the no-op default.
func (c *Cache[C]) SetMetrics(m Metrics) {
	if m == nil {
		m = NopMetrics{}
	}
	c.metrics = m
}

// AddEvictionListener registers an additional eviction listener.
// Closing the evicted client is handled by the cache itself and always
// runs first. Call before the cache is shared with other goroutines.
func (c *Cache[C]) AddEvictionListener(l EvictionListener[C]) {
	c.listeners = append(c.listeners, l)
}

// Acquire returns the cached client for the descriptor, establishing it
// on first use. Concurrent acquires for the same descriptor result in a
// single open attempt; the losers block until it completes. A failed
// open is not cached, so a later acquire retries.
//
// Acquiring refreshes the entry's last access time, preventing eviction
// for another TTL.
func (c *Cache[C]) Acquire(ctx context.Context, descriptor string) (C, error) {
	var zero C

	endpoints, err := ParseDescriptor(descriptor)
	if err != nil {
		return zero, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, ErrClosed
	}

	e, ok := c.entries[descriptor]
	if ok {
		e.lastAccess = time.Now()
		c.mu.Unlock()
		c.metrics.Hit()

		select {
		case <-e.ready:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		if e.err != nil {
			return zero, e.err
		}

		logger.DebugCtx(ctx, "client acquired",
			logger.Descriptor(descriptor),
			logger.CacheHit(true))

		return e.client, nil
	}

	e = &entry[C]{
		descriptor: descriptor,
		ready:      make(chan struct{}),
		lastAccess: time.Now(),
	}
	c.entries[descriptor] = e
	c.mu.Unlock()
	c.metrics.Miss()

	client, err := c.open(ctx, endpoints)
	if err != nil {
		e.err = fmt.Errorf("%w: %q: %w", ErrConnect, descriptor, err)
		close(e.ready)

		// Drop the failed entry so the next acquire retries.
		c.mu.Lock()
		if cur, ok := c.entries[descriptor]; ok && cur == e {
			delete(c.entries, descriptor)
		}
		c.mu.Unlock()

		return zero, e.err
	}

	e.client = client

	// Publish under the lock so a concurrent Shutdown either observes
	// the ready entry and closes it, or is observed here and the fresh
	// client is closed before the error return.
	c.mu.Lock()
	closed := c.closed
	close(e.ready)
	c.mu.Unlock()

	if closed {
		c.closeEntry(ctx, e)
		return zero, ErrClosed
	}

	c.metrics.Opened(c.Len())

	logger.DebugCtx(ctx, "client established",
		logger.Descriptor(descriptor),
		logger.CacheHit(false))

	return client, nil
}

// Len returns the number of cached entries, including in-flight opens.
func (c *Cache[C]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Shutdown stops the sweeper, closes every cached client and empties
// the cache. It is idempotent and safe to call concurrently with
// Acquire; acquires after Shutdown fail with ErrClosed.
func (c *Cache[C]) Shutdown(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true

	evicted := make([]*entry[C], 0, len(c.entries))
	for _, e := range c.entries {
		evicted = append(evicted, e)
	}
	c.entries = make(map[string]*entry[C])
	c.mu.Unlock()

	close(c.stop)
	if c.ttl > 0 {
		<-c.done
	}

	for _, e := range evicted {
		c.closeEntry(ctx, e)
	}

	logger.Info("client cache shut down", logger.Evicted(len(evicted)))
}

// sweeper periodically evicts entries idle longer than the TTL.
func (c *Cache[C]) sweeper() {
	defer close(c.done)

	ticker := time.NewTicker(c.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweepOnce(time.Now())
		}
	}
}

// sweepOnce evicts expired entries and notifies listeners. Entries with
// an open still in flight are skipped; their TTL starts counting from
// the acquire that created them, and they are picked up on a later pass
// once ready.
func (c *Cache[C]) sweepOnce(now time.Time) {
	c.mu.Lock()
	var expired []*entry[C]
	for key, e := range c.entries {
		select {
		case <-e.ready:
		default:
			continue
		}
		// An entry idle for exactly the TTL counts as expired.
		if e.err == nil && now.Sub(e.lastAccess) >= c.ttl {
			delete(c.entries, key)
			expired = append(expired, e)
		}
	}
	c.mu.Unlock()

	if len(expired) == 0 {
		return
	}

	for _, e := range expired {
		c.notifyEviction(e)
	}
	c.metrics.Evicted(len(expired))

	logger.Debug("client cache sweep",
		logger.Evicted(len(expired)))
}

// notifyEviction closes the entry's client and then runs the eviction
// listeners, isolating each from panics in the others.
func (c *Cache[C]) notifyEviction(e *entry[C]) {
	c.closeEntry(context.Background(), e)

	for _, l := range c.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("eviction listener panicked",
						logger.Descriptor(e.descriptor),
						"panic", fmt.Sprint(r))
				}
			}()
			l(e.descriptor, e.client)
		}()
	}
}

// closeEntry closes an entry's client exactly once.
func (c *Cache[C]) closeEntry(ctx context.Context, e *entry[C]) {
	select {
	case <-e.ready:
	default:
		// Open still in flight; the opener owns the client and there is
		// nothing to close yet.
		return
	}
	if e.err != nil {
		return
	}

	e.closeOnce.Do(func() {
		if err := c.close(ctx, e.client); err != nil {
			logger.Warn("failed to close evicted client",
				logger.Descriptor(e.descriptor),
				logger.Err(err))
		}
	})
}
