// Package query is the front-end server's query cache: last known-good API
// data keyed by structured keys, with explicit invalidation, optimistic
// writes with rollback, cancellation of in-flight fetches, and observers.
package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/abrezinsky/paredao/internal/logger"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

// ErrCancelled is returned to readers whose fetch was cancelled before it settled
var ErrCancelled = errors.New("query cancelled")

// Status is the data status of a cache entry
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Loader fetches the value for a key
type Loader func(ctx context.Context) (any, error)

// Entry is a point-in-time copy of a key's cache state
type Entry struct {
	Key       Key
	Value     any
	HasValue  bool
	Status    Status
	Fetching  bool
	Stale     bool
	Err       error
	UpdatedAt time.Time
	Observers int
}

// Options configures retries
type Options struct {
	// Retry is the maximum number of retries after the first failure
	Retry int
	// RetryDelay returns the wait before retry number failure+1
	RetryDelay func(failure int) time.Duration
	// ShouldRetry decides whether err is worth retrying at all
	ShouldRetry func(err error) bool
}

// DefaultOptions retries unknown failures 3 times with exponential backoff
// and never retries recognized API errors.
func DefaultOptions() Options {
	return Options{
		Retry:       3,
		RetryDelay:  DefaultRetryDelay,
		ShouldRetry: func(err error) bool { return !paredao.IsHTTPError(err) },
	}
}

// DefaultRetryDelay doubles from one second up to thirty seconds
func DefaultRetryDelay(failure int) time.Duration {
	delay := time.Second << failure
	if failure > 5 || delay > 30*time.Second {
		return 30 * time.Second
	}
	return delay
}

type flight struct {
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
}

type observer struct {
	listener func(Entry)
	stop     chan struct{}
}

type entry struct {
	key        Key
	value      any
	hasValue   bool
	status     Status
	err        error
	stale      bool
	updatedAt  time.Time
	loader     Loader
	generation uint64
	inflight   *flight
	observers  map[int]*observer
}

func (e *entry) snapshot() Entry {
	return Entry{
		Key:       e.key,
		Value:     e.value,
		HasValue:  e.hasValue,
		Status:    e.status,
		Fetching:  e.inflight != nil,
		Stale:     e.stale,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
		Observers: len(e.observers),
	}
}

// Client is the query cache. Build one per process with New and pass it by reference.
type Client struct {
	log          logger.Logger
	opts         Options
	mu           sync.Mutex
	entries      map[string]*entry
	flights      singleflight.Group
	nextObserver int
	onInvalidate func(Key)
	ctx          context.Context
	cancel       context.CancelFunc
}

// New creates an empty cache
func New(log logger.Logger, opts Options) *Client {
	if log == nil {
		log = logger.Noop{}
	}
	defaults := DefaultOptions()
	if opts.RetryDelay == nil {
		opts.RetryDelay = defaults.RetryDelay
	}
	if opts.ShouldRetry == nil {
		opts.ShouldRetry = defaults.ShouldRetry
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		log:     log,
		opts:    opts,
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetInvalidateHook registers fn to be called with every invalidated key
func (c *Client) SetInvalidateHook(fn func(Key)) {
	c.mu.Lock()
	c.onInvalidate = fn
	c.mu.Unlock()
}

// Close cancels every in-flight fetch and stops all observers
func (c *Client) Close() {
	c.cancel()
	c.mu.Lock()
	for _, e := range c.entries {
		for id, o := range e.observers {
			close(o.stop)
			delete(e.observers, id)
		}
	}
	c.mu.Unlock()
}

func (c *Client) entryLocked(key Key) *entry {
	id := key.String()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: append(Key(nil), key...), status: StatusPending, observers: make(map[int]*observer)}
		c.entries[id] = e
	}
	return e
}

func (c *Client) matchingLocked(prefix Key) []*entry {
	var out []*entry
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			out = append(out, e)
		}
	}
	return out
}

// listenersLocked returns the callbacks to notify with the entry's current state
func (e *entry) listenersLocked() ([]func(Entry), Entry) {
	fns := make([]func(Entry), 0, len(e.observers))
	for _, o := range e.observers {
		fns = append(fns, o.listener)
	}
	return fns, e.snapshot()
}

func notify(fns []func(Entry), snap Entry) {
	for _, fn := range fns {
		fn(snap)
	}
}

// State returns the current state of key
func (c *Client) State(key Key) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.String()]; ok {
		return e.snapshot()
	}
	return Entry{Key: key, Status: StatusPending}
}

// startLocked launches the fetch for e, or joins the one in flight, and
// returns its result channel. c.mu must be held: the flight and its
// generation are recorded before the lock is released, so a Cancel that
// follows always sees it.
func (c *Client) startLocked(e *entry, loader Loader) <-chan singleflight.Result {
	e.loader = loader
	f := e.inflight
	if f == nil {
		ctx, cancel := context.WithCancel(c.ctx)
		f = &flight{generation: e.generation, ctx: ctx, cancel: cancel}
		e.inflight = f
	}
	return c.flights.DoChan(e.key.String(), func() (any, error) {
		return c.run(e, f, loader)
	})
}

func (c *Client) run(e *entry, f *flight, loader Loader) (any, error) {
	key := e.key
	c.log.Debug("query fetch", "key", key.Display())
	value, err := c.withRetry(f.ctx, key, loader)
	f.cancel()

	c.mu.Lock()
	if e.inflight == f {
		// later starts must not join a flight whose result is already settled
		e.inflight = nil
		c.flights.Forget(key.String())
	}
	if e.generation != f.generation {
		// cancelled, or overwritten by an optimistic write while in flight
		c.log.Debug("query fetch discarded", "key", key.Display())
		if next := e.inflight; next != nil {
			// restarted while in flight: hand readers the new result
			loader := e.loader
			ch := c.flights.DoChan(key.String(), func() (any, error) {
				return c.run(e, next, loader)
			})
			c.mu.Unlock()
			res := <-ch
			return res.Val, res.Err
		}
		current, has := e.value, e.hasValue
		c.mu.Unlock()
		if has {
			return current, nil
		}
		return nil, ErrCancelled
	}
	if err != nil {
		e.status = StatusError
		e.err = err
	} else {
		e.value = value
		e.hasValue = true
		e.status = StatusSuccess
		e.err = nil
		e.stale = false
		e.updatedAt = time.Now()
	}
	fns, snap := e.listenersLocked()
	c.mu.Unlock()

	notify(fns, snap)
	if err != nil {
		c.log.Warn("query fetch failed", "key", key.Display(), "error", err)
		return nil, err
	}
	return value, nil
}

func (c *Client) withRetry(ctx context.Context, key Key, loader Loader) (any, error) {
	for failure := 0; ; failure++ {
		value, err := loader(ctx)
		if err == nil {
			return value, nil
		}
		if ctx.Err() != nil || failure >= c.opts.Retry || !c.opts.ShouldRetry(err) {
			return nil, err
		}
		delay := c.opts.RetryDelay(failure)
		c.log.Debug("query retry", "key", key.Display(), "failure", failure+1, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		}
	}
}

func (c *Client) await(ctx context.Context, ch <-chan singleflight.Result) (any, error) {
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FetchValue returns the cached value when present and fresh; otherwise it
// loads it, stores it and returns it. Concurrent callers share one load.
func (c *Client) FetchValue(ctx context.Context, key Key, loader Loader) (any, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	if e.hasValue && !e.stale {
		value := e.value
		c.mu.Unlock()
		return value, nil
	}
	ch := c.startLocked(e, loader)
	c.mu.Unlock()

	return c.await(ctx, ch)
}

// Refetch loads key now even when fresh, using loader or, when nil, the
// loader of the previous fetch. A fetch already in flight is cancelled and
// replaced.
func (c *Client) Refetch(ctx context.Context, key Key, loader Loader) (any, error) {
	c.mu.Lock()
	if loader == nil {
		if e, ok := c.entries[key.String()]; ok {
			loader = e.loader
		}
	}
	if loader == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("no loader registered for %s", key.Display())
	}
	e := c.entryLocked(key)
	if e.inflight != nil {
		c.cancelLocked(e)
	}
	ch := c.startLocked(e, loader)
	c.mu.Unlock()

	return c.await(ctx, ch)
}

// Invalidate marks every key matching a prefix stale and starts a background
// refetch for those with active observers. It never blocks on the network.
func (c *Client) Invalidate(prefixes ...Key) {
	for _, ch := range c.invalidate(prefixes) {
		go func(ch <-chan singleflight.Result) { <-ch }(ch)
	}
}

// InvalidateAndWait is Invalidate followed by waiting for the triggered refetches
func (c *Client) InvalidateAndWait(ctx context.Context, prefixes ...Key) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range c.invalidate(prefixes) {
		ch := ch
		g.Go(func() error {
			_, err := c.await(gctx, ch)
			return err
		})
	}
	return g.Wait()
}

func (c *Client) invalidate(prefixes []Key) []<-chan singleflight.Result {
	var chans []<-chan singleflight.Result

	c.mu.Lock()
	hook := c.onInvalidate
	seen := make(map[*entry]bool)
	for _, prefix := range prefixes {
		for _, e := range c.matchingLocked(prefix) {
			if seen[e] {
				continue
			}
			seen[e] = true
			e.stale = true
			if e.loader == nil {
				continue
			}
			switch {
			case e.inflight != nil:
				// a fetch started before the change may carry the old data
				c.cancelLocked(e)
				chans = append(chans, c.startLocked(e, e.loader))
			case len(e.observers) > 0:
				chans = append(chans, c.startLocked(e, e.loader))
			}
		}
	}
	c.mu.Unlock()

	for _, prefix := range prefixes {
		c.log.Debug("query invalidated", "key", prefix.Display(), "refetching", len(chans))
		if hook != nil {
			hook(prefix)
		}
	}
	return chans
}

// Cancel aborts in-flight fetches for keys matching the prefixes.
// A cancelled fetch's response is discarded when it arrives.
func (c *Client) Cancel(prefixes ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, prefix := range prefixes {
		for _, e := range c.matchingLocked(prefix) {
			c.cancelLocked(e)
		}
	}
}

func (c *Client) cancelLocked(e *entry) {
	e.generation++
	if e.inflight != nil {
		e.inflight.cancel()
		e.inflight = nil
		c.flights.Forget(e.key.String())
		c.log.Debug("query cancelled", "key", e.key.Display())
	}
}

// Snapshot is the rollback token returned by SetData
type Snapshot struct {
	key      Key
	value    any
	hasValue bool
	status   Status
	err      error
}

// Key returns the key the snapshot was taken for
func (s Snapshot) Key() Key { return s.key }

// Value returns the value captured before the write
func (s Snapshot) Value() (any, bool) { return s.value, s.hasValue }

// SetData cancels in-flight fetches for key, then replaces its value with
// updater(current) synchronously. The returned snapshot restores the exact
// previous value.
func (c *Client) SetData(key Key, updater func(current any, ok bool) any) Snapshot {
	c.mu.Lock()
	e := c.entryLocked(key)
	c.cancelLocked(e)
	snap := Snapshot{key: e.key, value: e.value, hasValue: e.hasValue, status: e.status, err: e.err}
	e.value = updater(e.value, e.hasValue)
	e.hasValue = true
	e.status = StatusSuccess
	e.err = nil
	e.updatedAt = time.Now()
	fns, state := e.listenersLocked()
	c.mu.Unlock()

	notify(fns, state)
	return snap
}

// Restore puts back the value captured by snapshot
func (c *Client) Restore(snap Snapshot) {
	if snap.key == nil {
		return
	}
	c.mu.Lock()
	e := c.entryLocked(snap.key)
	c.cancelLocked(e)
	e.value = snap.value
	e.hasValue = snap.hasValue
	e.status = snap.status
	e.err = snap.err
	e.updatedAt = time.Now()
	fns, state := e.listenersLocked()
	c.mu.Unlock()

	notify(fns, state)
	c.log.Debug("query restored", "key", snap.key.Display())
}

// Remove drops every entry matching prefix. Observed entries are kept but emptied.
func (c *Client) Remove(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		c.cancelLocked(e)
		if len(e.observers) > 0 {
			e.value, e.hasValue, e.status, e.stale = nil, false, StatusPending, true
			continue
		}
		delete(c.entries, id)
	}
}

// WatchOptions configures an observer
type WatchOptions struct {
	// RefetchInterval polls the key while the observer is active; zero disables polling
	RefetchInterval time.Duration
}

// Watch registers an active consumer of key. The key is fetched when it has
// no fresh value, listener is called after every change, and invalidations
// of key refetch it in the background while the observer is registered.
// The returned func unregisters the observer.
func (c *Client) Watch(key Key, loader Loader, listener func(Entry), opts WatchOptions) func() {
	o := &observer{listener: listener, stop: make(chan struct{})}

	c.mu.Lock()
	e := c.entryLocked(key)
	e.loader = loader
	id := c.nextObserver
	c.nextObserver++
	e.observers[id] = o
	var ch <-chan singleflight.Result
	if !e.hasValue || e.stale {
		ch = c.startLocked(e, loader)
	}
	current := e.snapshot()
	c.mu.Unlock()

	if ch != nil {
		go func() { <-ch }()
	} else {
		listener(current)
	}

	if opts.RefetchInterval > 0 {
		go c.poll(key, loader, o.stop, opts.RefetchInterval)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			if _, ok := e.observers[id]; ok {
				delete(e.observers, id)
				close(o.stop)
			}
			c.mu.Unlock()
		})
	}
}

func (c *Client) poll(key Key, loader Loader, stop <-chan struct{}, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			ch := c.startLocked(c.entryLocked(key), loader)
			c.mu.Unlock()
			if _, err := c.await(c.ctx, ch); err != nil {
				c.log.Debug("query poll failed", "key", key.Display(), "error", err)
			}
		}
	}
}
