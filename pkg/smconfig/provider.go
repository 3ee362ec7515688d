package smconfig

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Checker-Finance/secretsconfig/internal/metrics"
	"github.com/Checker-Finance/secretsconfig/pkg/secrets"
)

// Provider exposes secrets from a Store as a flat, case-insensitive
// configuration map and optionally keeps it fresh by polling.
//
// Readers never block: the current snapshot is swapped atomically as a whole.
type Provider struct {
	fetcher *fetcher
	opts    *Options
	logger  *zap.Logger

	current atomic.Pointer[Snapshot]

	// reloadSem serializes fetch-compare-publish between the poller and ForceReload.
	reloadSem chan struct{}

	observersMu sync.RWMutex
	observers   []subscriber
	nextID      uint64

	lifecycleMu sync.Mutex
	loaded      bool
	closed      bool
	cancel      context.CancelFunc
	done        chan struct{}
}

type subscriber struct {
	id uint64
	fn func(*Snapshot)
}

// ProviderOption customizes a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the logger used for poll failures and lifecycle events.
func WithLogger(logger *zap.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a provider reading from store. A nil opts means DefaultOptions.
// opts is retained, not copied; see Options.
func New(store secrets.Store, opts *Options, options ...ProviderOption) *Provider {
	if opts == nil {
		opts = DefaultOptions()
	}
	p := &Provider{
		opts:      opts,
		logger:    zap.NewNop(),
		reloadSem: make(chan struct{}, 1),
	}
	for _, o := range options {
		o(p)
	}
	p.fetcher = &fetcher{store: store, opts: opts, logger: p.logger}
	return p
}

// Load performs the initial fetch and publishes it. Errors are returned to the
// caller unchanged; ErrClosed is returned if Close ran during the fetch. When
// Options.PollingInterval is positive a background poller is started; it
// lives until Close.
func (p *Provider) Load(ctx context.Context) error {
	p.lifecycleMu.Lock()
	switch {
	case p.closed:
		p.lifecycleMu.Unlock()
		return ErrClosed
	case p.loaded:
		p.lifecycleMu.Unlock()
		return ErrAlreadyLoaded
	}
	p.loaded = true
	p.lifecycleMu.Unlock()

	if err := p.acquire(ctx); err != nil {
		p.resetLoaded()
		return err
	}
	snap, err := p.fetcher.fetch(ctx, triggerLoad)
	if err != nil {
		p.release()
		p.resetLoaded()
		return err
	}
	defer p.release()

	// Close may have run while the fetch was in flight; nothing is published then.
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()
	if p.closed {
		return ErrClosed
	}

	p.current.Store(snap)
	metrics.SnapshotKeys.Set(float64(snap.Len()))
	p.logger.Info("smconfig.loaded", zap.Int("keys", snap.Len()))

	interval := p.opts.PollingInterval
	if interval <= 0 {
		return nil
	}
	pollCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.poll(pollCtx, interval, p.done)
	return nil
}

func (p *Provider) resetLoaded() {
	p.lifecycleMu.Lock()
	p.loaded = false
	p.lifecycleMu.Unlock()
}

// ForceReload runs an out-of-band fetch and publishes it if it differs from
// the current snapshot. Unlike background polls, failures are returned.
func (p *Provider) ForceReload(ctx context.Context) error {
	p.lifecycleMu.Lock()
	closed := p.closed
	p.lifecycleMu.Unlock()
	if closed {
		return ErrClosed
	}
	_, err := p.reload(ctx, triggerForce)
	return err
}

// reload fetches a fresh snapshot and publishes it when it changed.
func (p *Provider) reload(ctx context.Context, trigger string) (bool, error) {
	if err := p.acquire(ctx); err != nil {
		return false, err
	}
	defer p.release()

	next, err := p.fetcher.fetch(ctx, trigger)
	if err != nil {
		return false, err
	}
	return p.publish(next), nil
}

// publish swaps in next and notifies observers unless it equals the current
// snapshot. Callers hold reloadSem.
func (p *Provider) publish(next *Snapshot) bool {
	prev := p.current.Load()
	if prev.Equal(next) {
		return false
	}
	p.current.Store(next)
	metrics.SnapshotKeys.Set(float64(next.Len()))
	metrics.ReloadsTotal.Inc()

	p.logger.Info("smconfig.reloaded",
		zap.Int("keys", next.Len()),
		zap.Int("changed", len(prev.ChangedKeys(next))))
	p.notify(next)
	return true
}

func (p *Provider) acquire(ctx context.Context) error {
	select {
	case p.reloadSem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Provider) release() {
	<-p.reloadSem
}

// Get returns the value for key, ignoring case.
func (p *Provider) Get(key string) (string, bool) {
	return p.current.Load().Get(key)
}

// Keys returns the keys of the current snapshot, sorted.
func (p *Provider) Keys() []string {
	return p.current.Load().Keys()
}

// Snapshot returns the currently published snapshot, or nil before Load.
func (p *Provider) Snapshot() *Snapshot {
	return p.current.Load()
}

// OnReload registers fn to be called with each newly published snapshot.
// Callbacks run synchronously on the reloading goroutine, in registration
// order, and must not call ForceReload. The returned func unregisters fn.
func (p *Provider) OnReload(fn func(*Snapshot)) (unsubscribe func()) {
	p.observersMu.Lock()
	p.nextID++
	id := p.nextID
	p.observers = append(p.observers, subscriber{id: id, fn: fn})
	p.observersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.observersMu.Lock()
			defer p.observersMu.Unlock()
			for i, o := range p.observers {
				if o.id == id {
					p.observers = append(p.observers[:i:i], p.observers[i+1:]...)
					return
				}
			}
		})
	}
}

func (p *Provider) notify(snap *Snapshot) {
	p.observersMu.RLock()
	observers := make([]subscriber, len(p.observers))
	copy(observers, p.observers)
	p.observersMu.RUnlock()

	for _, o := range observers {
		p.callObserver(o, snap)
	}
}

func (p *Provider) callObserver(o subscriber, snap *Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("smconfig.observer_panic",
				zap.Uint64("observer", o.id),
				zap.Any("panic", r))
		}
	}()
	o.fn(snap)
}

// Close stops the poller, waiting for an in-flight cycle to finish. It is
// safe to call more than once.
func (p *Provider) Close() error {
	p.lifecycleMu.Lock()
	if p.closed {
		p.lifecycleMu.Unlock()
		return nil
	}
	p.closed = true
	cancel, done := p.cancel, p.done
	p.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	p.logger.Info("smconfig.closed")
	return nil
}
