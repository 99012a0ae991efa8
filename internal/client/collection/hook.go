// Package collection mirrors server-held per-identity collections (cart,
// wishlist, orders) into local state.
//
// A mirror only ever changes from a server-confirmed result: mutations are
// applied remotely first and the collection the server returns, or a
// re-fetch, replaces the mirror. Concurrent mutations are not ordered by the
// client; the last write observed wins and the server owns conflict
// resolution.
package collection

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/internal/domain/auth"
	xerrors "storefront/internal/pkg/errors"

	"go.uber.org/zap"
)

const (
	resubscribeBase = 250 * time.Millisecond
	resubscribeMax  = 30 * time.Second
)

type Keyed interface {
	Key() string
}

type Status int

const (
	Unbound Status = iota
	Loading
	Ready
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unbound"
	}
}

// Mirror is a copy of the local view of one owner's collection.
type Mirror[T Keyed] struct {
	OwnerID      string
	Items        []T
	LastSyncedAt time.Time
}

type Fetcher[T Keyed] interface {
	Fetch(ctx context.Context, ownerID string) ([]T, error)
}

// Subscription stops deliveries once Close returns.
type Subscription interface {
	Close()
}

// Subscriber is implemented by backends that push collection snapshots.
type Subscriber[T Keyed] interface {
	Subscribe(ctx context.Context, ownerID string, onSnapshot func([]T), onError func(error)) (Subscription, error)
}

// IdentitySource reports the signed-in identity and its switches.
type IdentitySource interface {
	Identity() *auth.Identity
	Watch(fn func(*auth.Identity)) (cancel func())
}

// expirer is implemented by identity sources that can end the session when a
// live backend reports it was revoked.
type expirer interface {
	ExpireSession()
}

type Hook[T Keyed] struct {
	name    string
	fetcher Fetcher[T]
	live    Subscriber[T]
	ids     IdentitySource
	logger  *zap.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	gen       uint64
	status    Status
	mirror    Mirror[T]
	lastErr   error
	sub       Subscription
	closed    bool
	nextID    int
	listeners map[int]func(Mirror[T])

	// notifyMu orders state changes with their listener calls. Listeners
	// must not call back into mutating methods.
	notifyMu sync.Mutex
	mutateMu sync.Mutex
	unwatch  func()
	wg       sync.WaitGroup
}

// NewHook binds a mirror to ids. Backends that also implement Subscriber are
// followed live; others are fetched on every identity switch and mutation.
func NewHook[T Keyed](name string, ids IdentitySource, fetcher Fetcher[T], logger *zap.Logger) *Hook[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hook[T]{
		name:      name,
		fetcher:   fetcher,
		ids:       ids,
		logger:    logger.With(zap.String("collection", name)),
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[int]func(Mirror[T])),
	}
	if live, ok := fetcher.(Subscriber[T]); ok {
		h.live = live
	}

	h.unwatch = ids.Watch(h.bind)
	h.bind(ids.Identity())
	return h
}

func (h *Hook[T]) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Err returns the failure of the last load, if any.
func (h *Hook[T]) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

func (h *Hook[T]) Snapshot() Mirror[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.copyMirror()
}

// Items returns a copy of the mirrored items.
func (h *Hook[T]) Items() []T {
	return h.Snapshot().Items
}

// OnChange calls fn with every new mirror until cancel is called.
func (h *Hook[T]) OnChange(fn func(Mirror[T])) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// Reload fetches the collection and waits for the result.
func (h *Hook[T]) Reload(ctx context.Context) error {
	owner, gen, err := h.bound()
	if err != nil {
		return err
	}
	h.setStatus(gen, Loading)

	items, err := h.fetcher.Fetch(ctx, owner)
	if err != nil {
		h.fail(gen, err)
		return err
	}
	h.apply(gen, items)
	return nil
}

// Close detaches the hook. No state change and no listener call happens after
// Close returns.
func (h *Hook[T]) Close() {
	h.notifyMu.Lock()
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.notifyMu.Unlock()
		return
	}
	h.closed = true
	h.gen++
	sub := h.sub
	h.sub = nil
	h.listeners = map[int]func(Mirror[T]){}
	h.mu.Unlock()
	h.notifyMu.Unlock()

	h.unwatch()
	h.cancel()
	if sub != nil {
		sub.Close()
	}
	h.wg.Wait()
}

// bind switches the mirror to id. The previous owner's items are gone before
// bind returns.
func (h *Hook[T]) bind(id *auth.Identity) {
	owner := ""
	if id != nil {
		owner = id.ID
	}

	h.notifyMu.Lock()
	h.mu.Lock()
	if h.closed || (owner == h.mirror.OwnerID && h.status != Unbound) || (owner == "" && h.status == Unbound) {
		h.mu.Unlock()
		h.notifyMu.Unlock()
		return
	}
	h.gen++
	gen := h.gen
	sub := h.sub
	h.sub = nil
	h.mirror = Mirror[T]{OwnerID: owner}
	h.lastErr = nil
	if owner == "" {
		h.status = Unbound
	} else {
		h.status = Loading
	}
	mirror, listeners := h.copyMirror(), h.copyListeners()
	h.mu.Unlock()

	notify(mirror, listeners)
	h.notifyMu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if owner == "" {
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.load(gen, owner)
	}()
}

func (h *Hook[T]) load(gen uint64, owner string) {
	var subErr error
	if h.live != nil {
		if subErr = h.subscribe(gen, owner); subErr == nil {
			return
		}
		h.logger.Warn("live subscription failed, fetching once", zap.Error(subErr))
	}

	items, err := h.fetcher.Fetch(h.ctx, owner)
	if err != nil {
		h.fail(gen, err)
	} else {
		h.apply(gen, items)
	}
	if subErr != nil && transient(subErr) {
		h.resubscribe(gen, owner)
	}
}

// subscribe follows owner live for generation gen. A subscription that
// arrives after gen was superseded is closed and reported as success.
func (h *Hook[T]) subscribe(gen uint64, owner string) error {
	sub, err := h.live.Subscribe(h.ctx, owner,
		func(items []T) { h.apply(gen, items) },
		func(err error) { h.dropped(gen, owner, err) },
	)
	if err != nil {
		return err
	}
	h.mu.Lock()
	if h.closed || gen != h.gen {
		h.mu.Unlock()
		sub.Close()
		return nil
	}
	h.sub = sub
	h.mu.Unlock()
	return nil
}

// dropped runs on the subscription's delivery goroutine when it ends. A
// transport failure is followed by a new subscription, which starts with a
// fresh snapshot.
func (h *Hook[T]) dropped(gen uint64, owner string, err error) {
	h.fail(gen, err)
	if !transient(err) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || gen != h.gen {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.resubscribe(gen, owner)
	}()
}

// resubscribe retries with exponential backoff until a subscription for gen
// is in place, gen is superseded, or the hook is closed.
func (h *Hook[T]) resubscribe(gen uint64, owner string) {
	delay := resubscribeBase
	for {
		timer := time.NewTimer(delay)
		select {
		case <-h.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		h.mu.Lock()
		if h.closed || gen != h.gen {
			h.mu.Unlock()
			return
		}
		old := h.sub
		h.sub = nil
		h.mu.Unlock()
		if old != nil {
			old.Close()
		}

		err := h.subscribe(gen, owner)
		if err == nil {
			h.logger.Debug("live subscription restored")
			return
		}
		h.fail(gen, err)
		if !transient(err) {
			return
		}
		delay = min(delay*2, resubscribeMax)
	}
}

func transient(err error) bool {
	switch xerrors.KindOf(err) {
	case xerrors.KindNetworkFailure, xerrors.KindTimeout:
		return true
	}
	return false
}

// mutate runs fn against the bound owner and applies the server's answer.
// fn returns the confirmed collection, or nil to request a re-fetch.
func (h *Hook[T]) mutate(ctx context.Context, fn func(ctx context.Context) ([]T, error)) error {
	owner, gen, err := h.bound()
	if err != nil {
		return err
	}

	h.mutateMu.Lock()
	defer h.mutateMu.Unlock()

	// The identity may have changed while this call waited its turn.
	if !h.current(gen) {
		return xerrors.New(xerrors.KindUnauthenticated, xerrors.CodeAuthFailed, "signed-in account changed, please retry")
	}

	h.setStatus(gen, Loading)
	items, err := fn(ctx)
	if err != nil {
		h.setStatus(gen, Ready)
		return err
	}
	if items == nil {
		if items, err = h.fetcher.Fetch(ctx, owner); err != nil {
			h.fail(gen, err)
			return err
		}
	}
	h.apply(gen, items)
	return nil
}

func (h *Hook[T]) bound() (string, uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || h.mirror.OwnerID == "" {
		return "", 0, xerrors.New(xerrors.KindUnauthenticated, xerrors.CodeAuthFailed, "please sign in to continue")
	}
	return h.mirror.OwnerID, h.gen, nil
}

func (h *Hook[T]) current(gen uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.closed && gen == h.gen
}

func (h *Hook[T]) apply(gen uint64, items []T) {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	if h.closed || gen != h.gen {
		h.mu.Unlock()
		return
	}
	h.mirror.Items = dedupe(items)
	h.mirror.LastSyncedAt = h.now()
	h.status = Ready
	h.lastErr = nil
	mirror, listeners := h.copyMirror(), h.copyListeners()
	h.mu.Unlock()

	notify(mirror, listeners)
}

func (h *Hook[T]) fail(gen uint64, err error) {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	if h.closed || gen != h.gen {
		h.mu.Unlock()
		return
	}
	h.lastErr = err
	h.status = Ready
	mirror, listeners := h.copyMirror(), h.copyListeners()
	h.mu.Unlock()

	h.logger.Debug("collection load failed", zap.Error(err))
	notify(mirror, listeners)

	if ex, ok := h.ids.(expirer); ok && errors.Is(err, xerrors.ErrSessionExpired) {
		// Off the delivering goroutine: ending the session rebinds this hook,
		// which closes the subscription that is reporting the error.
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			ex.ExpireSession()
		}()
	}
}

func (h *Hook[T]) setStatus(gen uint64, s Status) {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	if h.closed || gen != h.gen || h.status == s {
		h.mu.Unlock()
		return
	}
	h.status = s
	mirror, listeners := h.copyMirror(), h.copyListeners()
	h.mu.Unlock()

	notify(mirror, listeners)
}

func notify[T Keyed](m Mirror[T], listeners []func(Mirror[T])) {
	for _, fn := range listeners {
		fn(m)
	}
}

func (h *Hook[T]) copyMirror() Mirror[T] {
	m := h.mirror
	m.Items = append(make([]T, 0, len(h.mirror.Items)), h.mirror.Items...)
	return m
}

func (h *Hook[T]) copyListeners() []func(Mirror[T]) {
	out := make([]func(Mirror[T]), 0, len(h.listeners))
	for _, fn := range h.listeners {
		out = append(out, fn)
	}
	return out
}

// dedupe keeps the first item per key.
func dedupe[T Keyed](items []T) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := it.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}
