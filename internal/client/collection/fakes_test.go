package collection

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain/auth"
	"storefront/internal/domain/shop"
	xerrors "storefront/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
)

type fakeIdentity struct {
	mu       sync.Mutex
	current  *auth.Identity
	next     int
	watchers map[int]func(*auth.Identity)
	expired  chan struct{}
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{watchers: make(map[int]func(*auth.Identity)), expired: make(chan struct{}, 1)}
}

func (f *fakeIdentity) Identity() *auth.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeIdentity) Watch(fn func(*auth.Identity)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.watchers[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.watchers, id)
		f.mu.Unlock()
	}
}

func (f *fakeIdentity) ExpireSession() {
	f.set("")
	select {
	case f.expired <- struct{}{}:
	default:
	}
}

// set switches identity and notifies watchers synchronously, like the session store.
func (f *fakeIdentity) set(id string) {
	f.mu.Lock()
	if id == "" {
		f.current = nil
	} else {
		f.current = &auth.Identity{ID: id, Email: id + "@example.com"}
	}
	cur := f.current
	watchers := make([]func(*auth.Identity), 0, len(f.watchers))
	for _, w := range f.watchers {
		watchers = append(watchers, w)
	}
	f.mu.Unlock()

	for _, w := range watchers {
		w(cur)
	}
}

// fakeShop stores collections per owner. Mutations act on the owner reported
// by the identity source, as a bearer-authenticated API would.
type fakeShop struct {
	ids *fakeIdentity

	mu        sync.Mutex
	carts     map[string][]shop.LineItem
	wishlists map[string][]shop.LineItem
	orders    map[string][]shop.Order
	fetches   int
	gate      chan struct{}
	adds      int
	// addHeld, when set, parks the next AddItem after its owner was read
	// until addRelease is closed.
	addHeld    chan struct{}
	addRelease chan struct{}
	// returnNothing makes mutations report no collection, forcing a re-fetch.
	returnNothing bool
}

func newFakeShop(ids *fakeIdentity) *fakeShop {
	return &fakeShop{
		ids:       ids,
		carts:     make(map[string][]shop.LineItem),
		wishlists: make(map[string][]shop.LineItem),
		orders:    make(map[string][]shop.Order),
	}
}

func (s *fakeShop) owner() (string, error) {
	id := s.ids.Identity()
	if id == nil {
		return "", xerrors.New(xerrors.KindUnauthenticated, xerrors.CodeAuthFailed, "no token")
	}
	return id.ID, nil
}

func (s *fakeShop) wait(ctx context.Context) error {
	s.mu.Lock()
	gate := s.gate
	s.fetches++
	s.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *fakeShop) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func (s *fakeShop) setGate(g chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = g
}

// holdNextAdd parks the next AddItem and returns a channel closed once it is parked.
func (s *fakeShop) holdNextAdd(release chan struct{}) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	held := make(chan struct{})
	s.addHeld, s.addRelease = held, release
	return held
}

func (s *fakeShop) addCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adds
}

func clone[T any](in []T) []T { return append(make([]T, 0, len(in)), in...) }

type cartAPI struct{ *fakeShop }

func (c cartAPI) Fetch(ctx context.Context, owner string) ([]shop.LineItem, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.carts[owner]), nil
}

func (c cartAPI) result(owner string) []shop.LineItem {
	if c.returnNothing {
		return nil
	}
	return clone(c.carts[owner])
}

func (c cartAPI) AddItem(_ context.Context, item shop.LineItem) ([]shop.LineItem, error) {
	owner, err := c.owner()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.adds++
	held, release := c.addHeld, c.addRelease
	c.addHeld, c.addRelease = nil, nil
	c.mu.Unlock()
	if held != nil {
		close(held)
		<-release
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.carts[owner]
	for i := range items {
		if items[i].ID == item.ID {
			items[i].Quantity += item.Quantity
			return c.result(owner), nil
		}
	}
	item.AddedAt = time.Now()
	c.carts[owner] = append(items, item)
	return c.result(owner), nil
}

func (c cartAPI) SetQuantity(_ context.Context, id string, qty int) ([]shop.LineItem, error) {
	owner, err := c.owner()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.carts[owner] {
		if c.carts[owner][i].ID == id {
			c.carts[owner][i].Quantity = qty
			return c.result(owner), nil
		}
	}
	return nil, xerrors.New(xerrors.KindRejected, xerrors.CodeNotInCollection, "not in cart")
}

func (c cartAPI) RemoveItem(_ context.Context, id string) ([]shop.LineItem, error) {
	owner, err := c.owner()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.carts[owner][:0]
	for _, it := range c.carts[owner] {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	c.carts[owner] = kept
	return c.result(owner), nil
}

func (c cartAPI) Clear(_ context.Context) ([]shop.LineItem, error) {
	owner, err := c.owner()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carts[owner] = []shop.LineItem{}
	return c.result(owner), nil
}

type wishlistAPI struct{ *fakeShop }

func (w wishlistAPI) Fetch(ctx context.Context, owner string) ([]shop.LineItem, error) {
	if err := w.wait(ctx); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return clone(w.wishlists[owner]), nil
}

func (w wishlistAPI) AddItem(_ context.Context, item shop.LineItem) ([]shop.LineItem, error) {
	owner, err := w.owner()
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, it := range w.wishlists[owner] {
		if it.ID == item.ID {
			return clone(w.wishlists[owner]), nil
		}
	}
	w.wishlists[owner] = append(w.wishlists[owner], item)
	return clone(w.wishlists[owner]), nil
}

func (w wishlistAPI) RemoveItem(_ context.Context, id string) ([]shop.LineItem, error) {
	owner, err := w.owner()
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	var kept []shop.LineItem
	for _, it := range w.wishlists[owner] {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	w.wishlists[owner] = append([]shop.LineItem{}, kept...)
	return clone(w.wishlists[owner]), nil
}

type ordersAPI struct{ *fakeShop }

func (o ordersAPI) Fetch(ctx context.Context, owner string) ([]shop.Order, error) {
	if err := o.wait(ctx); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return clone(o.orders[owner]), nil
}

func (o ordersAPI) Create(_ context.Context, req shop.CreateOrderRequest) (*shop.Order, error) {
	owner, err := o.owner()
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	items := req.Items
	if len(items) == 0 {
		items = clone(o.carts[owner])
		o.carts[owner] = []shop.LineItem{}
	}
	if len(items) == 0 {
		return nil, xerrors.New(xerrors.KindValidationFailure, xerrors.CodeValidation, "nothing to order")
	}
	order := shop.Order{ID: ulid.Make().String(), OwnerID: owner, Items: items, Total: Total(items), Status: shop.OrderPending}
	o.orders[owner] = append(o.orders[owner], order)
	return &order, nil
}

func (o ordersAPI) UpdateStatus(_ context.Context, id string, status shop.OrderStatus) (*shop.Order, error) {
	owner, err := o.owner()
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, ord := range o.orders[owner] {
		if ord.ID != id {
			continue
		}
		if !ord.Status.CanTransition(status) {
			return nil, xerrors.New(xerrors.KindRejected, xerrors.CodeOrderTransition, "illegal transition")
		}
		o.orders[owner][i].Status = status
		updated := o.orders[owner][i]
		return &updated, nil
	}
	return nil, xerrors.New(xerrors.KindRejected, xerrors.CodeNotInCollection, "no such order")
}

// liveCart pushes snapshots through Subscribe instead of being fetched.
type liveCart struct {
	cartAPI

	mu   sync.Mutex
	subs []*fakeSub
}

type fakeSub struct {
	mu         sync.Mutex
	closed     bool
	owner      string
	onSnapshot func([]shop.LineItem)
	onError    func(error)
}

func (s *fakeSub) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSub) push(items []shop.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.onSnapshot(items)
	}
}

func (s *fakeSub) fail(err error) {
	s.mu.Lock()
	fn, closed := s.onError, s.closed
	s.mu.Unlock()
	if !closed {
		fn(err)
	}
}

func (l *liveCart) Subscribe(_ context.Context, owner string, onSnapshot func([]shop.LineItem), onError func(error)) (Subscription, error) {
	sub := &fakeSub{owner: owner, onSnapshot: onSnapshot, onError: onError}
	l.mu.Lock()
	l.subs = append(l.subs, sub)
	l.mu.Unlock()

	l.fakeShop.mu.Lock()
	initial := clone(l.carts[owner])
	l.fakeShop.mu.Unlock()
	sub.push(initial)
	return sub, nil
}

func (l *liveCart) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

func (s *fakeSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (l *liveCart) latest() *fakeSub {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.subs) == 0 {
		return nil
	}
	return l.subs[len(l.subs)-1]
}
