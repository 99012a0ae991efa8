package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"storefront/internal/app/apptest"
	"storefront/internal/client/backend/rest"
	"storefront/internal/client/collection"
	"storefront/internal/client/remote"
	"storefront/internal/client/session"
	"storefront/internal/client/storage"
	"storefront/internal/config"
	"storefront/internal/domain/shop"
	wstypes "storefront/internal/domain/websocket"
	xerrors "storefront/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type shopper struct {
	vault  *storage.Vault
	client *remote.Client
	store  *session.Store
	feed   *Feed
}

func signedIn(t *testing.T, srv *apptest.Server, email string) *shopper {
	t.Helper()
	ctx := context.Background()

	vault := storage.NewVault(storage.NewMemoryStore(), nil)
	client := remote.New(remote.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, vault, nil)
	store := session.NewStore(client, vault, nil, nil)
	t.Cleanup(store.Close)

	_, err := store.Signup(ctx, session.SignupRequest{Email: email, Password: "secret-pass", FirstName: "Live"})
	require.NoError(t, err)
	require.NoError(t, store.VerifyOTP(ctx, apptest.DevCode))

	return &shopper{
		vault:  vault,
		client: client,
		store:  store,
		feed:   NewFeed(config.WebsocketURL(srv.URL), vault, nil),
	}
}

type recorder struct {
	mu     sync.Mutex
	frames []json.RawMessage
	errs   []error
}

func (r *recorder) onData(raw json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, raw)
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames), len(r.errs)
}

func (r *recorder) lastItems(t *testing.T) []shop.LineItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.frames)
	var items []shop.LineItem
	require.NoError(t, json.Unmarshal(r.frames[len(r.frames)-1], &items))
	return items
}

func TestFeedDeliversSnapshots(t *testing.T) {
	srv := apptest.Start(t)
	s := signedIn(t, srv, "feed@example.com")
	ctx := context.Background()
	owner := s.store.Identity().ID

	rec := &recorder{}
	sub, err := s.feed.Subscribe(ctx, owner, wstypes.ChannelCart, rec.onData, rec.onError)
	require.NoError(t, err)

	require.Eventually(t, func() bool { n, _ := rec.counts(); return n >= 1 }, 2*time.Second, 10*time.Millisecond,
		"subscribing sends the current cart")
	assert.Empty(t, rec.lastItems(t))

	_, err = rest.NewCartAPI(s.client).AddItem(ctx, shop.LineItem{ID: "tee", Price: 20, Quantity: 2})
	require.NoError(t, err)

	require.Eventually(t, func() bool { n, _ := rec.counts(); return n >= 2 }, 2*time.Second, 10*time.Millisecond)
	items := rec.lastItems(t)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)

	sub.Close()
	before, _ := rec.counts()

	_, err = rest.NewCartAPI(s.client).AddItem(ctx, shop.LineItem{ID: "cap", Price: 5})
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	after, errs := rec.counts()
	assert.Equal(t, before, after, "no delivery after Close")
	assert.Zero(t, errs)
}

func TestSubscribeRejectsOtherOwner(t *testing.T) {
	srv := apptest.Start(t)
	s := signedIn(t, srv, "owner@example.com")

	rec := &recorder{}
	_, err := s.feed.Subscribe(context.Background(), "someone-else", wstypes.ChannelCart, rec.onData, rec.onError)
	assert.Equal(t, xerrors.KindRejected, xerrors.KindOf(err))
}

type staticToken string

func (s staticToken) AccessToken(context.Context) string { return string(s) }

func TestSubscribeWithBadToken(t *testing.T) {
	srv := apptest.Start(t)
	feed := NewFeed(config.WebsocketURL(srv.URL), staticToken("not-a-jwt"), nil)

	_, err := feed.Subscribe(context.Background(), "", wstypes.ChannelCart, func(json.RawMessage) {}, func(error) {})
	assert.Equal(t, xerrors.KindUnauthenticated, xerrors.KindOf(err))

	_, err = NewFeed(config.WebsocketURL(srv.URL), staticToken(""), nil).
		Subscribe(context.Background(), "", wstypes.ChannelCart, func(json.RawMessage) {}, func(error) {})
	assert.ErrorIs(t, err, xerrors.ErrUnauthenticated)
}

func TestForceLogoutSurfacesSessionExpired(t *testing.T) {
	srv := apptest.Start(t)
	s := signedIn(t, srv, "forced@example.com")
	ctx := context.Background()

	rec := &recorder{}
	sub, err := s.feed.Subscribe(ctx, s.store.Identity().ID, wstypes.ChannelOrders, rec.onData, rec.onError)
	require.NoError(t, err)
	defer sub.Close()
	require.Eventually(t, func() bool { n, _ := rec.counts(); return n >= 1 }, 2*time.Second, 10*time.Millisecond)

	token := s.vault.AccessToken(ctx)
	require.NoError(t, s.client.Do(ctx, http.MethodPost, "/auth/logout", nil, nil, remote.WithToken(token)))

	require.Eventually(t, func() bool { _, n := rec.counts(); return n == 1 }, 2*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	err = rec.errs[0]
	rec.mu.Unlock()
	assert.Equal(t, xerrors.KindSessionExpired, xerrors.KindOf(err))
}

func TestLiveHookFollowsServer(t *testing.T) {
	srv := apptest.Start(t)
	s := signedIn(t, srv, "hook@example.com")
	ctx := context.Background()

	cart := collection.NewCart(s.store, NewCart(rest.NewCartAPI(s.client), s.feed), nil)
	defer cart.Close()
	require.Eventually(t, func() bool { return cart.Status() == collection.Ready }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, cart.Add(ctx, shop.LineItem{ID: "1", Price: 212, Quantity: 1}))
	require.NoError(t, cart.Add(ctx, shop.LineItem{ID: "2", Price: 145, Quantity: 2}))
	assert.Equal(t, 502.0, cart.Total())

	// A change made outside this hook arrives through the feed.
	_, err := rest.NewCartAPI(s.client).RemoveItem(ctx, "1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return !cart.Contains("1") }, 2*time.Second, 10*time.Millisecond)

	// The server ending the session ends it locally too.
	token := s.vault.AccessToken(ctx)
	require.NoError(t, s.client.Do(ctx, http.MethodPost, "/auth/logout", nil, nil, remote.WithToken(token)))

	require.Eventually(t, func() bool { return !s.store.IsAuthenticated() }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, s.store.Current().MustReauthenticate)
	assert.Equal(t, collection.Unbound, cart.Status())
	assert.Empty(t, cart.Items())
}

func TestSubscriptionLeaksNoGoroutines(t *testing.T) {
	srv := apptest.Start(t)
	s := signedIn(t, srv, "leak@example.com")
	owner := s.store.Identity().ID
	ignore := goleak.IgnoreCurrent()

	for i := 0; i < 3; i++ {
		rec := &recorder{}
		sub, err := s.feed.Subscribe(context.Background(), owner, wstypes.ChannelWishlist, rec.onData, rec.onError)
		require.NoError(t, err)
		require.Eventually(t, func() bool { n, _ := rec.counts(); return n >= 1 }, 2*time.Second, 10*time.Millisecond)
		sub.Close()
	}

	goleak.VerifyNone(t, ignore)
}

func TestLiveHookReconnectsAfterServerDrop(t *testing.T) {
	srv := apptest.Start(t)
	s := signedIn(t, srv, "dropped@example.com")
	ctx := context.Background()
	owner := s.store.Identity().ID

	cart := collection.NewCart(s.store, NewCart(rest.NewCartAPI(s.client), s.feed), nil)
	defer cart.Close()
	require.Eventually(t, func() bool { return srv.App.Hub.IsUserConnected(owner) }, 2*time.Second, 10*time.Millisecond)

	srv.App.Hub.DisconnectUser(owner, "server restarting")
	require.Eventually(t, func() bool { return xerrors.KindOf(cart.Err()) == xerrors.KindNetworkFailure }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, s.store.IsAuthenticated(), "a dropped feed is not a sign-out")

	require.Eventually(t, func() bool { return srv.App.Hub.IsUserConnected(owner) }, 3*time.Second, 20*time.Millisecond)

	// Changes made elsewhere reach the mirror through the new connection.
	_, err := rest.NewCartAPI(s.client).AddItem(ctx, shop.LineItem{ID: "late", Price: 7, Quantity: 1})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return cart.Contains("late") }, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, cart.Err())
}
