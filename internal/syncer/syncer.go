// Package syncer reconciles guest state with the storefront across session
// transitions. On login the guest items are pushed to the server one add at a
// time, the guest records are dropped, and both stores are rebuilt from fresh
// server snapshots. On logout the stores fall back to their guest records.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-sync/internal/auth"
	"github.com/angelmondragon/storefront-sync/internal/cart"
	"github.com/angelmondragon/storefront-sync/internal/wishlist"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
	"github.com/angelmondragon/storefront-sync/pkg/metrics"
)

// Params collects the collaborators the coordinator needs. The remote and
// persistence handles must be the same instances the stores were built with.
type Params struct {
	Sessions *auth.TokenSessions

	Cart            *cart.Store
	CartRemote      cart.RemoteAPI
	CartPersistence cart.Persistence

	Wishlist            *wishlist.Store
	WishlistRemote      wishlist.RemoteAPI
	WishlistPersistence wishlist.Persistence

	Log     *logger.Logger
	Metrics *metrics.SyncMetrics
	Now     func() time.Time
}

// Coordinator owns the login/logout protocol for both stores.
type Coordinator struct {
	sessions auth.Sessions

	cart            *cart.Store
	cartRemote      cart.RemoteAPI
	cartPersistence cart.Persistence

	wishlist            *wishlist.Store
	wishlistRemote      wishlist.RemoteAPI
	wishlistPersistence wishlist.Persistence

	log     *logger.Logger
	metrics *metrics.SyncMetrics
	now     func() time.Time

	mu       sync.Mutex
	lastUser string
}

// New builds a coordinator and, when sessions are provided, registers it as
// the session transition listener.
func New(params Params) (*Coordinator, error) {
	switch {
	case params.Cart == nil || params.CartRemote == nil || params.CartPersistence == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "syncer requires the cart store with its remote and persistence")
	case params.Wishlist == nil || params.WishlistRemote == nil || params.WishlistPersistence == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "syncer requires the wishlist store with its remote and persistence")
	}
	if params.Log == nil {
		params.Log = logger.Discard()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	c := &Coordinator{
		cart:                params.Cart,
		cartRemote:          params.CartRemote,
		cartPersistence:     params.CartPersistence,
		wishlist:            params.Wishlist,
		wishlistRemote:      params.WishlistRemote,
		wishlistPersistence: params.WishlistPersistence,
		log:                 params.Log,
		metrics:             params.Metrics,
		now:                 params.Now,
	}
	if params.Sessions != nil {
		c.sessions = params.Sessions
		params.Sessions.SetListener(c.onSessionChange)
	}
	return c, nil
}

func (c *Coordinator) onSessionChange(ctx context.Context, authenticated bool) {
	if !authenticated {
		c.setLastUser("")
		c.Logout(ctx)
		return
	}

	user := ""
	if identity, ok := c.sessions.Current(ctx); ok {
		user = identity.UserID
	}
	previous := c.swapLastUser(user)

	// A token swap straight from one account to another must not treat the
	// first account's items as guest state: that would merge user A's cart
	// into user B's account. Only a guest session has anything to merge.
	if previous != "" && previous != user {
		c.SwitchAccount(ctx)
		return
	}
	c.Login(ctx)
}

func (c *Coordinator) setLastUser(user string) {
	c.mu.Lock()
	c.lastUser = user
	c.mu.Unlock()
}

func (c *Coordinator) swapLastUser(user string) string {
	c.mu.Lock()
	previous := c.lastUser
	c.lastUser = user
	c.mu.Unlock()
	return previous
}

// Login pushes the guest items to the server and rebuilds both stores from
// server snapshots. The guest records are dropped before the outcome of the
// pushes is known: an item whose add failed is gone from the guest side and
// only survives as part of the failure summary.
func (c *Coordinator) Login(ctx context.Context) {
	guestCart := c.cart.Items()
	guestWishlist := c.wishlist.Items()

	c.cart.SetAuthenticated(true)
	c.wishlist.SetAuthenticated(true)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.mergeCart(ctx, guestCart)
	}()
	go func() {
		defer wg.Done()
		c.mergeWishlist(ctx, guestWishlist)
	}()
	wg.Wait()
}

// Logout drops remote state and reloads the guest records, which are
// typically empty after a merge.
func (c *Coordinator) Logout(ctx context.Context) {
	c.cart.ResetToGuest(ctx)
	c.wishlist.ResetToGuest(ctx)
}

// SwitchAccount rebuilds both stores from the new account's server state.
// Nothing is pushed: the previous account's items belong to that account.
func (c *Coordinator) SwitchAccount(ctx context.Context) {
	c.cart.SetAuthenticated(true)
	c.wishlist.SetAuthenticated(true)
	c.cart.Refresh(ctx)
	c.wishlist.Refresh(ctx)
}

func (c *Coordinator) mergeCart(ctx context.Context, guest []cart.Item) {
	ctx = c.log.WithDomain(ctx, "cart")
	start := c.now()

	// One add per line: the server grants one unit per call, so a guest
	// quantity above one is flattened during the merge.
	var mu sync.Mutex
	var errs error
	var wg sync.WaitGroup
	for _, item := range guest {
		wg.Add(1)
		go func(item cart.Item) {
			defer wg.Done()
			if _, err := c.cartRemote.Add(ctx, item.Product.ID); err != nil {
				c.log.Error(c.log.WithProductID(ctx, item.Product.ID.String()), "cart merge add failed", err)
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}(item)
	}
	wg.Wait()

	c.cartPersistence.Clear(ctx)
	c.cart.Refresh(ctx)
	c.finishMerge(ctx, "cart", c.cart.SetLastError, len(guest), errs, start)
}

func (c *Coordinator) mergeWishlist(ctx context.Context, guest []wishlist.Item) {
	ctx = c.log.WithDomain(ctx, "wishlist")
	start := c.now()

	var mu sync.Mutex
	var errs error
	var wg sync.WaitGroup
	for _, item := range guest {
		wg.Add(1)
		go func(item wishlist.Item) {
			defer wg.Done()
			if _, err := c.wishlistRemote.Add(ctx, item.Product.ID); err != nil {
				c.log.Error(c.log.WithProductID(ctx, item.Product.ID.String()), "wishlist merge add failed", err)
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}(item)
	}
	wg.Wait()

	c.wishlistPersistence.Clear(ctx)
	c.wishlist.Refresh(ctx)
	c.finishMerge(ctx, "wishlist", c.wishlist.SetLastError, len(guest), errs, start)
}

// finishMerge records the outcome after the store has been rebuilt, so the
// failure summary survives the refresh.
func (c *Coordinator) finishMerge(ctx context.Context, domain string, setLastError func(string), total int, errs error, start time.Time) {
	failed := len(multierr.Errors(errs))
	if c.metrics != nil {
		c.metrics.ObserveMergeDuration(domain, c.now().Sub(start))
		c.metrics.IncMergeItems(domain, "ok", total-failed)
		c.metrics.IncMergeItems(domain, "error", failed)
	}
	if failed == 0 {
		c.log.Info(ctx, fmt.Sprintf("merged %d guest items", total))
		return
	}
	setLastError(fmt.Sprintf("%d of %d items failed to sync", failed, total))
}
