// Package storefrontsync is a client-side cart and wishlist synchronization
// engine for embedding in an e-commerce storefront process. Guest sessions
// keep their collections in a durable local store; authenticated sessions
// treat the remote storefront API as the source of truth. The engine merges
// the guest collections into the account on login and falls back to the
// local records on logout.
package storefrontsync

import (
	"context"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-sync/internal/auth"
	"github.com/angelmondragon/storefront-sync/internal/cart"
	"github.com/angelmondragon/storefront-sync/internal/gateway"
	"github.com/angelmondragon/storefront-sync/internal/persist"
	"github.com/angelmondragon/storefront-sync/internal/storage"
	"github.com/angelmondragon/storefront-sync/internal/syncer"
	"github.com/angelmondragon/storefront-sync/internal/wishlist"
	"github.com/angelmondragon/storefront-sync/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
	"github.com/angelmondragon/storefront-sync/pkg/metrics"
)

// Options tune engine construction beyond what configuration carries.
type Options struct {
	// Logger overrides the logger built from config. Optional.
	Logger *logger.Logger
	// Registerer receives the engine's metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	// GatewayOptions are applied to the storefront HTTP client.
	GatewayOptions []gateway.Option
	// Now overrides the clock, used by tests.
	Now func() time.Time
}

// Engine bundles the two stores, the session tracker, and the coordinator
// that keeps them reconciled.
type Engine struct {
	Cart     *cart.Store
	Wishlist *wishlist.Store
	Sessions *auth.TokenSessions

	coordinator *syncer.Coordinator
	kv          storage.KV
	log         *logger.Logger
}

// New wires the engine from configuration: storage driver, gateway client,
// session tracking, both stores, and the sync coordinator listening on
// session transitions.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "config is required")
	}

	log := opts.Logger
	if log == nil {
		log = logger.New(logger.Options{
			Level:     logger.ParseLevel(cfg.App.LogLevel),
			WarnStack: cfg.App.LogWarnStack,
		})
	}

	var syncMetrics *metrics.SyncMetrics
	if opts.Registerer != nil {
		syncMetrics = metrics.NewSyncMetrics(opts.Registerer)
	}

	sessions, err := auth.NewTokenSessions(cfg.JWT, log)
	if err != nil {
		return nil, err
	}

	kv, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := gateway.NewClientFromConfig(cfg.Gateway, sessions, opts.GatewayOptions...)
	if err != nil {
		return nil, err
	}
	cartGateway, err := gateway.NewCartGateway(client)
	if err != nil {
		return nil, err
	}
	wishlistGateway, err := gateway.NewWishlistGateway(client)
	if err != nil {
		return nil, err
	}

	cartPersist, err := persist.NewAdapter[cart.Item](kv, persist.CartKey, cfg.Retention.Cart, sessions, log)
	if err != nil {
		return nil, err
	}
	wishlistPersist, err := persist.NewAdapter[wishlist.Item](kv, persist.WishlistKey, cfg.Retention.Wishlist, sessions, log)
	if err != nil {
		return nil, err
	}

	cartStore, err := cart.NewStore(cart.StoreParams{
		Remote:      cartGateway,
		Persistence: cartPersist,
		Log:         log,
		Metrics:     syncMetrics,
		Now:         opts.Now,
	})
	if err != nil {
		return nil, err
	}
	wishlistStore, err := wishlist.NewStore(wishlist.StoreParams{
		Remote:      wishlistGateway,
		Persistence: wishlistPersist,
		Log:         log,
		Metrics:     syncMetrics,
		Now:         opts.Now,
	})
	if err != nil {
		return nil, err
	}

	coordinator, err := syncer.New(syncer.Params{
		Sessions:            sessions,
		Cart:                cartStore,
		CartRemote:          cartGateway,
		CartPersistence:     cartPersist,
		Wishlist:            wishlistStore,
		WishlistRemote:      wishlistGateway,
		WishlistPersistence: wishlistPersist,
		Log:                 log,
		Metrics:             syncMetrics,
		Now:                 opts.Now,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		Cart:        cartStore,
		Wishlist:    wishlistStore,
		Sessions:    sessions,
		coordinator: coordinator,
		kv:          kv,
		log:         log,
	}, nil
}

// Start performs the initial load of both stores. SetToken beforehand to
// start in authenticated mode.
func (e *Engine) Start(ctx context.Context) {
	e.Cart.Initialize(ctx)
	e.Wishlist.Initialize(ctx)
}

// SetToken hands the engine the session's access token. A valid token flips
// both stores to authenticated mode and triggers the merge; an invalid one
// keeps the session in guest mode.
func (e *Engine) SetToken(ctx context.Context, token string) {
	e.Sessions.SetToken(ctx, token)
}

// ClearToken drops back to guest mode.
func (e *Engine) ClearToken(ctx context.Context) {
	e.Sessions.ClearToken(ctx)
}

// Close releases the storage driver when it holds external resources.
func (e *Engine) Close() error {
	if closer, ok := e.kv.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
