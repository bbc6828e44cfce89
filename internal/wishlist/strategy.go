package wishlist

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-sync/internal/gateway"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/types"
)

// RemoteAPI is the gateway surface the wishlist store consumes. Every call
// resolves to a full snapshot: the gateway re-fetches after mutations because
// the storefront's wishlist endpoints answer with bare id lists.
type RemoteAPI interface {
	Fetch(ctx context.Context) (*gateway.WishlistSnapshot, error)
	Add(ctx context.Context, productID uuid.UUID) (*gateway.WishlistSnapshot, error)
	Remove(ctx context.Context, productID uuid.UUID) (*gateway.WishlistSnapshot, error)
	Clear(ctx context.Context) (*gateway.WishlistSnapshot, error)
}

// Persistence is the guest-record surface the wishlist store consumes.
type Persistence interface {
	Save(ctx context.Context, items []Item)
	Load(ctx context.Context) []Item
	Clear(ctx context.Context)
}

type opResult struct {
	items        []Item
	collectionID *uuid.UUID
	changed      bool
}

type strategy interface {
	fetch(ctx context.Context) (opResult, error)
	add(ctx context.Context, current []Item, product types.Product) (opResult, error)
	remove(ctx context.Context, current []Item, productID uuid.UUID) (opResult, error)
	clear(ctx context.Context) (opResult, error)
}

type localStrategy struct {
	persistence Persistence
	now         func() time.Time
}

func (l *localStrategy) fetch(ctx context.Context) (opResult, error) {
	return opResult{items: l.persistence.Load(ctx), changed: true}, nil
}

func (l *localStrategy) add(ctx context.Context, current []Item, product types.Product) (opResult, error) {
	for _, item := range current {
		if item.Product.ID == product.ID {
			// Already saved: no save, no notification.
			return opResult{items: current, changed: false}, nil
		}
	}
	current = append(current, Item{Product: product, AddedAt: l.now()})
	l.persistence.Save(ctx, current)
	return opResult{items: current, changed: true}, nil
}

func (l *localStrategy) remove(ctx context.Context, current []Item, productID uuid.UUID) (opResult, error) {
	kept := make([]Item, 0, len(current))
	for _, item := range current {
		if item.Product.ID != productID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(current) {
		return opResult{items: current, changed: false}, nil
	}
	l.persistence.Save(ctx, kept)
	return opResult{items: kept, changed: true}, nil
}

func (l *localStrategy) clear(ctx context.Context) (opResult, error) {
	l.persistence.Clear(ctx)
	return opResult{items: nil, changed: true}, nil
}

type remoteStrategy struct {
	remote RemoteAPI
	now    func() time.Time
}

func (r *remoteStrategy) fetch(ctx context.Context) (opResult, error) {
	return r.replaceWith(r.remote.Fetch(ctx))
}

func (r *remoteStrategy) add(ctx context.Context, _ []Item, product types.Product) (opResult, error) {
	return r.replaceWith(r.remote.Add(ctx, product.ID))
}

func (r *remoteStrategy) remove(ctx context.Context, current []Item, productID uuid.UUID) (opResult, error) {
	found := false
	for _, item := range current {
		if item.Product.ID == productID {
			found = true
			break
		}
	}
	if !found {
		return opResult{items: current, changed: false}, nil
	}
	return r.replaceWith(r.remote.Remove(ctx, productID))
}

func (r *remoteStrategy) clear(ctx context.Context) (opResult, error) {
	return r.replaceWith(r.remote.Clear(ctx))
}

func (r *remoteStrategy) replaceWith(snapshot *gateway.WishlistSnapshot, err error) (opResult, error) {
	if err != nil {
		return opResult{}, err
	}
	if snapshot == nil {
		return opResult{}, pkgerrors.New(pkgerrors.CodeDependency, "empty wishlist snapshot from storefront")
	}
	return opResult{items: itemsFromSnapshot(snapshot, r.now()), collectionID: snapshot.CollectionID, changed: true}, nil
}
