package cart

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-sync/internal/gateway"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/types"
)

// RemoteAPI is the gateway surface the cart store consumes.
type RemoteAPI interface {
	Fetch(ctx context.Context) (*gateway.CartSnapshot, error)
	Add(ctx context.Context, productID uuid.UUID) (*gateway.CartSnapshot, error)
	Update(ctx context.Context, productID uuid.UUID, quantity int) (*gateway.CartSnapshot, error)
	Remove(ctx context.Context, productID uuid.UUID) (*gateway.CartSnapshot, error)
	Clear(ctx context.Context) (*gateway.CartSnapshot, error)
}

// Persistence is the guest-record surface the cart store consumes.
type Persistence interface {
	Save(ctx context.Context, items []Item)
	Load(ctx context.Context) []Item
	Clear(ctx context.Context)
}

// opResult is what a strategy hands back to the store for committing.
type opResult struct {
	items        []Item
	collectionID *uuid.UUID
	changed      bool
}

// strategy is the guest/authenticated split behind every store operation.
// Strategies receive a private copy of the current items and return the next
// state; the store commits the result under its own lock.
type strategy interface {
	fetch(ctx context.Context) (opResult, error)
	add(ctx context.Context, current []Item, product types.Product, quantity int) (opResult, error)
	update(ctx context.Context, current []Item, productID uuid.UUID, quantity int) (opResult, error)
	remove(ctx context.Context, current []Item, productID uuid.UUID) (opResult, error)
	clear(ctx context.Context) (opResult, error)
}

// localStrategy mutates in memory and mirrors every change to the guest
// persistence record.
type localStrategy struct {
	persistence Persistence
	now         func() time.Time
}

func (l *localStrategy) fetch(ctx context.Context) (opResult, error) {
	return opResult{items: l.persistence.Load(ctx), changed: true}, nil
}

func (l *localStrategy) add(ctx context.Context, current []Item, product types.Product, quantity int) (opResult, error) {
	now := l.now()
	merged := false
	for i := range current {
		if current[i].Product.ID == product.ID {
			current[i].Quantity += quantity
			current[i].UpdatedAt = now
			current[i].recomputeTotal()
			merged = true
			break
		}
	}
	if !merged {
		current = append(current, newItem(product, quantity, product.Price, now))
	}
	l.persistence.Save(ctx, current)
	return opResult{items: current, changed: true}, nil
}

func (l *localStrategy) update(ctx context.Context, current []Item, productID uuid.UUID, quantity int) (opResult, error) {
	// Guest mode treats a non-positive quantity as removal. The remote path
	// deliberately does not share this rule.
	if quantity <= 0 {
		return l.remove(ctx, current, productID)
	}
	now := l.now()
	for i := range current {
		if current[i].Product.ID == productID {
			current[i].Quantity = quantity
			current[i].UpdatedAt = now
			current[i].recomputeTotal()
			l.persistence.Save(ctx, current)
			return opResult{items: current, changed: true}, nil
		}
	}
	return opResult{items: current, changed: false}, nil
}

func (l *localStrategy) remove(ctx context.Context, current []Item, productID uuid.UUID) (opResult, error) {
	kept := make([]Item, 0, len(current))
	for _, item := range current {
		if item.Product.ID != productID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(current) {
		// Removing an absent product is a no-op: no save, no notification.
		return opResult{items: current, changed: false}, nil
	}
	l.persistence.Save(ctx, kept)
	return opResult{items: kept, changed: true}, nil
}

func (l *localStrategy) clear(ctx context.Context) (opResult, error) {
	l.persistence.Clear(ctx)
	return opResult{items: nil, changed: true}, nil
}

// remoteStrategy forwards to the gateway and treats every response as a
// wholesale replacement of the collection.
type remoteStrategy struct {
	remote RemoteAPI
}

func (r *remoteStrategy) fetch(ctx context.Context) (opResult, error) {
	return r.replaceWith(r.remote.Fetch(ctx))
}

func (r *remoteStrategy) add(ctx context.Context, _ []Item, product types.Product, _ int) (opResult, error) {
	// The server adds exactly one unit per call regardless of the requested
	// quantity; the requested amount is not forwarded.
	return r.replaceWith(r.remote.Add(ctx, product.ID))
}

// update forwards to the server even for ids absent from the local
// collection; only remove short-circuits on absence. The server owns update
// semantics for lines the client has not seen yet.
func (r *remoteStrategy) update(ctx context.Context, _ []Item, productID uuid.UUID, quantity int) (opResult, error) {
	return r.replaceWith(r.remote.Update(ctx, productID, quantity))
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

func (r *remoteStrategy) replaceWith(snapshot *gateway.CartSnapshot, err error) (opResult, error) {
	if err != nil {
		return opResult{}, err
	}
	if snapshot == nil {
		return opResult{}, pkgerrors.New(pkgerrors.CodeDependency, "empty cart snapshot from storefront")
	}
	return opResult{items: itemsFromSnapshot(snapshot), collectionID: snapshot.CollectionID, changed: true}, nil
}
