// Package persist wraps guest-mode collection items in an ownership and
// retention envelope before they hit the durable store. A record that fails
// either check on load is discarded wholesale; callers only ever observe an
// empty collection, never an error.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-sync/internal/auth"
	"github.com/angelmondragon/storefront-sync/internal/storage"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
)

// Domain keys for the persisted guest records.
const (
	CartKey     = "storefront.cart.guest"
	WishlistKey = "storefront.wishlist.guest"
)

type record struct {
	Items   json.RawMessage `json:"items"`
	SavedAt int64           `json:"savedAtTimestamp"`
	OwnerID *string         `json:"ownerId"`
}

// Adapter persists one domain's guest item list.
type Adapter[T any] struct {
	kv        storage.KV
	key       string
	retention time.Duration
	sessions  auth.Sessions
	log       *logger.Logger
	now       func() time.Time
}

// NewAdapter builds a persistence adapter for the given domain key.
func NewAdapter[T any](kv storage.KV, key string, retention time.Duration, sessions auth.Sessions, log *logger.Logger) (*Adapter[T], error) {
	if kv == nil {
		return nil, fmt.Errorf("kv store is required")
	}
	if key == "" {
		return nil, fmt.Errorf("record key is required")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("retention window must be positive")
	}
	if sessions == nil {
		return nil, fmt.Errorf("sessions are required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Adapter[T]{
		kv:        kv,
		key:       key,
		retention: retention,
		sessions:  sessions,
		log:       log,
		now:       time.Now,
	}, nil
}

// Save writes the item list under the domain key, stamped with the save time
// and the current session identity. Write failures are logged, not surfaced:
// a broken local store must not break the in-memory collection.
func (a *Adapter[T]) Save(ctx context.Context, items []T) {
	encoded, err := json.Marshal(items)
	if err != nil {
		a.log.Error(ctx, "encoding guest record", err)
		return
	}

	rec := record{
		Items:   encoded,
		SavedAt: a.now().UnixMilli(),
		OwnerID: a.currentOwner(ctx),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		a.log.Error(ctx, "encoding guest record envelope", err)
		return
	}

	if err := a.kv.Set(ctx, a.key, payload); err != nil {
		a.log.Error(ctx, "writing guest record", err)
	}
}

// Load returns the stored items, or an empty slice when the record is absent,
// malformed, owned by someone else, or past the retention window. Invalid
// records are deleted as a side effect.
func (a *Adapter[T]) Load(ctx context.Context) []T {
	payload, err := a.kv.Get(ctx, a.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.log.Error(ctx, "reading guest record", err)
		}
		return nil
	}

	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		a.log.Warn(ctx, fmt.Sprintf("discarding malformed guest record %s: %v", a.key, err))
		a.Clear(ctx)
		return nil
	}

	if !a.ownedByCurrentSession(ctx, rec.OwnerID) {
		a.log.Warn(ctx, fmt.Sprintf("discarding guest record %s: ownership mismatch", a.key))
		a.Clear(ctx)
		return nil
	}

	age := a.now().Sub(time.UnixMilli(rec.SavedAt))
	if age > a.retention {
		a.log.Info(ctx, fmt.Sprintf("discarding guest record %s: expired (%s old)", a.key, age))
		a.Clear(ctx)
		return nil
	}

	var items []T
	if err := json.Unmarshal(rec.Items, &items); err != nil {
		a.log.Warn(ctx, fmt.Sprintf("discarding guest record %s: bad item payload: %v", a.key, err))
		a.Clear(ctx)
		return nil
	}
	return items
}

// Clear deletes the domain record.
func (a *Adapter[T]) Clear(ctx context.Context) {
	if err := a.kv.Delete(ctx, a.key); err != nil {
		a.log.Error(ctx, "deleting guest record", err)
	}
}

func (a *Adapter[T]) currentOwner(ctx context.Context) *string {
	identity, ok := a.sessions.Current(ctx)
	if !ok || identity.UserID == "" {
		return nil
	}
	owner := identity.UserID
	return &owner
}

func (a *Adapter[T]) ownedByCurrentSession(ctx context.Context, storedOwner *string) bool {
	current := a.currentOwner(ctx)
	if storedOwner == nil && current == nil {
		return true
	}
	if storedOwner == nil || current == nil {
		return false
	}
	return *storedOwner == *current
}
