package wishlist

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-sync/internal/gateway"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
	"github.com/angelmondragon/storefront-sync/pkg/metrics"
	"github.com/angelmondragon/storefront-sync/pkg/types"
)

const domain = "wishlist"

// Subscriber is invoked after every committed state change.
type Subscriber func()

// StoreParams collects the collaborators a wishlist store needs.
type StoreParams struct {
	Remote      RemoteAPI
	Persistence Persistence
	Log         *logger.Logger
	Metrics     *metrics.SyncMetrics
	Now         func() time.Time
}

// Store holds the wishlist state. It mirrors the cart store's shape: no
// error returns on mutations, failures land in LastError, commits are
// announced through subscribers.
type Store struct {
	mu sync.RWMutex

	items         []Item
	collectionID  *uuid.UUID
	authenticated bool
	pending       map[uuid.UUID]int
	loading       bool
	lastErr       string
	updatedAt     time.Time

	initOnce    sync.Once
	subscribers []Subscriber

	local  *localStrategy
	remote *remoteStrategy

	log     *logger.Logger
	metrics *metrics.SyncMetrics
	now     func() time.Time
}

func NewStore(params StoreParams) (*Store, error) {
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist store requires a remote api")
	}
	if params.Persistence == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist store requires persistence")
	}
	if params.Log == nil {
		params.Log = logger.Discard()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Store{
		pending: make(map[uuid.UUID]int),
		local:   &localStrategy{persistence: params.Persistence, now: params.Now},
		remote:  &remoteStrategy{remote: params.Remote, now: params.Now},
		log:     params.Log,
		metrics: params.Metrics,
		now:     params.Now,
	}, nil
}

func (s *Store) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Initialize loads the initial state exactly once.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		s.setLoading(true)
		defer s.setLoading(false)
		s.run(ctx, "initialize", func(st strategy) (opResult, error) {
			return st.fetch(ctx)
		})
	})
}

// Add saves a product. Adding a product that is already saved is a no-op in
// guest mode; the server enforces the same rule in authenticated mode.
func (s *Store) Add(ctx context.Context, product types.Product) {
	ctx = s.log.WithProductID(s.log.WithDomain(ctx, domain), product.ID.String())
	if err := product.Validate(); err != nil {
		s.fail(ctx, "add", err)
		return
	}
	s.beginPending(product.ID)
	defer s.endPending(product.ID)
	s.run(ctx, "add", func(st strategy) (opResult, error) {
		return st.add(ctx, s.itemsCopy(), product)
	})
}

// Remove unsaves a product; absent ids are silent no-ops.
func (s *Store) Remove(ctx context.Context, productID uuid.UUID) {
	ctx = s.log.WithProductID(s.log.WithDomain(ctx, domain), productID.String())
	s.beginPending(productID)
	defer s.endPending(productID)
	s.run(ctx, "remove", func(st strategy) (opResult, error) {
		return st.remove(ctx, s.itemsCopy(), productID)
	})
}

// Toggle adds the product when absent and removes it when present.
func (s *Store) Toggle(ctx context.Context, product types.Product) {
	if s.Contains(product.ID) {
		s.Remove(ctx, product.ID)
		return
	}
	s.Add(ctx, product)
}

// Clear empties the wishlist.
func (s *Store) Clear(ctx context.Context) {
	ctx = s.log.WithDomain(ctx, domain)
	s.run(ctx, "clear", func(st strategy) (opResult, error) {
		return st.clear(ctx)
	})
}

// Refresh refetches the current source of truth.
func (s *Store) Refresh(ctx context.Context) {
	ctx = s.log.WithDomain(ctx, domain)
	s.setLoading(true)
	defer s.setLoading(false)
	s.run(ctx, "refresh", func(st strategy) (opResult, error) {
		return st.fetch(ctx)
	})
}

func (s *Store) run(ctx context.Context, op string, fn func(strategy) (opResult, error)) {
	result, err := fn(s.activeStrategy())
	if err != nil {
		s.fail(ctx, op, err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncOperation(domain, op, "ok")
	}
	if !result.changed {
		return
	}
	s.commit(result)
}

func (s *Store) fail(ctx context.Context, op string, err error) {
	s.log.Error(ctx, "wishlist "+op+" failed", err)
	if s.metrics != nil {
		s.metrics.IncOperation(domain, op, "error")
	}
	s.mu.Lock()
	s.lastErr = pkgerrors.UserMessage(err)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) commit(result opResult) {
	s.mu.Lock()
	s.items = result.items
	if result.collectionID != nil {
		s.collectionID = result.collectionID
	}
	s.lastErr = ""
	s.updatedAt = s.now()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := make([]Subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}

func (s *Store) activeStrategy() strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.authenticated {
		return s.remote
	}
	return s.local
}

func (s *Store) itemsCopy() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]Item, len(s.items))
	copy(items, s.items)
	return items
}

func (s *Store) beginPending(productID uuid.UUID) {
	s.mu.Lock()
	s.pending[productID]++
	s.mu.Unlock()
	s.notify()
}

func (s *Store) endPending(productID uuid.UUID) {
	s.mu.Lock()
	s.pending[productID]--
	if s.pending[productID] <= 0 {
		delete(s.pending, productID)
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.notify()
}

// Items returns a copy of the saved products.
func (s *Store) Items() []Item {
	return s.itemsCopy()
}

// TotalItems is the number of saved products.
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) IsEmpty() bool {
	return s.TotalItems() == 0
}

func (s *Store) Contains(productID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.Product.ID == productID {
			return true
		}
	}
	return false
}

func (s *Store) IsPending(productID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[productID] > 0
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) CollectionID() *uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectionID
}

func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// SetAuthenticated flips the active strategy.
func (s *Store) SetAuthenticated(v bool) {
	s.mu.Lock()
	s.authenticated = v
	s.mu.Unlock()
}

// ReplaceRemote installs a server snapshot wholesale, used by the sync
// coordinator after a merge.
func (s *Store) ReplaceRemote(snapshot *gateway.WishlistSnapshot) {
	if snapshot == nil {
		return
	}
	s.commit(opResult{
		items:        itemsFromSnapshot(snapshot, s.now()),
		collectionID: snapshot.CollectionID,
		changed:      true,
	})
}

// ResetToGuest drops remote state and reloads the guest record.
func (s *Store) ResetToGuest(ctx context.Context) {
	s.mu.Lock()
	s.authenticated = false
	s.collectionID = nil
	s.mu.Unlock()
	s.Refresh(ctx)
}

// SetLastError lets the sync coordinator surface merge failures.
func (s *Store) SetLastError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
	s.notify()
}
