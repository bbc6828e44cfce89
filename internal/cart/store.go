package cart

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-sync/internal/gateway"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
	"github.com/angelmondragon/storefront-sync/pkg/metrics"
	"github.com/angelmondragon/storefront-sync/pkg/types"
)

const domain = "cart"

// Subscriber is invoked after every committed state change. Callbacks run on
// the mutating goroutine and may read the store but must not mutate it.
type Subscriber func()

// StoreParams collects the collaborators a cart store needs.
type StoreParams struct {
	Remote      RemoteAPI
	Persistence Persistence
	Log         *logger.Logger
	Metrics     *metrics.SyncMetrics
	Now         func() time.Time
}

// Store holds the cart state and serializes commits to it. Mutations never
// return errors: failures are absorbed into LastError and surfaced through
// the subscriber callback, matching what a storefront UI can actually show.
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

// NewStore builds a cart store in guest mode. Initialize must be called
// before the first operation.
func NewStore(params StoreParams) (*Store, error) {
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart store requires a remote api")
	}
	if params.Persistence == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart store requires persistence")
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
		remote:  &remoteStrategy{remote: params.Remote},
		log:     params.Log,
		metrics: params.Metrics,
		now:     params.Now,
	}, nil
}

// Subscribe registers a callback fired after each committed change.
func (s *Store) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Initialize loads the initial state exactly once: the guest record in guest
// mode, the server snapshot when authenticated. Later calls are no-ops.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		s.setLoading(true)
		defer s.setLoading(false)
		s.run(ctx, "initialize", func(st strategy) (opResult, error) {
			return st.fetch(ctx)
		})
	})
}

// Add merges quantity units of product into the cart. In authenticated mode
// the server decides the resulting quantity and adds exactly one unit.
func (s *Store) Add(ctx context.Context, product types.Product, quantity int) {
	ctx = s.log.WithProductID(s.log.WithDomain(ctx, domain), product.ID.String())
	if err := product.Validate(); err != nil {
		s.fail(ctx, "add", err)
		return
	}
	if quantity <= 0 {
		s.fail(ctx, "add", pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive"))
		return
	}
	s.beginPending(product.ID)
	defer s.endPending(product.ID)
	s.run(ctx, "add", func(st strategy) (opResult, error) {
		return st.add(ctx, s.itemsCopy(), product, quantity)
	})
}

// Update sets the quantity of an existing line. Guest mode treats a
// non-positive quantity as removal; authenticated mode forwards it as-is.
func (s *Store) Update(ctx context.Context, productID uuid.UUID, quantity int) {
	ctx = s.log.WithProductID(s.log.WithDomain(ctx, domain), productID.String())
	s.beginPending(productID)
	defer s.endPending(productID)
	s.run(ctx, "update", func(st strategy) (opResult, error) {
		return st.update(ctx, s.itemsCopy(), productID, quantity)
	})
}

// Remove deletes a line. Removing an absent product is a silent no-op in
// both modes and never reaches the network.
func (s *Store) Remove(ctx context.Context, productID uuid.UUID) {
	ctx = s.log.WithProductID(s.log.WithDomain(ctx, domain), productID.String())
	s.beginPending(productID)
	defer s.endPending(productID)
	s.run(ctx, "remove", func(st strategy) (opResult, error) {
		return st.remove(ctx, s.itemsCopy(), productID)
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	ctx = s.log.WithDomain(ctx, domain)
	s.run(ctx, "clear", func(st strategy) (opResult, error) {
		return st.clear(ctx)
	})
}

// Refresh refetches the current source of truth without touching initOnce.
func (s *Store) Refresh(ctx context.Context) {
	ctx = s.log.WithDomain(ctx, domain)
	s.setLoading(true)
	defer s.setLoading(false)
	s.run(ctx, "refresh", func(st strategy) (opResult, error) {
		return st.fetch(ctx)
	})
}

// run snapshots the active strategy, executes outside the lock, and commits
// the result. Two concurrent operations on the same product race on the
// commit and the later writer wins.
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
	s.log.Error(ctx, "cart "+op+" failed", err)
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

// Pending markers are counted so overlapping operations on the same product
// do not clear each other's marker early.
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

// Items returns a copy of the current lines.
func (s *Store) Items() []Item {
	return s.itemsCopy()
}

// TotalItems is the sum of line quantities.
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice is the sum of line totals.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.TotalPrice)
	}
	return total
}

func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items) == 0
}

// BadgeCount renders the unit count for a cart badge, capped at "99+".
func (s *Store) BadgeCount() string {
	total := s.TotalItems()
	if total > 99 {
		return "99+"
	}
	if total == 0 {
		return ""
	}
	return strconv.Itoa(total)
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

// QuantityOf reports the quantity of a line, zero when absent.
func (s *Store) QuantityOf(productID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.Product.ID == productID {
			return item.Quantity
		}
	}
	return 0
}

// IsPending reports whether an operation on the product is in flight.
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

// LastError is the user-facing message of the most recent failure, cleared
// by the next successful commit.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// CollectionID is the server-side cart id, nil in guest mode.
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

// SetAuthenticated flips the active strategy. The sync coordinator owns the
// transition protocol; the store just switches dispatch.
func (s *Store) SetAuthenticated(v bool) {
	s.mu.Lock()
	s.authenticated = v
	s.mu.Unlock()
}

// ReplaceRemote installs a server snapshot wholesale, used by the sync
// coordinator after a merge.
func (s *Store) ReplaceRemote(snapshot *gateway.CartSnapshot) {
	if snapshot == nil {
		return
	}
	s.commit(opResult{
		items:        itemsFromSnapshot(snapshot),
		collectionID: snapshot.CollectionID,
		changed:      true,
	})
}

// ResetToGuest drops remote state and reloads the guest record, used on
// logout.
func (s *Store) ResetToGuest(ctx context.Context) {
	s.mu.Lock()
	s.authenticated = false
	s.collectionID = nil
	s.mu.Unlock()
	s.Refresh(ctx)
}

// SetLastError lets the sync coordinator surface merge failures through the
// same channel as operation failures.
func (s *Store) SetLastError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
	s.notify()
}
