package storefrontsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-sync/internal/auth"
	"github.com/angelmondragon/storefront-sync/internal/gateway"
	"github.com/angelmondragon/storefront-sync/pkg/config"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
	"github.com/angelmondragon/storefront-sync/pkg/types"
)

const (
	testSecret = "engine-test-secret"
	testIssuer = "storefront"
)

// fakeStorefront is an in-memory account backing the remote API. The cart
// endpoints answer with full snapshots; the wishlist mutation endpoints
// answer with id lists only, exactly like the real service.
type fakeStorefront struct {
	mu       sync.Mutex
	catalog  map[uuid.UUID]types.Product
	cart     map[uuid.UUID]int
	wishlist map[uuid.UUID]bool

	server *httptest.Server
}

func newFakeStorefront(products ...types.Product) *fakeStorefront {
	f := &fakeStorefront{
		catalog:  make(map[uuid.UUID]types.Product),
		cart:     make(map[uuid.UUID]int),
		wishlist: make(map[uuid.UUID]bool),
	}
	for _, p := range products {
		f.catalog[p.ID] = p
	}

	r := chi.NewRouter()
	r.Get("/cart", f.handleCartSnapshot)
	r.Post("/cart", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ProductID uuid.UUID `json:"productId"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.cart[body.ProductID]++
		f.mu.Unlock()
		f.handleCartSnapshot(w, req)
	})
	r.Delete("/cart/{productID}", func(w http.ResponseWriter, req *http.Request) {
		id, err := uuid.Parse(chi.URLParam(req, "productID"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		delete(f.cart, id)
		f.mu.Unlock()
		f.handleCartSnapshot(w, req)
	})
	r.Get("/wishlist", f.handleWishlistSnapshot)
	r.Post("/wishlist", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ProductID uuid.UUID `json:"productId"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.wishlist[body.ProductID] = true
		ids := f.wishlistIDs()
		f.mu.Unlock()
		writeJSON(w, map[string]any{"productIds": ids})
	})

	f.server = httptest.NewServer(r)
	return f
}

func (f *fakeStorefront) wishlistIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(f.wishlist))
	for id := range f.wishlist {
		ids = append(ids, id)
	}
	return ids
}

func (f *fakeStorefront) handleCartSnapshot(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	items := make([]gateway.CartEntry, 0, len(f.cart))
	for id, qty := range f.cart {
		product := f.catalog[id]
		items = append(items, gateway.CartEntry{
			Product:   product,
			Quantity:  qty,
			UnitPrice: product.Price,
		})
	}
	f.mu.Unlock()
	writeJSON(w, gateway.CartSnapshot{Items: items})
}

func (f *fakeStorefront) handleWishlistSnapshot(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	items := make([]types.Product, 0, len(f.wishlist))
	for id := range f.wishlist {
		items = append(items, f.catalog[id])
	}
	f.mu.Unlock()
	writeJSON(w, gateway.WishlistSnapshot{Items: items})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Gateway: config.GatewayConfig{BaseURL: baseURL, Timeout: 2 * time.Second},
		Storage: config.StorageConfig{Driver: config.StorageDriverMemory},
		Retention: config.RetentionConfig{
			Cart:     24 * time.Hour,
			Wishlist: 720 * time.Hour,
		},
		JWT: config.JWTConfig{Secret: testSecret, Issuer: testIssuer},
	}
}

func signedToken(t *testing.T, userID string) string {
	t.Helper()
	claims := auth.AccessTokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestEngineGuestToLoginRoundTrip(t *testing.T) {
	p1 := types.Product{ID: uuid.New(), Title: "laptop stand", Price: decimal.NewFromInt(45), AvailableQty: 9, Rating: 4.1}
	p2 := types.Product{ID: uuid.New(), Title: "desk mat", Price: decimal.NewFromInt(20), AvailableQty: 4, Rating: 3.9}
	storefront := newFakeStorefront(p1, p2)
	defer storefront.server.Close()

	ctx := context.Background()
	engine, err := New(ctx, testConfig(storefront.server.URL), Options{Logger: logger.Discard()})
	require.NoError(t, err)
	defer func() { _ = engine.Close() }()

	engine.Start(ctx)
	require.True(t, engine.Cart.IsEmpty())

	// Guest session: everything stays local.
	engine.Cart.Add(ctx, p1, 2)
	engine.Cart.Add(ctx, p2, 1)
	engine.Wishlist.Add(ctx, p2)
	require.Equal(t, 3, engine.Cart.TotalItems())
	storefront.mu.Lock()
	assert.Empty(t, storefront.cart, "guest mutations must not reach the server")
	storefront.mu.Unlock()

	// Login merges the guest items into the account.
	engine.SetToken(ctx, signedToken(t, "user-7"))

	assert.Equal(t, 1, engine.Cart.QuantityOf(p1.ID), "server grants one unit per merged line")
	assert.Equal(t, 1, engine.Cart.QuantityOf(p2.ID))
	assert.True(t, engine.Wishlist.Contains(p2.ID))
	assert.Empty(t, engine.Cart.LastError())

	// Authenticated mutations hit the server and replace local state.
	engine.Cart.Add(ctx, p1, 1)
	assert.Equal(t, 2, engine.Cart.QuantityOf(p1.ID))

	// Logout falls back to the guest record, which the merge consumed.
	engine.ClearToken(ctx)
	assert.True(t, engine.Cart.IsEmpty())
	assert.True(t, engine.Wishlist.IsEmpty())
}

func TestEngineInvalidTokenStaysGuest(t *testing.T) {
	p1 := types.Product{ID: uuid.New(), Title: "monitor arm", Price: decimal.NewFromInt(90), AvailableQty: 2, Rating: 4.8}
	storefront := newFakeStorefront(p1)
	defer storefront.server.Close()

	ctx := context.Background()
	engine, err := New(ctx, testConfig(storefront.server.URL), Options{Logger: logger.Discard()})
	require.NoError(t, err)
	defer func() { _ = engine.Close() }()

	engine.Start(ctx)
	engine.Cart.Add(ctx, p1, 1)

	engine.SetToken(ctx, "not-a-jwt")

	assert.Equal(t, 1, engine.Cart.TotalItems(), "invalid token must not trigger a merge")
	storefront.mu.Lock()
	assert.Empty(t, storefront.cart)
	storefront.mu.Unlock()
}

func TestEngineRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil, Options{})
	require.Error(t, err)
}
