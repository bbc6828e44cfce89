package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// WishlistGateway translates wishlist operations into storefront API calls.
// The wishlist mutation endpoints return identifier lists only, so every
// successful mutation is followed by a fetch to rehydrate full entities
// before the result crosses back to the store.
type WishlistGateway struct {
	client *Client
}

// NewWishlistGateway wraps an established gateway client.
func NewWishlistGateway(client *Client) (*WishlistGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("gateway client is required")
	}
	return &WishlistGateway{client: client}, nil
}

// Fetch returns the authenticated user's wishlist with full entities.
func (g *WishlistGateway) Fetch(ctx context.Context) (*WishlistSnapshot, error) {
	var snapshot WishlistSnapshot
	if err := g.client.do(ctx, http.MethodGet, "/wishlist", nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Add puts the product on the wishlist, then re-fetches for entity data.
func (g *WishlistGateway) Add(ctx context.Context, productID uuid.UUID) (*WishlistSnapshot, error) {
	var ids wishlistIDList
	if err := g.client.do(ctx, http.MethodPost, "/wishlist", addItemRequest{ProductID: productID}, &ids); err != nil {
		return nil, err
	}
	return g.Fetch(ctx)
}

// Remove drops the product from the wishlist, then re-fetches.
func (g *WishlistGateway) Remove(ctx context.Context, productID uuid.UUID) (*WishlistSnapshot, error) {
	var ids wishlistIDList
	if err := g.client.do(ctx, http.MethodDelete, "/wishlist/"+productID.String(), nil, &ids); err != nil {
		return nil, err
	}
	return g.Fetch(ctx)
}

// Clear empties the wishlist. The protocol has no bulk delete for wishlists,
// so the adapter removes entries one by one and fetches once at the end.
func (g *WishlistGateway) Clear(ctx context.Context) (*WishlistSnapshot, error) {
	current, err := g.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, product := range current.Items {
		var ids wishlistIDList
		if err := g.client.do(ctx, http.MethodDelete, "/wishlist/"+product.ID.String(), nil, &ids); err != nil {
			return nil, err
		}
	}
	return g.Fetch(ctx)
}
