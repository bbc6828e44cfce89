package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// CartGateway translates cart domain operations into storefront API calls.
// Cart mutation endpoints return the full canonical snapshot directly, so no
// follow-up read is needed.
type CartGateway struct {
	client *Client
}

// NewCartGateway wraps an established gateway client.
func NewCartGateway(client *Client) (*CartGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("gateway client is required")
	}
	return &CartGateway{client: client}, nil
}

// Fetch returns the authenticated user's cart.
func (g *CartGateway) Fetch(ctx context.Context) (*CartSnapshot, error) {
	var snapshot CartSnapshot
	if err := g.client.do(ctx, http.MethodGet, "/cart", nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Add puts one unit of the product into the cart. The server always
// increments by exactly one regardless of any requested quantity; that is a
// protocol constraint, so the signature does not take a quantity at all.
func (g *CartGateway) Add(ctx context.Context, productID uuid.UUID) (*CartSnapshot, error) {
	var snapshot CartSnapshot
	if err := g.client.do(ctx, http.MethodPost, "/cart", addItemRequest{ProductID: productID}, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Update sets the line quantity. The endpoint wants the quantity
// string-encoded; removal semantics for zero or negative values are the
// server's call, not ours.
func (g *CartGateway) Update(ctx context.Context, productID uuid.UUID, quantity int) (*CartSnapshot, error) {
	var snapshot CartSnapshot
	body := updateItemRequest{Count: strconv.Itoa(quantity)}
	if err := g.client.do(ctx, http.MethodPut, "/cart/"+productID.String(), body, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Remove deletes the line for the product.
func (g *CartGateway) Remove(ctx context.Context, productID uuid.UUID) (*CartSnapshot, error) {
	var snapshot CartSnapshot
	if err := g.client.do(ctx, http.MethodDelete, "/cart/"+productID.String(), nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Clear empties the server-side cart.
func (g *CartGateway) Clear(ctx context.Context) (*CartSnapshot, error) {
	var snapshot CartSnapshot
	if err := g.client.do(ctx, http.MethodDelete, "/cart", nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
