package gateway

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-sync/pkg/types"
)

// CartSnapshot is the canonical cart state the storefront returns. Every
// successful cart mutation carries one.
type CartSnapshot struct {
	CollectionID *uuid.UUID  `json:"id"`
	Items        []CartEntry `json:"items"`
}

// CartEntry is one cart line as the server represents it.
type CartEntry struct {
	Product   types.Product   `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	AddedAt   time.Time       `json:"addedAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// WishlistSnapshot is the canonical wishlist state with full entities.
type WishlistSnapshot struct {
	CollectionID *uuid.UUID      `json:"id"`
	Items        []types.Product `json:"items"`
}

// wishlistIDList is what the wishlist mutation endpoints actually return:
// identifiers only, no entities. The adapter re-fetches before handing
// anything back.
type wishlistIDList struct {
	CollectionID *uuid.UUID  `json:"id"`
	ProductIDs   []uuid.UUID `json:"productIds"`
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"productId"`
}

// updateItemRequest carries the quantity in the wire encoding the cart
// endpoint requires: a string, not a number.
type updateItemRequest struct {
	Count string `json:"count"`
}
