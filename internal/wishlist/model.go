package wishlist

import (
	"time"

	"github.com/angelmondragon/storefront-sync/internal/gateway"
	"github.com/angelmondragon/storefront-sync/pkg/types"
)

// Item is one saved product. Wishlists carry no quantities or prices, just
// the product snapshot and when it was saved.
type Item struct {
	Product types.Product `json:"product"`
	AddedAt time.Time     `json:"addedAt"`
}

func itemsFromSnapshot(snapshot *gateway.WishlistSnapshot, now time.Time) []Item {
	if snapshot == nil {
		return nil
	}
	items := make([]Item, 0, len(snapshot.Items))
	for _, product := range snapshot.Items {
		items = append(items, Item{Product: product, AddedAt: now})
	}
	return items
}
