package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-sync/internal/gateway"
	"github.com/angelmondragon/storefront-sync/pkg/types"
)

// Item is one cart line. TotalPrice is derived from Quantity and UnitPrice on
// every mutation and is never trusted from storage or the wire.
type Item struct {
	Product    types.Product   `json:"product"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	AddedAt    time.Time       `json:"addedAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func newItem(product types.Product, quantity int, unitPrice decimal.Decimal, now time.Time) Item {
	item := Item{
		Product:   product,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		AddedAt:   now,
		UpdatedAt: now,
	}
	item.recomputeTotal()
	return item
}

func (i *Item) recomputeTotal() {
	i.TotalPrice = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// itemsFromSnapshot maps a canonical server snapshot into cart lines,
// recomputing totals locally.
func itemsFromSnapshot(snapshot *gateway.CartSnapshot) []Item {
	if snapshot == nil {
		return nil
	}
	items := make([]Item, 0, len(snapshot.Items))
	for _, entry := range snapshot.Items {
		item := Item{
			Product:   entry.Product,
			Quantity:  entry.Quantity,
			UnitPrice: entry.UnitPrice,
			AddedAt:   entry.AddedAt,
			UpdatedAt: entry.UpdatedAt,
		}
		item.recomputeTotal()
		items = append(items, item)
	}
	return items
}
