package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
)

var validate = validator.New()

// Product is the opaque catalog snapshot captured when an item enters a
// collection. It is never refreshed from the catalog afterwards; the price
// here is what a cart line freezes as its unit price at add time.
type Product struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title" validate:"required"`
	Image        string          `json:"image"`
	Price        decimal.Decimal `json:"price"`
	AvailableQty int             `json:"availableQty" validate:"gte=0"`
	Rating       float64         `json:"rating" validate:"gte=0,lte=5"`
}

// Validate checks the snapshot is usable as collection input.
func (p Product) Validate() error {
	if p.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if p.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "product price cannot be negative")
	}
	if err := validate.Struct(p); err != nil {
		if _, ok := err.(validator.ValidationErrors); ok {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product snapshot")
		}
		return err
	}
	return nil
}
