package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
)

func TestProductValidate(t *testing.T) {
	valid := Product{ID: uuid.New(), Title: "Widget", AvailableQty: 3, Rating: 4.5}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missingID := Product{Title: "Widget"}
	if err := missingID.Validate(); err == nil {
		t.Fatal("expected error for missing id")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error code: %v", err)
	}

	missingTitle := Product{ID: uuid.New()}
	if err := missingTitle.Validate(); err == nil {
		t.Fatal("expected error for missing title")
	}

	badRating := Product{ID: uuid.New(), Title: "Widget", Rating: 9}
	if err := badRating.Validate(); err == nil {
		t.Fatal("expected error for rating out of range")
	}

	negativeStock := Product{ID: uuid.New(), Title: "Widget", AvailableQty: -1}
	if err := negativeStock.Validate(); err == nil {
		t.Fatal("expected error for negative stock")
	}

	negativePrice := Product{ID: uuid.New(), Title: "Widget", Price: decimal.NewFromInt(-1)}
	if err := negativePrice.Validate(); err == nil {
		t.Fatal("expected error for negative price")
	}
}
