package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is the catalog row the ledger owns. Available is the only field
// mutated through the ledger, and only via Reserve/Release.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Available       int32           `json:"available"`
	MinBulkQty      int32           `json:"min_bulk_qty"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	SupplierID      string          `json:"supplier_id"`
	Active          bool            `json:"active"`
}

// Ledger owns per-product available quantity. Reserve and Release must be
// atomic per product under concurrent callers; Available never goes negative.
type Ledger interface {
	// Product resolves an active product. Missing and inactive products both
	// fail with a not-found kind, matching Reserve.
	Product(ctx context.Context, id string) (Product, error)
	// Reserve decrements availability by qty, failing without any change if
	// the product is missing/inactive or availability is below qty. It never
	// waits for stock to free up.
	Reserve(ctx context.Context, id string, qty int32) error
	// Release returns qty units. Callers release at most once per
	// reservation; the ledger does not deduplicate.
	Release(ctx context.Context, id string, qty int32) error
	// Upsert provisions or replaces a catalog row. Supplier-facing product
	// management beyond this lives outside the order core.
	Upsert(ctx context.Context, p Product) error
}
