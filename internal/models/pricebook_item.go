package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricebookItem is a catalog entry in the price book. CurrentPrice is the
// static fallback price; the authoritative price comes from the price history
// of the default supplier when one is set.
type PricebookItem struct {
	ID                 int                 `db:"id" json:"id"`
	ItemCode           string              `db:"item_code" json:"itemCode"`
	ItemName           string              `db:"item_name" json:"itemName"`
	Category           *string             `db:"category" json:"category,omitempty"`
	Brand              *string             `db:"brand" json:"brand,omitempty"`
	UnitOfMeasure      string              `db:"unit_of_measure" json:"unitOfMeasure"`
	CurrentPrice       decimal.NullDecimal `db:"current_price" json:"currentPrice"`
	DefaultSupplierID  *int                `db:"default_supplier_id" json:"defaultSupplierId,omitempty"`
	NeedsPricingReview bool                `db:"needs_pricing_review" json:"needsPricingReview"`
	Notes              *string             `db:"notes" json:"notes,omitempty"`
	IsActive           bool                `db:"is_active" json:"isActive"`
	PriceLastUpdatedAt *time.Time          `db:"price_last_updated_at" json:"priceLastUpdatedAt,omitempty"`
	CreatedAt          time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time           `db:"updated_at" json:"updatedAt"`

	// Joined fields, not columns of pricebook_items.
	DefaultSupplierName *string        `db:"default_supplier_name" json:"defaultSupplierName,omitempty"`
	PriceHistories      []PriceHistory `db:"-" json:"priceHistories,omitempty"`
}
