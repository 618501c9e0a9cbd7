package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceHistory records one price change for a pricebook item. Records are
// append-only; DateEffective is a calendar date and may trail or lead
// CreatedAt (future-scheduled prices are allowed).
type PriceHistory struct {
	ID              int                 `db:"id" json:"id"`
	PricebookItemID int                 `db:"pricebook_item_id" json:"pricebookItemId"`
	SupplierID      *int                `db:"supplier_id" json:"supplierId,omitempty"`
	OldPrice        decimal.NullDecimal `db:"old_price" json:"oldPrice"`
	NewPrice        decimal.Decimal     `db:"new_price" json:"newPrice"`
	DateEffective   *time.Time          `db:"date_effective" json:"dateEffective,omitempty"`
	LGA             *string             `db:"lga" json:"lga,omitempty"`
	ChangeReason    *string             `db:"change_reason" json:"changeReason,omitempty"`
	QuoteReference  *string             `db:"quote_reference" json:"quoteReference,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"createdAt"`

	// Joined supplier name for display rows.
	SupplierName *string `db:"supplier_name" json:"supplierName,omitempty"`
}
