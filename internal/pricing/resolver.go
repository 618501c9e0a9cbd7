package pricing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradeworks/backoffice_api/internal/models"
)

// Package pricing computes the effective price view over a pricebook item's
// history. The same three entry points back the item detail endpoint, the
// supplier price listing, and the set-default-supplier flow, so the
// date-filtering rules live in exactly one place.

// Day truncates t to midnight UTC. Effective dates are calendar dates and
// compare at day granularity; callers pass any clock reading and get
// consistent results.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// effectiveKey returns the ordering key for a record: the effective date when
// present, otherwise the creation timestamp. Records carrying neither get the
// zero time and compare as oldest.
func effectiveKey(h *models.PriceHistory) time.Time {
	if h.DateEffective != nil {
		return Day(*h.DateEffective)
	}
	return h.CreatedAt
}

// eligible reports whether a record may be "currently active" as of today:
// no effective date, or an effective date that has arrived.
func eligible(h *models.PriceHistory, today time.Time) bool {
	if h.DateEffective == nil {
		return true
	}
	return !Day(*h.DateEffective).After(today)
}

// ResolveActiveRecord returns the currently active price record for the given
// supplier: the eligible record with the latest effective key. Future-dated
// records are never returned. A nil supplierID or no eligible record yields
// nil. The input slice is not reordered.
func ResolveActiveRecord(records []models.PriceHistory, supplierID *int, today time.Time) *models.PriceHistory {
	if supplierID == nil {
		return nil
	}
	today = Day(today)

	candidates := make([]*models.PriceHistory, 0, len(records))
	for i := range records {
		h := &records[i]
		if h.SupplierID == nil || *h.SupplierID != *supplierID {
			continue
		}
		if eligible(h, today) {
			candidates = append(candidates, h)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return effectiveKey(candidates[i]).After(effectiveKey(candidates[j]))
	})
	return candidates[0]
}

// ResolveDisplayPrice returns the price to display for an item: the active
// record's new price for the default supplier when one resolves, otherwise
// the item's static current price. An item with no default supplier and no
// current price yields an invalid NullDecimal, which callers render as
// "no price set".
func ResolveDisplayPrice(item *models.PricebookItem, today time.Time) decimal.NullDecimal {
	if item == nil {
		return decimal.NullDecimal{}
	}
	if item.DefaultSupplierID != nil {
		if active := ResolveActiveRecord(item.PriceHistories, item.DefaultSupplierID, today); active != nil {
			return decimal.NullDecimal{Decimal: active.NewPrice, Valid: true}
		}
	}
	return item.CurrentPrice
}

// Row is one rendered line of a price-history table.
type Row struct {
	models.PriceHistory

	// IsActive is true for at most one row: the default supplier's
	// currently active record.
	IsActive bool `json:"isActive"`

	// ChangeAmount and ChangePercent are derived from old vs new price.
	// Both are invalid when the record has no old price; ChangePercent is
	// also invalid when the old price is zero.
	ChangeAmount  decimal.NullDecimal `json:"changeAmount"`
	ChangePercent decimal.NullDecimal `json:"changePercent"`
}

// TableOptions controls BuildHistoryTable.
type TableOptions struct {
	// ShowAll includes every record. The default compact view keeps each
	// supplier's single most recent eligible record plus every
	// future-scheduled record.
	ShowAll bool
}

// BuildHistoryTable produces display-ordered rows for an item's history:
// default-supplier rows first, then the rest, each group oldest-first. The
// ordering is deliberately the reverse of ResolveActiveRecord's search order;
// the table reads chronologically.
func BuildHistoryTable(item *models.PricebookItem, today time.Time, opts TableOptions) []Row {
	if item == nil || len(item.PriceHistories) == 0 {
		return []Row{}
	}
	today = Day(today)

	active := ResolveActiveRecord(item.PriceHistories, item.DefaultSupplierID, today)

	records := item.PriceHistories
	selected := make([]*models.PriceHistory, 0, len(records))
	if opts.ShowAll {
		for i := range records {
			selected = append(selected, &records[i])
		}
	} else {
		selected = compactSelection(records, today)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		di := isDefaultSupplier(selected[i], item.DefaultSupplierID)
		dj := isDefaultSupplier(selected[j], item.DefaultSupplierID)
		if di != dj {
			return di
		}
		return effectiveKey(selected[i]).Before(effectiveKey(selected[j]))
	})

	rows := make([]Row, 0, len(selected))
	for _, h := range selected {
		row := Row{PriceHistory: *h}
		if active != nil && h.ID == active.ID {
			row.IsActive = true
		}
		row.ChangeAmount, row.ChangePercent = priceChange(h)
		rows = append(rows, row)
	}
	return rows
}

// compactSelection keeps, per supplier, the single most recent eligible
// record, and every future-scheduled record regardless of supplier.
func compactSelection(records []models.PriceHistory, today time.Time) []*models.PriceHistory {
	type group struct {
		latest *models.PriceHistory
	}
	// Nil supplier records form their own group under key 0 presence flag.
	bySupplier := make(map[int]*group)
	var noSupplier *group

	var selected []*models.PriceHistory
	for i := range records {
		h := &records[i]
		if !eligible(h, today) {
			// Future-scheduled: always shown.
			selected = append(selected, h)
			continue
		}

		var g *group
		if h.SupplierID == nil {
			if noSupplier == nil {
				noSupplier = &group{}
			}
			g = noSupplier
		} else {
			if bySupplier[*h.SupplierID] == nil {
				bySupplier[*h.SupplierID] = &group{}
			}
			g = bySupplier[*h.SupplierID]
		}
		if g.latest == nil || effectiveKey(h).After(effectiveKey(g.latest)) {
			g.latest = h
		}
	}

	for i := range records {
		h := &records[i]
		if noSupplier != nil && noSupplier.latest == h {
			selected = append(selected, h)
		} else if h.SupplierID != nil {
			if g := bySupplier[*h.SupplierID]; g != nil && g.latest == h {
				selected = append(selected, h)
			}
		}
	}
	return selected
}

func isDefaultSupplier(h *models.PriceHistory, defaultSupplierID *int) bool {
	return defaultSupplierID != nil && h.SupplierID != nil && *h.SupplierID == *defaultSupplierID
}

// priceChange derives the delta and percentage for a row. Percent is rounded
// to one decimal place for display.
func priceChange(h *models.PriceHistory) (amount, percent decimal.NullDecimal) {
	if !h.OldPrice.Valid {
		return decimal.NullDecimal{}, decimal.NullDecimal{}
	}
	old := h.OldPrice.Decimal
	diff := h.NewPrice.Sub(old)
	amount = decimal.NullDecimal{Decimal: diff, Valid: true}
	if old.IsZero() {
		return amount, decimal.NullDecimal{}
	}
	pct := diff.Div(old).Mul(decimal.NewFromInt(100)).Round(1)
	return amount, decimal.NullDecimal{Decimal: pct, Valid: true}
}
