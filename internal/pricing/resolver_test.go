package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeworks/backoffice_api/internal/models"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func intPtr(v int) *int { return &v }

func price(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func nullPrice(v string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: price(v), Valid: true}
}

func record(id int, supplierID *int, newPrice string, dateEffective *time.Time) models.PriceHistory {
	return models.PriceHistory{
		ID:            id,
		SupplierID:    supplierID,
		NewPrice:      price(newPrice),
		DateEffective: dateEffective,
		CreatedAt:     time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestResolveActiveRecordPicksMostRecentEligible(t *testing.T) {
	records := []models.PriceHistory{
		record(1, intPtr(7), "10", datePtr(2024, 1, 1)),
		record(2, intPtr(7), "12", datePtr(2024, 6, 1)),
	}
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	got := ResolveActiveRecord(records, intPtr(7), today)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.ID)
}

func TestResolveActiveRecordExcludesFutureScheduled(t *testing.T) {
	records := []models.PriceHistory{
		record(1, intPtr(7), "10", datePtr(2024, 1, 1)),
		record(2, intPtr(7), "12", datePtr(2024, 6, 1)),
	}
	today := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	got := ResolveActiveRecord(records, intPtr(7), today)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.ID)

	// No eligible record at all.
	early := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, ResolveActiveRecord(records, intPtr(7), early))
}

func TestResolveActiveRecordNilSupplierAndEmptyInput(t *testing.T) {
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, ResolveActiveRecord(nil, intPtr(7), today))
	assert.Nil(t, ResolveActiveRecord([]models.PriceHistory{}, intPtr(7), today))
	assert.Nil(t, ResolveActiveRecord([]models.PriceHistory{record(1, intPtr(7), "10", nil)}, nil, today))
}

func TestResolveActiveRecordIgnoresOtherSuppliers(t *testing.T) {
	records := []models.PriceHistory{
		record(1, intPtr(7), "10", datePtr(2024, 1, 1)),
		record(2, intPtr(9), "99", datePtr(2024, 6, 1)),
		record(3, nil, "55", datePtr(2024, 6, 15)),
	}
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	got := ResolveActiveRecord(records, intPtr(7), today)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.ID)
}

func TestResolveActiveRecordNormalizesTimeOfDay(t *testing.T) {
	// Effective date stored with a stray time component still counts as
	// "today" regardless of the reference clock reading.
	eff := time.Date(2024, 3, 1, 18, 45, 0, 0, time.UTC)
	records := []models.PriceHistory{
		record(1, intPtr(7), "10", &eff),
	}
	today := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

	got := ResolveActiveRecord(records, intPtr(7), today)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.ID)
}

func TestResolveActiveRecordFallsBackToCreatedAt(t *testing.T) {
	a := record(1, intPtr(7), "10", nil)
	a.CreatedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	b := record(2, intPtr(7), "12", nil)
	b.CreatedAt = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	got := ResolveActiveRecord([]models.PriceHistory{a, b}, intPtr(7), today)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.ID)

	// A dated record beats an undated one when its date is later.
	c := record(3, intPtr(7), "14", datePtr(2024, 6, 1))
	got = ResolveActiveRecord([]models.PriceHistory{a, b, c}, intPtr(7), today)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.ID)
}

func TestResolveActiveRecordDeterministicAndStable(t *testing.T) {
	// Identical inputs give identical outputs; ties resolve stably.
	records := []models.PriceHistory{
		record(1, intPtr(7), "10", datePtr(2024, 6, 1)),
		record(2, intPtr(7), "12", datePtr(2024, 6, 1)),
		record(3, intPtr(7), "14", datePtr(2024, 6, 1)),
	}
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	first := ResolveActiveRecord(records, intPtr(7), today)
	require.NotNil(t, first)
	for i := 0; i < 10; i++ {
		again := ResolveActiveRecord(records, intPtr(7), today)
		require.NotNil(t, again)
		assert.Equal(t, first.ID, again.ID)
	}
}

func TestResolveActiveRecordDoesNotMutateInput(t *testing.T) {
	records := []models.PriceHistory{
		record(3, intPtr(7), "14", datePtr(2024, 6, 1)),
		record(1, intPtr(7), "10", datePtr(2024, 1, 1)),
		record(2, intPtr(7), "12", datePtr(2024, 3, 1)),
	}
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	_ = ResolveActiveRecord(records, intPtr(7), today)
	assert.Equal(t, []int{3, 1, 2}, []int{records[0].ID, records[1].ID, records[2].ID})
}

func TestResolveDisplayPriceFromActiveHistory(t *testing.T) {
	item := &models.PricebookItem{
		DefaultSupplierID: intPtr(7),
		CurrentPrice:      nullPrice("99"),
		PriceHistories: []models.PriceHistory{
			record(1, intPtr(7), "10", datePtr(2024, 1, 1)),
			record(2, intPtr(7), "12", datePtr(2024, 6, 1)),
		},
	}

	got := ResolveDisplayPrice(item, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(price("12")))

	got = ResolveDisplayPrice(item, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(price("10")))
}

func TestResolveDisplayPriceFallback(t *testing.T) {
	// No default supplier always falls back to the static price.
	item := &models.PricebookItem{
		CurrentPrice: nullPrice("99"),
		PriceHistories: []models.PriceHistory{
			record(1, intPtr(7), "10", datePtr(2024, 1, 1)),
		},
	}
	got := ResolveDisplayPrice(item, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(price("99")))

	// Default supplier with no eligible history must not surface "no price".
	item.DefaultSupplierID = intPtr(42)
	got = ResolveDisplayPrice(item, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(price("99")))

	// No price anywhere.
	empty := &models.PricebookItem{}
	assert.False(t, ResolveDisplayPrice(empty, time.Now()).Valid)
}

func TestBuildHistoryTableEmpty(t *testing.T) {
	item := &models.PricebookItem{}
	rows := BuildHistoryTable(item, time.Now(), TableOptions{})
	assert.Empty(t, rows)
	rows = BuildHistoryTable(nil, time.Now(), TableOptions{ShowAll: true})
	assert.Empty(t, rows)
}

func TestBuildHistoryTableCompactTwoSuppliers(t *testing.T) {
	// Two suppliers with one past record each, A (id 7) is default:
	// exactly 2 rows, A first, only A's row active.
	item := &models.PricebookItem{
		DefaultSupplierID: intPtr(7),
		PriceHistories: []models.PriceHistory{
			record(1, intPtr(9), "20", datePtr(2024, 2, 1)),
			record(2, intPtr(7), "10", datePtr(2024, 1, 1)),
		},
	}
	rows := BuildHistoryTable(item, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), TableOptions{})
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].ID)
	assert.True(t, rows[0].IsActive)
	assert.Equal(t, 1, rows[1].ID)
	assert.False(t, rows[1].IsActive)
}

func TestBuildHistoryTableCompactKeepsLatestPerSupplierPlusFuture(t *testing.T) {
	item := &models.PricebookItem{
		DefaultSupplierID: intPtr(7),
		PriceHistories: []models.PriceHistory{
			record(1, intPtr(7), "10", datePtr(2024, 1, 1)),
			record(2, intPtr(7), "12", datePtr(2024, 3, 1)),
			record(3, intPtr(9), "20", datePtr(2024, 2, 1)),
			record(4, intPtr(9), "25", datePtr(2025, 1, 1)), // future
			record(5, nil, "7", datePtr(2024, 4, 1)),
		},
	}
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	rows := BuildHistoryTable(item, today, TableOptions{})
	require.Len(t, rows, 4)

	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	// Default supplier's latest first, then the rest ascending by date.
	assert.Equal(t, []int{2, 3, 5, 4}, ids)

	// Exactly one active row, and it is the default supplier's.
	activeCount := 0
	for _, r := range rows {
		if r.IsActive {
			activeCount++
			assert.Equal(t, 2, r.ID)
		}
	}
	assert.Equal(t, 1, activeCount)
}

func TestBuildHistoryTableCompactOmitsSupplierWithOnlyFutureRecords(t *testing.T) {
	// A supplier with zero eligible records is absent from the compact
	// view except for its future-scheduled rows, and fully present in
	// ShowAll.
	item := &models.PricebookItem{
		DefaultSupplierID: intPtr(7),
		PriceHistories: []models.PriceHistory{
			record(1, intPtr(7), "10", datePtr(2024, 1, 1)),
			record(2, intPtr(9), "30", datePtr(2025, 6, 1)), // future only
		},
	}
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	compact := BuildHistoryTable(item, today, TableOptions{})
	require.Len(t, compact, 2)
	// Supplier 9 appears only via its future row, never active.
	for _, r := range compact {
		if r.ID == 2 {
			assert.False(t, r.IsActive)
		}
	}

	all := BuildHistoryTable(item, today, TableOptions{ShowAll: true})
	assert.Len(t, all, 2)
}

func TestBuildHistoryTableShowAllOrdering(t *testing.T) {
	item := &models.PricebookItem{
		DefaultSupplierID: intPtr(7),
		PriceHistories: []models.PriceHistory{
			record(1, intPtr(9), "20", datePtr(2024, 2, 1)),
			record(2, intPtr(7), "12", datePtr(2024, 6, 1)),
			record(3, intPtr(7), "10", datePtr(2024, 1, 1)),
			record(4, intPtr(9), "22", datePtr(2024, 5, 1)),
		},
	}
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	rows := BuildHistoryTable(item, today, TableOptions{ShowAll: true})
	require.Len(t, rows, 4)
	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	// Default supplier ascending, then others ascending.
	assert.Equal(t, []int{3, 2, 1, 4}, ids)
}

func TestBuildHistoryTableChangeColumns(t *testing.T) {
	h := record(1, intPtr(7), "50", datePtr(2024, 1, 1))
	h.OldPrice = nullPrice("40")
	item := &models.PricebookItem{
		DefaultSupplierID: intPtr(7),
		PriceHistories:    []models.PriceHistory{h},
	}
	rows := BuildHistoryTable(item, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), TableOptions{})
	require.Len(t, rows, 1)
	require.True(t, rows[0].ChangeAmount.Valid)
	assert.True(t, rows[0].ChangeAmount.Decimal.Equal(price("10")))
	require.True(t, rows[0].ChangePercent.Valid)
	assert.True(t, rows[0].ChangePercent.Decimal.Equal(price("25")))
}

func TestBuildHistoryTableChangePercentAbsentWithoutOldPrice(t *testing.T) {
	// oldPrice=null, newPrice=50: percent renders blank, not zero or NaN.
	h := record(1, intPtr(7), "50", datePtr(2024, 1, 1))
	item := &models.PricebookItem{
		DefaultSupplierID: intPtr(7),
		PriceHistories:    []models.PriceHistory{h},
	}
	rows := BuildHistoryTable(item, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), TableOptions{})
	require.Len(t, rows, 1)
	assert.False(t, rows[0].ChangeAmount.Valid)
	assert.False(t, rows[0].ChangePercent.Valid)

	// Zero old price: amount present, percent still blank.
	h.OldPrice = nullPrice("0")
	item.PriceHistories = []models.PriceHistory{h}
	rows = BuildHistoryTable(item, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), TableOptions{})
	require.Len(t, rows, 1)
	assert.True(t, rows[0].ChangeAmount.Valid)
	assert.False(t, rows[0].ChangePercent.Valid)
}

func TestMalformedRecordsSortOldest(t *testing.T) {
	// A record missing both dateEffective and createdAt must never win the
	// active search while a dated record exists.
	broken := models.PriceHistory{ID: 1, SupplierID: intPtr(7), NewPrice: price("10")}
	dated := record(2, intPtr(7), "12", datePtr(2024, 1, 1))
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	got := ResolveActiveRecord([]models.PriceHistory{broken, dated}, intPtr(7), today)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.ID)
}

func TestDayNormalization(t *testing.T) {
	loc := time.FixedZone("AEST", 10*3600)
	in := time.Date(2024, 7, 1, 23, 59, 59, 0, loc)
	got := Day(in)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), got)
}
