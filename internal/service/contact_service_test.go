package service

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeworks/backoffice_api/internal/models"
	"github.com/tradeworks/backoffice_api/internal/utils"
)

func newTestContactService() (*ContactService, *stubContactStore, *stubItemStore, *stubHistoryStore) {
	items := newStubItemStore()
	histories := newStubHistoryStore()
	contacts := newStubContactStore(items, histories)
	svc := NewContactService(contacts, items, histories, nil)
	svc.now = func() time.Time { return testNow }
	return svc, contacts, items, histories
}

func supplier(name string) *models.Contact {
	return &models.Contact{
		FullName:     name,
		ContactTypes: pq.StringArray{models.ContactTypeSupplier},
		IsActive:     true,
	}
}

func TestMergeContacts(t *testing.T) {
	svc, contacts, items, histories := newTestContactService()
	source := contacts.add(supplier("Bunnings Trade"))
	target := contacts.add(supplier("Bunnings"))

	item := items.add(&models.PricebookItem{
		ItemCode: "CEM-001", ItemName: "Cement", UnitOfMeasure: "bag",
		DefaultSupplierID: &source.ID, IsActive: true,
	})
	histories.add(&models.PriceHistory{
		PricebookItemID: item.ID,
		SupplierID:      &source.ID,
		NewPrice:        price("12.00"),
	})

	result, err := svc.MergeContacts(source.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.HistoriesReassigned)
	assert.Equal(t, int64(1), result.ItemsReassigned)

	// Source is gone, references point at the target.
	_, err = svc.GetContact(source.ID)
	assert.ErrorIs(t, err, utils.ErrContactNotFound)
	merged, err := items.GetByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, *merged.DefaultSupplierID)
}

func TestMergeContactsRejectsSelfAndMissing(t *testing.T) {
	svc, contacts, _, _ := newTestContactService()
	c := contacts.add(supplier("Reece"))

	_, err := svc.MergeContacts(c.ID, c.ID)
	assert.ErrorIs(t, err, utils.ErrMergeSameContact)

	_, err = svc.MergeContacts(c.ID, 999)
	assert.ErrorIs(t, err, utils.ErrContactNotFound)
}

func TestSupplierPrices(t *testing.T) {
	svc, contacts, items, histories := newTestContactService()
	sup := contacts.add(supplier("Reece"))

	item := items.add(&models.PricebookItem{
		ItemCode: "PVC-001", ItemName: "PVC Pipe 90mm", UnitOfMeasure: "m",
		DefaultSupplierID: &sup.ID, IsActive: true,
	})
	histories.add(&models.PriceHistory{
		PricebookItemID: item.ID,
		SupplierID:      &sup.ID,
		NewPrice:        price("8.40"),
		DateEffective:   datePtr(2025, 6, 1),
	})
	// Future record is not the active price.
	histories.add(&models.PriceHistory{
		PricebookItemID: item.ID,
		SupplierID:      &sup.ID,
		NewPrice:        price("9.00"),
		DateEffective:   datePtr(2025, 7, 1),
	})

	prices, err := svc.SupplierPrices(sup.ID)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.True(t, prices[0].IsDefault)
	require.True(t, prices[0].ActivePrice.Valid)
	assert.True(t, prices[0].ActivePrice.Decimal.Equal(price("8.40")))
}

func TestSupplierPricesRejectsNonSupplier(t *testing.T) {
	svc, contacts, _, _ := newTestContactService()
	customer := contacts.add(&models.Contact{
		FullName:     "Jane Homeowner",
		ContactTypes: pq.StringArray{models.ContactTypeCustomer},
		IsActive:     true,
	})

	_, err := svc.SupplierPrices(customer.ID)
	assert.ErrorIs(t, err, utils.ErrNotASupplier)
}

func TestCopyPriceHistory(t *testing.T) {
	svc, contacts, items, histories := newTestContactService()
	source := contacts.add(supplier("Reece"))
	target := contacts.add(supplier("Tradelink"))

	item := items.add(&models.PricebookItem{
		ItemCode: "PVC-001", ItemName: "PVC Pipe 90mm", UnitOfMeasure: "m",
		IsActive: true,
	})
	histories.add(&models.PriceHistory{
		PricebookItemID: item.ID,
		SupplierID:      &source.ID,
		NewPrice:        price("10.00"),
		DateEffective:   datePtr(2025, 6, 1),
	})

	adjust := 10.0
	copied, err := svc.CopyPriceHistory(source.ID, &CopyPriceHistoryRequest{
		TargetSupplierID: target.ID,
		AdjustPercent:    &adjust,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, copied)

	latest, err := histories.LatestForSupplier(item.ID, target.ID)
	require.NoError(t, err)
	assert.True(t, latest.NewPrice.Equal(price("11.00")))
	require.NotNil(t, latest.DateEffective)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), *latest.DateEffective)
}

func TestBulkUpdatePrices(t *testing.T) {
	svc, contacts, items, histories := newTestContactService()
	sup := contacts.add(supplier("Reece"))

	item := items.add(&models.PricebookItem{
		ItemCode: "PVC-001", ItemName: "PVC Pipe 90mm", UnitOfMeasure: "m",
		CurrentPrice: nullPrice("10.00"), DefaultSupplierID: &sup.ID, IsActive: true,
	})
	histories.add(&models.PriceHistory{
		PricebookItemID: item.ID,
		SupplierID:      &sup.ID,
		NewPrice:        price("10.00"),
		DateEffective:   datePtr(2025, 6, 1),
	})

	updated, err := svc.BulkUpdatePrices(sup.ID, &BulkPriceAdjustRequest{AdjustPercent: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	latest, err := histories.LatestForSupplier(item.ID, sup.ID)
	require.NoError(t, err)
	assert.True(t, latest.NewPrice.Equal(price("10.50")))
	assert.True(t, latest.OldPrice.Decimal.Equal(price("10.00")))

	// The default supplier's adjustment flows into the stored price.
	refreshed, err := items.GetByID(item.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.CurrentPrice.Decimal.Equal(price("10.50")))
}
