package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeworks/backoffice_api/internal/models"
	"github.com/tradeworks/backoffice_api/internal/repository"
)

type stubExportStore struct {
	rows []repository.ExportRow
}

func (s *stubExportStore) ListForExport(supplierID *int, category string, itemIDs []int) ([]repository.ExportRow, error) {
	return s.rows, nil
}

func newTestCSVService(rows []repository.ExportRow) (*PriceHistoryCSVService, *stubItemStore, *stubHistoryStore, *stubContactStore) {
	items := newStubItemStore()
	histories := newStubHistoryStore()
	contacts := newStubContactStore(items, histories)
	svc := NewPriceHistoryCSVService(&stubExportStore{rows: rows}, items, histories, contacts)
	svc.now = func() time.Time { return testNow }
	return svc, items, histories, contacts
}

func TestExportWritesHeaderAndRows(t *testing.T) {
	rows := []repository.ExportRow{{
		PriceHistory: models.PriceHistory{
			NewPrice:      price("12.50"),
			OldPrice:      nullPrice("11.00"),
			DateEffective: datePtr(2025, 6, 1),
			SupplierName:  strPtr("Reece"),
			CreatedAt:     time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		},
		ItemCode:      "PVC-001",
		ItemName:      "PVC Pipe 90mm",
		UnitOfMeasure: "m",
	}}
	svc, _, _, _ := newTestCSVService(rows)

	var buf bytes.Buffer
	n, err := svc.Export(&buf, &ExportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "historical price")
	assert.Contains(t, lines[1], "PVC-001")
	assert.Contains(t, lines[1], "12.50")
	assert.Contains(t, lines[1], "2025-06-01")
}

func TestImportCreatesHistories(t *testing.T) {
	svc, items, histories, contacts := newTestCSVService(nil)
	sup := contacts.add(supplier("Reece"))
	item := items.add(&models.PricebookItem{
		ItemCode: "PVC-001", ItemName: "PVC Pipe 90mm", UnitOfMeasure: "m",
		CurrentPrice: nullPrice("10.00"), DefaultSupplierID: &sup.ID, IsActive: true,
	})

	csv := "item code,supplier,historical price,date effective\n" +
		"PVC-001,Reece,11.20,2025-06-10\n"
	result, err := svc.Import(strings.NewReader(csv), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Empty(t, result.Errors)

	latest, err := histories.LatestForSupplier(item.ID, sup.ID)
	require.NoError(t, err)
	assert.True(t, latest.NewPrice.Equal(price("11.20")))
	assert.True(t, latest.OldPrice.Decimal.Equal(price("10.00")))

	// Default supplier row that is already effective updates the item.
	refreshed, err := items.GetByID(item.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.CurrentPrice.Decimal.Equal(price("11.20")))
}

func TestImportAcceptsLegacyCurrentPriceHeader(t *testing.T) {
	svc, items, histories, _ := newTestCSVService(nil)
	item := items.add(&models.PricebookItem{
		ItemCode: "PVC-001", ItemName: "PVC Pipe 90mm", UnitOfMeasure: "m",
		IsActive: true,
	})

	csv := "Item Code,Current Price\nPVC-001,$9.80\n"
	result, err := svc.Import(strings.NewReader(csv), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	stored, err := histories.ListByItem(item.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].NewPrice.Equal(price("9.80")))
}

func TestImportCollectsRowErrors(t *testing.T) {
	svc, items, _, _ := newTestCSVService(nil)
	items.add(&models.PricebookItem{
		ItemCode: "PVC-001", ItemName: "PVC Pipe 90mm", UnitOfMeasure: "m",
		IsActive: true,
	})

	csv := "item code,historical price\n" +
		"PVC-001,11.20\n" +
		"NOPE-99,5.00\n" +
		"PVC-001,not-a-price\n"
	result, err := svc.Import(strings.NewReader(csv), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 3, result.Errors[0].Line)
	assert.Equal(t, 4, result.Errors[1].Line)
}

func TestImportRejectsMissingRequiredColumns(t *testing.T) {
	svc, _, _, _ := newTestCSVService(nil)
	_, err := svc.Import(strings.NewReader("item name,notes\nPipe,hello\n"), nil)
	assert.Error(t, err)
}

func TestImportDateOverride(t *testing.T) {
	svc, items, histories, _ := newTestCSVService(nil)
	item := items.add(&models.PricebookItem{
		ItemCode: "PVC-001", ItemName: "PVC Pipe 90mm", UnitOfMeasure: "m",
		IsActive: true,
	})

	override := time.Date(2025, 7, 1, 14, 0, 0, 0, time.UTC)
	csv := "item code,historical price,date effective\nPVC-001,11.20,2025-06-10\n"
	result, err := svc.Import(strings.NewReader(csv), &ImportOptions{DateEffective: &override})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	stored, err := histories.ListByItem(item.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.NotNil(t, stored[0].DateEffective)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), *stored[0].DateEffective)
}
