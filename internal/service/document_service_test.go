package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeworks/backoffice_api/internal/models"
	"github.com/tradeworks/backoffice_api/internal/utils"
)

const invoiceText = `Reece Plumbing
Tax Invoice INV-4412
Date: 2025-06-10

PVC Pipe 90mm x 6m   $42.50
Solvent Cement       $18.90

Total: $61.40
`

func TestHeuristicExtractorInvoice(t *testing.T) {
	ex, err := NewHeuristicExtractor().Extract(invoiceText)
	require.NoError(t, err)

	require.NotNil(t, ex.Supplier)
	assert.Equal(t, "Reece Plumbing", *ex.Supplier)
	require.True(t, ex.Total.Valid)
	assert.True(t, ex.Total.Decimal.Equal(price("61.40")))
	require.NotNil(t, ex.Date)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), *ex.Date)
	assert.Equal(t, 1.0, ex.Confidence)
}

func TestHeuristicExtractorPrefersExplicitSupplierLine(t *testing.T) {
	ex, err := NewHeuristicExtractor().Extract("Quote 81\nFrom: Tradelink\nTotal $100.00")
	require.NoError(t, err)
	require.NotNil(t, ex.Supplier)
	assert.Equal(t, "Tradelink", *ex.Supplier)
}

func TestHeuristicExtractorFallsBackToLargestAmount(t *testing.T) {
	ex, err := NewHeuristicExtractor().Extract("Acme\nItem A $10.00\nItem B $99.95\n")
	require.NoError(t, err)
	require.True(t, ex.Total.Valid)
	assert.True(t, ex.Total.Decimal.Equal(price("99.95")))
}

func TestHeuristicExtractorLowSignal(t *testing.T) {
	ex, err := NewHeuristicExtractor().Extract("\n\n")
	require.NoError(t, err)
	assert.Nil(t, ex.Supplier)
	assert.False(t, ex.Total.Valid)
	assert.Nil(t, ex.Date)
	assert.Equal(t, 0.0, ex.Confidence)
}

func newTestDocumentService() (*DocumentService, *stubDocumentStore) {
	store := newStubDocumentStore()
	svc := NewDocumentService(store, NewHeuristicExtractor(), nil)
	svc.now = func() time.Time { return testNow }
	return svc, store
}

func TestProcessPending(t *testing.T) {
	svc, _ := newTestDocumentService()
	doc, err := svc.CreateDocument(&CreateDocumentRequest{
		FileName:    "invoice.pdf",
		ContentType: "application/pdf",
		RawText:     invoiceText,
	}, intPtr(1))
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, doc.Status)

	processed, err := svc.ProcessPending(10)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	analyzed, err := svc.GetDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusAnalyzed, analyzed.Status)
	require.NotNil(t, analyzed.ExtractedSupplier)
	assert.Equal(t, "Reece Plumbing", *analyzed.ExtractedSupplier)
	require.NotNil(t, analyzed.AnalyzedAt)
	assert.Equal(t, testNow, *analyzed.AnalyzedAt)

	// Nothing left to claim.
	processed, err = svc.ProcessPending(10)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestReprocess(t *testing.T) {
	svc, _ := newTestDocumentService()
	doc, err := svc.CreateDocument(&CreateDocumentRequest{
		FileName:    "quote.txt",
		ContentType: "text/plain",
		RawText:     "Tradelink\nTotal $55.00",
	}, nil)
	require.NoError(t, err)

	_, err = svc.ProcessPending(10)
	require.NoError(t, err)

	requeued, err := svc.Reprocess(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, requeued.Status)

	_, err = svc.Reprocess(999)
	assert.ErrorIs(t, err, utils.ErrDocumentNotFound)
}
