package service

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradeworks/backoffice_api/internal/models"
	"github.com/tradeworks/backoffice_api/internal/pricing"
	"github.com/tradeworks/backoffice_api/internal/repository"
)

// HistoryExportStore lists flattened history rows for export.
type HistoryExportStore interface {
	ListForExport(supplierID *int, category string, itemIDs []int) ([]repository.ExportRow, error)
}

// PriceHistoryCSVService reads and writes price history as CSV. CSV is the
// interchange format the office tooling speaks, so column names follow the
// spreadsheets users already have.
type PriceHistoryCSVService struct {
	export    HistoryExportStore
	items     ItemStore
	histories HistoryStore
	contacts  ContactStore
	now       func() time.Time
}

// NewPriceHistoryCSVService constructs a PriceHistoryCSVService.
func NewPriceHistoryCSVService(export HistoryExportStore, items ItemStore, histories HistoryStore, contacts ContactStore) *PriceHistoryCSVService {
	return &PriceHistoryCSVService{
		export:    export,
		items:     items,
		histories: histories,
		contacts:  contacts,
		now:       time.Now,
	}
}

var exportHeader = []string{
	"item code", "item name", "category", "unit of measure",
	"supplier", "historical price", "old price", "date effective",
	"lga", "change reason", "quote reference", "recorded at",
}

// ExportFilter narrows which history rows are exported.
type ExportFilter struct {
	SupplierID *int
	Category   string
	ItemIDs    []int
}

// Export writes the filtered price history to w as CSV.
func (s *PriceHistoryCSVService) Export(w io.Writer, filter *ExportFilter) (int, error) {
	rows, err := s.export.ListForExport(filter.SupplierID, filter.Category, filter.ItemIDs)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}
	for _, row := range rows {
		record := []string{
			row.ItemCode,
			row.ItemName,
			strOrEmpty(row.Category),
			row.UnitOfMeasure,
			strOrEmpty(row.SupplierName),
			row.NewPrice.StringFixed(2),
			nullDecimalString(row.OldPrice),
			dateString(row.DateEffective),
			strOrEmpty(row.LGA),
			strOrEmpty(row.ChangeReason),
			strOrEmpty(row.QuoteReference),
			row.CreatedAt.Format("2006-01-02"),
		}
		if err := cw.Write(record); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(rows), cw.Error()
}

// ImportOptions tune an import run.
type ImportOptions struct {
	// DateEffective overrides per-row effective dates when set.
	DateEffective *time.Time
	// DefaultChangeReason is used for rows without a change reason column.
	DefaultChangeReason string
}

// ImportRowError reports one rejected row. Line is 1-based and counts the
// header.
type ImportRowError struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Created int              `json:"created"`
	Skipped int              `json:"skipped"`
	Errors  []ImportRowError `json:"errors"`
}

// Import reads price-history rows from r and appends them to the pricebook.
// Rows fail independently; a malformed row never aborts the run. Required
// columns are "item code" and "historical price" ("current price" is accepted
// as a legacy alias for the price column).
func (s *PriceHistoryCSVService) Import(r io.Reader, opts *ImportOptions) (*ImportResult, error) {
	if opts == nil {
		opts = &ImportOptions{}
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.New("empty or unreadable CSV")
	}
	cols := headerIndex(header)

	priceCol, ok := cols["historical price"]
	if !ok {
		// Older spreadsheets label the price column "current price".
		priceCol, ok = cols["current price"]
	}
	codeCol, codeOK := cols["item code"]
	if !ok || !codeOK {
		return nil, errors.New(`CSV must have "item code" and "historical price" columns`)
	}

	result := &ImportResult{Errors: []ImportRowError{}}
	today := pricing.Day(s.now())
	line := 1

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Line: line, Error: "malformed row"})
			continue
		}

		if rowErr := s.importRow(record, cols, codeCol, priceCol, opts, today); rowErr != nil {
			result.Errors = append(result.Errors, ImportRowError{Line: line, Error: rowErr.Error()})
			result.Skipped++
			continue
		}
		result.Created++
	}
	return result, nil
}

func (s *PriceHistoryCSVService) importRow(record []string, cols map[string]int, codeCol, priceCol int, opts *ImportOptions, today time.Time) error {
	code := strings.TrimSpace(cell(record, codeCol))
	if code == "" {
		return errors.New("missing item code")
	}
	item, err := s.items.GetByItemCode(code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("unknown item code %q", code)
		}
		return err
	}

	rawPrice := strings.TrimSpace(strings.TrimPrefix(cell(record, priceCol), "$"))
	if rawPrice == "" {
		return errors.New("missing price")
	}
	newPrice, err := decimal.NewFromString(strings.ReplaceAll(rawPrice, ",", ""))
	if err != nil {
		return fmt.Errorf("invalid price %q", rawPrice)
	}

	var supplierID *int
	if col, ok := cols["supplier"]; ok {
		if name := strings.TrimSpace(cell(record, col)); name != "" {
			supplier, err := s.contacts.GetByFullName(name)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("unknown supplier %q", name)
				}
				return err
			}
			supplierID = &supplier.ID
		}
	}

	dateEffective := today
	if opts.DateEffective != nil {
		dateEffective = pricing.Day(*opts.DateEffective)
	} else if col, ok := cols["date effective"]; ok {
		if raw := strings.TrimSpace(cell(record, col)); raw != "" {
			d, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return fmt.Errorf("invalid date effective %q", raw)
			}
			dateEffective = d
		}
	}

	reason := opts.DefaultChangeReason
	if reason == "" {
		reason = "csv_import"
	}
	if col, ok := cols["change reason"]; ok {
		if r := strings.TrimSpace(cell(record, col)); r != "" {
			reason = r
		}
	}

	h := &models.PriceHistory{
		PricebookItemID: item.ID,
		SupplierID:      supplierID,
		OldPrice:        item.CurrentPrice,
		NewPrice:        newPrice,
		DateEffective:   &dateEffective,
		ChangeReason:    &reason,
	}
	if col, ok := cols["lga"]; ok {
		if v := strings.TrimSpace(cell(record, col)); v != "" {
			h.LGA = &v
		}
	}
	if col, ok := cols["quote reference"]; ok {
		if v := strings.TrimSpace(cell(record, col)); v != "" {
			h.QuoteReference = &v
		}
	}
	if err := s.histories.Create(h); err != nil {
		return err
	}

	// Keep the stored price in step for rows that are current for the
	// item's default supplier (or carry no supplier at all).
	isDefault := supplierID == nil ||
		(item.DefaultSupplierID != nil && *item.DefaultSupplierID == *supplierID)
	if isDefault && !dateEffective.After(today) {
		item.CurrentPrice = decimal.NullDecimal{Decimal: newPrice, Valid: true}
		now := s.now()
		item.PriceLastUpdatedAt = &now
		refreshPricingReview(item)
		if err := s.items.Update(item); err != nil {
			return err
		}
	}
	return nil
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}

func dateString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
