package repository

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tradeworks/backoffice_api/internal/models"
)

// PriceHistoryRepository handles data access for price-history records.
type PriceHistoryRepository struct {
	db *sqlx.DB
}

// NewPriceHistoryRepository creates a new PriceHistoryRepository.
func NewPriceHistoryRepository(db *sqlx.DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

const historySelect = `
        SELECT ph.*, c.full_name AS supplier_name
        FROM price_histories ph
        LEFT JOIN contacts c ON c.id = ph.supplier_id`

// ListByItem returns every history record for one item, newest first.
func (r *PriceHistoryRepository) ListByItem(itemID int) ([]models.PriceHistory, error) {
	q := historySelect + ` WHERE ph.pricebook_item_id = $1 ORDER BY ph.created_at DESC`
	var histories []models.PriceHistory
	if err := r.db.Select(&histories, q, itemID); err != nil {
		return nil, err
	}
	return histories, nil
}

// ListByItems returns history records for a set of items keyed by item id.
func (r *PriceHistoryRepository) ListByItems(itemIDs []int) (map[int][]models.PriceHistory, error) {
	result := make(map[int][]models.PriceHistory, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(historySelect+` WHERE ph.pricebook_item_id IN (?) ORDER BY ph.created_at DESC`, itemIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var histories []models.PriceHistory
	if err := r.db.Select(&histories, query, args...); err != nil {
		return nil, err
	}
	for _, h := range histories {
		result[h.PricebookItemID] = append(result[h.PricebookItemID], h)
	}
	return result, nil
}

// GetByID returns one history record scoped to its item.
func (r *PriceHistoryRepository) GetByID(itemID, historyID int) (*models.PriceHistory, error) {
	q := historySelect + ` WHERE ph.id = $1 AND ph.pricebook_item_id = $2 LIMIT 1`
	var h models.PriceHistory
	if err := r.db.Get(&h, q, historyID, itemID); err != nil {
		return nil, err
	}
	return &h, nil
}

// LatestForSupplier returns the supplier's most recently entered record for
// an item (by creation time), or nil when the supplier has none.
func (r *PriceHistoryRepository) LatestForSupplier(itemID, supplierID int) (*models.PriceHistory, error) {
	q := historySelect + ` WHERE ph.pricebook_item_id = $1 AND ph.supplier_id = $2 ORDER BY ph.created_at DESC LIMIT 1`
	var h models.PriceHistory
	err := r.db.Get(&h, q, itemID, supplierID)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Create inserts a new price-history record.
func (r *PriceHistoryRepository) Create(h *models.PriceHistory) error {
	const q = `
        INSERT INTO price_histories (pricebook_item_id, supplier_id, old_price, new_price,
            date_effective, lga, change_reason, quote_reference)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at`
	return r.db.QueryRowx(q,
		h.PricebookItemID, h.SupplierID, h.OldPrice, h.NewPrice,
		h.DateEffective, h.LGA, h.ChangeReason, h.QuoteReference,
	).Scan(&h.ID, &h.CreatedAt)
}

// Update updates the editable fields of a history record.
func (r *PriceHistoryRepository) Update(h *models.PriceHistory) error {
	const q = `
        UPDATE price_histories
        SET supplier_id = $1, old_price = $2, new_price = $3, date_effective = $4,
            lga = $5, change_reason = $6, quote_reference = $7
        WHERE id = $8 AND pricebook_item_id = $9`
	res, err := r.db.Exec(q,
		h.SupplierID, h.OldPrice, h.NewPrice, h.DateEffective,
		h.LGA, h.ChangeReason, h.QuoteReference, h.ID, h.PricebookItemID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("price history %d not found for item %d", h.ID, h.PricebookItemID)
	}
	return nil
}

// Delete removes a history record scoped to its item.
func (r *PriceHistoryRepository) Delete(itemID, historyID int) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM price_histories WHERE id = $1 AND pricebook_item_id = $2`, historyID, itemID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ExportRow is one flattened line of the price-history export.
type ExportRow struct {
	models.PriceHistory
	ItemCode      string  `db:"item_code"`
	ItemName      string  `db:"item_name"`
	Category      *string `db:"category"`
	UnitOfMeasure string  `db:"unit_of_measure"`
}

// ListForExport returns flattened history rows filtered by supplier,
// category, or an explicit item set.
func (r *PriceHistoryRepository) ListForExport(supplierID *int, category string, itemIDs []int) ([]ExportRow, error) {
	// Built with ?-placeholders throughout so sqlx.In expansion and Rebind
	// stay consistent.
	query := `
        SELECT ph.*, c.full_name AS supplier_name,
               i.item_code, i.item_name, i.category, i.unit_of_measure
        FROM price_histories ph
        JOIN pricebook_items i ON i.id = ph.pricebook_item_id
        LEFT JOIN contacts c ON c.id = ph.supplier_id
        WHERE i.is_active = true`
	args := []interface{}{}

	if supplierID != nil {
		query += ` AND (ph.supplier_id = ? OR i.default_supplier_id = ?)`
		args = append(args, *supplierID, *supplierID)
	}
	if category != "" {
		query += ` AND i.category = ?`
		args = append(args, category)
	}
	if len(itemIDs) > 0 {
		query += ` AND ph.pricebook_item_id IN (?)`
		args = append(args, itemIDs)
	}
	query += ` ORDER BY i.item_code, ph.created_at DESC`

	var err error
	query, args, err = sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var rows []ExportRow
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
