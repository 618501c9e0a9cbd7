package repository

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/tradeworks/backoffice_api/internal/models"
)

// PricebookRepository handles data access for pricebook items.
type PricebookRepository struct {
	db *sqlx.DB
}

// NewPricebookRepository creates a new PricebookRepository.
func NewPricebookRepository(db *sqlx.DB) *PricebookRepository {
	return &PricebookRepository{db: db}
}

// ItemFilter holds filters for pricebook list queries.
type ItemFilter struct {
	Search        string
	Category      string
	SupplierID    *int
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	NeedsPricing  *bool
	SortBy        string
	SortDesc      bool
	Page          int
	Limit         int
}

// sortColumns maps client sort keys to database columns.
var sortColumns = map[string]string{
	"item_code":     "i.item_code",
	"item_name":     "i.item_name",
	"category":      "i.category",
	"current_price": "i.current_price",
	"supplier":      "c.full_name",
}

const itemSelect = `
        SELECT i.*, c.full_name AS default_supplier_name
        FROM pricebook_items i
        LEFT JOIN contacts c ON c.id = i.default_supplier_id`

// List returns active items matching the filter with pagination and total count.
// Supplier filtering matches items where the supplier is the default supplier
// OR appears in the item's price history.
func (r *PricebookRepository) List(filter *ItemFilter) ([]models.PricebookItem, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}
	offset := (filter.Page - 1) * filter.Limit

	where := `WHERE i.is_active = true`
	args := []interface{}{}
	argIdx := 1

	if filter.Search != "" {
		where += fmt.Sprintf(` AND (i.item_code ILIKE '%%' || $%d || '%%' OR i.item_name ILIKE '%%' || $%d || '%%' OR c.full_name ILIKE '%%' || $%d || '%%')`, argIdx, argIdx, argIdx)
		args = append(args, filter.Search)
		argIdx++
	}
	if filter.Category != "" {
		where += fmt.Sprintf(` AND i.category = $%d`, argIdx)
		args = append(args, filter.Category)
		argIdx++
	}
	if filter.SupplierID != nil {
		where += fmt.Sprintf(` AND (i.default_supplier_id = $%d OR EXISTS (
            SELECT 1 FROM price_histories ph WHERE ph.pricebook_item_id = i.id AND ph.supplier_id = $%d))`, argIdx, argIdx)
		args = append(args, *filter.SupplierID)
		argIdx++
	}
	if filter.MinPrice != nil {
		where += fmt.Sprintf(` AND i.current_price >= $%d`, argIdx)
		args = append(args, *filter.MinPrice)
		argIdx++
	}
	if filter.MaxPrice != nil {
		where += fmt.Sprintf(` AND i.current_price <= $%d`, argIdx)
		args = append(args, *filter.MaxPrice)
		argIdx++
	}
	if filter.NeedsPricing != nil {
		where += fmt.Sprintf(` AND i.needs_pricing_review = $%d`, argIdx)
		args = append(args, *filter.NeedsPricing)
		argIdx++
	}

	countQuery := `SELECT COUNT(1) FROM pricebook_items i LEFT JOIN contacts c ON c.id = i.default_supplier_id ` + where
	var total int
	if err := r.db.Get(&total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	orderBy := `i.item_code`
	if col, ok := sortColumns[filter.SortBy]; ok {
		orderBy = col
	}
	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}

	listQuery := itemSelect + ` ` + where +
		fmt.Sprintf(` ORDER BY %s %s LIMIT $%d OFFSET $%d`, orderBy, dir, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	var items []models.PricebookItem
	if err := r.db.Select(&items, listQuery, args...); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetByID returns a single item by id with the default supplier name joined.
func (r *PricebookRepository) GetByID(id int) (*models.PricebookItem, error) {
	q := itemSelect + ` WHERE i.id = $1 LIMIT 1`
	var item models.PricebookItem
	if err := r.db.Get(&item, q, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetByItemCode returns a single item by its code.
func (r *PricebookRepository) GetByItemCode(code string) (*models.PricebookItem, error) {
	q := itemSelect + ` WHERE i.item_code = $1 LIMIT 1`
	var item models.PricebookItem
	if err := r.db.Get(&item, q, code); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new pricebook item.
func (r *PricebookRepository) Create(item *models.PricebookItem) error {
	const q = `
        INSERT INTO pricebook_items (item_code, item_name, category, brand, unit_of_measure,
            current_price, default_supplier_id, needs_pricing_review, notes, is_active, price_last_updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRowx(q,
		item.ItemCode, item.ItemName, item.Category, item.Brand, item.UnitOfMeasure,
		item.CurrentPrice, item.DefaultSupplierID, item.NeedsPricingReview, item.Notes,
		item.IsActive, item.PriceLastUpdatedAt,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

// Update updates an existing pricebook item.
func (r *PricebookRepository) Update(item *models.PricebookItem) error {
	const q = `
        UPDATE pricebook_items
        SET item_code = $1, item_name = $2, category = $3, brand = $4, unit_of_measure = $5,
            current_price = $6, default_supplier_id = $7, needs_pricing_review = $8,
            notes = $9, is_active = $10, price_last_updated_at = $11, updated_at = NOW()
        WHERE id = $12
        RETURNING updated_at`
	return r.db.QueryRowx(q,
		item.ItemCode, item.ItemName, item.Category, item.Brand, item.UnitOfMeasure,
		item.CurrentPrice, item.DefaultSupplierID, item.NeedsPricingReview, item.Notes,
		item.IsActive, item.PriceLastUpdatedAt, item.ID,
	).Scan(&item.UpdatedAt)
}

// SoftDelete marks an item inactive.
func (r *PricebookRepository) SoftDelete(id int) error {
	res, err := r.db.Exec(`UPDATE pricebook_items SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Categories returns the distinct non-null categories of active items.
func (r *PricebookRepository) Categories() ([]string, error) {
	var categories []string
	const q = `SELECT DISTINCT category FROM pricebook_items WHERE category IS NOT NULL AND is_active = true ORDER BY category`
	if err := r.db.Select(&categories, q); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListWithDefaultSupplier returns all active items that have a default
// supplier set. Used by the price health check.
func (r *PricebookRepository) ListWithDefaultSupplier() ([]models.PricebookItem, error) {
	q := itemSelect + ` WHERE i.is_active = true AND i.default_supplier_id IS NOT NULL ORDER BY i.id`
	var items []models.PricebookItem
	if err := r.db.Select(&items, q); err != nil {
		return nil, err
	}
	return items, nil
}
