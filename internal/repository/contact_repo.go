package repository

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tradeworks/backoffice_api/internal/models"
)

// ContactRepository handles data access for contacts and suppliers.
type ContactRepository struct {
	db *sqlx.DB
}

// NewContactRepository creates a new ContactRepository.
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// ContactFilter holds filters for contact list queries.
type ContactFilter struct {
	Search      string
	ContactType string
	IsActive    *bool
	Page        int
	Limit       int
}

// List returns contacts matching the filter with pagination and total count.
func (r *ContactRepository) List(filter *ContactFilter) ([]models.Contact, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	offset := (filter.Page - 1) * filter.Limit

	where := `WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.Search != "" {
		where += fmt.Sprintf(` AND (full_name ILIKE '%%' || $%d || '%%' OR email ILIKE '%%' || $%d || '%%')`, argIdx, argIdx)
		args = append(args, filter.Search)
		argIdx++
	}
	if filter.ContactType != "" {
		where += fmt.Sprintf(` AND $%d = ANY(contact_types)`, argIdx)
		args = append(args, filter.ContactType)
		argIdx++
	}
	if filter.IsActive != nil {
		where += fmt.Sprintf(` AND is_active = $%d`, argIdx)
		args = append(args, *filter.IsActive)
		argIdx++
	}

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(1) FROM contacts `+where, args...); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT * FROM contacts ` + where +
		fmt.Sprintf(` ORDER BY full_name LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	var contacts []models.Contact
	if err := r.db.Select(&contacts, listQuery, args...); err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}

// GetByID returns a single contact by id.
func (r *ContactRepository) GetByID(id int) (*models.Contact, error) {
	const q = `SELECT * FROM contacts WHERE id = $1 LIMIT 1`
	var c models.Contact
	if err := r.db.Get(&c, q, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByFullName returns the first active contact matching the name,
// case-insensitively. Used by imports to match supplier columns.
func (r *ContactRepository) GetByFullName(name string) (*models.Contact, error) {
	const q = `SELECT * FROM contacts WHERE LOWER(full_name) = LOWER($1) AND is_active = true ORDER BY id LIMIT 1`
	var c models.Contact
	if err := r.db.Get(&c, q, name); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new contact.
func (r *ContactRepository) Create(c *models.Contact) error {
	const q = `
        INSERT INTO contacts (full_name, email, mobile_phone, office_phone, address, abn, rating, contact_types, notes, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRowx(q,
		c.FullName, c.Email, c.MobilePhone, c.OfficePhone, c.Address, c.ABN,
		c.Rating, pq.Array(c.ContactTypes), c.Notes, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// Update updates an existing contact.
func (r *ContactRepository) Update(c *models.Contact) error {
	const q = `
        UPDATE contacts
        SET full_name = $1, email = $2, mobile_phone = $3, office_phone = $4,
            address = $5, abn = $6, rating = $7, contact_types = $8, notes = $9,
            is_active = $10, updated_at = NOW()
        WHERE id = $11
        RETURNING updated_at`
	return r.db.QueryRowx(q,
		c.FullName, c.Email, c.MobilePhone, c.OfficePhone, c.Address, c.ABN,
		c.Rating, pq.Array(c.ContactTypes), c.Notes, c.IsActive, c.ID,
	).Scan(&c.UpdatedAt)
}

// SoftDelete marks a contact inactive.
func (r *ContactRepository) SoftDelete(id int) error {
	res, err := r.db.Exec(`UPDATE contacts SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReassignPriceHistories moves every price-history record from one supplier
// to another. Used by contact merge.
func (r *ContactRepository) ReassignPriceHistories(fromID, toID int) (int64, error) {
	res, err := r.db.Exec(`UPDATE price_histories SET supplier_id = $2 WHERE supplier_id = $1`, fromID, toID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReassignDefaultSupplier repoints pricebook items whose default supplier is
// fromID to toID. Used by contact merge.
func (r *ContactRepository) ReassignDefaultSupplier(fromID, toID int) (int64, error) {
	res, err := r.db.Exec(`UPDATE pricebook_items SET default_supplier_id = $2, updated_at = NOW() WHERE default_supplier_id = $1`, fromID, toID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SupplierItemIDs returns ids of active pricebook items that reference the
// supplier either as default supplier or through price history.
func (r *ContactRepository) SupplierItemIDs(supplierID int) ([]int, error) {
	const q = `
        SELECT DISTINCT i.id
        FROM pricebook_items i
        LEFT JOIN price_histories ph ON ph.pricebook_item_id = i.id
        WHERE i.is_active = true
          AND (i.default_supplier_id = $1 OR ph.supplier_id = $1)
        ORDER BY i.id`
	var ids []int
	if err := r.db.Select(&ids, q, supplierID); err != nil {
		return nil, err
	}
	return ids, nil
}
