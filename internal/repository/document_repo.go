package repository

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tradeworks/backoffice_api/internal/models"
)

// DocumentRepository handles data access for ingested documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// List returns documents, optionally filtered by status, newest first.
func (r *DocumentRepository) List(status string, page, limit int) ([]models.Document, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	offset := (page - 1) * limit

	where := `WHERE 1=1`
	args := []interface{}{}
	argIdx := 1
	if status != "" {
		where += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, status)
		argIdx++
	}

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(1) FROM documents `+where, args...); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT * FROM documents ` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	var docs []models.Document
	if err := r.db.Select(&docs, listQuery, args...); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// GetByID returns a single document by id.
func (r *DocumentRepository) GetByID(id int) (*models.Document, error) {
	var d models.Document
	if err := r.db.Get(&d, `SELECT * FROM documents WHERE id = $1 LIMIT 1`, id); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document in pending status.
func (r *DocumentRepository) Create(d *models.Document) error {
	const q = `
        INSERT INTO documents (file_name, content_type, source, raw_text, status, uploaded_by)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRowx(q,
		d.FileName, d.ContentType, d.Source, d.RawText, d.Status, d.UploadedBy,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// GetPendingForAnalysis claims up to limit pending documents by flipping them
// to processing, so concurrent workers never analyze the same document twice.
func (r *DocumentRepository) GetPendingForAnalysis(limit int) ([]models.Document, error) {
	const q = `
        UPDATE documents SET status = 'processing', updated_at = NOW()
        WHERE id IN (
            SELECT id FROM documents WHERE status = 'pending'
            ORDER BY created_at LIMIT $1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING *`
	var docs []models.Document
	if err := r.db.Select(&docs, q, limit); err != nil {
		return nil, err
	}
	return docs, nil
}

// SaveExtraction stores the analysis result and final status.
func (r *DocumentRepository) SaveExtraction(d *models.Document) error {
	const q = `
        UPDATE documents
        SET status = $1, extracted_supplier = $2, extracted_total = $3, extracted_date = $4,
            confidence = $5, failure_reason = $6, analyzed_at = NOW(), updated_at = NOW()
        WHERE id = $7
        RETURNING analyzed_at, updated_at`
	return r.db.QueryRowx(q,
		d.Status, d.ExtractedSupplier, d.ExtractedTotal, d.ExtractedDate,
		d.Confidence, d.FailureReason, d.ID,
	).Scan(&d.AnalyzedAt, &d.UpdatedAt)
}

// Requeue puts a document back in pending status for re-analysis.
func (r *DocumentRepository) Requeue(id int) error {
	const q = `
        UPDATE documents
        SET status = 'pending', extracted_supplier = NULL, extracted_total = NULL,
            extracted_date = NULL, confidence = NULL, failure_reason = NULL,
            analyzed_at = NULL, updated_at = NOW()
        WHERE id = $1`
	res, err := r.db.Exec(q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %d not found", id)
	}
	return nil
}
