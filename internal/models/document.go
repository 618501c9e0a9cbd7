package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentStatus enumerates the document intake lifecycle.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusAnalyzed   DocumentStatus = "analyzed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is an ingested file (invoice, quote, delivery docket) queued for
// analysis. Extraction runs in-process; extracted fields stay nil until the
// document reaches the analyzed status.
type Document struct {
	ID          int            `db:"id" json:"id"`
	FileName    string         `db:"file_name" json:"fileName"`
	ContentType string         `db:"content_type" json:"contentType"`
	Source      *string        `db:"source" json:"source,omitempty"`
	RawText     string         `db:"raw_text" json:"-"`
	Status      DocumentStatus `db:"status" json:"status"`
	UploadedBy  *int           `db:"uploaded_by" json:"uploadedBy,omitempty"`

	ExtractedSupplier *string             `db:"extracted_supplier" json:"extractedSupplier,omitempty"`
	ExtractedTotal    decimal.NullDecimal `db:"extracted_total" json:"extractedTotal"`
	ExtractedDate     *time.Time          `db:"extracted_date" json:"extractedDate,omitempty"`
	Confidence        *float64            `db:"confidence" json:"confidence,omitempty"`
	FailureReason     *string             `db:"failure_reason" json:"failureReason,omitempty"`

	AnalyzedAt *time.Time `db:"analyzed_at" json:"analyzedAt,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
}
