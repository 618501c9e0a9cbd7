package service

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradeworks/backoffice_api/internal/models"
	"github.com/tradeworks/backoffice_api/internal/sse"
	"github.com/tradeworks/backoffice_api/internal/utils"
)

// DocumentStore is the document persistence surface the service needs.
type DocumentStore interface {
	List(status string, page, limit int) ([]models.Document, int, error)
	GetByID(id int) (*models.Document, error)
	Create(d *models.Document) error
	GetPendingForAnalysis(limit int) ([]models.Document, error)
	SaveExtraction(d *models.Document) error
	Requeue(id int) error
}

// DocumentService manages the document intake and analysis pipeline.
type DocumentService struct {
	documents DocumentStore
	extractor DocumentExtractor
	notifier  sse.Notifier
	now       func() time.Time
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(documents DocumentStore, extractor DocumentExtractor, notifier sse.Notifier) *DocumentService {
	if notifier == nil {
		notifier = sse.NopNotifier{}
	}
	return &DocumentService{
		documents: documents,
		extractor: extractor,
		notifier:  notifier,
		now:       time.Now,
	}
}

// ListDocuments returns documents, newest first, optionally filtered by
// status.
func (s *DocumentService) ListDocuments(status string, page, limit int) ([]models.Document, int, error) {
	return s.documents.List(status, page, limit)
}

// GetDocument returns one document.
func (s *DocumentService) GetDocument(id int) (*models.Document, error) {
	d, err := s.documents.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

// CreateDocumentRequest carries an uploaded document.
type CreateDocumentRequest struct {
	FileName    string  `json:"fileName" binding:"required"`
	ContentType string  `json:"contentType" binding:"required"`
	Source      *string `json:"source"`
	RawText     string  `json:"rawText" binding:"required"`
}

// CreateDocument queues a document for analysis.
func (s *DocumentService) CreateDocument(req *CreateDocumentRequest, uploadedBy *int) (*models.Document, error) {
	d := &models.Document{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Source:      req.Source,
		RawText:     req.RawText,
		Status:      models.DocumentStatusPending,
		UploadedBy:  uploadedBy,
	}
	if err := s.documents.Create(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Reprocess puts an analyzed or failed document back in the pending queue.
func (s *DocumentService) Reprocess(id int) (*models.Document, error) {
	if _, err := s.GetDocument(id); err != nil {
		return nil, err
	}
	if err := s.documents.Requeue(id); err != nil {
		return nil, err
	}
	return s.GetDocument(id)
}

// ProcessPending claims up to limit pending documents and runs the extractor
// over each. Returns how many were processed. Claimed documents always leave
// the processing status, as analyzed or failed.
func (s *DocumentService) ProcessPending(limit int) (int, error) {
	docs, err := s.documents.GetPendingForAnalysis(limit)
	if err != nil {
		return 0, err
	}

	for i := range docs {
		s.analyze(&docs[i])
	}
	return len(docs), nil
}

func (s *DocumentService) analyze(d *models.Document) {
	extraction, err := s.extractor.Extract(d.RawText)
	now := s.now()
	d.AnalyzedAt = &now

	if err != nil {
		reason := err.Error()
		d.Status = models.DocumentStatusFailed
		d.FailureReason = &reason
	} else {
		d.Status = models.DocumentStatusAnalyzed
		d.ExtractedSupplier = extraction.Supplier
		d.ExtractedTotal = extraction.Total
		d.ExtractedDate = extraction.Date
		d.Confidence = &extraction.Confidence
		d.FailureReason = nil
	}

	if err := s.documents.SaveExtraction(d); err != nil {
		log.Error().Err(err).Int("document_id", d.ID).Msg("Failed to save document extraction")
		return
	}

	log.Info().
		Int("document_id", d.ID).
		Str("status", string(d.Status)).
		Msg("Analyzed document")
	if d.Status == models.DocumentStatusAnalyzed {
		s.notifier.NotifyDocumentAnalyzed(d)
	}
}
