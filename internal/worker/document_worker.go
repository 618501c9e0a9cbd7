package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradeworks/backoffice_api/internal/service"
)

// DocumentWorker drains pending documents through the extractor. Claim and
// analysis happen in batches so multiple instances can run safely.
type DocumentWorker struct {
	documentSvc *service.DocumentService
	interval    time.Duration
	batchSize   int
}

// NewDocumentWorker constructs a DocumentWorker.
func NewDocumentWorker(documentSvc *service.DocumentService, interval time.Duration) *DocumentWorker {
	return &DocumentWorker{
		documentSvc: documentSvc,
		interval:    interval,
		batchSize:   20,
	}
}

// Start begins the document analysis loop until context is canceled.
func (w *DocumentWorker) Start(ctx context.Context) {
	log.Info().
		Dur("interval", w.interval).
		Int("batch_size", w.batchSize).
		Msg("Starting document worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Document worker stopped")
			return
		}
	}
}

func (w *DocumentWorker) run(ctx context.Context) {
	// Keep claiming batches until the queue is empty.
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed, err := w.documentSvc.ProcessPending(w.batchSize)
		if err != nil {
			log.Error().Err(err).Msg("Failed to process pending documents")
			return
		}
		if processed == 0 {
			return
		}
		log.Info().Int("count", processed).Msg("Processed document batch")
	}
}
