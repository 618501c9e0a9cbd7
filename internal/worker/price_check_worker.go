package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradeworks/backoffice_api/internal/service"
	"github.com/tradeworks/backoffice_api/internal/sse"
)

// PriceCheckWorker periodically audits stored item prices against the
// resolved active price for each item's default supplier and flags
// discrepancies for review.
type PriceCheckWorker struct {
	pricebookSvc *service.PricebookService
	notifier     sse.Notifier
	interval     time.Duration
}

// NewPriceCheckWorker constructs a PriceCheckWorker.
func NewPriceCheckWorker(pricebookSvc *service.PricebookService, notifier sse.Notifier, interval time.Duration) *PriceCheckWorker {
	if notifier == nil {
		notifier = sse.NopNotifier{}
	}
	return &PriceCheckWorker{
		pricebookSvc: pricebookSvc,
		notifier:     notifier,
		interval:     interval,
	}
}

// Start begins the periodic health check loop until context is canceled.
func (w *PriceCheckWorker) Start(ctx context.Context) {
	log.Info().
		Dur("interval", w.interval).
		Msg("Starting price check worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Price check worker stopped")
			return
		}
	}
}

func (w *PriceCheckWorker) run(ctx context.Context) {
	issues, err := w.pricebookSvc.PriceHealthCheck(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Price health check failed")
		return
	}
	if len(issues) == 0 {
		log.Debug().Msg("Price health check found no issues")
		return
	}

	log.Warn().Int("count", len(issues)).Msg("Price health check found stale prices")
	for _, issue := range issues {
		log.Warn().
			Int("item_id", issue.ItemID).
			Str("item_code", issue.ItemCode).
			Str("active_price", issue.ActivePrice.String()).
			Msg("Stored price disagrees with active supplier price")
	}

	w.notifier.NotifyPriceHealthCheck(len(issues))
}
