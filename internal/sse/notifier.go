package sse

import (
	"time"

	"github.com/tradeworks/backoffice_api/internal/models"
)

// Notifier is the interface services use to emit console events.
type Notifier interface {
	NotifyPriceChanged(item *models.PricebookItem, history *models.PriceHistory)
	NotifyDefaultSupplierSet(item *models.PricebookItem)
	NotifyDocumentAnalyzed(doc *models.Document)
	NotifyPriceHealthCheck(issueCount int)
}

// HubNotifier implements Notifier using the SSE Hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyPriceChanged(item *models.PricebookItem, history *models.PriceHistory) {
	if n.hub.ClientCount() == 0 {
		return
	}
	ev := &Event{
		Event:     EventPriceChanged,
		ItemID:    &item.ID,
		ItemCode:  &item.ItemCode,
		Timestamp: time.Now(),
	}
	if history != nil {
		ev.SupplierID = history.SupplierID
		ev.NewPrice.Decimal = history.NewPrice
		ev.NewPrice.Valid = true
	}
	n.hub.Broadcast(ev)
}

func (n *HubNotifier) NotifyDefaultSupplierSet(item *models.PricebookItem) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&Event{
		Event:      EventDefaultSupplierSet,
		ItemID:     &item.ID,
		ItemCode:   &item.ItemCode,
		SupplierID: item.DefaultSupplierID,
		NewPrice:   item.CurrentPrice,
		Timestamp:  time.Now(),
	})
}

func (n *HubNotifier) NotifyDocumentAnalyzed(doc *models.Document) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&Event{
		Event:      EventDocumentAnalyzed,
		DocumentID: &doc.ID,
		Message:    string(doc.Status),
		Timestamp:  time.Now(),
	})
}

func (n *HubNotifier) NotifyPriceHealthCheck(issueCount int) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&Event{
		Event:      EventPriceHealthCheckDone,
		IssueCount: &issueCount,
		Timestamp:  time.Now(),
	})
}

// NopNotifier is a no-op implementation for when SSE is not needed.
type NopNotifier struct{}

func (NopNotifier) NotifyPriceChanged(*models.PricebookItem, *models.PriceHistory) {}
func (NopNotifier) NotifyDefaultSupplierSet(*models.PricebookItem)                 {}
func (NopNotifier) NotifyDocumentAnalyzed(*models.Document)                        {}
func (NopNotifier) NotifyPriceHealthCheck(int)                                     {}
