package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tradeworks/backoffice_api/internal/cache"
	"github.com/tradeworks/backoffice_api/internal/models"
	"github.com/tradeworks/backoffice_api/internal/pricing"
	"github.com/tradeworks/backoffice_api/internal/repository"
	"github.com/tradeworks/backoffice_api/internal/sse"
	"github.com/tradeworks/backoffice_api/internal/utils"
)

// ItemStore is the pricebook persistence surface the service needs.
type ItemStore interface {
	List(filter *repository.ItemFilter) ([]models.PricebookItem, int, error)
	GetByID(id int) (*models.PricebookItem, error)
	GetByItemCode(code string) (*models.PricebookItem, error)
	Create(item *models.PricebookItem) error
	Update(item *models.PricebookItem) error
	SoftDelete(id int) error
	Categories() ([]string, error)
	ListWithDefaultSupplier() ([]models.PricebookItem, error)
}

// HistoryStore is the price-history persistence surface the service needs.
type HistoryStore interface {
	ListByItem(itemID int) ([]models.PriceHistory, error)
	ListByItems(itemIDs []int) (map[int][]models.PriceHistory, error)
	GetByID(itemID, historyID int) (*models.PriceHistory, error)
	LatestForSupplier(itemID, supplierID int) (*models.PriceHistory, error)
	Create(h *models.PriceHistory) error
	Update(h *models.PriceHistory) error
	Delete(itemID, historyID int) (bool, error)
}

// PricebookService implements pricebook item and price-history operations.
// All "active price" decisions go through the pricing package so every
// caller agrees on what the current price is.
type PricebookService struct {
	items      ItemStore
	histories  HistoryStore
	priceCache *cache.PriceCache
	notifier   sse.Notifier
	now        func() time.Time
}

// NewPricebookService constructs a PricebookService. priceCache may be nil
// when caching is disabled.
func NewPricebookService(items ItemStore, histories HistoryStore, priceCache *cache.PriceCache, notifier sse.Notifier) *PricebookService {
	if notifier == nil {
		notifier = sse.NopNotifier{}
	}
	return &PricebookService{
		items:      items,
		histories:  histories,
		priceCache: priceCache,
		notifier:   notifier,
		now:        time.Now,
	}
}

// ItemListing is one row of the pricebook listing with its resolved price.
type ItemListing struct {
	models.PricebookItem
	DisplayPrice decimal.NullDecimal `json:"displayPrice"`
}

// ListResult is the paginated pricebook listing with filter metadata.
type ListResult struct {
	Items      []ItemListing `json:"items"`
	TotalItems int           `json:"totalItems"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	Categories []string      `json:"categories"`
}

// ListItems returns items matching the filter plus the category list used to
// populate filter dropdowns. Each row carries the resolver's display price so
// the listing agrees with the detail view.
func (s *PricebookService) ListItems(filter *repository.ItemFilter) (*ListResult, error) {
	items, total, err := s.items.List(filter)
	if err != nil {
		return nil, err
	}
	categories, err := s.items.Categories()
	if err != nil {
		return nil, err
	}

	listings := make([]ItemListing, len(items))
	if len(items) > 0 {
		itemIDs := make([]int, len(items))
		for i := range items {
			itemIDs[i] = items[i].ID
		}
		historiesByItem, err := s.histories.ListByItems(itemIDs)
		if err != nil {
			return nil, err
		}
		today := pricing.Day(s.now())
		for i := range items {
			items[i].PriceHistories = historiesByItem[items[i].ID]
			listings[i] = ItemListing{
				PricebookItem: items[i],
				DisplayPrice:  pricing.ResolveDisplayPrice(&items[i], today),
			}
		}
	}

	return &ListResult{
		Items:      listings,
		TotalItems: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Categories: categories,
	}, nil
}

// ItemDetail is one item with its resolved price view and history table.
type ItemDetail struct {
	Item         *models.PricebookItem `json:"item"`
	DisplayPrice decimal.NullDecimal   `json:"displayPrice"`
	ActiveID     *int                  `json:"activeId,omitempty"`
	History      []pricing.Row         `json:"history"`
}

// GetItem returns an item with its full price history and the resolver's
// view of it. showAll controls the history table shape.
func (s *PricebookService) GetItem(ctx context.Context, id int, showAll bool) (*ItemDetail, error) {
	item, err := s.items.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrItemNotFound
		}
		return nil, err
	}

	histories, err := s.histories.ListByItem(id)
	if err != nil {
		return nil, err
	}
	item.PriceHistories = histories

	today := pricing.Day(s.now())
	detail := &ItemDetail{
		Item:         item,
		DisplayPrice: pricing.ResolveDisplayPrice(item, today),
		History:      pricing.BuildHistoryTable(item, today, pricing.TableOptions{ShowAll: showAll}),
	}
	if active := pricing.ResolveActiveRecord(histories, item.DefaultSupplierID, today); active != nil {
		detail.ActiveID = &active.ID
	}

	s.storePriceView(ctx, item.ID, detail)
	return detail, nil
}

// DisplayPrice returns the display price for one item, served from cache
// when a fresh entry exists.
func (s *PricebookService) DisplayPrice(ctx context.Context, id int) (decimal.NullDecimal, error) {
	if s.priceCache != nil {
		if view, err := s.priceCache.Get(ctx, id); err == nil && view != nil {
			return view.DisplayPrice, nil
		}
	}
	detail, err := s.GetItem(ctx, id, false)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return detail.DisplayPrice, nil
}

func (s *PricebookService) storePriceView(ctx context.Context, itemID int, detail *ItemDetail) {
	if s.priceCache == nil {
		return
	}
	view := &cache.PriceView{
		ItemID:       itemID,
		DisplayPrice: detail.DisplayPrice,
		ActiveID:     detail.ActiveID,
	}
	if err := s.priceCache.Set(ctx, view); err != nil {
		log.Warn().Err(err).Int("item_id", itemID).Msg("Failed to cache price view")
	}
}

func (s *PricebookService) invalidatePrice(ctx context.Context, itemIDs ...int) {
	if s.priceCache == nil {
		return
	}
	if err := s.priceCache.Invalidate(ctx, itemIDs...); err != nil {
		log.Warn().Err(err).Ints("item_ids", itemIDs).Msg("Failed to invalidate price cache")
	}
}

// CreateItemRequest carries the fields to create a pricebook item.
type CreateItemRequest struct {
	ItemCode          string              `json:"itemCode" binding:"required"`
	ItemName          string              `json:"itemName" binding:"required"`
	Category          *string             `json:"category"`
	Brand             *string             `json:"brand"`
	UnitOfMeasure     string              `json:"unitOfMeasure" binding:"required"`
	CurrentPrice      decimal.NullDecimal `json:"currentPrice"`
	DefaultSupplierID *int                `json:"defaultSupplierId"`
	Notes             *string             `json:"notes"`
}

// CreateItem creates a pricebook item. Items without a price are flagged for
// pricing review.
func (s *PricebookService) CreateItem(req *CreateItemRequest) (*models.PricebookItem, error) {
	if existing, err := s.items.GetByItemCode(req.ItemCode); err == nil && existing != nil {
		return nil, utils.ErrItemCodeExists
	}

	item := &models.PricebookItem{
		ItemCode:          req.ItemCode,
		ItemName:          req.ItemName,
		Category:          req.Category,
		Brand:             req.Brand,
		UnitOfMeasure:     req.UnitOfMeasure,
		CurrentPrice:      req.CurrentPrice,
		DefaultSupplierID: req.DefaultSupplierID,
		Notes:             req.Notes,
		IsActive:          true,
	}
	if req.CurrentPrice.Valid {
		now := s.now()
		item.PriceLastUpdatedAt = &now
	}
	refreshPricingReview(item)

	if err := s.items.Create(item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItemRequest carries the editable fields of an item. Nil pointers
// leave the field unchanged.
type UpdateItemRequest struct {
	ItemName          *string              `json:"itemName"`
	Category          *string              `json:"category"`
	Brand             *string              `json:"brand"`
	UnitOfMeasure     *string              `json:"unitOfMeasure"`
	CurrentPrice      *decimal.NullDecimal `json:"currentPrice"`
	DefaultSupplierID *int                 `json:"defaultSupplierId"`
	Notes             *string              `json:"notes"`
}

// UpdateItem applies a partial update to an item.
func (s *PricebookService) UpdateItem(ctx context.Context, id int, req *UpdateItemRequest) (*models.PricebookItem, error) {
	item, err := s.items.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrItemNotFound
		}
		return nil, err
	}

	if req.ItemName != nil {
		item.ItemName = *req.ItemName
	}
	if req.Category != nil {
		item.Category = req.Category
	}
	if req.Brand != nil {
		item.Brand = req.Brand
	}
	if req.UnitOfMeasure != nil {
		item.UnitOfMeasure = *req.UnitOfMeasure
	}
	if req.CurrentPrice != nil {
		item.CurrentPrice = *req.CurrentPrice
		if req.CurrentPrice.Valid {
			now := s.now()
			item.PriceLastUpdatedAt = &now
		}
	}
	if req.DefaultSupplierID != nil {
		item.DefaultSupplierID = req.DefaultSupplierID
	}
	if req.Notes != nil {
		item.Notes = req.Notes
	}
	refreshPricingReview(item)

	if err := s.items.Update(item); err != nil {
		return nil, err
	}
	s.invalidatePrice(ctx, id)
	return item, nil
}

// DeleteItem soft-deletes an item.
func (s *PricebookService) DeleteItem(ctx context.Context, id int) error {
	if err := s.items.SoftDelete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrItemNotFound
		}
		return err
	}
	s.invalidatePrice(ctx, id)
	return nil
}

// AddPriceRequest records a new quoted price for an item.
type AddPriceRequest struct {
	Price          decimal.Decimal `json:"price" binding:"required"`
	SupplierID     *int            `json:"supplierId"`
	DateEffective  *string         `json:"dateEffective"` // YYYY-MM-DD, defaults to today
	LGA            *string         `json:"lga"`
	QuoteReference *string         `json:"quoteReference"`
	ChangeReason   *string         `json:"changeReason"`
}

// AddPrice sets the item's current price and appends a history record. When
// the item has no default supplier yet and the price names one, that supplier
// becomes the default.
func (s *PricebookService) AddPrice(ctx context.Context, itemID int, req *AddPriceRequest) (*models.PricebookItem, *models.PriceHistory, error) {
	item, err := s.items.GetByID(itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, utils.ErrItemNotFound
		}
		return nil, nil, err
	}

	dateEffective, err := s.parseDateEffective(req.DateEffective)
	if err != nil {
		return nil, nil, err
	}

	oldPrice := item.CurrentPrice
	item.CurrentPrice = decimal.NullDecimal{Decimal: req.Price, Valid: true}
	now := s.now()
	item.PriceLastUpdatedAt = &now
	if item.DefaultSupplierID == nil && req.SupplierID != nil {
		item.DefaultSupplierID = req.SupplierID
	}
	refreshPricingReview(item)

	if err := s.items.Update(item); err != nil {
		return nil, nil, err
	}

	reason := "manual_price_update"
	if req.ChangeReason != nil && *req.ChangeReason != "" {
		reason = *req.ChangeReason
	}
	history := &models.PriceHistory{
		PricebookItemID: itemID,
		SupplierID:      req.SupplierID,
		OldPrice:        oldPrice,
		NewPrice:        req.Price,
		DateEffective:   &dateEffective,
		LGA:             req.LGA,
		QuoteReference:  req.QuoteReference,
		ChangeReason:    &reason,
	}
	if err := s.histories.Create(history); err != nil {
		return nil, nil, err
	}

	s.invalidatePrice(ctx, itemID)
	s.notifier.NotifyPriceChanged(item, history)
	return item, history, nil
}

// SetDefaultSupplier designates a supplier as authoritative for the item and
// backfills the current price from that supplier's most recently entered
// record when one exists.
func (s *PricebookService) SetDefaultSupplier(ctx context.Context, itemID, supplierID int) (*models.PricebookItem, error) {
	item, err := s.items.GetByID(itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrItemNotFound
		}
		return nil, err
	}

	item.DefaultSupplierID = &supplierID

	latest, err := s.histories.LatestForSupplier(itemID, supplierID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if latest != nil {
		item.CurrentPrice = decimal.NullDecimal{Decimal: latest.NewPrice, Valid: true}
		now := s.now()
		item.PriceLastUpdatedAt = &now
	}
	refreshPricingReview(item)

	if err := s.items.Update(item); err != nil {
		return nil, err
	}
	s.invalidatePrice(ctx, itemID)
	s.notifier.NotifyDefaultSupplierSet(item)
	return item, nil
}

// UpdateHistoryRequest carries the editable fields of a history record.
type UpdateHistoryRequest struct {
	SupplierID     *int                 `json:"supplierId"`
	OldPrice       *decimal.NullDecimal `json:"oldPrice"`
	NewPrice       *decimal.Decimal     `json:"newPrice"`
	DateEffective  *string              `json:"dateEffective"`
	LGA            *string              `json:"lga"`
	ChangeReason   *string              `json:"changeReason"`
	QuoteReference *string              `json:"quoteReference"`
}

// UpdatePriceHistory edits one history record.
func (s *PricebookService) UpdatePriceHistory(ctx context.Context, itemID, historyID int, req *UpdateHistoryRequest) (*models.PriceHistory, error) {
	history, err := s.histories.GetByID(itemID, historyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrHistoryNotFound
		}
		return nil, err
	}

	if req.SupplierID != nil {
		history.SupplierID = req.SupplierID
	}
	if req.OldPrice != nil {
		history.OldPrice = *req.OldPrice
	}
	if req.NewPrice != nil {
		history.NewPrice = *req.NewPrice
	}
	if req.DateEffective != nil {
		d, err := s.parseDateEffective(req.DateEffective)
		if err != nil {
			return nil, err
		}
		history.DateEffective = &d
	}
	if req.LGA != nil {
		history.LGA = req.LGA
	}
	if req.ChangeReason != nil {
		history.ChangeReason = req.ChangeReason
	}
	if req.QuoteReference != nil {
		history.QuoteReference = req.QuoteReference
	}

	if err := s.histories.Update(history); err != nil {
		return nil, err
	}
	s.invalidatePrice(ctx, itemID)
	return history, nil
}

// DeletePriceHistory removes one history record.
func (s *PricebookService) DeletePriceHistory(ctx context.Context, itemID, historyID int) error {
	deleted, err := s.histories.Delete(itemID, historyID)
	if err != nil {
		return err
	}
	if !deleted {
		return utils.ErrHistoryNotFound
	}
	s.invalidatePrice(ctx, itemID)
	return nil
}

// BulkItemUpdate is one entry of a bulk update request.
type BulkItemUpdate struct {
	ID                int                  `json:"id" binding:"required"`
	CurrentPrice      *decimal.NullDecimal `json:"currentPrice"`
	DefaultSupplierID *int                 `json:"defaultSupplierId"`
	Category          *string              `json:"category"`
	Notes             *string              `json:"notes"`

	// UpdatePriceToCurrentDefault records the item's current price against
	// the new default supplier when that supplier has no matching record.
	UpdatePriceToCurrentDefault bool `json:"updatePriceToCurrentDefault"`

	// CreateOrUpdatePrice records NewPrice against the new default supplier.
	CreateOrUpdatePrice bool             `json:"createOrUpdatePrice"`
	NewPrice            *decimal.Decimal `json:"newPrice"`
}

// BulkUpdateResult reports the outcome of a bulk update.
type BulkUpdateResult struct {
	Success       []int             `json:"success"`
	Errors        []BulkUpdateError `json:"errors"`
	PricesUpdated int               `json:"pricesUpdated"`
}

// BulkUpdateError reports one failed entry.
type BulkUpdateError struct {
	ID    int    `json:"id"`
	Error string `json:"error"`
}

// BulkUpdate applies a set of item updates, optionally creating price-history
// records when default suppliers change. Entries fail independently.
func (s *PricebookService) BulkUpdate(ctx context.Context, updates []BulkItemUpdate) (*BulkUpdateResult, error) {
	result := &BulkUpdateResult{Success: []int{}, Errors: []BulkUpdateError{}}
	today := pricing.Day(s.now())

	for _, u := range updates {
		item, err := s.items.GetByID(u.ID)
		if err != nil {
			result.Errors = append(result.Errors, BulkUpdateError{ID: u.ID, Error: "item not found"})
			continue
		}

		if u.UpdatePriceToCurrentDefault && u.DefaultSupplierID != nil && item.CurrentPrice.Valid {
			created, err := s.ensureSupplierPrice(u.ID, *u.DefaultSupplierID, item.CurrentPrice.Decimal, today,
				"Updated to match current default price when setting as default supplier")
			if err != nil {
				result.Errors = append(result.Errors, BulkUpdateError{ID: u.ID, Error: err.Error()})
				continue
			}
			if created {
				result.PricesUpdated++
			}
		}

		if u.CreateOrUpdatePrice && u.DefaultSupplierID != nil && u.NewPrice != nil {
			created, err := s.ensureSupplierPrice(u.ID, *u.DefaultSupplierID, *u.NewPrice, today,
				"Price updated when setting as default supplier")
			if err != nil {
				result.Errors = append(result.Errors, BulkUpdateError{ID: u.ID, Error: err.Error()})
				continue
			}
			if created {
				result.PricesUpdated++
			}
		}

		if u.CurrentPrice != nil {
			item.CurrentPrice = *u.CurrentPrice
			if u.CurrentPrice.Valid {
				now := s.now()
				item.PriceLastUpdatedAt = &now
			}
		}
		if u.DefaultSupplierID != nil {
			item.DefaultSupplierID = u.DefaultSupplierID
		}
		if u.Category != nil {
			item.Category = u.Category
		}
		if u.Notes != nil {
			item.Notes = u.Notes
		}
		refreshPricingReview(item)

		if err := s.items.Update(item); err != nil {
			result.Errors = append(result.Errors, BulkUpdateError{ID: u.ID, Error: err.Error()})
			continue
		}
		s.invalidatePrice(ctx, u.ID)
		result.Success = append(result.Success, u.ID)
	}
	return result, nil
}

// ensureSupplierPrice creates a history record for the supplier unless their
// latest record already carries the same price. Reports whether a record was
// created.
func (s *PricebookService) ensureSupplierPrice(itemID, supplierID int, newPrice decimal.Decimal, dateEffective time.Time, reason string) (bool, error) {
	latest, err := s.histories.LatestForSupplier(itemID, supplierID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	if latest != nil && latest.NewPrice.Equal(newPrice) {
		return false, nil
	}

	oldPrice := decimal.NullDecimal{Decimal: newPrice, Valid: true}
	if latest != nil {
		oldPrice = decimal.NullDecimal{Decimal: latest.NewPrice, Valid: true}
	}
	history := &models.PriceHistory{
		PricebookItemID: itemID,
		SupplierID:      &supplierID,
		OldPrice:        oldPrice,
		NewPrice:        newPrice,
		DateEffective:   &dateEffective,
		ChangeReason:    &reason,
	}
	if err := s.histories.Create(history); err != nil {
		return false, err
	}
	return true, nil
}

// PriceIssue is one item whose stored current price disagrees with the
// resolver's active price for its default supplier.
type PriceIssue struct {
	ItemID              int                 `json:"itemId"`
	ItemCode            string              `json:"itemCode"`
	ItemName            string              `json:"itemName"`
	DefaultSupplierID   int                 `json:"defaultSupplierId"`
	DefaultSupplierName *string             `json:"defaultSupplierName,omitempty"`
	CurrentPrice        decimal.NullDecimal `json:"currentPrice"`
	ActivePriceID       int                 `json:"activePriceId"`
	ActivePrice         decimal.Decimal     `json:"activePrice"`
	ActivePriceDate     time.Time           `json:"activePriceDate"`
}

// PriceHealthCheck scans items with a default supplier and reports those
// whose stored current price differs from the resolved active price.
func (s *PricebookService) PriceHealthCheck(ctx context.Context) ([]PriceIssue, error) {
	items, err := s.items.ListWithDefaultSupplier()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []PriceIssue{}, nil
	}

	itemIDs := make([]int, len(items))
	for i := range items {
		itemIDs[i] = items[i].ID
	}
	historiesByItem, err := s.histories.ListByItems(itemIDs)
	if err != nil {
		return nil, err
	}

	today := pricing.Day(s.now())
	issues := []PriceIssue{}
	for i := range items {
		item := &items[i]
		active := pricing.ResolveActiveRecord(historiesByItem[item.ID], item.DefaultSupplierID, today)
		if active == nil {
			continue
		}
		if item.CurrentPrice.Valid && item.CurrentPrice.Decimal.Equal(active.NewPrice) {
			continue
		}

		issueDate := active.CreatedAt
		if active.DateEffective != nil {
			issueDate = *active.DateEffective
		}
		issues = append(issues, PriceIssue{
			ItemID:              item.ID,
			ItemCode:            item.ItemCode,
			ItemName:            item.ItemName,
			DefaultSupplierID:   *item.DefaultSupplierID,
			DefaultSupplierName: item.DefaultSupplierName,
			CurrentPrice:        item.CurrentPrice,
			ActivePriceID:       active.ID,
			ActivePrice:         active.NewPrice,
			ActivePriceDate:     issueDate,
		})
	}
	return issues, nil
}

func (s *PricebookService) parseDateEffective(raw *string) (time.Time, error) {
	if raw == nil || *raw == "" {
		return pricing.Day(s.now()), nil
	}
	d, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return time.Time{}, errors.New("invalid dateEffective, expected YYYY-MM-DD")
	}
	return d, nil
}

// refreshPricingReview flags items without a usable price for review and
// clears the flag once a positive price is set.
func refreshPricingReview(item *models.PricebookItem) {
	if !item.CurrentPrice.Valid || item.CurrentPrice.Decimal.IsZero() {
		item.NeedsPricingReview = true
	} else if item.NeedsPricingReview && item.CurrentPrice.Decimal.IsPositive() {
		item.NeedsPricingReview = false
	}
}
