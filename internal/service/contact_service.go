package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tradeworks/backoffice_api/internal/models"
	"github.com/tradeworks/backoffice_api/internal/pricing"
	"github.com/tradeworks/backoffice_api/internal/repository"
	"github.com/tradeworks/backoffice_api/internal/utils"
)

// ContactStore is the contact persistence surface the service needs.
type ContactStore interface {
	List(filter *repository.ContactFilter) ([]models.Contact, int, error)
	GetByID(id int) (*models.Contact, error)
	GetByFullName(name string) (*models.Contact, error)
	Create(c *models.Contact) error
	Update(c *models.Contact) error
	SoftDelete(id int) error
	ReassignPriceHistories(fromID, toID int) (int64, error)
	ReassignDefaultSupplier(fromID, toID int) (int64, error)
	SupplierItemIDs(supplierID int) ([]int, error)
}

// ContactService implements contact and supplier operations. Supplier price
// views reuse the pricing resolver so they agree with the pricebook screens.
type ContactService struct {
	contacts  ContactStore
	items     ItemStore
	histories HistoryStore
	pricebook *PricebookService
	now       func() time.Time
}

// NewContactService constructs a ContactService.
func NewContactService(contacts ContactStore, items ItemStore, histories HistoryStore, pricebook *PricebookService) *ContactService {
	return &ContactService{
		contacts:  contacts,
		items:     items,
		histories: histories,
		pricebook: pricebook,
		now:       time.Now,
	}
}

// ListContacts returns contacts matching the filter.
func (s *ContactService) ListContacts(filter *repository.ContactFilter) ([]models.Contact, int, error) {
	return s.contacts.List(filter)
}

// GetContact returns one contact.
func (s *ContactService) GetContact(id int) (*models.Contact, error) {
	c, err := s.contacts.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrContactNotFound
		}
		return nil, err
	}
	return c, nil
}

// ContactRequest carries the fields to create or replace a contact.
type ContactRequest struct {
	FullName     string   `json:"fullName" binding:"required"`
	Email        *string  `json:"email"`
	MobilePhone  *string  `json:"mobilePhone"`
	OfficePhone  *string  `json:"officePhone"`
	Address      *string  `json:"address"`
	ABN          *string  `json:"abn"`
	Rating       *int     `json:"rating"`
	ContactTypes []string `json:"contactTypes"`
	Notes        *string  `json:"notes"`
}

// CreateContact creates a contact.
func (s *ContactService) CreateContact(req *ContactRequest) (*models.Contact, error) {
	c := &models.Contact{
		FullName:     req.FullName,
		Email:        req.Email,
		MobilePhone:  req.MobilePhone,
		OfficePhone:  req.OfficePhone,
		Address:      req.Address,
		ABN:          req.ABN,
		Rating:       req.Rating,
		ContactTypes: pq.StringArray(req.ContactTypes),
		Notes:        req.Notes,
		IsActive:     true,
	}
	if err := s.contacts.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateContact replaces a contact's editable fields.
func (s *ContactService) UpdateContact(id int, req *ContactRequest) (*models.Contact, error) {
	c, err := s.GetContact(id)
	if err != nil {
		return nil, err
	}

	c.FullName = req.FullName
	c.Email = req.Email
	c.MobilePhone = req.MobilePhone
	c.OfficePhone = req.OfficePhone
	c.Address = req.Address
	c.ABN = req.ABN
	c.Rating = req.Rating
	c.ContactTypes = pq.StringArray(req.ContactTypes)
	c.Notes = req.Notes

	if err := s.contacts.Update(c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteContact soft-deletes a contact.
func (s *ContactService) DeleteContact(id int) error {
	if err := s.contacts.SoftDelete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrContactNotFound
		}
		return err
	}
	return nil
}

// MergeResult reports how many references moved during a merge.
type MergeResult struct {
	Target              *models.Contact `json:"target"`
	HistoriesReassigned int64           `json:"historiesReassigned"`
	ItemsReassigned     int64           `json:"itemsReassigned"`
}

// MergeContacts repoints all price-history and default-supplier references
// from the source contact to the target, then soft-deletes the source.
func (s *ContactService) MergeContacts(sourceID, targetID int) (*MergeResult, error) {
	if sourceID == targetID {
		return nil, utils.ErrMergeSameContact
	}
	if _, err := s.GetContact(sourceID); err != nil {
		return nil, err
	}
	target, err := s.GetContact(targetID)
	if err != nil {
		return nil, err
	}

	histories, err := s.contacts.ReassignPriceHistories(sourceID, targetID)
	if err != nil {
		return nil, err
	}
	items, err := s.contacts.ReassignDefaultSupplier(sourceID, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.contacts.SoftDelete(sourceID); err != nil {
		return nil, err
	}

	log.Info().
		Int("source_id", sourceID).
		Int("target_id", targetID).
		Int64("histories", histories).
		Int64("items", items).
		Msg("Merged contacts")
	return &MergeResult{Target: target, HistoriesReassigned: histories, ItemsReassigned: items}, nil
}

// SupplierPrice is one item priced by a supplier, as the resolver sees it.
type SupplierPrice struct {
	ItemID        int                 `json:"itemId"`
	ItemCode      string              `json:"itemCode"`
	ItemName      string              `json:"itemName"`
	UnitOfMeasure string              `json:"unitOfMeasure"`
	IsDefault     bool                `json:"isDefault"`
	ActivePrice   decimal.NullDecimal `json:"activePrice"`
	DateEffective *time.Time          `json:"dateEffective,omitempty"`
}

// SupplierPrices returns the supplier's active price for every item they
// supply or default for.
func (s *ContactService) SupplierPrices(supplierID int) ([]SupplierPrice, error) {
	supplier, err := s.GetContact(supplierID)
	if err != nil {
		return nil, err
	}
	if !supplier.IsSupplier() {
		return nil, utils.ErrNotASupplier
	}

	itemIDs, err := s.contacts.SupplierItemIDs(supplierID)
	if err != nil {
		return nil, err
	}
	if len(itemIDs) == 0 {
		return []SupplierPrice{}, nil
	}

	historiesByItem, err := s.histories.ListByItems(itemIDs)
	if err != nil {
		return nil, err
	}

	today := pricing.Day(s.now())
	prices := make([]SupplierPrice, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		item, err := s.items.GetByID(itemID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}

		sp := SupplierPrice{
			ItemID:        item.ID,
			ItemCode:      item.ItemCode,
			ItemName:      item.ItemName,
			UnitOfMeasure: item.UnitOfMeasure,
			IsDefault:     item.DefaultSupplierID != nil && *item.DefaultSupplierID == supplierID,
		}
		if active := pricing.ResolveActiveRecord(historiesByItem[itemID], &supplierID, today); active != nil {
			sp.ActivePrice = decimal.NullDecimal{Decimal: active.NewPrice, Valid: true}
			sp.DateEffective = active.DateEffective
		}
		prices = append(prices, sp)
	}
	return prices, nil
}

// CopyPriceHistoryRequest copies one supplier's latest prices to another.
type CopyPriceHistoryRequest struct {
	TargetSupplierID int      `json:"targetSupplierId" binding:"required"`
	ItemIDs          []int    `json:"itemIds"`
	AdjustPercent    *float64 `json:"adjustPercent"`
}

// CopyPriceHistory copies the source supplier's active price on each item to
// the target supplier as new history records dated today, optionally adjusted
// by a percentage. Limited to ItemIDs when provided.
func (s *ContactService) CopyPriceHistory(sourceID int, req *CopyPriceHistoryRequest) (int, error) {
	if sourceID == req.TargetSupplierID {
		return 0, utils.ErrMergeSameContact
	}
	if _, err := s.GetContact(sourceID); err != nil {
		return 0, err
	}
	target, err := s.GetContact(req.TargetSupplierID)
	if err != nil {
		return 0, err
	}
	if !target.IsSupplier() {
		return 0, utils.ErrNotASupplier
	}

	itemIDs := req.ItemIDs
	if len(itemIDs) == 0 {
		itemIDs, err = s.contacts.SupplierItemIDs(sourceID)
		if err != nil {
			return 0, err
		}
	}
	if len(itemIDs) == 0 {
		return 0, nil
	}

	historiesByItem, err := s.histories.ListByItems(itemIDs)
	if err != nil {
		return 0, err
	}

	adjust := decimal.NewFromInt(1)
	if req.AdjustPercent != nil {
		adjust = decimal.NewFromInt(1).Add(decimal.NewFromFloat(*req.AdjustPercent).Div(decimal.NewFromInt(100)))
	}

	today := pricing.Day(s.now())
	reason := "Copied from supplier #" + strconv.Itoa(sourceID)
	copied := 0
	for _, itemID := range itemIDs {
		active := pricing.ResolveActiveRecord(historiesByItem[itemID], &sourceID, today)
		if active == nil {
			continue
		}
		h := &models.PriceHistory{
			PricebookItemID: itemID,
			SupplierID:      &req.TargetSupplierID,
			OldPrice:        decimal.NullDecimal{Decimal: active.NewPrice, Valid: true},
			NewPrice:        active.NewPrice.Mul(adjust).Round(2),
			DateEffective:   &today,
			LGA:             active.LGA,
			ChangeReason:    &reason,
		}
		if err := s.histories.Create(h); err != nil {
			return copied, err
		}
		copied++
	}

	s.invalidateItems(itemIDs)
	return copied, nil
}

// BulkPriceAdjustRequest adjusts all of a supplier's active prices.
type BulkPriceAdjustRequest struct {
	AdjustPercent float64 `json:"adjustPercent" binding:"required"`
	DateEffective *string `json:"dateEffective"`
	ChangeReason  *string `json:"changeReason"`
}

// BulkUpdatePrices applies a percentage adjustment to the supplier's active
// price on every item, writing new history records. Items where the supplier
// has no active price are skipped.
func (s *ContactService) BulkUpdatePrices(supplierID int, req *BulkPriceAdjustRequest) (int, error) {
	supplier, err := s.GetContact(supplierID)
	if err != nil {
		return 0, err
	}
	if !supplier.IsSupplier() {
		return 0, utils.ErrNotASupplier
	}

	itemIDs, err := s.contacts.SupplierItemIDs(supplierID)
	if err != nil {
		return 0, err
	}
	if len(itemIDs) == 0 {
		return 0, nil
	}

	historiesByItem, err := s.histories.ListByItems(itemIDs)
	if err != nil {
		return 0, err
	}

	dateEffective := pricing.Day(s.now())
	if req.DateEffective != nil && *req.DateEffective != "" {
		d, err := time.Parse("2006-01-02", *req.DateEffective)
		if err != nil {
			return 0, errors.New("invalid dateEffective, expected YYYY-MM-DD")
		}
		dateEffective = d
	}

	reason := "Bulk price adjustment"
	if req.ChangeReason != nil && *req.ChangeReason != "" {
		reason = *req.ChangeReason
	}
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(req.AdjustPercent).Div(decimal.NewFromInt(100)))
	today := pricing.Day(s.now())

	updated := 0
	for _, itemID := range itemIDs {
		active := pricing.ResolveActiveRecord(historiesByItem[itemID], &supplierID, today)
		if active == nil {
			continue
		}
		newPrice := active.NewPrice.Mul(factor).Round(2)
		h := &models.PriceHistory{
			PricebookItemID: itemID,
			SupplierID:      &supplierID,
			OldPrice:        decimal.NullDecimal{Decimal: active.NewPrice, Valid: true},
			NewPrice:        newPrice,
			DateEffective:   &dateEffective,
			LGA:             active.LGA,
			ChangeReason:    &reason,
		}
		if err := s.histories.Create(h); err != nil {
			return updated, err
		}

		// Keep the stored price in step when this supplier is the default.
		item, err := s.items.GetByID(itemID)
		if err == nil && item.DefaultSupplierID != nil && *item.DefaultSupplierID == supplierID && !dateEffective.After(today) {
			item.CurrentPrice = decimal.NullDecimal{Decimal: newPrice, Valid: true}
			now := s.now()
			item.PriceLastUpdatedAt = &now
			refreshPricingReview(item)
			if err := s.items.Update(item); err != nil {
				log.Warn().Err(err).Int("item_id", itemID).Msg("Failed to sync item price after bulk adjustment")
			}
		}
		updated++
	}

	s.invalidateItems(itemIDs)
	return updated, nil
}

func (s *ContactService) invalidateItems(itemIDs []int) {
	if s.pricebook == nil {
		return
	}
	s.pricebook.invalidatePrice(context.Background(), itemIDs...)
}
