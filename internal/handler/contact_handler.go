package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tradeworks/backoffice_api/internal/repository"
	"github.com/tradeworks/backoffice_api/internal/service"
	"github.com/tradeworks/backoffice_api/internal/utils"
)

// ContactHandler handles contact management HTTP endpoints.
type ContactHandler struct {
	contactService *service.ContactService
}

// NewContactHandler constructs a ContactHandler.
func NewContactHandler(contactService *service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// ListContacts handles GET /v1/admin/contacts
func (h *ContactHandler) ListContacts(c *gin.Context) {
	filter := &repository.ContactFilter{
		Search:      c.Query("search"),
		ContactType: c.Query("type"), // supplier, customer, subcontractor
		Page:        1,
		Limit:       50,
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Page = n
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := c.Query("active"); v != "" {
		active := v == "true"
		filter.IsActive = &active
	}

	contacts, total, err := h.contactService.ListContacts(filter)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve contacts")
		return
	}

	utils.SuccessWithPagination(c, 200, "Contacts retrieved successfully", gin.H{
		"contacts": contacts,
	}, filter.Page, filter.Limit, total)
}

// GetContact handles GET /v1/admin/contacts/:id
func (h *ContactHandler) GetContact(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid contact ID")
		return
	}

	contact, err := h.contactService.GetContact(id)
	if err != nil {
		utils.Error(c, 404, "CONTACT_NOT_FOUND", "Contact not found")
		return
	}

	utils.Success(c, 200, "Contact retrieved", contact)
}

// CreateContact handles POST /v1/admin/contacts
func (h *ContactHandler) CreateContact(c *gin.Context) {
	var req service.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	contact, err := h.contactService.CreateContact(&req)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to create contact")
		return
	}

	utils.Success(c, 201, "Contact created successfully", contact)
}

// UpdateContact handles PUT /v1/admin/contacts/:id
func (h *ContactHandler) UpdateContact(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid contact ID")
		return
	}

	var req service.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	contact, err := h.contactService.UpdateContact(id, &req)
	if err != nil {
		if errors.Is(err, utils.ErrContactNotFound) {
			utils.Error(c, 404, "CONTACT_NOT_FOUND", "Contact not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update contact")
		return
	}

	utils.Success(c, 200, "Contact updated successfully", contact)
}

// DeleteContact handles DELETE /v1/admin/contacts/:id
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid contact ID")
		return
	}

	if err := h.contactService.DeleteContact(id); err != nil {
		if errors.Is(err, utils.ErrContactNotFound) {
			utils.Error(c, 404, "CONTACT_NOT_FOUND", "Contact not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to delete contact")
		return
	}

	utils.Success(c, 200, "Contact deleted successfully", nil)
}

// MergeContacts handles POST /v1/admin/contacts/:id/merge
func (h *ContactHandler) MergeContacts(c *gin.Context) {
	sourceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid contact ID")
		return
	}

	var req struct {
		TargetID int `json:"targetId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "targetId is required")
		return
	}

	result, err := h.contactService.MergeContacts(sourceID, req.TargetID)
	if err != nil {
		if errors.Is(err, utils.ErrMergeSameContact) {
			utils.Error(c, 400, "MERGE_SAME_CONTACT", "Cannot merge a contact into itself")
			return
		}
		if errors.Is(err, utils.ErrContactNotFound) {
			utils.Error(c, 404, "CONTACT_NOT_FOUND", "Contact not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to merge contacts")
		return
	}

	utils.Success(c, 200, "Contacts merged successfully", result)
}

// SupplierPrices handles GET /v1/admin/contacts/:id/prices
func (h *ContactHandler) SupplierPrices(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid contact ID")
		return
	}

	prices, err := h.contactService.SupplierPrices(id)
	if err != nil {
		if errors.Is(err, utils.ErrContactNotFound) {
			utils.Error(c, 404, "CONTACT_NOT_FOUND", "Contact not found")
			return
		}
		if errors.Is(err, utils.ErrNotASupplier) {
			utils.Error(c, 400, "NOT_A_SUPPLIER", "Contact is not a supplier")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve supplier prices")
		return
	}

	utils.Success(c, 200, "Supplier prices retrieved", gin.H{
		"prices": prices,
		"total":  len(prices),
	})
}

// CopyPriceHistory handles POST /v1/admin/contacts/:id/copy_price_history
func (h *ContactHandler) CopyPriceHistory(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid contact ID")
		return
	}

	var req service.CopyPriceHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "targetSupplierId is required")
		return
	}

	copied, err := h.contactService.CopyPriceHistory(id, &req)
	if err != nil {
		if errors.Is(err, utils.ErrContactNotFound) {
			utils.Error(c, 404, "CONTACT_NOT_FOUND", "Contact not found")
			return
		}
		if errors.Is(err, utils.ErrNotASupplier) {
			utils.Error(c, 400, "NOT_A_SUPPLIER", "Target contact is not a supplier")
			return
		}
		if errors.Is(err, utils.ErrMergeSameContact) {
			utils.Error(c, 400, "INVALID_TARGET", "Source and target supplier are the same")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to copy price history")
		return
	}

	utils.Success(c, 200, "Price history copied", gin.H{
		"copied": copied,
	})
}

// BulkUpdatePrices handles POST /v1/admin/contacts/:id/bulk_update_prices
func (h *ContactHandler) BulkUpdatePrices(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid contact ID")
		return
	}

	var req service.BulkPriceAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "adjustPercent is required")
		return
	}

	updated, err := h.contactService.BulkUpdatePrices(id, &req)
	if err != nil {
		if errors.Is(err, utils.ErrContactNotFound) {
			utils.Error(c, 404, "CONTACT_NOT_FOUND", "Contact not found")
			return
		}
		if errors.Is(err, utils.ErrNotASupplier) {
			utils.Error(c, 400, "NOT_A_SUPPLIER", "Contact is not a supplier")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update supplier prices")
		return
	}

	utils.Success(c, 200, "Supplier prices updated", gin.H{
		"updated": updated,
	})
}
