package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tradeworks/backoffice_api/internal/repository"
	"github.com/tradeworks/backoffice_api/internal/service"
	"github.com/tradeworks/backoffice_api/internal/utils"
)

// PricebookHandler handles pricebook item and price-history HTTP endpoints.
type PricebookHandler struct {
	pricebookService *service.PricebookService
	csvService       *service.PriceHistoryCSVService
}

// NewPricebookHandler constructs a PricebookHandler.
func NewPricebookHandler(pricebookService *service.PricebookService, csvService *service.PriceHistoryCSVService) *PricebookHandler {
	return &PricebookHandler{pricebookService: pricebookService, csvService: csvService}
}

// ListItems handles GET /v1/admin/pricebook
func (h *PricebookHandler) ListItems(c *gin.Context) {
	filter := &repository.ItemFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		SortBy:   c.Query("sort_by"), // item_code, item_name, category, current_price, supplier
		SortDesc: c.Query("sort_dir") == "desc",
		Page:     1,
		Limit:    50,
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
	if v := c.Query("supplier_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.SupplierID = &n
		}
	}
	if v := c.Query("min_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			filter.MinPrice = &d
		}
	}
	if v := c.Query("max_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			filter.MaxPrice = &d
		}
	}
	if v := c.Query("needs_pricing"); v != "" {
		needs := v == "true"
		filter.NeedsPricing = &needs
	}

	result, err := h.pricebookService.ListItems(filter)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve pricebook items")
		return
	}

	utils.SuccessWithPagination(c, 200, "Pricebook items retrieved successfully", gin.H{
		"items":      result.Items,
		"categories": result.Categories,
	}, result.Page, result.Limit, result.TotalItems)
}

// GetItem handles GET /v1/admin/pricebook/:id
func (h *PricebookHandler) GetItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid item ID")
		return
	}
	showAll := c.Query("show_all") == "true"

	detail, err := h.pricebookService.GetItem(c.Request.Context(), id, showAll)
	if err != nil {
		if errors.Is(err, utils.ErrItemNotFound) {
			utils.Error(c, 404, "ITEM_NOT_FOUND", "Pricebook item not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve pricebook item")
		return
	}

	utils.Success(c, 200, "Pricebook item retrieved", detail)
}

// CreateItem handles POST /v1/admin/pricebook
func (h *PricebookHandler) CreateItem(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	item, err := h.pricebookService.CreateItem(&req)
	if err != nil {
		if errors.Is(err, utils.ErrItemCodeExists) {
			utils.Error(c, 400, "ITEM_CODE_EXISTS", "An item with this code already exists")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to create pricebook item")
		return
	}

	utils.Success(c, 201, "Pricebook item created successfully", item)
}

// UpdateItem handles PATCH /v1/admin/pricebook/:id
func (h *PricebookHandler) UpdateItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid item ID")
		return
	}

	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	item, err := h.pricebookService.UpdateItem(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, utils.ErrItemNotFound) {
			utils.Error(c, 404, "ITEM_NOT_FOUND", "Pricebook item not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update pricebook item")
		return
	}

	utils.Success(c, 200, "Pricebook item updated successfully", item)
}

// DeleteItem handles DELETE /v1/admin/pricebook/:id
func (h *PricebookHandler) DeleteItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid item ID")
		return
	}

	if err := h.pricebookService.DeleteItem(c.Request.Context(), id); err != nil {
		if errors.Is(err, utils.ErrItemNotFound) {
			utils.Error(c, 404, "ITEM_NOT_FOUND", "Pricebook item not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to delete pricebook item")
		return
	}

	utils.Success(c, 200, "Pricebook item deleted successfully", nil)
}

// AddPrice handles POST /v1/admin/pricebook/:id/add_price
func (h *PricebookHandler) AddPrice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid item ID")
		return
	}

	var req service.AddPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "price is required")
		return
	}

	item, history, err := h.pricebookService.AddPrice(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, utils.ErrItemNotFound) {
			utils.Error(c, 404, "ITEM_NOT_FOUND", "Pricebook item not found")
			return
		}
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}

	utils.Success(c, 201, "Price added successfully", gin.H{
		"item":    item,
		"history": history,
	})
}

// SetDefaultSupplier handles POST /v1/admin/pricebook/:id/set_default_supplier
func (h *PricebookHandler) SetDefaultSupplier(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid item ID")
		return
	}

	var req struct {
		SupplierID int `json:"supplierId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "supplierId is required")
		return
	}

	item, err := h.pricebookService.SetDefaultSupplier(c.Request.Context(), id, req.SupplierID)
	if err != nil {
		if errors.Is(err, utils.ErrItemNotFound) {
			utils.Error(c, 404, "ITEM_NOT_FOUND", "Pricebook item not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to set default supplier")
		return
	}

	utils.Success(c, 200, "Default supplier set successfully", item)
}

// UpdatePriceHistory handles PATCH /v1/admin/pricebook/:id/price_histories/:historyId
func (h *PricebookHandler) UpdatePriceHistory(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid item ID")
		return
	}
	historyID, err := strconv.Atoi(c.Param("historyId"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid history ID")
		return
	}

	var req service.UpdateHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	history, err := h.pricebookService.UpdatePriceHistory(c.Request.Context(), itemID, historyID, &req)
	if err != nil {
		if errors.Is(err, utils.ErrHistoryNotFound) {
			utils.Error(c, 404, "HISTORY_NOT_FOUND", "Price history record not found")
			return
		}
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}

	utils.Success(c, 200, "Price history updated successfully", history)
}

// DeletePriceHistory handles DELETE /v1/admin/pricebook/:id/price_histories/:historyId
func (h *PricebookHandler) DeletePriceHistory(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid item ID")
		return
	}
	historyID, err := strconv.Atoi(c.Param("historyId"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid history ID")
		return
	}

	if err := h.pricebookService.DeletePriceHistory(c.Request.Context(), itemID, historyID); err != nil {
		if errors.Is(err, utils.ErrHistoryNotFound) {
			utils.Error(c, 404, "HISTORY_NOT_FOUND", "Price history record not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to delete price history")
		return
	}

	utils.Success(c, 200, "Price history deleted successfully", nil)
}

// BulkUpdate handles POST /v1/admin/pricebook/bulk_update
func (h *PricebookHandler) BulkUpdate(c *gin.Context) {
	var req struct {
		Updates []service.BulkItemUpdate `json:"updates" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "updates is required")
		return
	}

	result, err := h.pricebookService.BulkUpdate(c.Request.Context(), req.Updates)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to apply bulk update")
		return
	}

	utils.Success(c, 200, "Bulk update applied", result)
}

// PriceHealthCheck handles GET /v1/admin/pricebook/price_health_check
func (h *PricebookHandler) PriceHealthCheck(c *gin.Context) {
	issues, err := h.pricebookService.PriceHealthCheck(c.Request.Context())
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to run price health check")
		return
	}

	utils.Success(c, 200, "Price health check completed", gin.H{
		"issues": issues,
		"total":  len(issues),
	})
}

// ExportPriceHistory handles GET /v1/admin/pricebook/price_history/export
func (h *PricebookHandler) ExportPriceHistory(c *gin.Context) {
	filter := &service.ExportFilter{
		Category: c.Query("category"),
	}
	if v := c.Query("supplier_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.SupplierID = &n
		}
	}
	for _, v := range c.QueryArray("item_id") {
		if n, err := strconv.Atoi(v); err == nil {
			filter.ItemIDs = append(filter.ItemIDs, n)
		}
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="price_history.csv"`)
	if _, err := h.csvService.Export(c.Writer, filter); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to export price history")
		return
	}
}

// ImportPriceHistory handles POST /v1/admin/pricebook/price_history/import
// The CSV is uploaded as the "file" multipart field.
func (h *PricebookHandler) ImportPriceHistory(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "CSV file is required")
		return
	}

	opts := &service.ImportOptions{
		DefaultChangeReason: c.PostForm("change_reason"),
	}
	if v := c.PostForm("date_effective"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			utils.Error(c, 400, "INVALID_REQUEST", "Invalid date_effective, expected YYYY-MM-DD")
			return
		}
		opts.DateEffective = &d
	}

	f, err := file.Open()
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Could not read uploaded file")
		return
	}
	defer f.Close()

	result, err := h.csvService.Import(f, opts)
	if err != nil {
		utils.Error(c, 400, "INVALID_CSV", err.Error())
		return
	}

	utils.Success(c, 200, "Price history imported", result)
}
