package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tradeworks/backoffice_api/internal/service"
	"github.com/tradeworks/backoffice_api/internal/utils"
)

// DocumentHandler handles document intake HTTP endpoints.
type DocumentHandler struct {
	documentService *service.DocumentService
}

// NewDocumentHandler constructs a DocumentHandler.
func NewDocumentHandler(documentService *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// ListDocuments handles GET /v1/admin/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	status := c.Query("status") // pending, processing, analyzed, failed

	page := 1
	limit := 50
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	documents, total, err := h.documentService.ListDocuments(status, page, limit)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve documents")
		return
	}

	utils.SuccessWithPagination(c, 200, "Documents retrieved successfully", gin.H{
		"documents": documents,
	}, page, limit, total)
}

// GetDocument handles GET /v1/admin/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid document ID")
		return
	}

	document, err := h.documentService.GetDocument(id)
	if err != nil {
		utils.Error(c, 404, "DOCUMENT_NOT_FOUND", "Document not found")
		return
	}

	utils.Success(c, 200, "Document retrieved", document)
}

// CreateDocument handles POST /v1/admin/documents
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req service.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "fileName, contentType and rawText are required")
		return
	}

	var uploadedBy *int
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(int); ok {
			uploadedBy = &id
		}
	}

	document, err := h.documentService.CreateDocument(&req, uploadedBy)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to create document")
		return
	}

	utils.Success(c, 201, "Document queued for analysis", document)
}

// Reprocess handles POST /v1/admin/documents/:id/reprocess
func (h *DocumentHandler) Reprocess(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid document ID")
		return
	}

	document, err := h.documentService.Reprocess(id)
	if err != nil {
		if errors.Is(err, utils.ErrDocumentNotFound) {
			utils.Error(c, 404, "DOCUMENT_NOT_FOUND", "Document not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to requeue document")
		return
	}

	utils.Success(c, 200, "Document queued for reprocessing", document)
}
