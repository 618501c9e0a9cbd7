package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidToken        = errors.New("INVALID_TOKEN")
	ErrInvalidCredentials  = errors.New("INVALID_CREDENTIALS")
	ErrAccountInactive     = errors.New("ACCOUNT_INACTIVE")
	ErrContactNotFound     = errors.New("CONTACT_NOT_FOUND")
	ErrNotASupplier        = errors.New("NOT_A_SUPPLIER")
	ErrItemNotFound        = errors.New("ITEM_NOT_FOUND")
	ErrItemCodeExists      = errors.New("ITEM_CODE_EXISTS")
	ErrHistoryNotFound     = errors.New("PRICE_HISTORY_NOT_FOUND")
	ErrSupplierRequired    = errors.New("SUPPLIER_REQUIRED")
	ErrDocumentNotFound    = errors.New("DOCUMENT_NOT_FOUND")
	ErrTaskNotFound        = errors.New("TASK_NOT_FOUND")
	ErrTimesheetOverlap    = errors.New("TIMESHEET_OVERLAP")
	ErrInvalidDateRange    = errors.New("INVALID_DATE_RANGE")
	ErrMergeSameContact    = errors.New("MERGE_SAME_CONTACT")
)
