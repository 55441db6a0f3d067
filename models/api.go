package models

// APIResponse is the envelope of every API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"` // Human-readable message
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"` // nil on success
}

// APIError holds detailed error information
type APIError struct {
	Code      string               `json:"code"`            // e.g. "NOT_FOUND", "ASSIGNMENT_CONFLICT"
	Message   string               `json:"message"`
	Field     string               `json:"field,omitempty"` // For validation errors (which field failed)
	Conflicts []AssignmentConflict `json:"conflicts,omitempty"`
}

// Error codes used in APIError.Code
const (
	ErrorCodeNotFound           = "NOT_FOUND"
	ErrorCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrorCodeInvalidState       = "INVALID_STATE"
	ErrorCodeAssignmentConflict = "ASSIGNMENT_CONFLICT"
	ErrorCodeValidation         = "VALIDATION_ERROR"
	ErrorCodeUnauthorized       = "UNAUTHORIZED"
	ErrorCodeForbidden          = "FORBIDDEN"
	ErrorCodeInternal           = "INTERNAL_ERROR"
)

// PagedResult is a page of items plus paging metadata
type PagedResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePaging clamps page number and size to their allowed ranges
func NormalizePaging(pageNumber, pageSize int) (int, int) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return pageNumber, pageSize
}

// Paginate slices items into the requested page
func Paginate[T any](items []T, pageNumber, pageSize int) PagedResult[T] {
	pageNumber, pageSize = NormalizePaging(pageNumber, pageSize)
	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize

	// pages past the end are empty; compare before multiplying so huge page numbers cannot overflow
	start := total
	if pageNumber-1 < totalPages {
		start = (pageNumber - 1) * pageSize
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	page := make([]T, 0, end-start)
	page = append(page, items[start:end]...)

	return PagedResult[T]{
		Items:      page,
		TotalCount: total,
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
