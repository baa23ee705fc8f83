package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInternal          = errors.New("internal error")
	ErrConflict          = errors.New("conflict")
	ErrServiceUnavail    = errors.New("service unavailable")
	ErrPaymentFailed     = errors.New("payment failed")
	ErrGone              = errors.New("resource gone")
	ErrInsufficientStock = errors.New("insufficient available stock")
	ErrOverrelease       = errors.New("release exceeds reserved quantity")
	ErrNegativeStock     = errors.New("adjustment would drive quantity negative")
	ErrDuplicateRef      = errors.New("duplicate reference for this operation")
	ErrVersionConflict   = errors.New("stock row was modified concurrently")
	ErrQuorumFailed      = errors.New("distributed lock quorum not reached")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// PaymentFailed creates a 422 error for a payment charge failure.
func PaymentFailed(message string) *AppError {
	return &AppError{
		Code:    "PAYMENT_FAILED",
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrPaymentFailed,
	}
}

// Conflict creates a 409 error for a generic conflict.
func Conflict(message string) *AppError {
	return &AppError{Code: "CONFLICT", Message: message, Status: http.StatusConflict, Err: ErrConflict}
}

// Gone creates a 410 error for a resource that no longer exists.
func Gone(message string) *AppError {
	return &AppError{Code: "GONE", Message: message, Status: http.StatusGone, Err: ErrGone}
}

// InsufficientStock creates a 400 error for a reservation that exceeds available stock.
func InsufficientStock(productID, warehouseID string, requested, available int) *AppError {
	return &AppError{
		Code:    "INSUFFICIENT_STOCK",
		Message: fmt.Sprintf("product %s at warehouse %s: requested %d, available %d", productID, warehouseID, requested, available),
		Status:  http.StatusBadRequest,
		Err:     ErrInsufficientStock,
	}
}

// Overrelease creates a 400 error for a release that exceeds the reserved quantity.
func Overrelease(productID, warehouseID string, requested, reserved int) *AppError {
	return &AppError{
		Code:    "OVERRELEASE",
		Message: fmt.Sprintf("product %s at warehouse %s: releasing %d exceeds reserved %d", productID, warehouseID, requested, reserved),
		Status:  http.StatusBadRequest,
		Err:     ErrOverrelease,
	}
}

// NegativeStock creates a 400 error for an adjustment that would drive quantity negative.
func NegativeStock(productID, warehouseID string, delta, quantity int) *AppError {
	return &AppError{
		Code:    "NEGATIVE_STOCK",
		Message: fmt.Sprintf("product %s at warehouse %s: delta %d on quantity %d would go negative", productID, warehouseID, delta, quantity),
		Status:  http.StatusBadRequest,
		Err:     ErrNegativeStock,
	}
}

// DuplicateReference creates a 409 error for a reused (kind, reference_id) pair.
func DuplicateReference(kind, referenceID string) *AppError {
	return &AppError{
		Code:    "DUPLICATE_REFERENCE",
		Message: fmt.Sprintf("a %s transaction already exists for reference %s", kind, referenceID),
		Status:  http.StatusConflict,
		Err:     ErrDuplicateRef,
	}
}

// VersionConflict creates a 409 error for an optimistic-concurrency mismatch.
func VersionConflict(productID, warehouseID string) *AppError {
	return &AppError{
		Code:    "VERSION_CONFLICT",
		Message: fmt.Sprintf("stock row for product %s at warehouse %s was modified concurrently", productID, warehouseID),
		Status:  http.StatusConflict,
		Err:     ErrVersionConflict,
	}
}

// Unavailable creates a 503 error, used when a distributed lock could not be acquired
// or an operation could not complete after exhausting internal retries.
func Unavailable(message string) *AppError {
	return &AppError{
		Code:    "UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     ErrServiceUnavail,
	}
}

// QuorumFailed creates a 503 error for a distributed lock that did not reach quorum.
func QuorumFailed(resource string) *AppError {
	return &AppError{
		Code:    "LOCK_QUORUM_FAILED",
		Message: fmt.Sprintf("could not reach lock quorum for resource %s", resource),
		Status:  http.StatusServiceUnavailable,
		Err:     ErrQuorumFailed,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrPaymentFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrGone):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
