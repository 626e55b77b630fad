package errors

import "net/http"

// Error code constants. Errors carry code + params; the presentation layer
// owns wording and translation, backend logs stay in English.

// Validation error codes.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInvalidBloodType = "INVALID_BLOOD_TYPE"
	CodeInvalidQuantity  = "INVALID_QUANTITY"
)

// Inventory error codes.
const (
	CodeUnitNotFound = "UNIT_NOT_FOUND"
)

// Storage error codes.
const (
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
)

// Audit error codes.
const (
	CodeAuditWriteFailed  = "AUDIT_WRITE_FAILED"
	CodeAuditChainBroken  = "AUDIT_CHAIN_BROKEN"
	CodeAuditVerifyFailed = "AUDIT_VERIFY_FAILED"
)

// Convenience constructors using predefined codes.

// ErrInvalidBloodTypef creates a bad request error for a malformed ABO/Rh value.
func ErrInvalidBloodTypef(value string) *AppError {
	return (&AppError{
		Code:       CodeInvalidBloodType,
		Message:    "blood type is not a valid ABO/Rh combination",
		HTTPStatus: http.StatusBadRequest,
	}).WithParams(map[string]interface{}{"value": value})
}

// ErrInvalidQuantityf creates a bad request error for a non-positive quantity.
func ErrInvalidQuantityf(qty int) *AppError {
	return (&AppError{
		Code:       CodeInvalidQuantity,
		Message:    "quantity must be positive",
		HTTPStatus: http.StatusBadRequest,
	}).WithParams(map[string]interface{}{"quantity": qty})
}

// ErrStorageUnavailable wraps a backing-store fault as a 503.
func ErrStorageUnavailable(err error) *AppError {
	return &AppError{
		Code:       CodeStorageUnavailable,
		Message:    "backing store is unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}
