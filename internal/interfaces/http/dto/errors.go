package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeSaveFailed means the primary write failed and the client may retry
	ErrCodeSaveFailed = "ERR_SAVE_FAILED"
	// ErrCodeExportDisabled means no object storage is configured
	ErrCodeExportDisabled = "ERR_EXPORT_DISABLED"
)

// Validation error codes
const (
	// ErrCodeValidation is used when a step submit is missing required fields
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeRequestValidation is used when request binding fails
	ErrCodeRequestValidation = "ERR_REQUEST_VALIDATION"
	ErrCodeInvalidStep       = "ERR_INVALID_STEP"
	ErrCodeInvalidClientName = "ERR_INVALID_CLIENT_NAME"
	ErrCodeInvalidEmail      = "ERR_INVALID_EMAIL"
	ErrCodeInvalidComment    = "ERR_INVALID_COMMENT"
	ErrCodeInvalidAmount     = "ERR_INVALID_AMOUNT"
	ErrCodeInvalidPayment    = "ERR_INVALID_PAYMENT_STATUS"
)

// Authentication error codes
const (
	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeForbidden          = "ERR_FORBIDDEN"
	ErrCodeTokenExpired       = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid       = "ERR_TOKEN_INVALID"
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"
	// ErrCodeInvalidFormToken is a malformed or unknown form access code
	ErrCodeInvalidFormToken = "ERR_INVALID_FORM_TOKEN"
	// ErrCodeFormInactive is used when an admin has deactivated the form
	ErrCodeFormInactive = "ERR_FORM_INACTIVE"
)

// Resource error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState      = "ERR_INVALID_STATE"
	ErrCodeInvalidTransition = "ERR_INVALID_TRANSITION"
	ErrCodeStepNotReachable  = "ERR_STEP_NOT_REACHABLE"
	ErrCodeTokenGeneration   = "ERR_TOKEN_GENERATION_FAILED"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// ErrCodeRateLimited is used when rate limit is exceeded
const ErrCodeRateLimited = "ERR_RATE_LIMITED"

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:        http.StatusInternalServerError,
	ErrCodeInternal:       http.StatusInternalServerError,
	ErrCodeSaveFailed:     http.StatusServiceUnavailable,
	ErrCodeExportDisabled: http.StatusServiceUnavailable,

	// Step validation is a business rule; binding failures are malformed input
	ErrCodeValidation:        http.StatusUnprocessableEntity,
	ErrCodeRequestValidation: http.StatusBadRequest,
	ErrCodeInvalidStep:       http.StatusBadRequest,
	ErrCodeInvalidClientName: http.StatusBadRequest,
	ErrCodeInvalidEmail:      http.StatusBadRequest,
	ErrCodeInvalidComment:    http.StatusBadRequest,
	ErrCodeInvalidAmount:     http.StatusBadRequest,
	ErrCodeInvalidPayment:    http.StatusBadRequest,

	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeTokenExpired:       http.StatusUnauthorized,
	ErrCodeTokenInvalid:       http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeInvalidFormToken:   http.StatusBadRequest,
	ErrCodeFormInactive:       http.StatusForbidden,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeInvalidTransition: http.StatusUnprocessableEntity,
	ErrCodeStepNotReachable:  http.StatusUnprocessableEntity,
	ErrCodeTokenGeneration:   http.StatusServiceUnavailable,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the API codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":               ErrCodeNotFound,
	"ALREADY_EXISTS":          ErrCodeAlreadyExists,
	"ALREADY_ACTIVE":          ErrCodeConflict,
	"ALREADY_INACTIVE":        ErrCodeConflict,
	"INVALID_INPUT":           ErrCodeInvalidInput,
	"INVALID_STATE":           ErrCodeInvalidState,
	"INVALID_TRANSITION":      ErrCodeInvalidTransition,
	"UNAUTHORIZED":            ErrCodeUnauthorized,
	"FORBIDDEN":               ErrCodeForbidden,
	"VALIDATION_ERROR":        ErrCodeValidation,
	"SAVE_FAILED":             ErrCodeSaveFailed,
	"FORM_INACTIVE":           ErrCodeFormInactive,
	"INVALID_TOKEN":           ErrCodeInvalidFormToken,
	"INVALID_STEP":            ErrCodeInvalidStep,
	"STEP_NOT_REACHABLE":      ErrCodeStepNotReachable,
	"INVALID_CLIENT_NAME":     ErrCodeInvalidClientName,
	"INVALID_EMAIL":           ErrCodeInvalidEmail,
	"INVALID_COMMENT":         ErrCodeInvalidComment,
	"INVALID_AMOUNT":          ErrCodeInvalidAmount,
	"INVALID_PAYMENT_STATUS":  ErrCodeInvalidPayment,
	"INVALID_CREDENTIALS":     ErrCodeInvalidCredentials,
	"TOKEN_GENERATION_FAILED": ErrCodeTokenGeneration,
	"EXPORT_DISABLED":         ErrCodeExportDisabled,
	"BAD_REQUEST":             ErrCodeBadRequest,
	"INTERNAL_ERROR":          ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
