package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes follow the "<MODULE>_<NNN>" convention.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeMessageQueue       ErrorCode = "COMMON_017"
)

// Aliases
const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")
)

// Scoring Module Error Codes
const (
	ErrCodeInput                ErrorCode = "SCR_001"
	ErrCodeUpstream             ErrorCode = "SCR_002"
	ErrCodeTimeout              ErrorCode = "SCR_003"
	ErrCodeParse                ErrorCode = "SCR_004"
	ErrCodeDelivery             ErrorCode = "SCR_005"
	ErrCodeDispatcherClosed     ErrorCode = "SCR_006"
	ErrCodeSecretNotFound       ErrorCode = "SCR_007"
	ErrCodeSubscriptionNotFound ErrorCode = "SCR_008"
)

// Data Source Error Codes
const (
	ErrCodeDataSourceUnavailable ErrorCode = "SRC_001"
	ErrCodeDataSourceParseError  ErrorCode = "SRC_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusBadRequest,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeMessageQueue:       http.StatusInternalServerError,

	ErrCodeInput:                http.StatusBadRequest,
	ErrCodeUpstream:             http.StatusBadGateway,
	ErrCodeTimeout:              http.StatusGatewayTimeout,
	ErrCodeParse:                http.StatusBadGateway,
	ErrCodeDelivery:             http.StatusBadGateway,
	ErrCodeDispatcherClosed:     http.StatusServiceUnavailable,
	ErrCodeSecretNotFound:       http.StatusNotFound,
	ErrCodeSubscriptionNotFound: http.StatusNotFound,

	ErrCodeDataSourceUnavailable: http.StatusBadGateway,
	ErrCodeDataSourceParseError:  http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeMessageQueue:       "message queue error",

	ErrCodeInput:                "invalid batch input",
	ErrCodeUpstream:             "assistant backend call failed",
	ErrCodeTimeout:              "assistant run did not finish in time",
	ErrCodeParse:                "assistant reply could not be parsed",
	ErrCodeDelivery:             "callback delivery failed",
	ErrCodeDispatcherClosed:     "dispatcher is closed",
	ErrCodeSecretNotFound:       "secret not found",
	ErrCodeSubscriptionNotFound: "subscription not found",

	ErrCodeDataSourceUnavailable: "data source unavailable",
	ErrCodeDataSourceParseError:  "failed to parse data source content",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	if i := strings.IndexByte(string(code), '_'); i > 0 {
		return string(code)[:i]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
