package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes are grouped by module prefix: COMMON, DOC, MDL, ANN, SRV.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Pseudo codes.
const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Document (NAF) error codes.
const (
	ErrCodeDocumentMalformed   ErrorCode = "DOC_001"
	ErrCodeDocumentEncoding    ErrorCode = "DOC_002"
	ErrCodeDocumentEmpty       ErrorCode = "DOC_003"
	ErrCodeLanguageMismatch    ErrorCode = "DOC_004"
	ErrCodeUnknownTerm         ErrorCode = "DOC_005"
	ErrCodeSerializationFailed ErrorCode = "DOC_006"
)

// Model and lexicon error codes.
const (
	ErrCodeModelNotFound        ErrorCode = "MDL_001"
	ErrCodeModelLoadFailed      ErrorCode = "MDL_002"
	ErrCodeModelInvalid         ErrorCode = "MDL_003"
	ErrCodeInferenceFailed      ErrorCode = "MDL_004"
	ErrCodeLexiconLoadFailed    ErrorCode = "MDL_005"
	ErrCodeLexiconEntryNotFound ErrorCode = "MDL_006"
	ErrCodeObjectFetchFailed    ErrorCode = "MDL_007"
)

// Annotation error codes.
const (
	ErrCodeSpanOutOfRange      ErrorCode = "ANN_001"
	ErrCodeClassifierFailed    ErrorCode = "ANN_002"
	ErrCodeStrategyUnsupported ErrorCode = "ANN_003"
	ErrCodePolicyInvalid       ErrorCode = "ANN_004"
	ErrCodeStrategyMisconfig   ErrorCode = "ANN_005"
)

// Service and transport error codes.
const (
	ErrCodeServerClosed     ErrorCode = "SRV_001"
	ErrCodeConnectionFailed ErrorCode = "SRV_002"
	ErrCodeReadFailed       ErrorCode = "SRV_003"
	ErrCodeWriteFailed      ErrorCode = "SRV_004"
	ErrCodePublishFailed    ErrorCode = "SRV_005"
	ErrCodeConsumerClosed   ErrorCode = "SRV_006"
)

// ErrorCodeHTTPStatus maps codes to the HTTP status used by the HTTP side-car.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeDocumentMalformed:   http.StatusBadRequest,
	ErrCodeDocumentEncoding:    http.StatusBadRequest,
	ErrCodeDocumentEmpty:       http.StatusBadRequest,
	ErrCodeLanguageMismatch:    http.StatusUnprocessableEntity,
	ErrCodeUnknownTerm:         http.StatusBadRequest,
	ErrCodeSerializationFailed: http.StatusInternalServerError,

	ErrCodeModelNotFound:        http.StatusInternalServerError,
	ErrCodeModelLoadFailed:      http.StatusInternalServerError,
	ErrCodeModelInvalid:         http.StatusInternalServerError,
	ErrCodeInferenceFailed:      http.StatusInternalServerError,
	ErrCodeLexiconLoadFailed:    http.StatusInternalServerError,
	ErrCodeLexiconEntryNotFound: http.StatusNotFound,
	ErrCodeObjectFetchFailed:    http.StatusBadGateway,

	ErrCodeSpanOutOfRange:      http.StatusInternalServerError,
	ErrCodeClassifierFailed:    http.StatusInternalServerError,
	ErrCodeStrategyUnsupported: http.StatusBadRequest,
	ErrCodePolicyInvalid:       http.StatusBadRequest,
	ErrCodeStrategyMisconfig:   http.StatusInternalServerError,

	ErrCodeServerClosed:     http.StatusServiceUnavailable,
	ErrCodeConnectionFailed: http.StatusBadGateway,
	ErrCodeReadFailed:       http.StatusBadRequest,
	ErrCodeWriteFailed:      http.StatusInternalServerError,
	ErrCodePublishFailed:    http.StatusBadGateway,
	ErrCodeConsumerClosed:   http.StatusServiceUnavailable,
}

// ErrorCodeMessage maps codes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeDocumentMalformed:   "badly formatted NAF document",
	ErrCodeDocumentEncoding:    "document is not valid UTF-8",
	ErrCodeDocumentEmpty:       "document is empty",
	ErrCodeLanguageMismatch:    "document language does not match the requested language",
	ErrCodeUnknownTerm:         "unknown term reference",
	ErrCodeSerializationFailed: "failed to serialize document",

	ErrCodeModelNotFound:        "model not found",
	ErrCodeModelLoadFailed:      "failed to load model",
	ErrCodeModelInvalid:         "invalid model definition",
	ErrCodeInferenceFailed:      "model inference failed",
	ErrCodeLexiconLoadFailed:    "failed to load polarity dictionary",
	ErrCodeLexiconEntryNotFound: "dictionary entry not found",
	ErrCodeObjectFetchFailed:    "failed to fetch object from storage",

	ErrCodeSpanOutOfRange:      "span offsets out of range",
	ErrCodeClassifierFailed:    "classifier invocation failed",
	ErrCodeStrategyUnsupported: "unsupported annotation strategy",
	ErrCodePolicyInvalid:       "invalid clear-features policy",
	ErrCodeStrategyMisconfig:   "annotation strategy is misconfigured",

	ErrCodeServerClosed:     "server closed",
	ErrCodeConnectionFailed: "connection failed",
	ErrCodeReadFailed:       "failed to read request",
	ErrCodeWriteFailed:      "failed to write response",
	ErrCodePublishFailed:    "failed to publish message",
	ErrCodeConsumerClosed:   "consumer closed",
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

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
