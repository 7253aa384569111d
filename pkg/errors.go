package pkg

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var ExposeErrorDetails = false

func init() {
	if gin.DebugMode == gin.Mode() || gin.TestMode == gin.Mode() {
		ExposeErrorDetails = true
	}
}

// Reusable errors
var (
	ErrEncryptionFailure = errors.New("encryption failure")
	ErrUpstream          = errors.New("upstream unavailable")
)

// ErrorCode defines a standardized error code
type ErrorCode struct {
	Code    string
	Status  int
	Message string // default message
}

var (
	// Generic app
	ErrInvalidInputCode   = ErrorCode{Code: "APP_INVALID_INPUT", Status: http.StatusBadRequest, Message: "invalid input"}
	ErrServerCode         = ErrorCode{Code: "APP_INTERNAL", Status: http.StatusInternalServerError, Message: "internal server error"}
	ErrRecordNotFoundCode = ErrorCode{Code: "APP_NOT_FOUND", Status: http.StatusNotFound, Message: "record not found"}

	// Form rules
	ErrValidationCode    = ErrorCode{Code: "VALIDATION_FAILED", Status: http.StatusUnprocessableEntity, Message: "form is not submittable"}
	ErrFieldDisabledCode = ErrorCode{Code: "FIELD_DISABLED", Status: http.StatusConflict, Message: "field is disabled"}

	// Encryption and collaborators
	ErrEncryptionFailureCode = ErrorCode{Code: "ENCRYPTION_FAILURE", Status: http.StatusUnprocessableEntity, Message: "failed to encrypt payload"}
	ErrUpstreamCode          = ErrorCode{Code: "UPSTREAM_UNAVAILABLE", Status: http.StatusBadGateway, Message: "upstream unavailable"}
)

type AppError struct {
	Code    ErrorCode
	Message string // public-facing message
	Cause   error  // internal cause (wrapped)
}

func (e AppError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}
func (e AppError) Unwrap() error { return e.Cause }

func NewAppError(code ErrorCode, msg string, cause error) error {
	return AppError{Code: code, Message: msg, Cause: cause}
}

// NewEncryptionFailure wraps a cryptographic failure so that callers can match it with
// errors.Is(err, ErrEncryptionFailure) while keeping the underlying cause.
func NewEncryptionFailure(msg string, cause error) error {
	return NewAppError(ErrEncryptionFailureCode, msg, errors.Join(ErrEncryptionFailure, cause))
}

// ErrorResponse defines the standardized error response format
type ErrorResponse struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ToErrorResponse converts an error into an ErrorResponse, logging details and optionally exposing error messages.
// If the error is not an AppError, it is converted to a generic 500 error.
func ToErrorResponse(logger *zap.Logger, traceID string, err error) ErrorResponse {
	var appErr AppError
	if errors.As(err, &appErr) {
		resp := ErrorResponse{
			Status:  appErr.Code.Status,
			Code:    appErr.Code.Code,
			Message: appErr.Message,
		}
		if appErr.Code.Status >= http.StatusInternalServerError {
			logger.Error("application error", zap.String(TraceId, traceID), zap.Error(err))
		} else {
			logger.Warn("application error", zap.String(TraceId, traceID), zap.Error(err))
		}
		if ExposeErrorDetails {
			resp.Details = err.Error()
		}
		return resp
	}
	// Unknown error : 500
	resp := ErrorResponse{
		Status:  ErrServerCode.Status,
		Code:    ErrServerCode.Code,
		Message: ErrServerCode.Message,
	}
	logger.Error("application error", zap.String(TraceId, traceID), zap.Error(err))
	if ExposeErrorDetails {
		resp.Details = err.Error()
	}
	return resp
}
