package apierr

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/onnwee/metro-map/backend/internal/logger"
)

// ErrorCode represents a structured error code
type ErrorCode string

// Error code constants organized by category
const (
	// CITY_ - City generation errors
	ErrCityInvalidOptions ErrorCode = "CITY_INVALID_OPTIONS"
	ErrCityInvalidSites   ErrorCode = "CITY_INVALID_SITES"
	ErrCityGeneration     ErrorCode = "CITY_GENERATION_FAILED"

	// POLYGON_ - Per-polygon and node errors
	ErrPolygonNotFound    ErrorCode = "POLYGON_NOT_FOUND"
	ErrPolygonInvalidType ErrorCode = "POLYGON_INVALID_TYPE"
	ErrNodeNotFound       ErrorCode = "POLYGON_NODE_NOT_FOUND"

	// SIMULATION_ - Simulation control errors
	ErrSimulationInvalidAlpha ErrorCode = "SIMULATION_INVALID_ALPHA"

	// DRAG_ - Pointer interaction errors
	ErrDragNoSubject   ErrorCode = "DRAG_NO_SUBJECT"
	ErrDragNotDragging ErrorCode = "DRAG_NOT_ACTIVE"

	// LAYER_ - Terrain layer errors
	ErrLayerUnknown          ErrorCode = "LAYER_UNKNOWN"
	ErrLayerReadOnly         ErrorCode = "LAYER_READ_ONLY"
	ErrLayerInvalidBrush     ErrorCode = "LAYER_INVALID_BRUSH"
	ErrLayerInvalidWaterline ErrorCode = "LAYER_INVALID_WATERLINE"

	// SYSTEM_ - System and server errors
	ErrSystemInternal    ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemUnavailable ErrorCode = "SYSTEM_UNAVAILABLE"
	ErrSystemTimeout     ErrorCode = "SYSTEM_TIMEOUT"

	// VALIDATION_ - Request validation errors
	ErrValidationInvalidJSON   ErrorCode = "VALIDATION_INVALID_JSON"
	ErrValidationInvalidFormat ErrorCode = "VALIDATION_INVALID_FORMAT"
	ErrValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrValidationInvalidValue  ErrorCode = "VALIDATION_INVALID_VALUE"

	// RATE_LIMIT_ - Rate limiting errors
	ErrRateLimitGlobal ErrorCode = "RATE_LIMIT_GLOBAL"
	ErrRateLimitIP     ErrorCode = "RATE_LIMIT_IP"
)

// Error represents a structured API error
type Error struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	status    int
}

// ErrorResponse is the top-level error response wrapper
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// New creates a new API error
func New(code ErrorCode, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		status:  status,
	}
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithRequestID adds a request ID to the error
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code
func (e *Error) Status() int {
	return e.status
}

// WriteError writes a structured error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}

func withDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

// PolygonNotFound reports an index outside the current city.
func PolygonNotFound(index int) *Error {
	return New(ErrPolygonNotFound, "Polygon not found", http.StatusNotFound).
		WithDetails(map[string]any{"polygon": index})
}

// CityGenerationFailed wraps a tessellation or cluster failure.
func CityGenerationFailed(message string) *Error {
	return New(ErrCityGeneration, withDefault(message, "City generation failed"), http.StatusUnprocessableEntity)
}

// SystemInternal creates an internal server error
func SystemInternal(message string) *Error {
	return New(ErrSystemInternal, withDefault(message, "Internal server error"), http.StatusInternalServerError)
}

// SystemUnavailable creates a service unavailable error
func SystemUnavailable(message string) *Error {
	return New(ErrSystemUnavailable, withDefault(message, "Service unavailable"), http.StatusServiceUnavailable)
}

// SystemTimeout creates a system timeout error
func SystemTimeout(message string) *Error {
	return New(ErrSystemTimeout, withDefault(message, "Request timeout"), http.StatusRequestTimeout)
}

// ValidationInvalidJSON creates an invalid JSON error
func ValidationInvalidJSON() *Error {
	return New(ErrValidationInvalidJSON, "Invalid JSON request body", http.StatusBadRequest)
}

// ValidationInvalidFormat creates an invalid format error
func ValidationInvalidFormat(message string) *Error {
	return New(ErrValidationInvalidFormat, withDefault(message, "Invalid request format"), http.StatusBadRequest)
}

// ValidationMissingField creates a missing field error
func ValidationMissingField(field string) *Error {
	return New(ErrValidationMissingField, "Missing required field: "+field, http.StatusBadRequest).
		WithDetails(map[string]any{"field": field})
}

// ValidationInvalidValue creates an invalid value error
func ValidationInvalidValue(field string, message string) *Error {
	return New(ErrValidationInvalidValue, withDefault(message, "Invalid value for field: "+field), http.StatusBadRequest).
		WithDetails(map[string]any{"field": field})
}

// RateLimitGlobal creates a global rate limit error
func RateLimitGlobal() *Error {
	return New(ErrRateLimitGlobal, "Rate limit exceeded - too many requests globally", http.StatusTooManyRequests)
}

// RateLimitIP creates an IP rate limit error
func RateLimitIP() *Error {
	return New(ErrRateLimitIP, "Rate limit exceeded - too many requests from your IP", http.StatusTooManyRequests)
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// WriteErrorWithContext writes a structured error response with request ID from context
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := GetRequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}
