// Package errors maps domainwatch failures onto gofulmen error envelopes
// for the status server and CLI exit reporting.
package errors

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/metrics"
	"github.com/namelens/domainwatch/internal/observability"
	"github.com/namelens/domainwatch/internal/server/middleware"
)

// Error codes carried in envelopes and HTTP error bodies.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeExternalService    = "EXTERNAL_SERVICE_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeStore              = "STORE_ERROR"
	CodeConfigInvalid      = "CONFIG_INVALID"
)

var statusByCode = map[string]int{
	CodeNotFound:           http.StatusNotFound,
	CodeMethodNotAllowed:   http.StatusMethodNotAllowed,
	CodeExternalService:    http.StatusBadGateway,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewServiceUnavailableError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeServiceUnavailable, message)
}

// WrapInternal wraps an unexpected failure.
func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeInternal, err, message)
}

// WrapExternalService wraps a registry or channel failure.
func WrapExternalService(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeExternalService, err, message)
}

// WrapStore wraps a snapshot store failure.
func WrapStore(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeStore, err, message)
}

// WrapConfigInvalid wraps a configuration load or validation failure.
func WrapConfigInvalid(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeConfigInvalid, err, message)
}

func wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	id := correlationID(ctx)
	envelope := errors.NewErrorEnvelope(code, message).
		WithCorrelationID(id).
		WithTraceID(id)
	if err == nil {
		return envelope
	}
	if updated, updateErr := envelope.WithContext(map[string]interface{}{
		"wrapped_error": err.Error(),
	}); updateErr == nil {
		envelope = updated
	}
	envelope.Original = err
	return envelope
}

// correlationID uses the request ID when ctx belongs to an HTTP request.
// CLI and monitor contexts get a fresh UUID.
func correlationID(ctx context.Context) string {
	if ctx != nil {
		if requestID := middleware.GetRequestID(ctx); requestID != "" {
			return requestID
		}
	}
	return uuid.NewString()
}

// EnsureEnvelope normalizes any error into a gofulmen ErrorEnvelope.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	message := "unexpected nil error"
	severity := errors.SeverityCritical
	env := errors.NewErrorEnvelope(CodeInternal, message)
	if err != nil {
		env = errors.NewErrorEnvelope(CodeInternal, "unexpected error")
		env, _ = env.WithContext(map[string]interface{}{"wrapped_error": err.Error()})
		severity = errors.SeverityHigh
	}
	env, _ = env.WithSeverity(severity)
	return env
}

// HTTPStatusFromCode resolves the HTTP status code for an error code.
func HTTPStatusFromCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HTTPErrorDetail captures the error body returned to callers.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse wraps HTTPErrorDetail in the standard envelope structure.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// RespondWithError writes err as a JSON error body, logging it and counting
// it in the error metrics.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	if w == nil {
		return
	}
	envelope := EnsureEnvelope(err)

	if envelope.CorrelationID == "" {
		var ctx context.Context
		if r != nil {
			ctx = r.Context()
		}
		envelope = envelope.WithCorrelationID(correlationID(ctx))
	}

	statusCode := HTTPStatusFromCode(envelope.Code)
	logHTTPError(envelope, statusCode)

	metrics.RecordError(envelope.Code, statusCode)
	if r != nil {
		metrics.RecordErrorByEndpoint(r.URL.Path, envelope.Code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{
		Error: HTTPErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			Details:   responseDetails(envelope),
			RequestID: envelope.CorrelationID,
		},
	})
}

// responseDetails merges envelope details and context; details win.
func responseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	details := make(map[string]interface{}, len(envelope.Details)+len(envelope.Context))
	for key, value := range envelope.Context {
		details[key] = value
	}
	for key, value := range envelope.Details {
		details[key] = value
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

func logHTTPError(envelope *errors.ErrorEnvelope, statusCode int) {
	if observability.ServerLogger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", statusCode),
		zap.String("request_id", envelope.CorrelationID),
	}
	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}

	if statusCode >= http.StatusInternalServerError {
		observability.ServerLogger.Error(envelope.Message, fields...)
		return
	}
	observability.ServerLogger.Info(envelope.Message, fields...)
}
