package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/domainwatch/internal/server/middleware"
)

func TestWrapKeepsCauseAndCode(t *testing.T) {
	cause := stderrors.New("connection refused")

	env := WrapExternalService(context.Background(), cause, "lookup failed for example.com")
	assert.Equal(t, CodeExternalService, env.Code)
	assert.Equal(t, "lookup failed for example.com", env.Message)
	assert.Equal(t, "connection refused", env.Context["wrapped_error"])
	assert.NotEmpty(t, env.CorrelationID)
	assert.Equal(t, env.CorrelationID, env.TraceID)

	assert.Equal(t, CodeStore, WrapStore(context.Background(), cause, "save").Code)
	assert.Equal(t, CodeConfigInvalid, WrapConfigInvalid(context.Background(), nil, "bad").Code)
	assert.Empty(t, WrapInternal(context.Background(), nil, "boom").Context)
}

func TestWrapUsesRequestID(t *testing.T) {
	var captured string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = WrapInternal(r.Context(), nil, "boom").CorrelationID
	}))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "req-123", captured)
}

func TestEnsureEnvelope(t *testing.T) {
	original := NewNotFoundError("missing")
	assert.Same(t, original, EnsureEnvelope(original))

	env := EnsureEnvelope(stderrors.New("disk full"))
	assert.Equal(t, CodeInternal, env.Code)
	assert.Equal(t, "disk full", env.Context["wrapped_error"])

	assert.Equal(t, CodeInternal, EnsureEnvelope(nil).Code)
}

func TestHTTPStatusFromCode(t *testing.T) {
	cases := map[string]int{
		CodeNotFound:           http.StatusNotFound,
		CodeMethodNotAllowed:   http.StatusMethodNotAllowed,
		CodeExternalService:    http.StatusBadGateway,
		CodeServiceUnavailable: http.StatusServiceUnavailable,
		CodeStore:              http.StatusInternalServerError,
		"SOMETHING_ELSE":       http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatusFromCode(code), code)
	}
}

func TestRespondWithError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, NewServiceUnavailableError("snapshot store not configured"))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, CodeServiceUnavailable, body.Error.Code)
	assert.Equal(t, "snapshot store not configured", body.Error.Message)
	assert.NotEmpty(t, body.Error.RequestID)
	assert.Nil(t, body.Error.Details)
}
