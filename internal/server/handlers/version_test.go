package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionHandlerReportsBuild(t *testing.T) {
	SetVersionInfo("0.4.0", "abcd123", "2025-04-21T12:30:00Z")
	SetAppName("domainwatch")
	t.Cleanup(func() {
		SetVersionInfo("dev", "unknown", "unknown")
		SetAppName("")
	})

	rec := httptest.NewRecorder()
	VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "domainwatch", resp.App.Name)
	assert.Equal(t, "0.4.0", resp.App.Version)
	assert.Equal(t, "abcd123", resp.App.Commit)
	assert.NotEmpty(t, resp.App.GoVersion)
	assert.NotEmpty(t, resp.Dependencies.Gofulmen)
	assert.Positive(t, resp.Runtime.NumCPU)
}

func TestReportedNameFallsBackToExecutable(t *testing.T) {
	SetAppName("")
	assert.NotEmpty(t, reportedName())
}
