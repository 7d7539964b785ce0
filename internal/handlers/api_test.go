package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peritus/internal/common"
)

func TestVersionHandler(t *testing.T) {
	handler := NewAPIHandler()

	req := httptest.NewRequest("GET", "/api/version", nil)
	rec := httptest.NewRecorder()
	handler.VersionHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, common.GetVersion(), body["version"])
	assert.Equal(t, common.GetBuild(), body["build"])
	assert.Equal(t, common.GetGitCommit(), body["git_commit"])
}

func TestHealthHandler(t *testing.T) {
	handler := NewAPIHandler()

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.HealthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "peritus", body["service"])
}

func TestVersionHandlerRejectsPost(t *testing.T) {
	handler := NewAPIHandler()

	req := httptest.NewRequest("POST", "/api/version", nil)
	rec := httptest.NewRecorder()
	handler.VersionHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
