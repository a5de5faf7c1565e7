package snapshots

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/codeshare/server/internal/versions"
)

func newTestRouter(store versions.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	RegisterRoutes(router.Group("/"), store)

	return router
}

func TestSaveAppendsVersion(t *testing.T) {
	store := versions.NewMemoryStore()
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/save?sessionId=session-1", strings.NewReader(`{"code":"sound(\"bd\")"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp SaveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)

	latest, err := store.Latest(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "sound(\"bd\")", latest.Code)
	assert.Equal(t, 0, latest.Version)
}

func TestSaveRequiresSessionID(t *testing.T) {
	router := newTestRouter(versions.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(`{"code":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoadReturnsSnapshot(t *testing.T) {
	store := versions.NewMemoryStore()
	router := newTestRouter(store)

	record, err := store.Append(context.Background(), "session-1", "xy")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/load/"+record.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp LoadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "xy", resp.Code)
}

func TestLoadUnknownID(t *testing.T) {
	router := newTestRouter(versions.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/load/no-such-id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)

	var resp LoadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "code version not found", resp.Message)
}
