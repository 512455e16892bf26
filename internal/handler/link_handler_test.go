package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
	"github.com/jonp69/DL-Homework-Garden/internal/service"
)

func TestLinkHandlerListFiltersByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestStore(t)
	seedLink(t, s, "https://gallery.example/a", models.ActionToDownload)
	seedLink(t, s, "https://gallery.example/b", models.ActionToSkip)
	handler := NewLinkHandler(service.NewLinkService(s, nil, nil, nil, zap.NewNop()))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/links?status=to_download", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var links []models.Link
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &links))
	require.Len(t, links, 1)
	assert.Equal(t, "https://gallery.example/a", links[0].URL)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
}

func TestLinkHandlerListRejectsUnknownStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewLinkHandler(service.NewLinkService(newTestStore(t), nil, nil, nil, zap.NewNop()))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/links?status=bogus", nil)
	c.Request = req

	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLinkHandlerGetByURL(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestStore(t)
	seedLink(t, s, "https://gallery.example/a", models.ActionToDownload)
	handler := NewLinkHandler(service.NewLinkService(s, nil, nil, nil, zap.NewNop()))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/links/detail?url=https%3A%2F%2Fgallery.example%2Fa", nil)
	c.Request = req

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)

	var link models.Link
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &link))
	assert.Equal(t, models.StatusToDownload, link.Status)
}

func TestLinkHandlerSetStatusUnknownLink(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewLinkHandler(service.NewLinkService(newTestStore(t), nil, nil, nil, zap.NewNop()))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.SetLinkStatusRequest{URL: "https://gallery.example/missing", Status: "to_skip"})
	req, _ := http.NewRequest(http.MethodPut, "/api/v1/links/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.SetStatus(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLinkHandlerSetStatusBulk(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestStore(t)
	seedLink(t, s, "https://gallery.example/a", models.ActionToDownload)
	seedLink(t, s, "https://gallery.example/b", models.ActionToDownload)
	handler := NewLinkHandler(service.NewLinkService(s, nil, nil, nil, zap.NewNop()))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.SetLinkStatusBulkRequest{
		URLs:   []string{"https://gallery.example/a", "https://gallery.example/b", "https://gallery.example/missing"},
		Status: "to_skip",
	})
	req, _ := http.NewRequest(http.MethodPatch, "/api/v1/links/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.SetStatusBulk(c)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Changed int `json:"changed"`
	}
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 2, result.Changed)

	link, ok := s.Get("https://gallery.example/b")
	require.True(t, ok)
	assert.Equal(t, models.StatusToSkip, link.Status)
}

func TestLinkHandlerStatsCountsTiers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestStore(t)
	seedLink(t, s, "https://gallery.example/a", models.ActionToDownload)
	seedLink(t, s, "https://gallery.example/b", models.ActionToDownload)
	seedLink(t, s, "https://gallery.example/c", models.ActionDeleted)
	handler := NewLinkHandler(service.NewLinkService(s, nil, nil, nil, zap.NewNop()))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/links/stats", nil)
	c.Request = req

	handler.Stats(c)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.LinkStats
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Deleted)
	assert.Equal(t, 2, stats.ByStatus[models.StatusToDownload])
}
