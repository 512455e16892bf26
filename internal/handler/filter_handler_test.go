package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
	"github.com/jonp69/DL-Homework-Garden/internal/service"
	"github.com/jonp69/DL-Homework-Garden/internal/store"
)

func filterPayloadBody(t *testing.T, payload service.FilterPayload) *bytes.Buffer {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestFilterHandlerCreateAndList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestStore(t)
	h := NewFilterHandler(newFilterServiceForTest(t, s))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/api/v1/filters", filterPayloadBody(t, service.FilterPayload{
		Name:   "catch all",
		Action: string(models.ActionToDownload),
		Rules:  []service.RulePayload{{Position: models.AnyPosition, Mode: string(models.MatchAny)}},
	}))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Filter
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &created))
	require.Equal(t, "catch all", created.Name)
	require.Equal(t, 0, created.PriorityRank)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	req, err = http.NewRequest(http.MethodGet, "/api/v1/filters", nil)
	require.NoError(t, err)
	c.Request = req

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var filters []models.Filter
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &filters))
	require.Len(t, filters, 1)
}

func TestFilterHandlerCreateRejectsEmptyRules(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestStore(t)
	h := NewFilterHandler(newFilterServiceForTest(t, s))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/api/v1/filters", filterPayloadBody(t, service.FilterPayload{
		Name:   "no rules",
		Action: string(models.ActionToSkip),
	}))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFilterHandlerDeleteReportsAffectedLinks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestStore(t)
	svc := newFilterServiceForTest(t, s)
	h := NewFilterHandler(svc)

	created, err := svc.Create(context.Background(), service.FilterPayload{
		Name:   "skip galleries",
		Action: string(models.ActionToSkip),
		Rules:  []service.RulePayload{{Position: models.AnyPosition, Mode: string(models.MatchContains), Expression: "gallery"}},
	})
	require.NoError(t, err)

	_, err = s.ApplyClassification(context.Background(), "https://gallery.example/a", store.Classification{
		Action:   models.ActionToSkip,
		FilterID: &created.NumericID,
		Source:   models.SourceFile,
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodDelete, "/api/v1/filters/1", nil)
	require.NoError(t, err)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	h.Delete(c)
	require.Equal(t, http.StatusOK, w.Code)

	var result service.DeleteFilterResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &result))
	require.Equal(t, 1, result.AffectedLinks)

	link, ok := s.Get("https://gallery.example/a")
	require.True(t, ok)
	require.Equal(t, models.StatusToReprocess, link.Status)
}

func TestFilterHandlerMoveUnknownFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestStore(t)
	h := NewFilterHandler(newFilterServiceForTest(t, s))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, err := json.Marshal(service.MoveFilterRequest{Delta: -1})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, "/api/v1/filters/99/move", bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "99"}}

	h.Move(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestFilterHandlerRejectsNonNumericID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestStore(t)
	h := NewFilterHandler(newFilterServiceForTest(t, s))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/api/v1/filters/abc", nil)
	require.NoError(t, err)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	h.Get(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
