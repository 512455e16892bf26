package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/classify"
	"github.com/jonp69/DL-Homework-Garden/internal/models"
	"github.com/jonp69/DL-Homework-Garden/internal/repository"
	"github.com/jonp69/DL-Homework-Garden/internal/service"
	"github.com/jonp69/DL-Homework-Garden/internal/store"
)

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	snaps, err := repository.NewFileSnapshots(t.TempDir())
	require.NoError(t, err)
	s := store.New(store.Config{Snapshots: snaps, Logger: zap.NewNop()})
	require.NoError(t, s.Load(context.Background()))
	return s
}

func newFilterServiceForTest(t *testing.T, s *store.Store) *service.FilterService {
	t.Helper()
	broker := classify.NewBroker(zap.NewNop())
	classifier := classify.New(classify.Config{Store: s, Author: broker, Logger: zap.NewNop()})
	return service.NewFilterService(s, classifier, broker, nil, nil, zap.NewNop())
}

func seedLink(t *testing.T, s *store.Store, url string, action models.FilterAction) models.Link {
	t.Helper()
	filterID := int64(1)
	link, err := s.ApplyClassification(context.Background(), url, store.Classification{
		Action:     action,
		FilterID:   &filterID,
		Source:     models.SourceFile,
		SourceFile: "links.txt",
	})
	require.NoError(t, err)
	return link
}
