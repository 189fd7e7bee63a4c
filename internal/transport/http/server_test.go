package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/solace/internal/adapter/upstream"
	"github.com/xiaot623/solace/internal/config"
	"github.com/xiaot623/solace/internal/domain"
	"github.com/xiaot623/solace/internal/service"
	"github.com/xiaot623/solace/internal/testutil"
)

func TestServerRoutes(t *testing.T) {
	cfg := &config.Config{
		Server: config.Server{PublicWSURL: "ws://localhost:8080"},
		Session: config.Session{
			IdleTimeoutMs:       60000,
			SubmitTimeoutMs:     2000,
			RetiredTTLMs:        3600000,
			HistoryLookbackDays: 14,
			PersistTimeoutMs:    1000,
		},
	}
	svc := service.New(testutil.NewTestSQLiteStore(t), upstream.NewMockDialer(), cfg)
	e := NewServer(svc, cfg)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewBufferString(`{"ownerId":"u1","emotion":"sadness","intensity":4}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var started domain.StartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+started.SessionID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions/"+started.SessionID+"/end", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+started.SessionID+"/live", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
