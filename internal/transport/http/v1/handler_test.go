package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/xiaot623/solace/internal/adapter/upstream"
	"github.com/xiaot623/solace/internal/config"
	"github.com/xiaot623/solace/internal/domain"
	"github.com/xiaot623/solace/internal/repository"
	"github.com/xiaot623/solace/internal/service"
	"github.com/xiaot623/solace/internal/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.Server{PublicWSURL: "ws://gateway.test"},
		Session: config.Session{
			IdleTimeoutMs:       60000,
			SubmitTimeoutMs:     2000,
			RetiredTTLMs:        3600000,
			HistoryLookbackDays: 14,
			PersistTimeoutMs:    1000,
		},
	}
}

func newTestHandler(t *testing.T, store repository.Store, dialer upstream.Dialer) (*Handler, *service.Service) {
	t.Helper()
	if store == nil {
		store = testutil.NewTestSQLiteStore(t)
	}
	svc := service.New(store, dialer, testConfig())
	return NewHandler(svc), svc
}

func newContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func startSession(t *testing.T, svc *service.Service) string {
	t.Helper()
	resp, err := svc.Start(context.Background(), &domain.StartRequest{OwnerID: "u1", Emotion: "anxiety", Intensity: 7})
	require.NoError(t, err)
	return resp.SessionID
}

func TestStartSession(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, nil, upstream.NewMockDialer())

	c, rec := newContext(e, http.MethodPost, "/v1/sessions", `{"ownerId":"u1","emotion":"anxiety","intensity":7}`)
	require.NoError(t, h.StartSession(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp domain.StartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "ws://gateway.test/v1/sessions/"+resp.SessionID+"/live", resp.ConnectionEndpoint)
	assert.Equal(t, "anxiety management", resp.TherapeuticContext.PrimaryConcern)
	assert.NotEmpty(t, resp.TherapeuticContext.RecommendedTechniques)
}

func TestStartSessionValidation(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, nil, upstream.NewMockDialer())

	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{"ownerId":`},
		{"missing owner", `{"emotion":"anxiety","intensity":5}`},
		{"intensity out of range", `{"ownerId":"u1","emotion":"anxiety","intensity":12}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(e, http.MethodPost, "/v1/sessions", tt.body)
			require.NoError(t, h.StartSession(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "validation_error")
		})
	}
}

func TestStartSessionWithoutUpstream(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, nil, nil)

	c, rec := newContext(e, http.MethodPost, "/v1/sessions", `{"ownerId":"u1","emotion":"anxiety","intensity":7}`)
	require.NoError(t, h.StartSession(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStartSessionDuplicateID(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, nil, upstream.NewMockDialer())
	body := `{"sessionId":"sess_dup","ownerId":"u1","emotion":"anxiety","intensity":7}`

	c, rec := newContext(e, http.MethodPost, "/v1/sessions", body)
	require.NoError(t, h.StartSession(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = newContext(e, http.MethodPost, "/v1/sessions", body)
	require.NoError(t, h.StartSession(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetSession(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, nil, upstream.NewMockDialer())
	sessionID := startSession(t, svc)

	c, rec := newContext(e, http.MethodGet, "/v1/sessions/"+sessionID, "")
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID)
	require.NoError(t, h.GetSession(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.SessionStatusInitializing, resp.Status)

	c, rec = newContext(e, http.MethodGet, "/v1/sessions/missing", "")
	c.SetParamNames("session_id")
	c.SetParamValues("missing")
	require.NoError(t, h.GetSession(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitMessageBeforeConnect(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, nil, upstream.NewMockDialer())
	sessionID := startSession(t, svc)

	c, rec := newContext(e, http.MethodPost, "/v1/sessions/"+sessionID+"/messages", `{"text":"hello"}`)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID)
	require.NoError(t, h.SubmitMessage(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	c, rec = newContext(e, http.MethodPost, "/v1/sessions/"+sessionID+"/audio", `{"mimeType":"audio/pcm"}`)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID)
	require.NoError(t, h.SubmitAudio(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEndSession(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, nil, upstream.NewMockDialer())
	sessionID := startSession(t, svc)

	end := func() (*httptest.ResponseRecorder, domain.EndResponse) {
		c, rec := newContext(e, http.MethodPost, "/v1/sessions/"+sessionID+"/end", "")
		c.SetParamNames("session_id")
		c.SetParamValues(sessionID)
		require.NoError(t, h.EndSession(c))
		var resp domain.EndResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return rec, resp
	}

	rec, first := end()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, first.Saved)
	assert.Equal(t, domain.SessionStatusEnded, first.Status)

	rec, second := end()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.PersistedRecordID, second.PersistedRecordID)

	c, rec := newContext(e, http.MethodGet, "/v1/records/"+first.PersistedRecordID, "")
	c.SetParamNames("record_id")
	c.SetParamValues(first.PersistedRecordID)
	require.NoError(t, h.GetRecord(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var record domain.SessionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, sessionID, record.SessionID)
}

func TestEndSessionPersistenceFailure(t *testing.T) {
	e := echo.New()
	store := repository.NewMockStore(gomock.NewController(t))
	store.EXPECT().FindRecent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	store.EXPECT().SaveSessionRecord(gomock.Any(), gomock.Any()).Return(errors.New("database is locked"))

	h, svc := newTestHandler(t, store, upstream.NewMockDialer())
	sessionID := startSession(t, svc)

	c, rec := newContext(e, http.MethodPost, "/v1/sessions/"+sessionID+"/end", "")
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID)
	require.NoError(t, h.EndSession(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.EndResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Saved)
	assert.Empty(t, resp.PersistedRecordID)
	assert.NotEmpty(t, resp.Warning)
}

func TestGetRecordNotFound(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, nil, upstream.NewMockDialer())

	c, rec := newContext(e, http.MethodGet, "/v1/records/rec_missing", "")
	c.SetParamNames("record_id")
	c.SetParamValues("rec_missing")
	require.NoError(t, h.GetRecord(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRecords(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, nil, upstream.NewMockDialer())
	for i := 0; i < 3; i++ {
		_, err := svc.End(context.Background(), startSession(t, svc))
		require.NoError(t, err)
	}

	c, rec := newContext(e, http.MethodGet, "/v1/users/u1/sessions?limit=2", "")
	c.SetParamNames("owner_id")
	c.SetParamValues("u1")
	require.NoError(t, h.ListRecords(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Records []domain.SessionRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Records, 2)
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, nil, upstream.NewMockDialer())
	startSession(t, svc)

	c, rec := newContext(e, http.MethodGet, "/health", "")
	require.NoError(t, h.Health(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","sessions":1}`, rec.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", domain.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: gone", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: busy", domain.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: dial", domain.ErrUpstreamUnavailable), http.StatusBadGateway},
		{fmt.Errorf("%w: none", domain.ErrServiceUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: disk", domain.ErrPersistenceFailure), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
