package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/solace/internal/domain"
)

// apiClient calls the gateway's command surface.
type apiClient struct {
	baseURL string
	http    *retryablehttp.Client
}

func newAPIClient(baseURL string, retryMax int) *apiClient {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = stdlog.New(io.Discard, "", stdlog.LstdFlags)
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		log.Trace().Str(req.Method, req.URL.String()).Int("attempt", attempt).Msg("")
	}
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

func (c *apiClient) startSession(ctx context.Context, req *domain.StartRequest) (*domain.StartResponse, error) {
	var resp domain.StartResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", req, http.StatusCreated, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) endSession(ctx context.Context, sessionID string) (*domain.EndResponse, error) {
	var resp domain.EndResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+sessionID+"/end", nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body interface{}, wantStatus int, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != wantStatus {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %d %s: %s", method, path, resp.StatusCode, apiErr.Code, apiErr.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
