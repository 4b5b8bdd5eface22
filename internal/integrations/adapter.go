// Package integrations holds the shared outbound HTTP adapter used by the
// carrier, customs and accounting connectors.
package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// IntegrationError marks a downstream partner failure. The API boundary
// reports these in the response body rather than as an HTTP error: the
// platform call succeeded, the partner call did not.
type IntegrationError struct {
	Op     string
	Status int
	Msg    string
}

func (e *IntegrationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("integration %s failed: status %d: %s", e.Op, e.Status, e.Msg)
	}
	return fmt.Sprintf("integration %s failed: %s", e.Op, e.Msg)
}

// JSONHTTPAdapter posts JSON payloads to a partner API with bearer auth and
// per-request idempotency keys.
type JSONHTTPAdapter struct {
	BaseURL  string
	Token    string
	ClientID string
	client   *http.Client
	logger   *log.Logger
}

func NewJSONHTTPAdapter(baseURL, token, clientID string, timeout time.Duration) *JSONHTTPAdapter {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &JSONHTTPAdapter{
		BaseURL:  baseURL,
		Token:    token,
		ClientID: clientID,
		client:   &http.Client{Timeout: timeout},
		logger:   log.New(log.Writer(), "[INTEGRATION] ", log.LstdFlags),
	}
}

// Post sends payload to BaseURL+path and decodes the JSON response.
// Non-2xx statuses and non-JSON bodies are IntegrationErrors.
func (a *JSONHTTPAdapter) Post(ctx context.Context, path string, payload interface{}) (map[string]interface{}, error) {
	op := a.BaseURL + path

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &IntegrationError{Op: op, Msg: "marshal request: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, op, bytes.NewReader(body))
	if err != nil {
		return nil, &IntegrationError{Op: op, Msg: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}
	if a.ClientID != "" {
		req.Header.Set("X-Client-Id", a.ClientID)
	}
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &IntegrationError{Op: op, Msg: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &IntegrationError{Op: op, Status: resp.StatusCode, Msg: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &IntegrationError{Op: op, Status: resp.StatusCode, Msg: string(raw)}
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &IntegrationError{Op: op, Status: resp.StatusCode, Msg: "non-JSON response"}
	}
	return out, nil
}
