package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const rowClientTimeout = 10 * time.Second

// HTTPRowClient talks to a sheet bridge service over JSON. The bridge owns
// credentials and quota; this client only moves rows.
type HTTPRowClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ RowClient = (*HTTPRowClient)(nil)

func NewHTTPRowClient(baseURL string) *HTTPRowClient {
	return &HTTPRowClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: rowClientTimeout},
	}
}

func (c *HTTPRowClient) AppendRow(ctx context.Context, sheetID string, row []string) error {
	payload, err := json.Marshal(map[string]any{"sheet_id": sheetID, "row": row})
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/rows", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create append request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute append request: %w", err)
	}
	defer resp.Body.Close()

	return checkStatus(resp.StatusCode)
}

func (c *HTTPRowClient) ReadRows(ctx context.Context, sheetID string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/rows?sheet_id=%s", c.baseURL, url.QueryEscape(sheetID))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create read request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute read request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var rows [][]string
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK || code == http.StatusCreated || code == http.StatusNoContent:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: bridge returned status %d", ErrRateLimited, code)
	default:
		return fmt.Errorf("sheet bridge returned status %d", code)
	}
}
