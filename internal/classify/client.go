// Package classify calls an external inference service that scores a
// piece of text against a fixed label set. The same client serves both
// the emotion and the sentiment model; only the endpoint URL differs.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/emberline/empath/internal/domain"
	"github.com/emberline/empath/internal/signal"
)

const defaultTimeout = 10 * time.Second

// Client scores text against one hosted classification model.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient builds a client for the model endpoint at url. A zero
// timeout falls back to a sensible default.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Classify posts text to the model endpoint and returns the raw label
// scores. Inference services wrap the score list in an outer array per
// input; a flat list is accepted too. Anything else is reported as
// malformed model output.
func (c *Client) Classify(ctx context.Context, text string) ([]signal.Score, error) {
	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: model endpoint returned status %d", domain.ErrMalformedOutput, resp.StatusCode)
	}

	return decodeScores(resp.Body)
}

func decodeScores(body io.Reader) ([]signal.Score, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: undecodable model response: %v", domain.ErrMalformedOutput, err)
	}

	// Outer-array shape first: [[{label, score}, ...]].
	var nested [][]signal.Score
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 || len(nested[0]) == 0 {
			return nil, fmt.Errorf("%w: model returned no scores", domain.ErrMalformedOutput)
		}
		return nested[0], nil
	}

	var flat []signal.Score
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("%w: unexpected model response shape", domain.ErrMalformedOutput)
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("%w: model returned no scores", domain.ErrMalformedOutput)
	}
	return flat, nil
}
