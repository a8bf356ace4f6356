package ml_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a client for the local classifier service. The classifier is a
// black box: it takes text and returns a scam probability in [0,1], fast
// enough that only a short timeout is needed.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ScoreRequest represents a single scoring request.
type ScoreRequest struct {
	Text string `json:"text"`
}

// ScoreResponse represents the scoring result.
type ScoreResponse struct {
	Probability      float64 `json:"probability"`
	ProcessingTimeMs float64 `json:"processing_time_ms,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Message     string `json:"message,omitempty"`
}

// NewClient creates a new local classifier client. The timeout is the hard
// latency bound for local scoring.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Score returns the scam probability for a single message.
func (c *Client) Score(ctx context.Context, text string) (float64, error) {
	reqBody := ScoreRequest{Text: text}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/score", bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("classifier service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Probability < 0 || result.Probability > 1 {
		return 0, fmt.Errorf("classifier returned probability %f out of [0,1]", result.Probability)
	}

	return result.Probability, nil
}

// HealthCheck checks if the classifier service is healthy.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("classifier service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
