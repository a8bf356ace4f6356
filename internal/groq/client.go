package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/thepriyanshumishra/scamshield-web/internal/models"
)

// ErrTransient marks failures the caller may retry with backoff: network
// errors, timeouts, rate limits, upstream 5xx. Nothing is persisted for
// these.
var ErrTransient = errors.New("groq transient failure")

// ErrPermanent marks an unusable response (malformed JSON, invalid fields).
// The caller falls back to local-only scoring instead of retrying.
var ErrPermanent = errors.New("groq returned an unusable response")

// Client wraps the Groq chat-completions API.
type Client struct {
	apiKey     string
	baseURL    string
	modelName  string
	httpClient *http.Client
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

// Config for the Groq client.
type Config struct {
	APIKey     string
	BaseURL    string // overridable for tests
	ModelName  string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// verdictPayload is the raw shape the model is instructed to return. Every
// field is validated before use; the response is never trusted as-is.
type verdictPayload struct {
	Probability         json.Number                `json:"probability"`
	Category            string                     `json:"category"`
	RedFlags            []string                   `json:"red_flags"`
	HighlightedPhrases  []models.HighlightedPhrase `json:"highlighted_phrases"`
	PsychologyExplainer string                     `json:"psychology_explainer"`
	Advice              string                     `json:"advice"`
}

// NewClient creates a new Groq client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "llama-3.1-8b-instant"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger.Info("Groq client initialized",
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		modelName:  cfg.ModelName,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// complete sends one chat-completion request and returns the raw message
// content. Transient failures are retried up to maxRetries; permanent ones
// return immediately.
func (c *Client) complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	reqBody := chatRequest{
		Model: c.modelName,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:      false,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal request: %v", ErrPermanent, err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying Groq request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries))
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
		if err != nil {
			return "", fmt.Errorf("%w: failed to create request: %v", ErrPermanent, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrTransient, err)
			c.logger.Error("Groq API error", zap.Error(err), zap.Int("attempt", attempt+1))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: failed to read response: %v", ErrTransient, err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%w: status %d: %s", ErrTransient, resp.StatusCode, string(body))
			c.logger.Error("Groq API error",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("%w: status %d: %s", ErrPermanent, resp.StatusCode, string(body))
		}

		var chatResp chatResponse
		if err := json.Unmarshal(body, &chatResp); err != nil {
			return "", fmt.Errorf("%w: failed to parse response: %v", ErrPermanent, err)
		}
		if len(chatResp.Choices) == 0 {
			return "", fmt.Errorf("%w: empty choices", ErrPermanent)
		}

		return chatResp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

// stripFences removes markdown code fences some models wrap around JSON
// despite instructions.
func stripFences(content string) string {
	clean := strings.TrimSpace(content)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// Analyze classifies a message and returns a validated verdict.
func (c *Client) Analyze(ctx context.Context, text string) (*models.RemoteVerdict, error) {
	content, err := c.complete(ctx, SystemInstruction,
		"Analyse this message:\n\n"+text, 0.25, 400)
	if err != nil {
		return nil, err
	}

	var payload verdictPayload
	if err := json.Unmarshal([]byte(stripFences(content)), &payload); err != nil {
		c.logger.Error("Failed to parse verdict JSON",
			zap.Error(err),
			zap.String("response", content))
		return nil, fmt.Errorf("%w: %v", ErrPermanent, err)
	}

	return buildVerdict(payload)
}

// buildVerdict validates every field of the raw payload. Probability is
// expected on the 0–100 scale; 0.0–1.0 floats from models that ignore the
// format change are scaled up.
func buildVerdict(payload verdictPayload) (*models.RemoteVerdict, error) {
	rawProb, err := payload.Probability.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: non-numeric probability %q", ErrPermanent, payload.Probability.String())
	}
	if rawProb <= 1.0 {
		rawProb *= 100
	}
	if rawProb < 0 || rawProb > 100 {
		return nil, fmt.Errorf("%w: probability %.2f out of range", ErrPermanent, rawProb)
	}

	category := strings.ToLower(strings.TrimSpace(payload.Category))
	if !models.ValidCategories[category] {
		category = models.CategoryNormal
	}

	flags := payload.RedFlags
	if len(flags) > 5 {
		flags = flags[:5]
	}
	if flags == nil {
		flags = []string{}
	}

	var phrases []models.HighlightedPhrase
	for _, p := range payload.HighlightedPhrases {
		if p.Phrase == "" {
			continue
		}
		if p.Danger != "high" && p.Danger != "medium" {
			p.Danger = "medium"
		}
		phrases = append(phrases, p)
		if len(phrases) == 8 {
			break
		}
	}

	advice := strings.TrimSpace(payload.Advice)
	if advice == "" {
		advice = "Stay cautious and verify the source."
	}

	return &models.RemoteVerdict{
		Probability:         rawProb / 100.0,
		Category:            category,
		RedFlags:            flags,
		HighlightedPhrases:  phrases,
		PsychologyExplainer: strings.TrimSpace(payload.PsychologyExplainer),
		Advice:              advice,
	}, nil
}

// SecondReview re-evaluates a message after a user disagreed with the
// original verdict and returns the corrected label: scam, safe, or
// unresolved.
func (c *Client) SecondReview(ctx context.Context, text, userReason string) (string, error) {
	userContent := "Message to re-evaluate:\n\n" + text
	if strings.TrimSpace(userReason) != "" {
		userContent += "\n\nUser's reason for disagreement: " + strings.TrimSpace(userReason)
	}

	content, err := c.complete(ctx, secondReviewInstruction, userContent, 0.1, 60)
	if err != nil {
		return "", err
	}

	var result struct {
		FinalLabel string `json:"final_label"`
	}
	if err := json.Unmarshal([]byte(stripFences(content)), &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPermanent, err)
	}

	switch strings.ToLower(strings.TrimSpace(result.FinalLabel)) {
	case "scam":
		return models.LabelScam, nil
	case "safe":
		return models.LabelSafe, nil
	case "uncertain":
		return models.LabelUnresolved, nil
	}
	return "", fmt.Errorf("%w: unknown label %q", ErrPermanent, result.FinalLabel)
}

// PracticeMessage is one generated drill message for practice mode.
type PracticeMessage struct {
	Text        string `json:"text"`
	IsScam      bool   `json:"is_scam"`
	Explanation string `json:"explanation"`
}

// GeneratePractice produces a fresh, realistic drill message. A specific
// theme is picked at random to force the model out of its default habits.
func (c *Client) GeneratePractice(ctx context.Context, forceScam bool) (*PracticeMessage, error) {
	var theme, constraint string
	if forceScam {
		theme = scamThemes[rand.Intn(len(scamThemes))]
		constraint = fmt.Sprintf("Force-Scam: TRUE\nTheme: %s\n(Generate a highly deceptive scam message based exactly on this theme)", theme)
	} else {
		theme = safeThemes[rand.Intn(len(safeThemes))]
		constraint = fmt.Sprintf("Force-Scam: FALSE\nTheme: %s\n(Generate a completely safe, normal everyday message based exactly on this theme)", theme)
	}

	content, err := c.complete(ctx, practiceInstruction, constraint, 0.9, 400)
	if err != nil {
		return nil, err
	}

	var result PracticeMessage
	if err := json.Unmarshal([]byte(stripFences(content)), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	if result.Text == "" {
		return nil, fmt.Errorf("%w: empty practice text", ErrPermanent)
	}

	return &result, nil
}
