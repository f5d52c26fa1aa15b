package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"markestedt/shortcutai/config"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls the OpenAI Responses API.
type OpenAIClient struct {
	mu      sync.RWMutex
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewOpenAIClient creates a new OpenAI transform client
func NewOpenAIClient(cfg config.TransformConfig) *OpenAIClient {
	c := &OpenAIClient{client: &http.Client{}}
	c.Configure(cfg)
	return c
}

// Configure applies new settings to subsequent calls.
func (c *OpenAIClient) Configure(cfg config.TransformConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.apiKey = strings.TrimSpace(cfg.APIKey)
	c.model = cfg.Model
	if c.model == "" {
		c.model = "gpt-4o-mini"
	}
	c.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	c.timeout = cfg.Timeout()
}

// Name returns the provider name
func (c *OpenAIClient) Name() string {
	return "openai"
}

type responsesRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type contentPart struct {
	Text string `json:"text"`
}

type responsesReply struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Text    string        `json:"text"`
		Content []contentPart `json:"content"`
	} `json:"output"`
	Choices []struct {
		Text    string `json:"text"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// text returns the first non-empty text among the known response shapes.
func (r responsesReply) text() string {
	if r.OutputText != "" {
		return r.OutputText
	}
	for _, out := range r.Output {
		for _, part := range out.Content {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	for _, out := range r.Output {
		if out.Text != "" {
			return out.Text
		}
	}
	if len(r.Choices) > 0 {
		if r.Choices[0].Message.Content != "" {
			return r.Choices[0].Message.Content
		}
		return r.Choices[0].Text
	}
	return ""
}

// Transform sends prompt as the model input and returns the generated text.
func (c *OpenAIClient) Transform(ctx context.Context, prompt string) (string, error) {
	c.mu.RLock()
	apiKey, model, baseURL, timeout := c.apiKey, c.model, c.baseURL, c.timeout
	c.mu.RUnlock()

	if apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	jsonData, err := json.Marshal(responsesRequest{Model: model, Input: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/responses", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var reply responsesReply
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	text := reply.text()
	slog.Debug("Transform completed", "model", model, "chars", len(text), "latency", time.Since(start))
	return text, nil
}
