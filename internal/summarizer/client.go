// Package summarizer sends a transcript to an OpenAI-compatible chat
// completion endpoint and returns the model's analysis.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"audiobaked/internal/apperr"
	"audiobaked/internal/config"
)

const (
	// MaxTranscriptChars caps how much of the transcript is sent, in characters.
	MaxTranscriptChars = 8000

	defaultBaseURL     = "https://api.openai.com/v1/chat/completions"
	defaultModel       = "gpt-4"
	defaultHTTPTimeout = 120 * time.Second
	serviceName        = "chat completion"
)

// Summarizer produces an analysis of a transcript.
type Summarizer interface {
	// Configured reports whether a credential is available. Callers skip the
	// analysis, with a notice, when it is not.
	Configured() bool
	Summarize(ctx context.Context, systemPrompt, transcript string) (string, error)
}

// Config captures the runtime settings required to talk to the endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// ConfigFromConfiguration reads the chat completion settings from cfg.
func ConfigFromConfiguration(cfg *config.Configuration) Config {
	return Config{
		APIKey:         cfg.GetOpenAIAPIKey(),
		BaseURL:        cfg.GetOpenAIBaseURL(),
		Model:          cfg.GetOpenAIModel(),
		TimeoutSeconds: cfg.GetOpenAITimeoutSec(),
	}
}

// Client wraps the chat completion API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(zap.String("component", "summarizer")),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	return client
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Summarize asks the model to analyze transcript. Only the first
// MaxTranscriptChars characters are sent. Any failure is returned as an
// external service error; nothing is retried.
func (c *Client) Summarize(ctx context.Context, systemPrompt, transcript string) (string, error) {
	if !c.Configured() {
		return "", apperr.Configuration("OPENAI_API_KEY is not set; export it or add it to .env to enable analysis")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = config.DefaultSystemPrompt
	}

	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: UserMessage(transcript)},
		},
	}

	c.logger.Info("sending transcript for analysis",
		zap.String("model", c.cfg.Model),
		zap.Int("transcript_chars", len([]rune(transcript))))

	content, err := c.send(ctx, payload)
	if err != nil {
		return "", apperr.ExternalService(serviceName, err).WithDetail("model", c.cfg.Model)
	}
	return content, nil
}

// UserMessage builds the user turn: a fixed preamble and the capped transcript.
func UserMessage(transcript string) string {
	return "Analyze this transcript:\n\n" + truncateRunes(transcript, MaxTranscriptChars)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (c *Client) send(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: snippet(body)}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if completion.Error != nil && completion.Error.Message != "" {
		return "", fmt.Errorf("api error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	choice := completion.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", fmt.Errorf("empty content (finish_reason=%q, refusal=%q)", choice.FinishReason, choice.Message.Refusal)
	}
	return choice.Message.Content, nil
}

func snippet(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
