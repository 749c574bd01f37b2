// Package script provides an HTTP client for the script generation provider,
// a chat-completion style LLM endpoint.
package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/postervoice/talkinghead-api/internal/stage"
)

// Static errors for script client operations.
var (
	// ErrAPIKeyRequired is returned when no API key is configured.
	ErrAPIKeyRequired = errors.New("script: API key is required")
	// ErrNoCompletion is returned when the provider response contains no text.
	ErrNoCompletion = errors.New("script: no completion returned")
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	systemPrompt = "You are an advertising copywriter for talking poster avatars. " +
		"Write a single spoken line of at most 25 words in the requested language and tone. " +
		"Respond with the line only, no quotes, no markdown."
)

// CompletionInput carries the subject and tone for one script request.
type CompletionInput struct {
	Subject     string
	Language    string
	Emotion     string
	Metadata    map[string]string
	Preferences map[string]string
}

// Client defines the interface for the script provider.
type Client interface {
	// Complete generates the spoken line for the given input.
	Complete(ctx context.Context, in CompletionInput) (string, error)
}

// HTTPClient is the HTTP implementation of the script Client interface.
// It performs a single attempt per call; the orchestrator owns retries.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the provider.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithModel sets the completion model.
func WithModel(model string) ClientOption {
	return func(hc *HTTPClient) {
		hc.model = model
	}
}

// NewClient creates a new script HTTP client.
func NewClient(apiKey string, opts ...ClientOption) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	c := &HTTPClient{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete generates the spoken line for the given input.
func (c *HTTPClient) Complete(ctx context.Context, in CompletionInput) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(in)},
		},
		Temperature: 0.7,
		MaxTokens:   100,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", stage.Permanent(fmt.Errorf("script: marshal request: %w", err))
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", stage.Permanent(fmt.Errorf("script: create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", stage.Transient(fmt.Errorf("script: request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", stage.Transient(fmt.Errorf("script: read response: %w", err))
	}

	if err := classifyStatus(resp.StatusCode, respBody); err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", stage.Permanent(fmt.Errorf("script: unmarshal response: %w", err))
	}
	if parsed.Error != nil {
		return "", stage.Permanent(fmt.Errorf("script: provider error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", stage.Transient(ErrNoCompletion)
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// classifyStatus maps HTTP status codes onto the retry classification.
func classifyStatus(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return stage.Transient(fmt.Errorf("script: rate limited: %s", body))
	case code >= 500:
		return stage.Transient(fmt.Errorf("script: server error %d: %s", code, body))
	default:
		return stage.Permanent(fmt.Errorf("script: request failed with status %d: %s", code, body))
	}
}

// buildUserPrompt renders the request fields into a compact instruction.
func buildUserPrompt(in CompletionInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\nLanguage: %s\nTone: %s\n", in.Subject, in.Language, in.Emotion)
	writePairs(&b, "Attributes", in.Metadata)
	writePairs(&b, "Preferences", in.Preferences)
	return b.String()
}

func writePairs(b *strings.Builder, label string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(b, "%s:", label)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%s", k, m[k])
	}
	b.WriteByte('\n')
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
