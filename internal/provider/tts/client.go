// Package tts provides an HTTP client for the text-to-speech provider.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/postervoice/talkinghead-api/internal/stage"
)

// Static errors for TTS client operations.
var (
	// ErrAPIKeyRequired is returned when no API key is configured.
	ErrAPIKeyRequired = errors.New("tts: API key is required")
	// ErrBaseURLRequired is returned when no base URL is configured.
	ErrBaseURLRequired = errors.New("tts: base URL is required")
	// ErrNoAudioReturned is returned when the provider response has no audio URL.
	ErrNoAudioReturned = errors.New("tts: no audio URL returned")
)

// SynthesisResult is the provider's successful response.
type SynthesisResult struct {
	// AudioURL is a playable audio reference.
	AudioURL string
	// Duration is the audio length in seconds, as reported by the provider.
	Duration float64
}

// Client defines the interface for the TTS provider.
type Client interface {
	// Synthesize converts text into speech audio.
	Synthesize(ctx context.Context, text, language, emotion string) (SynthesisResult, error)
}

// HTTPClient is the HTTP implementation of the TTS Client interface.
// It performs a single attempt per call; the orchestrator owns retries.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	voice      string
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

// WithVoice sets the provider voice preset.
func WithVoice(voice string) ClientOption {
	return func(hc *HTTPClient) {
		hc.voice = voice
	}
}

// NewClient creates a new TTS HTTP client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	c := &HTTPClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Emotion  string `json:"emotion"`
	Voice    string `json:"voice,omitempty"`
}

type synthesizeResponse struct {
	AudioURL string  `json:"audio_url"`
	Duration float64 `json:"duration"`
	Error    string  `json:"error,omitempty"`
}

// Synthesize converts text into speech audio.
func (c *HTTPClient) Synthesize(ctx context.Context, text, language, emotion string) (SynthesisResult, error) {
	reqBody := synthesizeRequest{
		Text:     text,
		Language: language,
		Emotion:  emotion,
		Voice:    c.voice,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return SynthesisResult{}, stage.Permanent(fmt.Errorf("tts: marshal request: %w", err))
	}

	url := c.baseURL + "/synthesize"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return SynthesisResult{}, stage.Permanent(fmt.Errorf("tts: create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SynthesisResult{}, stage.Transient(fmt.Errorf("tts: request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return SynthesisResult{}, stage.Transient(fmt.Errorf("tts: read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return SynthesisResult{}, stage.Transient(fmt.Errorf("tts: rate limited: %s", respBody))
	case resp.StatusCode >= 500:
		return SynthesisResult{}, stage.Transient(fmt.Errorf("tts: server error %d: %s", resp.StatusCode, respBody))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return SynthesisResult{}, stage.Permanent(fmt.Errorf("tts: request failed with status %d: %s", resp.StatusCode, respBody))
	}

	var parsed synthesizeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return SynthesisResult{}, stage.Permanent(fmt.Errorf("tts: unmarshal response: %w", err))
	}
	if parsed.Error != "" {
		return SynthesisResult{}, stage.Permanent(fmt.Errorf("tts: provider error: %s", parsed.Error))
	}
	if parsed.AudioURL == "" {
		return SynthesisResult{}, stage.Permanent(ErrNoAudioReturned)
	}

	return SynthesisResult{AudioURL: parsed.AudioURL, Duration: parsed.Duration}, nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
