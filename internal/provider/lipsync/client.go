package lipsync

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

// Static errors for lip-sync client operations.
var (
	// ErrEndpointRequired is returned when the endpoint URL is not provided.
	ErrEndpointRequired = errors.New("lipsync: endpoint URL is required")
	// ErrAPIKeyRequired is returned when the API key is not provided.
	ErrAPIKeyRequired = errors.New("lipsync: API key is required")
	// ErrJobIDRequired is returned when the job ID is not provided.
	ErrJobIDRequired = errors.New("lipsync: job ID is required")
	// ErrNoJobIDReturned is returned when the submit response has neither a
	// job ID nor an inline output.
	ErrNoJobIDReturned = errors.New("lipsync: submit failed: no job ID or output returned")
)

// Client defines the interface for interacting with the lip-sync provider.
type Client interface {
	// Submit sends a lip-sync job. The result carries either the finished
	// output inline or a job ID to poll.
	Submit(ctx context.Context, in SubmitInput) (SubmitResult, error)

	// Poll checks the status of a previously submitted job.
	Poll(ctx context.Context, jobID string) (PollResult, error)
}

// HTTPClient is the HTTP implementation of the lip-sync Client interface.
// It performs a single attempt per call; the orchestrator owns retries.
type HTTPClient struct {
	apiKey     string
	endpoint   string
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

// NewClient creates a new lip-sync HTTP client for the given endpoint.
func NewClient(endpoint, apiKey string, opts ...ClientOption) (*HTTPClient, error) {
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	c := &HTTPClient{
		apiKey:     apiKey,
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit sends a lip-sync job to the provider.
func (c *HTTPClient) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	reqBody := runRequest{
		Input: runInput{
			AudioURL:  in.AudioURL,
			AvatarRef: in.AvatarRef,
			Emotion:   in.Emotion,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return SubmitResult{}, stage.Permanent(fmt.Errorf("lipsync: marshal request: %w", err))
	}

	var resp runResponse
	if err := c.doRequest(ctx, http.MethodPost, c.endpoint+"/run", bodyBytes, &resp); err != nil {
		return SubmitResult{}, err
	}

	if resp.Error != "" {
		return SubmitResult{}, stage.Permanent(fmt.Errorf("lipsync: submit failed: %s", resp.Error))
	}
	if resp.Output != nil && resp.Output.VideoURL != "" {
		return SubmitResult{Output: resp.Output}, nil
	}
	if resp.ID == "" {
		return SubmitResult{}, stage.Permanent(ErrNoJobIDReturned)
	}
	return SubmitResult{JobID: resp.ID}, nil
}

// Poll checks the status of a job and returns the result.
func (c *HTTPClient) Poll(ctx context.Context, jobID string) (PollResult, error) {
	if jobID == "" {
		return PollResult{}, stage.Permanent(ErrJobIDRequired)
	}

	var resp statusResponse
	url := fmt.Sprintf("%s/status/%s", c.endpoint, jobID)
	if err := c.doRequest(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return PollResult{}, err
	}

	var mapped Status
	switch resp.Status {
	case "IN_QUEUE", "PENDING":
		mapped = StatusInQueue
	case "RUNNING", "IN_PROGRESS":
		mapped = StatusRunning
	case "COMPLETED":
		mapped = StatusCompleted
	case "FAILED":
		mapped = StatusFailed
	case "TIMED_OUT":
		mapped = StatusTimedOut
	default:
		mapped = Status(resp.Status)
	}

	result := PollResult{Status: mapped}
	switch mapped {
	case StatusCompleted:
		result.Output = resp.Output
	case StatusFailed, StatusTimedOut:
		result.Error = resp.Error
	}
	return result, nil
}

// doRequest performs a single HTTP request and classifies failures.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body []byte, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return stage.Permanent(fmt.Errorf("lipsync: create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stage.Transient(fmt.Errorf("lipsync: request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return stage.Transient(fmt.Errorf("lipsync: read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return stage.Transient(fmt.Errorf("lipsync: rate limited: %s", respBody))
	case resp.StatusCode >= 500:
		return stage.Transient(fmt.Errorf("lipsync: server error %d: %s", resp.StatusCode, respBody))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return stage.Permanent(fmt.Errorf("lipsync: request failed with status %d: %s", resp.StatusCode, respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return stage.Permanent(fmt.Errorf("lipsync: unmarshal response: %w", err))
		}
	}
	return nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
