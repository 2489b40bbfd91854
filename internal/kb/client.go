package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.voiceflow.com"
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// Client communicates with the knowledge-base REST API. All calls carry
// the API key and are synchronous request/response; retry with backoff is
// applied to transient failures only.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a custom base URL (for testing).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a knowledge-base client with the given API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request describes one API call for the do loop. Body and contentType
// describe the payload; a nil buildBody means no body.
type request struct {
	method      string
	path        string // includes query string
	contentType string
	body        []byte
}

// doJSON executes req with retry on transient failures and decodes the
// response into out (skipped when out is nil).
func (c *Client) doJSON(ctx context.Context, req request, out any) error {
	var lastErr error
	for attempt := range maxRetries {
		err := c.doOnce(ctx, req, out)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			if err := sleepBackoff(ctx, attempt, lastErr); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxRetries, lastErr)
}

// sleepBackoff waits out an exponential backoff step, honoring a 429
// Retry-After cooldown when the server provided one.
func sleepBackoff(ctx context.Context, attempt int, cause error) error {
	backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
	if apiErr, ok := cause.(*APIError); ok && apiErr.RetryAfter > 0 {
		backoff = time.Duration(apiErr.RetryAfter) * time.Second
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}

func (c *Client) doOnce(ctx context.Context, req request, out any) error {
	var bodyReader io.Reader
	if req.body != nil {
		bodyReader = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("accept", "application/json")
	httpReq.Header.Set("Authorization", c.apiKey)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &APIError{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return responseError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// responseError builds an APIError from a non-2xx response, surfacing the
// server-provided message verbatim when one is present.
func responseError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	msg := strings.TrimSpace(string(body))
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		msg = parsed.Message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	apiErr := &APIError{
		Kind:    classifyStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Message: msg,
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			apiErr.RetryAfter = secs
		}
	}
	return apiErr
}

// postJSON marshals body and issues a POST expecting a JSON response.
func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	return c.doJSON(ctx, request{
		method:      http.MethodPost,
		path:        path,
		contentType: "application/json",
		body:        data,
	}, out)
}

// patchJSON marshals body and issues a PATCH expecting a JSON response.
func (c *Client) patchJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	return c.doJSON(ctx, request{
		method:      http.MethodPatch,
		path:        path,
		contentType: "application/json",
		body:        data,
	}, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, request{method: http.MethodGet, path: path}, out)
}

func (c *Client) deleteJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, request{method: http.MethodDelete, path: path}, out)
}
