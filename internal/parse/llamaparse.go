package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL      = "https://api.cloud.llamaindex.ai/api/parsing"
	defaultTimeout      = 120 * time.Second
	defaultPollInterval = 2 * time.Second
)

// DefaultInstruction guides the parser toward a faithful markdown
// reconstruction of the source document. A caller-provided instruction
// is appended after the exception clause.
const DefaultInstruction = "The provided document is a PDF that may encompass various types of content " +
	"such as text, images, headings, subheadings, bullet points, numbered lists, tables, and figures. " +
	"Reconstruct the information in a clear and organized manner, preserving the original structure and " +
	"logical flow presented in the document, unless stated otherwise in the 'exception/modification' " +
	"section below. Maintain all technical terms, definitions, and descriptions as accurately as possible " +
	"without altering the intended meaning. Avoid adding personal opinions, interpretations, or any " +
	"additional commentary outside of the provided content.\n\nWith the following exception/modification: "

// Client communicates with the LlamaParse cloud API. Parsing is an async
// job: upload, poll, fetch the markdown result.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
}

// New creates a LlamaParse client with the given API key.
func New(apiKey string) *Client {
	return &Client{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		pollInterval: defaultPollInterval,
	}
}

// NewWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewWithBaseURL(apiKey, baseURL string) *Client {
	c := New(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.pollInterval = 10 * time.Millisecond
	return c
}

// Options tunes one parse job.
type Options struct {
	// Instruction replaces the exception clause of DefaultInstruction.
	Instruction string

	// TargetPages restricts parsing to a page selection, e.g. "0,2-5".
	// Empty parses the whole document.
	TargetPages string
}

type jobState struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Parse uploads a PDF, waits for the parse job to finish and returns the
// markdown result. The poll loop respects ctx cancellation.
func (c *Client) Parse(ctx context.Context, content []byte, filename string, opts Options) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("llamaparse API key is not configured")
	}
	if len(content) == 0 {
		return "", fmt.Errorf("document is empty")
	}

	jobID, err := c.upload(ctx, content, filename, opts)
	if err != nil {
		return "", err
	}

	if err := c.waitForJob(ctx, jobID); err != nil {
		return "", err
	}

	return c.fetchMarkdown(ctx, jobID)
}

func (c *Client) upload(ctx context.Context, content []byte, filename string, opts Options) (string, error) {
	instruction := DefaultInstruction
	if opts.Instruction != "" {
		instruction += opts.Instruction
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("writing file part: %w", err)
	}
	fields := map[string]string{
		"result_type":         "markdown",
		"parsing_instruction": instruction,
		"target_pages":        opts.TargetPages,
		// Cloud results stay cached for 48h after upload; always parse fresh.
		"invalidate_cache": "true",
		"do_not_cache":     "true",
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return "", fmt.Errorf("writing field %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return "", fmt.Errorf("upload returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var job jobState
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if job.ID == "" {
		return "", fmt.Errorf("upload response missing job id")
	}
	return job.ID, nil
}

func (c *Client) waitForJob(ctx context.Context, jobID string) error {
	for {
		job, err := c.jobStatus(ctx, jobID)
		if err != nil {
			return err
		}
		switch job.Status {
		case "SUCCESS":
			return nil
		case "ERROR":
			return fmt.Errorf("parse job %s failed: %s", jobID, job.Error)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) jobStatus(ctx context.Context, jobID string) (jobState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/job/"+jobID, nil)
	if err != nil {
		return jobState{}, fmt.Errorf("creating status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return jobState{}, fmt.Errorf("polling job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return jobState{}, fmt.Errorf("job status returned %d", resp.StatusCode)
	}

	var job jobState
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return jobState{}, fmt.Errorf("decoding job status: %w", err)
	}
	return job, nil
}

func (c *Client) fetchMarkdown(ctx context.Context, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/job/"+jobID+"/result/markdown", nil)
	if err != nil {
		return "", fmt.Errorf("creating result request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching result for job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("result returned status %d", resp.StatusCode)
	}

	var result struct {
		Markdown string `json:"markdown"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding result: %w", err)
	}
	return strings.TrimSpace(result.Markdown), nil
}
