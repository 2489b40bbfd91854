package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func completionResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func TestComplete(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, completionResponse("hello back"))
	}))
	defer srv.Close()

	c := NewWithBaseURL("sk-test", srv.URL)
	out, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Model != DefaultModel {
		t.Errorf("model = %q, want %q", gotBody.Model, DefaultModel)
	}
	if gotBody.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", gotBody.Temperature)
	}
	if gotBody.MaxTokens != maxOutputTokens {
		t.Errorf("max_tokens = %d", gotBody.MaxTokens)
	}
	if out != "hello back" {
		t.Errorf("out = %q", out)
	}
}

func TestComplete_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, completionResponse("ok"))
	}))
	defer srv.Close()

	c := NewWithBaseURL("sk-test", srv.URL)
	out, err := c.Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "ok" || calls.Load() != 2 {
		t.Errorf("out = %q, calls = %d", out, calls.Load())
	}
}

func TestComplete_NonRetryableError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"context length exceeded"}}`)
	}))
	defer srv.Close()

	c := NewWithBaseURL("sk-test", srv.URL)
	_, err := c.Complete(context.Background(), "p")
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestGenerateSummary(t *testing.T) {
	summary := "---START_SUMMARY---\n# Title: Testing\n\n## Sections:\n- One\n\n## Key Topics:\n- Go\n\n## Tags:\na, b\n---END_SUMMARY---"
	var gotPrompt string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotPrompt = req.Messages[0].Content
		fmt.Fprint(w, completionResponse(summary))
	}))
	defer srv.Close()

	c := NewWithBaseURL("sk-test", srv.URL)
	out, err := c.GenerateSummary(context.Background(), "# Doc\n\nbody text")
	if err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}

	if !strings.Contains(gotPrompt, "body text") {
		t.Errorf("prompt missing content: %q", gotPrompt)
	}
	if !strings.Contains(gotPrompt, StartMarker) {
		t.Errorf("prompt missing marker instructions")
	}
	if !strings.Contains(out, "# Title: Testing") {
		t.Errorf("out = %q", out)
	}
}

func TestGenerateSummary_MissingMarkers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionResponse("just a title, no separators"))
	}))
	defer srv.Close()

	c := NewWithBaseURL("sk-test", srv.URL)
	_, err := c.GenerateSummary(context.Background(), "content")
	if err == nil || !strings.Contains(err.Error(), "separators") {
		t.Errorf("error = %v", err)
	}
}

func TestStripMarkers(t *testing.T) {
	in := "---START_SUMMARY---\n# Title: X\n---END_SUMMARY---"
	out := StripMarkers(in)
	if out != "# Title: X" {
		t.Errorf("StripMarkers = %q", out)
	}
}
