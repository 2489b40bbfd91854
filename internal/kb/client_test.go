package kb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestDoJSON_AuthHeader(t *testing.T) {
	var gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("accept")
		fmt.Fprint(w, `{"data":[],"pagination":{"page":1,"limit":100,"hasNext":false}}`)
	}))
	defer srv.Close()

	c := New("VF.DM.test-key", WithBaseURL(srv.URL))
	if _, _, err := c.ListDocuments(context.Background(), ListOptions{}); err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}

	if gotAuth != "VF.DM.test-key" {
		t.Errorf("Authorization = %q, want API key", gotAuth)
	}
	if gotAccept != "application/json" {
		t.Errorf("accept = %q, want application/json", gotAccept)
	}
}

func TestDoJSON_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		status   int
		wantKind ErrorKind
	}{
		{http.StatusBadRequest, KindValidation},
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindQuota},
		{http.StatusNotFound, KindNotFound},
		{http.StatusUnprocessableEntity, KindValidation},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"message":"server said no"}`)
			}))
			defer srv.Close()

			c := New("key", WithBaseURL(srv.URL))
			err := c.DeleteDocument(context.Background(), "doc-1")
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error type = %T, want *APIError", err)
			}
			if apiErr.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", apiErr.Kind, tt.wantKind)
			}
			if apiErr.Message != "server said no" {
				t.Errorf("message = %q, want server message verbatim", apiErr.Message)
			}
			if got := calls.Load(); got != 1 {
				t.Errorf("calls = %d, want 1 (4xx must not be retried)", got)
			}
		})
	}
}

func TestDoJSON_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"data":{"documentID":"doc-1","data":{"type":"url","name":"n"},"status":{"type":"PENDING"}}}`)
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	doc, err := c.UploadURL(context.Background(), "https://example.com", nil, UploadOptions{})
	if err != nil {
		t.Fatalf("UploadURL after retry: %v", err)
	}
	if doc.DocumentID != "doc-1" {
		t.Errorf("documentID = %q, want doc-1", doc.DocumentID)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestDoJSON_RateLimitCooldown(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"data":[],"pagination":{"hasNext":false}}`)
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	if _, _, err := c.ListDocuments(context.Background(), ListOptions{}); err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2 (429 retried after cooldown)", got)
	}
}

func TestDoJSON_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	err := c.DeleteDocument(context.Background(), "doc-1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if got := calls.Load(); got != maxRetries {
		t.Errorf("calls = %d, want %d", got, maxRetries)
	}
	if !IsKind(err, KindTransient) {
		t.Errorf("final error should wrap a transient APIError: %v", err)
	}
}

func TestDoJSON_NetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New("key", WithBaseURL(srv.URL))
	_, _, err := c.ListDocuments(context.Background(), ListOptions{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsKind(err, KindTransient) {
		t.Errorf("error = %v, want transient kind", err)
	}
}

func TestDoJSON_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New("key", WithBaseURL(srv.URL))
	err := c.DeleteDocument(ctx, "doc-1")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
