// Package api exposes the content workflow over HTTP and MCP so local
// automations can drive it without shelling out to the CLI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkravets/kbflow/internal/history"
	"github.com/mkravets/kbflow/internal/kb"
	"github.com/mkravets/kbflow/internal/pipeline"
)

const maxRequestBodySize = 1 << 20 // 1MB

// KBService is the slice of the knowledge base client the handlers use.
// kb.Client satisfies it.
type KBService interface {
	ListDocuments(ctx context.Context, opts kb.ListOptions) ([]kb.Document, kb.Pagination, error)
	DeleteDocument(ctx context.Context, documentID string) error
	Query(ctx context.Context, req kb.QueryRequest) (kb.QueryResponse, error)
}

// URLIngester runs the URL workflow. pipeline.Workflow satisfies it.
type URLIngester interface {
	IngestURL(ctx context.Context, pageURL string, opts pipeline.Options) (pipeline.Result, error)
}

// HistoryLister reads upload history rows. history.Store satisfies it.
type HistoryLister interface {
	ListUploads(limit int) ([]history.Upload, error)
}

type Deps struct {
	KB       KBService
	Workflow URLIngester
	History  HistoryLister // optional
	Token    string
}

func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Post("/v1/workflows/url", handleWorkflowURL(deps))
		r.Get("/v1/docs", handleListDocs(deps))
		r.Delete("/v1/docs/{documentID}", handleDeleteDoc(deps))
		r.Post("/v1/query", handleQuery(deps))
		r.Get("/v1/history", handleHistory(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type workflowURLRequest struct {
	URL       string         `json:"url"`
	Name      string         `json:"name"`
	Clean     bool           `json:"clean"`
	Summarize bool           `json:"summarize"`
	Metadata  map[string]any `json:"metadata"`
	Overwrite bool           `json:"overwrite"`
	MaxChunk  int            `json:"maxChunkSize"`
}

func handleWorkflowURL(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req workflowURLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.URL == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "url is required")
			return
		}

		res, err := deps.Workflow.IngestURL(r.Context(), req.URL, pipeline.Options{
			Name:      req.Name,
			Clean:     req.Clean,
			Summarize: req.Summarize,
			Metadata:  req.Metadata,
			Upload: kb.UploadOptions{
				Overwrite:    req.Overwrite,
				MaxChunkSize: req.MaxChunk,
			},
		})
		if err != nil {
			kbError(w, err, "workflow failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"documentID": res.Document.DocumentID,
			"name":       res.Name,
			"historyID":  res.HistoryID,
		})
	}
}

func handleListDocs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := kb.ListOptions{
			Page:   parseIntParam(r, "page", 1, 0),
			Limit:  parseIntParam(r, "limit", 100, 500),
			Search: r.URL.Query().Get("search"),
		}

		docs, page, err := deps.KB.ListDocuments(r.Context(), opts)
		if err != nil {
			kbError(w, err, "listing documents: %v", err)
			return
		}
		if docs == nil {
			docs = []kb.Document{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data":       docs,
			"pagination": page,
		})
	}
}

func handleDeleteDoc(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		documentID := chi.URLParam(r, "documentID")

		if err := deps.KB.DeleteDocument(r.Context(), documentID); err != nil {
			kbError(w, err, "deleting document: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

type queryRequest struct {
	Question   string          `json:"question"`
	ChunkLimit int             `json:"chunkLimit"`
	Synthesis  bool            `json:"synthesis"`
	Filters    json.RawMessage `json:"filters"`
}

func handleQuery(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		kbReq := kb.QueryRequest{
			Question:   req.Question,
			ChunkLimit: req.ChunkLimit,
			Synthesis:  req.Synthesis,
		}
		if len(req.Filters) > 0 {
			filter, err := kb.ParseFilterJSON(req.Filters)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid filters: %v", err)
				return
			}
			built, err := kb.BuildFilter(filter)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid filters: %v", err)
				return
			}
			kbReq.Filters = built
		}

		resp, err := deps.KB.Query(r.Context(), kbReq)
		if err != nil {
			kbError(w, err, "query failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func handleHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.History == nil {
			httpError(w, http.StatusNotFound, "not_found", "history is not enabled")
			return
		}

		rows, err := deps.History.ListUploads(parseIntParam(r, "limit", 50, 200))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing history: %v", err)
			return
		}
		if rows == nil {
			rows = []history.Upload{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	}
}

// kbError maps knowledge base error kinds onto HTTP statuses; anything
// else is a bad gateway since the failure happened upstream.
func kbError(w http.ResponseWriter, err error, format string, args ...any) {
	var apiErr *kb.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case kb.KindValidation, kb.KindUnsupported:
			httpError(w, http.StatusBadRequest, "invalid_request_error", format, args...)
			return
		case kb.KindNotFound:
			httpError(w, http.StatusNotFound, "not_found", format, args...)
			return
		case kb.KindAuth:
			httpError(w, http.StatusBadGateway, "api_error", format, args...)
			return
		case kb.KindQuota:
			httpError(w, http.StatusForbidden, "quota_error", format, args...)
			return
		}
	}
	httpError(w, http.StatusBadGateway, "api_error", format, args...)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
