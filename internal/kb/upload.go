package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
)

const (
	uploadPath      = "/v1/knowledge-base/docs/upload"
	tableUploadPath = "/v1/knowledge-base/docs/upload/table"

	// MaxChunkSize bounds accepted by the upload endpoint.
	minChunkSize     = 500
	maxChunkSize     = 1500
	defaultChunkSize = 1000
)

// Summary sections embedded in composed documents are delimited by these
// markers; they are stripped before upload.
const (
	summaryStartMarker = "---START_SUMMARY---"
	summaryEndMarker   = "---END_SUMMARY---"
)

// UploadOptions controls server-side processing of an upload. The zero
// value requests the defaults (no overwrite, chunk size 1000, no beta
// processing).
type UploadOptions struct {
	// Overwrite replaces an existing same-named document instead of
	// creating a duplicate.
	Overwrite bool

	// MaxChunkSize is the chunking window in tokens; 0 means the
	// default of 1000. Values outside [500, 1500] are rejected before
	// any network call.
	MaxChunkSize int

	// Beta processing flags. LLMPrependContext and LLMGeneratedQ are
	// mutually exclusive; the combination is rejected client-side.
	MarkdownConversion      bool
	LLMGeneratedQ           bool
	LLMPrependContext       bool
	LLMBasedChunking        bool
	LLMContentSummarization bool
}

func (o UploadOptions) validate() error {
	if o.MaxChunkSize != 0 && (o.MaxChunkSize < minChunkSize || o.MaxChunkSize > maxChunkSize) {
		return validationError("maxChunkSize %d out of range [%d, %d]", o.MaxChunkSize, minChunkSize, maxChunkSize)
	}
	if o.LLMPrependContext && o.LLMGeneratedQ {
		return validationError("llmPrependContext and llmGeneratedQ are mutually exclusive")
	}
	return nil
}

// query renders the options as upload query parameters. Defaults are sent
// explicitly so the request is self-describing.
func (o UploadOptions) query() url.Values {
	v := url.Values{}
	v.Set("overwrite", strconv.FormatBool(o.Overwrite))
	size := o.MaxChunkSize
	if size == 0 {
		size = defaultChunkSize
	}
	v.Set("maxChunkSize", strconv.Itoa(size))
	for name, on := range map[string]bool{
		"markdownConversion":      o.MarkdownConversion,
		"llmGeneratedQ":           o.LLMGeneratedQ,
		"llmPrependContext":       o.LLMPrependContext,
		"llmBasedChunking":        o.LLMBasedChunking,
		"llmContentSummarization": o.LLMContentSummarization,
	} {
		if on {
			v.Set(name, "true")
		}
	}
	return v
}

// tableQuery renders the option subset accepted by the table upload
// endpoint (no chunk size, no llmBasedChunking).
func (o UploadOptions) tableQuery() url.Values {
	v := url.Values{}
	v.Set("overwrite", strconv.FormatBool(o.Overwrite))
	for name, on := range map[string]bool{
		"markdownConversion":      o.MarkdownConversion,
		"llmGeneratedQ":           o.LLMGeneratedQ,
		"llmPrependContext":       o.LLMPrependContext,
		"llmContentSummarization": o.LLMContentSummarization,
	} {
		if on {
			v.Set(name, "true")
		}
	}
	return v
}

// UploadURL registers a URL document. The knowledge base fetches and
// chunks the page asynchronously: the returned document starts in
// PENDING or INITIALIZED and the call does not wait for processing.
func (c *Client) UploadURL(ctx context.Context, pageURL string, metadata map[string]any, opts UploadOptions) (Document, error) {
	if pageURL == "" {
		return Document{}, validationError("url is required")
	}
	if err := opts.validate(); err != nil {
		return Document{}, err
	}

	data := map[string]any{
		"type": DocTypeURL,
		"url":  pageURL,
	}
	if metadata != nil {
		data["metadata"] = metadata
	}

	var resp documentResponse
	err := c.postJSON(ctx, uploadPath+"?"+opts.query().Encode(), map[string]any{"data": data}, &resp)
	if err != nil {
		return Document{}, err
	}
	return resp.Data, nil
}

// UploadFile uploads raw file bytes as a multipart document. metadata,
// when non-nil, is sent as a JSON string form field alongside the file.
func (c *Client) UploadFile(ctx context.Context, content []byte, filename, contentType string, metadata map[string]any, opts UploadOptions) (Document, error) {
	if filename == "" {
		return Document{}, validationError("filename is required")
	}
	if len(content) == 0 {
		return Document{}, validationError("file content is empty")
	}
	if err := opts.validate(); err != nil {
		return Document{}, err
	}
	if contentType == "" {
		contentType = "text/plain"
	}

	body, mimeType, err := multipartBody(content, filename, contentType, metadata)
	if err != nil {
		return Document{}, err
	}

	var resp documentResponse
	err = c.doJSON(ctx, request{
		method:      http.MethodPost,
		path:        uploadPath + "?" + opts.query().Encode(),
		contentType: mimeType,
		body:        body,
	}, &resp)
	if err != nil {
		return Document{}, err
	}
	return resp.Data, nil
}

// UploadText uploads prepared text content as a plain-text file document.
// The filename is forced to a .txt extension and any summary delimiters
// left over from composition are stripped.
func (c *Client) UploadText(ctx context.Context, content, filename string, metadata map[string]any, opts UploadOptions) (Document, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".txt") {
		filename += ".txt"
	}
	content = strings.TrimSpace(strings.NewReplacer(summaryStartMarker, "", summaryEndMarker, "").Replace(content))
	return c.UploadFile(ctx, []byte(content), filename, "text/plain", metadata, opts)
}

// UploadTable uploads a structured table document. Each item becomes one
// or more chunks; schema declares which fields are searchable content and
// which are filterable metadata. A 403 response signals the plan's table
// row limit and maps to a quota error.
func (c *Client) UploadTable(ctx context.Context, name string, schema TableSchema, items []map[string]any, opts UploadOptions) (Document, error) {
	if name == "" {
		return Document{}, validationError("table name is required")
	}
	if len(schema.SearchableFields) == 0 {
		return Document{}, validationError("schema requires at least one searchable field")
	}
	if len(items) == 0 {
		return Document{}, validationError("table has no items")
	}
	if err := opts.validate(); err != nil {
		return Document{}, err
	}

	payload := map[string]any{
		"data": map[string]any{
			"name":   name,
			"schema": schema,
			"items":  items,
		},
	}

	var resp documentResponse
	err := c.postJSON(ctx, tableUploadPath+"?"+opts.tableQuery().Encode(), payload, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.Kind == KindQuota {
			apiErr.Message = fmt.Sprintf("table upload rejected, plan row limit exceeded: %s", apiErr.Message)
		}
		return Document{}, err
	}
	return resp.Data, nil
}

// multipartBody builds the multipart payload for a file upload.
func multipartBody(content []byte, filename, contentType string, metadata map[string]any) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}

	if metadata != nil {
		metaJSON, err := json.Marshal(metadata)
		if err != nil {
			return nil, "", fmt.Errorf("marshaling metadata: %w", err)
		}
		if err := w.WriteField("metadata", string(metaJSON)); err != nil {
			return nil, "", fmt.Errorf("writing metadata field: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
