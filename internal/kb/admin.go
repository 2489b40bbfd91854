package kb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const docsPath = "/v1/knowledge-base/docs"

// ListOptions narrows a document listing. Page and Limit default to 1 and
// 100 when zero.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
	Type   string // file, url or table
	Status string // INITIALIZED, PENDING, SUCCESS or ERROR
}

func (o ListOptions) query() url.Values {
	page := o.Page
	if page <= 0 {
		page = 1
	}
	limit := o.Limit
	if limit <= 0 {
		limit = 100
	}
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	if o.Search != "" {
		v.Set("search", o.Search)
	}
	if o.Type != "" {
		v.Set("type", o.Type)
	}
	if o.Status != "" {
		v.Set("status", o.Status)
	}
	return v
}

// ListDocuments returns one page of documents.
func (c *Client) ListDocuments(ctx context.Context, opts ListOptions) ([]Document, Pagination, error) {
	var resp listResponse
	if err := c.getJSON(ctx, docsPath+"?"+opts.query().Encode(), &resp); err != nil {
		return nil, Pagination{}, err
	}
	return resp.Data, resp.Pagination, nil
}

// ListAllDocuments pages through the full document listing, incrementing
// the page until the server reports no next page. The paging is offset
// based with no server-side cursor, so documents created or deleted while
// the loop runs can be skipped or seen twice.
func (c *Client) ListAllDocuments(ctx context.Context, opts ListOptions) ([]Document, error) {
	var all []Document
	opts.Page = 1
	for {
		docs, pagination, err := c.ListDocuments(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("listing page %d: %w", opts.Page, err)
		}
		if len(docs) == 0 {
			return all, nil
		}
		all = append(all, docs...)
		if !pagination.HasNext {
			return all, nil
		}
		opts.Page++
	}
}

// GetDocument fetches a single document with its chunks.
func (c *Client) GetDocument(ctx context.Context, documentID string) (Document, error) {
	if documentID == "" {
		return Document{}, validationError("documentID is required")
	}
	var resp documentResponse
	if err := c.getJSON(ctx, docsPath+"/"+url.PathEscape(documentID), &resp); err != nil {
		return Document{}, err
	}
	return resp.Data, nil
}

// GetDocumentStatus returns the current processing state of a document.
// ERROR is a terminal state, not an API failure.
func (c *Client) GetDocumentStatus(ctx context.Context, documentID string) (DocumentStatus, error) {
	if documentID == "" {
		return DocumentStatus{}, validationError("documentID is required")
	}
	var status DocumentStatus
	if err := c.getJSON(ctx, docsPath+"/"+url.PathEscape(documentID)+"/status", &status); err != nil {
		return DocumentStatus{}, err
	}
	return status, nil
}

// DeleteDocument removes a document and all of its chunks. Deletion is
// irreversible; repeating the call yields a not-found error.
func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return validationError("documentID is required")
	}
	return c.deleteJSON(ctx, docsPath+"/"+url.PathEscape(documentID), nil)
}

// BulkResult reports the outcome of one call within a bulk loop.
type BulkResult struct {
	DocumentID string
	Err        error
}

// DeleteDocuments deletes the given documents one call at a time,
// sleeping delay between calls to stay under rate limits. A failure is
// recorded and the loop continues; completed deletions are not rolled
// back. Cancelling ctx stops the loop before the next call.
func (c *Client) DeleteDocuments(ctx context.Context, documentIDs []string, delay time.Duration) []BulkResult {
	results := make([]BulkResult, 0, len(documentIDs))
	for i, id := range documentIDs {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				results = append(results, BulkResult{DocumentID: id, Err: ctx.Err()})
				return results
			case <-time.After(delay):
			}
		}
		if err := ctx.Err(); err != nil {
			results = append(results, BulkResult{DocumentID: id, Err: err})
			return results
		}
		results = append(results, BulkResult{DocumentID: id, Err: c.DeleteDocument(ctx, id)})
	}
	return results
}

// UpdateDocumentMetadata replaces the whole metadata map of a document.
// Table documents do not support this operation; when doc type is known
// to the caller it should be checked first via RequireMetadataPatchable.
func (c *Client) UpdateDocumentMetadata(ctx context.Context, documentID string, metadata map[string]any) (Document, error) {
	if documentID == "" {
		return Document{}, validationError("documentID is required")
	}
	if metadata == nil {
		return Document{}, validationError("metadata is required")
	}

	var resp documentResponse
	err := c.patchJSON(ctx, docsPath+"/"+url.PathEscape(documentID), map[string]any{"metadata": metadata}, &resp)
	if err != nil {
		return Document{}, err
	}
	return resp.Data, nil
}

// RequireMetadataPatchable rejects table documents before a metadata
// patch is attempted, saving the round trip the server would fail anyway.
func RequireMetadataPatchable(doc Document) error {
	if doc.IsTable() {
		return &APIError{
			Kind:    KindUnsupported,
			Message: fmt.Sprintf("document %s is a table document; table metadata cannot be replaced", doc.DocumentID),
		}
	}
	return nil
}

// UpdateChunkMetadata replaces the metadata of a single chunk. This is a
// full replace, not a merge: fetch-then-merge client-side for an
// incremental update.
func (c *Client) UpdateChunkMetadata(ctx context.Context, documentID, chunkID string, metadata map[string]any) (Document, error) {
	if documentID == "" || chunkID == "" {
		return Document{}, validationError("documentID and chunkID are required")
	}
	if metadata == nil {
		return Document{}, validationError("metadata is required")
	}

	path := docsPath + "/" + url.PathEscape(documentID) + "/chunk/" + url.PathEscape(chunkID)
	body := map[string]any{"data": map[string]any{"metadata": metadata}}

	var resp documentResponse
	if err := c.patchJSON(ctx, path, body, &resp); err != nil {
		return Document{}, err
	}
	return resp.Data, nil
}

// UpdateChunksMetadata applies the same metadata replace to several
// chunks of one document sequentially, with an optional inter-call delay.
func (c *Client) UpdateChunksMetadata(ctx context.Context, documentID string, chunkIDs []string, metadata map[string]any, delay time.Duration) []BulkResult {
	results := make([]BulkResult, 0, len(chunkIDs))
	for i, chunkID := range chunkIDs {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				results = append(results, BulkResult{DocumentID: documentID, Err: ctx.Err()})
				return results
			case <-time.After(delay):
			}
		}
		_, err := c.UpdateChunkMetadata(ctx, documentID, chunkID, metadata)
		results = append(results, BulkResult{DocumentID: documentID, Err: err})
	}
	return results
}
