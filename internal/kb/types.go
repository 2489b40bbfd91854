package kb

import "encoding/json"

// Document processing states reported by the knowledge base. A document
// reaching StatusError is a terminal state observed by polling, not an
// API error: the client's responsibility ends at submission.
const (
	StatusInitialized = "INITIALIZED"
	StatusPending     = "PENDING"
	StatusSuccess     = "SUCCESS"
	StatusError       = "ERROR"
)

// Document source types.
const (
	DocTypeFile  = "file"
	DocTypeURL   = "url"
	DocTypeTable = "table"
)

// Document is a knowledge-base document as returned by the docs endpoints.
type Document struct {
	DocumentID string         `json:"documentID"`
	Data       DocumentData   `json:"data"`
	Status     DocumentStatus `json:"status"`
	Tags       []string       `json:"tags,omitempty"`
	CreatedAt  string         `json:"createdAt,omitempty"`
	UpdatedAt  string         `json:"updatedAt,omitempty"`
	ChunkCount int            `json:"chunkCount,omitempty"`
	Chunks     []Chunk        `json:"chunks,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// IsTable reports whether the document is backed by structured table data.
// Table documents do not support whole-document metadata replacement.
func (d Document) IsTable() bool {
	return d.Data.Type == DocTypeTable
}

// DocumentData is the source description nested under "data".
type DocumentData struct {
	Type     string         `json:"type"`
	Name     string         `json:"name"`
	URL      string         `json:"url,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DocumentStatus carries the processing state. Data holds any
// server-provided detail (an error message for ERROR documents).
type DocumentStatus struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Chunk is one retrieval unit of a document. Chunk metadata is replaced
// wholesale by UpdateChunkMetadata; it is independent of sibling chunks
// and of the parent document's metadata.
type Chunk struct {
	ChunkID  string         `json:"chunkID"`
	Content  string         `json:"content,omitempty"`
	Score    float64        `json:"score,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Pagination describes the offset-based paging state of a list response.
// No cursor is held server-side between calls, so concurrent mutation
// during a paging loop can skip or duplicate items.
type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

// TableSchema declares which item fields are searchable content and which
// are filterable metadata.
type TableSchema struct {
	SearchableFields []string `json:"searchableFields"`
	MetadataFields   []string `json:"metadataFields,omitempty"`
}

// Tag is a knowledge-base tag label with its server-assigned ID.
type Tag struct {
	TagID string `json:"tagID"`
	Label string `json:"label"`
}

// documentResponse is the {"data": ...} wrapper used by single-document
// endpoints.
type documentResponse struct {
	Data Document `json:"data"`
}

// listResponse is the body of GET /v1/knowledge-base/docs.
type listResponse struct {
	Data       []Document `json:"data"`
	Pagination Pagination `json:"pagination"`
}
