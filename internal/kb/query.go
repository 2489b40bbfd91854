package kb

import "context"

const queryPath = "/v1/knowledge-base/docs/query"

// QuerySettings tunes answer synthesis.
type QuerySettings struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature"`
	System      string  `json:"system,omitempty"`
}

// QueryRequest is a retrieval query over the knowledge base. Filters,
// when non-nil, must be the object produced by BuildFilter.
type QueryRequest struct {
	Question   string         `json:"question"`
	ChunkLimit int            `json:"chunkLimit,omitempty"`
	Synthesis  bool           `json:"synthesis"`
	Settings   *QuerySettings `json:"settings,omitempty"`
	Filters    map[string]any `json:"filters,omitempty"`
}

// QueryResponse carries the synthesized answer (when requested) and the
// retrieved chunks.
type QueryResponse struct {
	Output string  `json:"output,omitempty"`
	Chunks []Chunk `json:"chunks,omitempty"`
}

// Query runs a metadata-filtered retrieval query. When req.Filters was
// produced from a Filter expression it has already been validated; a raw
// map is passed through for the server to validate.
func (c *Client) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	if req.Question == "" {
		return QueryResponse{}, validationError("question is required")
	}

	var resp QueryResponse
	if err := c.postJSON(ctx, queryPath, req, &resp); err != nil {
		return QueryResponse{}, err
	}
	return resp, nil
}

// QueryWithFilter builds the filter expression and attaches it to req
// before querying. It fails fast on an invalid expression without making
// a network call.
func (c *Client) QueryWithFilter(ctx context.Context, req QueryRequest, filter Filter) (QueryResponse, error) {
	if filter != nil {
		built, err := BuildFilter(filter)
		if err != nil {
			return QueryResponse{}, err
		}
		req.Filters = built
	}
	return c.Query(ctx, req)
}
