package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mkravets/kbflow/internal/kb"
	"github.com/mkravets/kbflow/internal/pipeline"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	KB       KBService
	Workflow URLIngester // optional; if nil, kb_ingest_url returns an error
	History  HistoryLister
}

// NewMCPServer creates an MCP server exposing the knowledge base tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"kbflow",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("kbflow — content workflows for a remote knowledge base: query it, list its documents, and ingest new pages."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("kb_query",
			mcp.WithDescription("Ask the knowledge base a question and return an answer with the supporting chunks."),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithNumber("chunkLimit", mcp.Description("Maximum number of chunks to retrieve (default 5)")),
			mcp.WithString("filters", mcp.Description("Optional metadata filter as JSON, e.g. {\"team\":{\"$eq\":\"docs\"}}")),
		),
		mcpQuery(deps),
	)

	s.AddTool(
		mcp.NewTool("kb_list_documents",
			mcp.WithDescription("List documents stored in the knowledge base."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of documents (default 20)")),
			mcp.WithString("search", mcp.Description("Filter documents by name substring")),
		),
		mcpListDocuments(deps),
	)

	s.AddTool(
		mcp.NewTool("kb_ingest_url",
			mcp.WithDescription("Scrape a web page, clean its content, and upload it to the knowledge base."),
			mcp.WithString("url", mcp.Description("Page URL to ingest"), mcp.Required()),
			mcp.WithBoolean("summarize", mcp.Description("Prepend a generated summary to the document")),
		),
		mcpIngestURL(deps),
	)

	return s
}

func mcpQuery(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		chunkLimit := req.GetInt("chunkLimit", 5)
		if chunkLimit <= 0 {
			chunkLimit = 5
		}

		kbReq := kb.QueryRequest{
			Question:   question,
			ChunkLimit: chunkLimit,
			Synthesis:  true,
		}

		if raw := req.GetString("filters", ""); raw != "" {
			filter, err := kb.ParseFilterJSON([]byte(raw))
			if err != nil {
				return mcpError(fmt.Sprintf("invalid filters: %v", err)), nil
			}
			built, err := kb.BuildFilter(filter)
			if err != nil {
				return mcpError(fmt.Sprintf("invalid filters: %v", err)), nil
			}
			kbReq.Filters = built
		}

		resp, err := deps.KB.Query(ctx, kbReq)
		if err != nil {
			return mcpError(fmt.Sprintf("query failed: %v", err)), nil
		}

		b, err := json.Marshal(resp)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal response: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListDocuments(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		docs, _, err := deps.KB.ListDocuments(ctx, kb.ListOptions{
			Limit:  limit,
			Search: req.GetString("search", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("listing documents failed: %v", err)), nil
		}

		type docSummary struct {
			DocumentID string `json:"documentID"`
			Name       string `json:"name"`
			Type       string `json:"type"`
			Status     string `json:"status"`
		}
		summaries := make([]docSummary, len(docs))
		for i, d := range docs {
			summaries[i] = docSummary{
				DocumentID: d.DocumentID,
				Name:       d.Data.Name,
				Type:       d.Data.Type,
				Status:     d.Status.Type,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal documents: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpIngestURL(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Workflow == nil {
			return mcpError("ingest not available: no workflow configured"), nil
		}

		pageURL, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}

		res, err := deps.Workflow.IngestURL(ctx, pageURL, pipeline.Options{
			Summarize: req.GetBool("summarize", false),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("ingest failed: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Uploaded %s as document %s", res.Name, res.Document.DocumentID)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
