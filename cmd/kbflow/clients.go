package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mkravets/kbflow/internal/config"
	"github.com/mkravets/kbflow/internal/extract"
	"github.com/mkravets/kbflow/internal/history"
	"github.com/mkravets/kbflow/internal/kb"
	"github.com/mkravets/kbflow/internal/parse"
	"github.com/mkravets/kbflow/internal/pipeline"
	"github.com/mkravets/kbflow/internal/summarize"
)

// newKBClient builds the knowledge base client from config. Overridable
// in tests.
var newKBClient = func() (*kb.Client, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	client := kb.New(cfg.KnowledgeBase.APIKey, kb.WithBaseURL(cfg.KnowledgeBase.BaseURL))
	return client, cfg, nil
}

// newWorkflow wires the content workflow from config. Vendors without a
// configured API key are left out; the workflow reports the gap when a
// step needs them.
func newWorkflow(cfg config.Config, uploader pipeline.Uploader, recorder pipeline.Recorder) *pipeline.Workflow {
	var scraper pipeline.Scraper
	if cfg.Firecrawl.APIKey != "" {
		scraper = extract.New(cfg.Firecrawl.APIKey)
	}

	var parser pipeline.PDFParser
	if cfg.LlamaParse.APIKey != "" {
		parser = parse.New(cfg.LlamaParse.APIKey)
	}

	var llm pipeline.Summarizer
	if cfg.OpenAI.APIKey != "" {
		llm = summarize.New(cfg.OpenAI.APIKey).WithModel(cfg.OpenAI.Model)
	}

	return pipeline.New(scraper, parser, llm, uploader, recorder)
}

// openHistory opens the local upload history store. A nil store with a
// nil error means history is disabled rather than broken.
func openHistory(cfg config.Config) (*history.Store, error) {
	if cfg.Storage.DataDir == "" {
		return nil, nil
	}
	return history.Open(cfg.Storage.DataDir)
}

// parseMetaFlags turns repeated key=value flags into a metadata map.
// Values that parse as numbers or booleans keep their type so filter
// comparisons behave.
func parseMetaFlags(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q, want key=value", p)
		}
		meta[key] = coerceValue(value)
	}
	return meta, nil
}

func coerceValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
