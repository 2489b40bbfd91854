// Package pipeline runs the content workflow: pull content from a
// source, clean it, optionally summarize it, and push the composed
// document to the knowledge base.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/kbflow/internal/extract"
	"github.com/mkravets/kbflow/internal/format"
	"github.com/mkravets/kbflow/internal/history"
	"github.com/mkravets/kbflow/internal/kb"
	"github.com/mkravets/kbflow/internal/parse"
)

// Scraper pulls a web page as markdown. extract.Client satisfies it.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string, opts extract.ScrapeOptions) (string, error)
}

// PDFParser converts a PDF into markdown. parse.Client satisfies it.
type PDFParser interface {
	Parse(ctx context.Context, content []byte, filename string, opts parse.Options) (string, error)
}

// Summarizer is the LLM surface the workflow needs. summarize.Client
// satisfies it.
type Summarizer interface {
	GenerateSummary(ctx context.Context, markdown string) (string, error)
	CleanMarkdown(ctx context.Context, markdown string) (string, error)
}

// Uploader pushes text documents to the knowledge base. kb.Client
// satisfies it.
type Uploader interface {
	UploadText(ctx context.Context, content, filename string, metadata map[string]any, opts kb.UploadOptions) (kb.Document, error)
}

// Recorder persists upload history rows. history.Store satisfies it.
type Recorder interface {
	SaveUpload(u history.Upload) error
	MarkUploaded(id, documentID string) error
	MarkFailed(id, errMsg string) error
}

// Options tunes one workflow run.
type Options struct {
	// Clean runs the LLM cleanup pass after deterministic processing.
	Clean bool
	// Summarize generates a structured summary and prepends it to the
	// uploaded document.
	Summarize bool
	// Metadata is attached to the uploaded document.
	Metadata map[string]any
	// Upload carries the knowledge base upload parameters.
	Upload kb.UploadOptions
	// Name overrides the derived document name.
	Name string
}

// Result describes a completed workflow run.
type Result struct {
	Document   kb.Document
	HistoryID  string
	Name       string
	DurationMs int64
}

// Workflow wires the workflow steps together. Summarizer and Recorder
// may be nil; the corresponding steps are skipped.
type Workflow struct {
	scraper  Scraper
	parser   PDFParser
	llm      Summarizer
	uploader Uploader
	recorder Recorder
}

func New(scraper Scraper, parser PDFParser, llm Summarizer, uploader Uploader, recorder Recorder) *Workflow {
	return &Workflow{
		scraper:  scraper,
		parser:   parser,
		llm:      llm,
		uploader: uploader,
		recorder: recorder,
	}
}

// IngestURL scrapes a page, processes its content, and uploads the
// result. The returned document is the remote record as created; its
// processing status is observed separately.
func (w *Workflow) IngestURL(ctx context.Context, pageURL string, opts Options) (Result, error) {
	if w.scraper == nil {
		return Result{}, fmt.Errorf("no scraper configured")
	}

	name := opts.Name
	if name == "" {
		name = format.DocumentName(pageURL)
	}

	raw, err := w.scraper.Scrape(ctx, pageURL, extract.DefaultScrapeOptions())
	if err != nil {
		return Result{}, fmt.Errorf("scraping %s: %w", pageURL, err)
	}
	slog.Debug("scraped page", "url", pageURL, "bytes", len(raw))

	return w.processAndUpload(ctx, raw, name, "url", pageURL, opts)
}

// IngestPDF parses a PDF, processes its content, and uploads the result.
// When no remote parser is configured the local text extractor is used.
func (w *Workflow) IngestPDF(ctx context.Context, content []byte, filename string, opts Options) (Result, error) {
	name := opts.Name
	if name == "" {
		name = format.DocumentName(filename)
	}

	var raw string
	var err error
	if w.parser != nil {
		raw, err = w.parser.Parse(ctx, content, filename, parse.Options{})
	} else {
		raw, err = parse.ExtractText(content)
	}
	if err != nil {
		return Result{}, fmt.Errorf("parsing %s: %w", filename, err)
	}
	slog.Debug("parsed pdf", "file", filename, "bytes", len(raw))

	return w.processAndUpload(ctx, raw, name, "file", filename, opts)
}

// IngestText processes already-extracted text (a markdown or plain text
// file) and uploads the result.
func (w *Workflow) IngestText(ctx context.Context, raw, filename string, opts Options) (Result, error) {
	name := opts.Name
	if name == "" {
		name = format.DocumentName(filename)
	}
	return w.processAndUpload(ctx, raw, name, "file", filename, opts)
}

func (w *Workflow) processAndUpload(ctx context.Context, raw, name, sourceType, source string, opts Options) (Result, error) {
	start := time.Now()

	historyID := ""
	if w.recorder != nil {
		historyID = uuid.NewString()
		err := w.recorder.SaveUpload(history.Upload{
			ID:         historyID,
			Name:       name,
			SourceType: sourceType,
			Source:     source,
		})
		if err != nil {
			slog.Warn("recording upload history failed", "error", err)
			historyID = ""
		}
	}

	doc, err := w.run(ctx, raw, name, opts)
	if historyID != "" {
		if err != nil {
			if herr := w.recorder.MarkFailed(historyID, err.Error()); herr != nil {
				slog.Warn("marking upload failed in history", "error", herr)
			}
		} else {
			if herr := w.recorder.MarkUploaded(historyID, doc.DocumentID); herr != nil {
				slog.Warn("marking upload succeeded in history", "error", herr)
			}
		}
	}
	if err != nil {
		return Result{}, err
	}

	slog.Info("workflow complete",
		"name", name,
		"document_id", doc.DocumentID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Result{
		Document:   doc,
		HistoryID:  historyID,
		Name:       name,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// run is the sequential chain: deterministic cleanup, optional LLM
// cleanup, optional summary, compose, upload. Failures surface at the
// step they occur; nothing is rolled back.
func (w *Workflow) run(ctx context.Context, raw, name string, opts Options) (kb.Document, error) {
	body := format.ProcessMarkdown(raw)
	if body == "" {
		return kb.Document{}, fmt.Errorf("no content left after processing")
	}

	if opts.Clean {
		if w.llm == nil {
			return kb.Document{}, fmt.Errorf("llm cleanup requested but no model configured")
		}
		cleaned, err := w.llm.CleanMarkdown(ctx, body)
		if err != nil {
			return kb.Document{}, fmt.Errorf("cleaning content: %w", err)
		}
		body = cleaned
	}

	summary := ""
	if opts.Summarize {
		if w.llm == nil {
			return kb.Document{}, fmt.Errorf("summary requested but no model configured")
		}
		s, err := w.llm.GenerateSummary(ctx, body)
		if err != nil {
			return kb.Document{}, fmt.Errorf("summarizing content: %w", err)
		}
		summary = s
	}

	document := format.ComposeDocument(summary, body)
	doc, err := w.uploader.UploadText(ctx, document, name, opts.Metadata, opts.Upload)
	if err != nil {
		return kb.Document{}, fmt.Errorf("uploading %s: %w", name, err)
	}
	return doc, nil
}
