package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkravets/kbflow/internal/chunk"
	"github.com/mkravets/kbflow/internal/config"
	"github.com/mkravets/kbflow/internal/extract"
	"github.com/mkravets/kbflow/internal/format"
	"github.com/mkravets/kbflow/internal/history"
	"github.com/mkravets/kbflow/internal/kb"
	"github.com/mkravets/kbflow/internal/parse"
	"github.com/mkravets/kbflow/internal/pipeline"
	"github.com/mkravets/kbflow/internal/summarize"
)

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload content to the knowledge base",
}

var uploadURLCmd = &cobra.Command{
	Use:   "url <url>",
	Short: "Scrape a web page and upload the cleaned content",
	Long: `Scrape a web page and upload the cleaned content.

Examples:
  kbflow upload url https://example.com/article
  kbflow upload url https://example.com/article --summarize --meta team=docs
  kbflow upload url https://example.com/article --name article.txt --overwrite`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := workflowOptions(cmd)
		if err != nil {
			return err
		}

		client, cfg, err := newKBClient()
		if err != nil {
			return err
		}
		store, err := openHistory(cfg)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		if store != nil {
			defer store.Close()
		}

		wf := newWorkflow(cfg, client, recorderOrNil(store))

		printStep("Ingesting %s", args[0])
		res, err := wf.IngestURL(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}

		printSuccess("Uploaded %s as document %s", res.Name, res.Document.DocumentID)
		return nil
	},
}

var uploadFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Upload a local file",
	Long: `Upload a local file. PDFs are parsed to markdown first; text and
markdown files run through the cleanup pipeline; anything else is sent
to the knowledge base as-is.

Examples:
  kbflow upload file ./guide.pdf --summarize
  kbflow upload file ./notes.md --meta project=kbflow
  kbflow upload file ./handbook.docx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := workflowOptions(cmd)
		if err != nil {
			return err
		}

		path := args[0]
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		client, cfg, err := newKBClient()
		if err != nil {
			return err
		}
		store, err := openHistory(cfg)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		if store != nil {
			defer store.Close()
		}

		filename := filepath.Base(path)
		ext := strings.ToLower(filepath.Ext(path))

		printStep("Uploading %s", filename)

		switch ext {
		case ".pdf":
			wf := newWorkflow(cfg, client, recorderOrNil(store))
			res, err := wf.IngestPDF(cmd.Context(), content, filename, opts)
			if err != nil {
				return err
			}
			printSuccess("Uploaded %s as document %s", res.Name, res.Document.DocumentID)
			return nil
		case ".txt", ".md", ".markdown":
			wf := newWorkflow(cfg, client, recorderOrNil(store))
			res, err := wf.IngestText(cmd.Context(), string(content), filename, opts)
			if err != nil {
				return err
			}
			printSuccess("Uploaded %s as document %s", res.Name, res.Document.DocumentID)
			return nil
		default:
			doc, err := client.UploadFile(cmd.Context(), content, filename, contentTypeFor(ext), opts.Metadata, opts.Upload)
			if err != nil {
				return err
			}
			printSuccess("Uploaded %s as document %s", filename, doc.DocumentID)
			return nil
		}
	},
}

var uploadTableCmd = &cobra.Command{
	Use:   "table <items.json>",
	Short: "Upload structured table data",
	Long: `Upload structured table data from a JSON file holding an array of
objects.

Examples:
  kbflow upload table ./faq.json --name faq --searchable question,answer
  kbflow upload table ./faq.json --name faq --searchable question --metadata-fields team,stage`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		searchable, _ := cmd.Flags().GetString("searchable")
		metaFields, _ := cmd.Flags().GetString("metadata-fields")
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		if name == "" {
			name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		schema := kb.TableSchema{
			SearchableFields: splitTags(searchable),
			MetadataFields:   splitTags(metaFields),
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading items: %w", err)
		}
		var items []map[string]any
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("parsing items: %w", err)
		}

		client, _, err := newKBClient()
		if err != nil {
			return err
		}

		printStep("Uploading table %s (%d items)", name, len(items))
		doc, err := client.UploadTable(cmd.Context(), name, schema, items, kb.UploadOptions{Overwrite: overwrite})
		if err != nil {
			return err
		}

		printSuccess("Uploaded table %s as document %s", name, doc.DocumentID)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{uploadURLCmd, uploadFileCmd} {
		c.Flags().String("name", "", "document name (default: derived from the source)")
		c.Flags().Bool("clean", false, "run the LLM cleanup pass")
		c.Flags().Bool("summarize", false, "prepend a generated summary")
		c.Flags().StringArray("meta", nil, "metadata key=value (repeatable)")
		c.Flags().Bool("overwrite", false, "replace an existing same-named document")
		c.Flags().Int("max-chunk-size", 0, "chunking window in tokens (500-1500, default 1000)")
		c.Flags().Bool("markdown-conversion", false, "server-side markdown conversion")
		c.Flags().Bool("llm-chunking", false, "server-side LLM-based chunking")
	}
	uploadTableCmd.Flags().String("name", "", "table name (default: the file name)")
	uploadTableCmd.Flags().String("searchable", "", "comma-separated searchable fields")
	uploadTableCmd.Flags().String("metadata-fields", "", "comma-separated filterable metadata fields")
	uploadTableCmd.Flags().Bool("overwrite", false, "replace an existing same-named table")

	uploadCmd.AddCommand(uploadURLCmd)
	uploadCmd.AddCommand(uploadFileCmd)
	uploadCmd.AddCommand(uploadTableCmd)
}

func workflowOptions(cmd *cobra.Command) (pipeline.Options, error) {
	name, _ := cmd.Flags().GetString("name")
	clean, _ := cmd.Flags().GetBool("clean")
	summarizeFlag, _ := cmd.Flags().GetBool("summarize")
	metaPairs, _ := cmd.Flags().GetStringArray("meta")
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	maxChunk, _ := cmd.Flags().GetInt("max-chunk-size")
	mdConv, _ := cmd.Flags().GetBool("markdown-conversion")
	llmChunking, _ := cmd.Flags().GetBool("llm-chunking")

	meta, err := parseMetaFlags(metaPairs)
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		Name:      name,
		Clean:     clean,
		Summarize: summarizeFlag,
		Metadata:  meta,
		Upload: kb.UploadOptions{
			Overwrite:          overwrite,
			MaxChunkSize:       maxChunk,
			MarkdownConversion: mdConv,
			LLMBasedChunking:   llmChunking,
		},
	}, nil
}

// recorderOrNil keeps a nil *history.Store from becoming a non-nil
// Recorder interface.
func recorderOrNil(store *history.Store) pipeline.Recorder {
	if store == nil {
		return nil
	}
	return store
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt", ".md", ".markdown":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// --- docs ---

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage knowledge base documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		page, _ := cmd.Flags().GetInt("page")
		search, _ := cmd.Flags().GetString("search")
		all, _ := cmd.Flags().GetBool("all")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, _, err := newKBClient()
		if err != nil {
			return err
		}

		opts := kb.ListOptions{Page: page, Limit: limit, Search: search}

		var docs []kb.Document
		if all {
			docs, err = client.ListAllDocuments(cmd.Context(), opts)
		} else {
			docs, _, err = client.ListDocuments(cmd.Context(), opts)
		}
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(docs)
		}

		if len(docs) == 0 {
			fmt.Println("No documents found.")
			return nil
		}
		for _, d := range docs {
			fmt.Printf("%s  %-8s  %-12s  %s\n",
				colorize(colorCyan, d.DocumentID),
				d.Data.Type,
				statusColor(d.Status.Type),
				d.Data.Name,
			)
		}
		return nil
	},
}

var docsStatusCmd = &cobra.Command{
	Use:   "status <documentID>",
	Short: "Show a document's processing status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")

		client, cfg, err := newKBClient()
		if err != nil {
			return err
		}

		status, err := client.GetDocumentStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printStatus("Document", "%s", args[0])
		printStatus("Status", "%s", statusColor(status.Type))
		if len(status.Data) > 0 {
			printStatus("Detail", "%s", string(status.Data))
		}

		if refresh {
			if err := refreshHistory(cfg, args[0], status.Type); err != nil {
				printWarning("history not refreshed: %v", err)
			}
		}
		return nil
	},
}

// refreshHistory reconciles local history rows with the processing state
// the knowledge base reports.
func refreshHistory(cfg config.Config, documentID, status string) error {
	store, err := openHistory(cfg)
	if err != nil || store == nil {
		return err
	}
	defer store.Close()

	rows, err := store.FindByDocumentID(documentID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		switch status {
		case kb.StatusSuccess:
			err = store.MarkUploaded(row.ID, documentID)
		case kb.StatusError:
			err = store.MarkFailed(row.ID, "knowledge base processing failed")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

var docsMetaCmd = &cobra.Command{
	Use:   "meta <documentID>",
	Short: "Replace a document's metadata",
	Long: `Replace a document's metadata. This is a full replace, not a merge.
Table documents are rejected before any network call.

Examples:
  kbflow docs meta VF_DOC_ID --set team=docs --set stage=published`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, _ := cmd.Flags().GetStringArray("set")
		meta, err := parseMetaFlags(pairs)
		if err != nil {
			return err
		}
		if meta == nil {
			return fmt.Errorf("at least one --set key=value is required")
		}

		client, _, err := newKBClient()
		if err != nil {
			return err
		}

		doc, err := client.GetDocument(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := kb.RequireMetadataPatchable(doc); err != nil {
			return err
		}

		if _, err := client.UpdateDocumentMetadata(cmd.Context(), args[0], meta); err != nil {
			return err
		}

		printSuccess("Metadata replaced on %s", args[0])
		return nil
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <documentID> [documentID...]",
	Short: "Delete documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		delay, _ := cmd.Flags().GetDuration("delay")

		client, _, err := newKBClient()
		if err != nil {
			return err
		}

		results := client.DeleteDocuments(cmd.Context(), args, delay)
		failures := 0
		for _, r := range results {
			if r.Err != nil {
				failures++
				printError("Failed to delete %s: %v", r.DocumentID, r.Err)
			}
		}
		if failures > 0 {
			return fmt.Errorf("%d of %d deletions failed", failures, len(args))
		}
		printSuccess("Deleted %d document(s)", len(args))
		return nil
	},
}

var docsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every document in the knowledge base",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL knowledge base documents. Use --confirm to proceed.")
			return nil
		}
		delay, _ := cmd.Flags().GetDuration("delay")

		client, _, err := newKBClient()
		if err != nil {
			return err
		}

		printStep("Listing documents...")
		docs, err := client.ListAllDocuments(cmd.Context(), kb.ListOptions{Limit: 100})
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("Nothing to delete.")
			return nil
		}

		ids := make([]string, len(docs))
		for i, d := range docs {
			ids[i] = d.DocumentID
		}

		printStep("Deleting %d documents...", len(ids))
		failures := 0
		for _, r := range client.DeleteDocuments(cmd.Context(), ids, delay) {
			if r.Err != nil {
				failures++
				printError("Failed to delete %s: %v", r.DocumentID, r.Err)
			}
		}
		if failures > 0 {
			return fmt.Errorf("%d of %d deletions failed", failures, len(ids))
		}
		printSuccess("All documents deleted")
		return nil
	},
}

func init() {
	docsListCmd.Flags().Int("limit", 20, "maximum documents per page")
	docsListCmd.Flags().Int("page", 1, "page number")
	docsListCmd.Flags().String("search", "", "filter documents by name substring")
	docsListCmd.Flags().Bool("all", false, "follow pagination and list everything")
	docsListCmd.Flags().Bool("json", false, "print raw JSON")
	docsStatusCmd.Flags().Bool("refresh", false, "update local upload history from the reported status")
	docsMetaCmd.Flags().StringArray("set", nil, "metadata key=value (repeatable)")
	docsDeleteCmd.Flags().Duration("delay", time.Second, "pause between delete calls")
	docsPurgeCmd.Flags().Bool("confirm", false, "confirm deletion of every document")
	docsPurgeCmd.Flags().Duration("delay", time.Second, "pause between delete calls")

	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsStatusCmd)
	docsCmd.AddCommand(docsMetaCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	docsCmd.AddCommand(docsPurgeCmd)
}

func statusColor(status string) string {
	switch status {
	case kb.StatusSuccess:
		return colorize(colorGreen, status)
	case kb.StatusError:
		return colorize(colorRed, status)
	default:
		return colorize(colorYellow, status)
	}
}

// --- tags ---

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage knowledge base tags",
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newKBClient()
		if err != nil {
			return err
		}

		tags, err := client.ListTags(cmd.Context())
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			fmt.Println("No tags found.")
			return nil
		}
		for _, t := range tags {
			fmt.Printf("%s  %s\n", colorize(colorCyan, t.TagID), t.Label)
		}
		return nil
	},
}

var tagsCreateCmd = &cobra.Command{
	Use:   "create <label>",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newKBClient()
		if err != nil {
			return err
		}

		tag, err := client.CreateTag(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSuccess("Created tag %s (%s)", tag.Label, tag.TagID)
		return nil
	},
}

var tagsDeleteCmd = &cobra.Command{
	Use:   "delete <label>",
	Short: "Delete a tag by label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newKBClient()
		if err != nil {
			return err
		}

		tagID, err := client.FindTagID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := client.DeleteTag(cmd.Context(), tagID); err != nil {
			return err
		}
		printSuccess("Deleted tag %s", args[0])
		return nil
	},
}

var tagsSyncCmd = &cobra.Command{
	Use:   "sync <documentID> <tag> [tag...]",
	Short: "Make a document's tags match the given set",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newKBClient()
		if err != nil {
			return err
		}

		doc, err := client.GetDocument(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if err := client.SyncDocumentTags(cmd.Context(), args[0], args[1:], doc.Tags); err != nil {
			return err
		}
		printSuccess("Tags on %s: %s", args[0], strings.Join(args[1:], ", "))
		return nil
	},
}

func init() {
	tagsCmd.AddCommand(tagsListCmd)
	tagsCmd.AddCommand(tagsCreateCmd)
	tagsCmd.AddCommand(tagsDeleteCmd)
	tagsCmd.AddCommand(tagsSyncCmd)
}

// --- query ---

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask the knowledge base a question",
	Long: `Ask the knowledge base a question and print the synthesized answer
with its supporting chunks.

Examples:
  kbflow query "how do I rotate the API key?"
  kbflow query "release process" --filter '{"team":{"$eq":"docs"}}'
  kbflow query "pricing" --limit 3 --no-synthesis`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("limit")
		rawFilter, _ := cmd.Flags().GetString("filter")
		noSynthesis, _ := cmd.Flags().GetBool("no-synthesis")
		model, _ := cmd.Flags().GetString("model")

		req := kb.QueryRequest{
			Question:   question,
			ChunkLimit: limit,
			Synthesis:  !noSynthesis,
		}
		if model != "" {
			req.Settings = &kb.QuerySettings{Model: model}
		}

		var filter kb.Filter
		if rawFilter != "" {
			var err error
			filter, err = kb.ParseFilterJSON([]byte(rawFilter))
			if err != nil {
				return fmt.Errorf("invalid filter: %w", err)
			}
		}

		client, _, err := newKBClient()
		if err != nil {
			return err
		}

		resp, err := client.QueryWithFilter(cmd.Context(), req, filter)
		if err != nil {
			return err
		}

		if resp.Output != "" {
			fmt.Println(resp.Output)
		}
		if len(resp.Chunks) == 0 && resp.Output == "" {
			fmt.Println("No results found.")
			return nil
		}
		for i, c := range resp.Chunks {
			fmt.Printf("\n%s [score: %.3f]\n", colorize(colorBold, fmt.Sprintf("Chunk %d", i+1)), c.Score)
			fmt.Printf("  %s\n", truncate(c.Content, 500))
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().Int("limit", 5, "maximum number of chunks to retrieve")
	queryCmd.Flags().String("filter", "", "metadata filter as JSON")
	queryCmd.Flags().Bool("no-synthesis", false, "return chunks only, skip answer synthesis")
	queryCmd.Flags().String("model", "", "synthesis model override")
}

// --- extract / parse ---

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Scrape a web page and print the cleaned markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Firecrawl.APIKey == "" {
			return fmt.Errorf("scraping requires a Firecrawl API key")
		}

		md, err := extract.New(cfg.Firecrawl.APIKey).Scrape(cmd.Context(), args[0], extract.DefaultScrapeOptions())
		if err != nil {
			return err
		}
		if !raw {
			md = format.ProcessMarkdown(md)
		}
		fmt.Println(md)
		return nil
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <file.pdf>",
	Short: "Parse a PDF and print the markdown",
	Long: `Parse a PDF and print the markdown. Uses LlamaParse when an API key
is configured, the local text extractor otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		var md string
		if cfg.LlamaParse.APIKey != "" {
			md, err = parse.New(cfg.LlamaParse.APIKey).Parse(cmd.Context(), content, filepath.Base(args[0]), parse.Options{})
		} else {
			md, err = parse.ExtractText(content)
		}
		if err != nil {
			return err
		}
		fmt.Println(md)
		return nil
	},
}

func init() {
	extractCmd.Flags().Bool("raw", false, "print the scraped markdown without cleanup")
}

// --- process ---

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Preview cleanup and chunking without uploading",
	Long: `Run the deterministic cleanup over a local file and show how it
would chunk, without touching the knowledge base.

Examples:
  kbflow process ./notes.md
  kbflow process ./notes.md --strategy paragraph --max-tokens 300
  kbflow process ./notes.md --annotate`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, _ := cmd.Flags().GetString("strategy")
		maxTokens, _ := cmd.Flags().GetInt("max-tokens")
		overlap, _ := cmd.Flags().GetInt("overlap")
		annotate, _ := cmd.Flags().GetBool("annotate")

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		body := format.ProcessMarkdown(string(content))
		if body == "" {
			return fmt.Errorf("no content left after processing")
		}

		var chunks []chunk.Chunk
		switch strategy {
		case "manual":
			chunks = chunk.Manual(body, maxTokens, overlap)
		case "paragraph":
			chunks = chunk.Paragraph(body, maxTokens)
		default:
			return fmt.Errorf("unknown strategy %q, want manual or paragraph", strategy)
		}

		printStatus("Tokens", "%d", chunk.CountTokens(body))
		printStatus("Chunks", "%d (%s)", len(chunks), strategy)

		if annotate {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.OpenAI.APIKey == "" {
				return fmt.Errorf("annotation requires an OpenAI API key")
			}
			llm := summarize.New(cfg.OpenAI.APIKey).WithModel(cfg.OpenAI.Model)

			printStep("Annotating %d chunks...", len(chunks))
			annotated, err := chunk.Annotate(cmd.Context(), llm, body, chunks)
			if err != nil {
				return err
			}
			for _, a := range annotated {
				fmt.Printf("\n%s [%d tokens]\n", colorize(colorBold, fmt.Sprintf("Chunk %d", a.Index+1)), a.Tokens)
				fmt.Printf("  Context: %s\n", a.Context)
				fmt.Printf("  %s\n", truncate(a.Text, 300))
			}
			return nil
		}

		for _, c := range chunks {
			fmt.Printf("\n%s [%d tokens]\n", colorize(colorBold, fmt.Sprintf("Chunk %d", c.Index+1)), c.Tokens)
			fmt.Printf("  %s\n", truncate(c.Text, 300))
		}
		return nil
	},
}

func init() {
	processCmd.Flags().String("strategy", "manual", "chunking strategy: manual or paragraph")
	processCmd.Flags().Int("max-tokens", 500, "chunk budget in tokens")
	processCmd.Flags().Int("overlap", 50, "overlap tokens between manual chunks")
	processCmd.Flags().Bool("annotate", false, "generate situating context per chunk via the LLM")
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show local upload history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := openHistory(cfg)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		if store == nil {
			return fmt.Errorf("history is disabled (no storage.data_dir configured)")
		}
		defer store.Close()

		rows, err := store.ListUploads(limit)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No uploads recorded.")
			return nil
		}
		for _, u := range rows {
			status := u.Status
			switch u.Status {
			case "uploaded":
				status = colorize(colorGreen, u.Status)
			case "failed":
				status = colorize(colorRed, u.Status)
			}
			fmt.Printf("%s  %s  %-8s  %-6s  %s\n",
				colorize(colorCyan, u.ID[:8]),
				u.CreatedAt.Format(time.RFC3339),
				status,
				u.SourceType,
				u.Name,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of uploads to list")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
