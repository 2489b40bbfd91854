package chunk

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Completer produces a completion for a prompt. summarize.Client
// satisfies it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const contextPromptFormat = `<document>
%s
</document>

Here is the chunk we want to situate within the whole document:
<chunk>
%s
</chunk>

Please give a short succinct context to situate this chunk within the overall document for the purposes of improving search retrieval of the chunk.
Answer only with the succinct context and nothing else.`

// Annotated is a chunk with its retrieval context attached.
type Annotated struct {
	Chunk
	Context string
}

// Annotate asks the model for a situating context per chunk, running
// requests concurrently. The first failure cancels the rest.
func Annotate(ctx context.Context, llm Completer, documentText string, chunks []Chunk) ([]Annotated, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	results := make([]Annotated, len(chunks))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency to stay under provider rate limits.

	for i, c := range chunks {
		g.Go(func() error {
			out, err := llm.Complete(gCtx, fmt.Sprintf(contextPromptFormat, documentText, c.Text))
			if err != nil {
				return fmt.Errorf("annotating chunk %d: %w", c.Index, err)
			}
			results[i] = Annotated{Chunk: c, Context: out}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ContextualText renders the chunk with its context appended, the form
// used for embedding and upload.
func (a Annotated) ContextualText() string {
	if a.Context == "" {
		return a.Text
	}
	return fmt.Sprintf("%s\n\nContext: %s", a.Text, a.Context)
}
