package summarize

import (
	"context"
	"fmt"
	"strings"
)

// Markers delimiting the structured summary in model output and in
// composed documents.
const (
	StartMarker = "---START_SUMMARY---"
	EndMarker   = "---END_SUMMARY---"
)

const summaryPromptFormat = `Analyze the following content and generate a structured summary:

%s

Provide your response in the following markdown format with clear separators:

---START_SUMMARY---
# Title:[Concise title for the content]

## Sections:
- [Section 1]
- [Section 2]
- [Section 3]
- [Section 4]
- [Section 5]


## Key Topics:
- [Topic 1]
- [Topic 2]
- [Topic 3]

## Tags:
[Tag 1], [Tag 2], [Tag 3], [Tag 4], [Tag 5]
---END_SUMMARY---

Ensure all parts are present and properly formatted between the START and END separators.
`

const cleanPromptFormat = `Clean up the following markdown content. Fix heading levels so they nest
consistently, repair broken or truncated sentences at section boundaries,
remove navigation remnants and boilerplate that carry no information, and
keep every table exactly as it is. Return only the cleaned markdown with
no commentary before or after it.

%s`

// GenerateSummary asks the model for a structured summary (title,
// sections, key topics, tags) delimited by the summary markers.
func (c *Client) GenerateSummary(ctx context.Context, markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", fmt.Errorf("content is empty")
	}

	out, err := c.Complete(ctx, fmt.Sprintf(summaryPromptFormat, markdown))
	if err != nil {
		return "", fmt.Errorf("generating summary: %w", err)
	}
	if !strings.Contains(out, StartMarker) || !strings.Contains(out, EndMarker) {
		return "", fmt.Errorf("summary is missing the expected separators")
	}
	return out, nil
}

// CleanMarkdown runs the LLM cleanup pass over markdown that has already
// been through deterministic processing. It targets only what regex
// passes cannot do: heading structure and broken sentences.
func (c *Client) CleanMarkdown(ctx context.Context, markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", fmt.Errorf("content is empty")
	}

	out, err := c.Complete(ctx, fmt.Sprintf(cleanPromptFormat, markdown))
	if err != nil {
		return "", fmt.Errorf("cleaning markdown: %w", err)
	}
	return out, nil
}

// StripMarkers removes the summary delimiters, leaving the summary text.
func StripMarkers(s string) string {
	s = strings.ReplaceAll(s, StartMarker, "")
	s = strings.ReplaceAll(s, EndMarker, "")
	return strings.TrimSpace(s)
}
