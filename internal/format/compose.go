package format

import (
	"fmt"
	"strings"

	"github.com/mkravets/kbflow/internal/summarize"
)

// ComposeDocument joins a generated summary with the cleaned body into
// the final document for upload. Marker lines around the summary are
// removed first.
func ComposeDocument(summary, body string) string {
	summary = summarize.StripMarkers(summary)
	body = strings.TrimSpace(body)
	if summary == "" {
		return body
	}
	if body == "" {
		return summary
	}
	return fmt.Sprintf("%s\n\n%s", summary, body)
}

// DocumentName derives a .txt upload name from a source name, replacing
// the original extension.
func DocumentName(source string) string {
	base := strings.TrimSpace(source)
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "" {
		base = "document"
	}
	return base + ".txt"
}
