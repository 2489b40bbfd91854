// Package format holds the deterministic markdown cleanup that runs
// before any LLM pass. Everything here is regex and token work; the
// judgement calls (heading structure, broken sentences) belong to
// summarize.CleanMarkdown.
package format

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

var (
	linkedImageRe = regexp.MustCompile(`\[!\[.*?\]\(.*?\)\]\(.*?\)`)
	imageRe       = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	backslashRe   = regexp.MustCompile(`\\+`)
	imageDebrisRe = regexp.MustCompile(`\.\w+\)\.?\w*\)?`)
	emptyLinkRe   = regexp.MustCompile(`\[([^\]]*)\]\(\s*\)`)
	headerGapRe   = regexp.MustCompile(`(#+)(\w)`)
	bulletRe      = regexp.MustCompile(`^[\-\*]\s+`)
	blankRunRe    = regexp.MustCompile(`\n{2,}`)
	spaceRunRe    = regexp.MustCompile(`[ \t]{2,}`)
)

// ProcessMarkdown cleans scraped or parsed markdown: images, stray
// backslashes, widget artifacts, embedded HTML, hidden characters and
// duplicate headers all go. Tables pass through untouched.
func ProcessMarkdown(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = linkedImageRe.ReplaceAllString(text, "")
	text = imageRe.ReplaceAllString(text, "")
	text = backslashRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "keyboard_arrow_down", "")
	text = imageDebrisRe.ReplaceAllString(text, "")

	// Zero-width joiner and zero-width space survive most scrapers.
	text = strings.ReplaceAll(text, "\u200d", "")
	text = strings.ReplaceAll(text, "\u200b", "")

	text = stripHTML(text)
	text = dropNonPrintable(text)

	text = emptyLinkRe.ReplaceAllString(text, "$1")
	text = headerGapRe.ReplaceAllString(text, "$1 $2")
	text = spaceRunRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	prevHeader := ""
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = bulletRe.ReplaceAllString(line, "")
		if strings.HasPrefix(line, "#") {
			if line == prevHeader {
				continue
			}
			prevHeader = line
		}
		out = append(out, line)
	}
	text = strings.Join(out, "\n")

	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// stripHTML drops tags and decodes entities, keeping only text content.
// Script and style bodies are discarded along with their tags.
func stripHTML(text string) string {
	tok := html.NewTokenizer(strings.NewReader(text))
	var b strings.Builder
	skipDepth := 0
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := tok.TagName()
			if isSkippedTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			if isSkippedTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tok.Text())
			}
		}
	}
}

func isSkippedTag(name string) bool {
	return name == "script" || name == "style"
}

func dropNonPrintable(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, text)
}
