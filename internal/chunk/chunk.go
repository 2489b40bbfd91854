// Package chunk splits document text into upload-sized pieces and can
// annotate each piece with retrieval context from an LLM.
package chunk

import (
	"strings"
)

// Chunk is one piece of a split document.
type Chunk struct {
	Index  int
	Text   string
	Tokens int
}

// CountTokens approximates a token count. The heuristic is one token
// per word plus one per punctuation-heavy fragment, which tracks
// cl100k within the tolerance splitting needs.
func CountTokens(text string) int {
	fields := strings.Fields(text)
	n := len(fields)
	for _, f := range fields {
		if len(f) > 8 {
			n += len(f) / 8
		}
	}
	return n
}

// Manual splits text sentence by sentence, closing a chunk when adding
// the next sentence would exceed maxTokens. Trailing sentences that fit
// in overlapTokens carry over into the next chunk.
func Manual(text string, maxTokens, overlapTokens int) []Chunk {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	sentences := splitSentences(text)
	var chunks []Chunk
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Text:   strings.Join(current, " "),
			Tokens: currentTokens,
		})
	}

	for _, sentence := range sentences {
		n := CountTokens(sentence)
		if currentTokens+n > maxTokens && len(current) > 0 {
			flush()
			current, currentTokens = overlapTail(current, overlapTokens)
		}
		current = append(current, sentence)
		currentTokens += n
	}
	flush()
	return chunks
}

// overlapTail returns the trailing sentences that fit in the overlap
// window, preserving order.
func overlapTail(sentences []string, overlapTokens int) ([]string, int) {
	if overlapTokens <= 0 {
		return nil, 0
	}
	var tail []string
	total := 0
	for i := len(sentences) - 1; i >= 0; i-- {
		n := CountTokens(sentences[i])
		if total+n > overlapTokens {
			break
		}
		tail = append([]string{sentences[i]}, tail...)
		total += n
	}
	return tail, total
}

// Paragraph splits on blank lines, combining small paragraphs until the
// next one would push the chunk past maxTokens.
func Paragraph(text string, maxTokens int) []Chunk {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var chunks []Chunk
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Text:   strings.Join(current, "\n\n"),
			Tokens: currentTokens,
		})
		current, currentTokens = nil, 0
	}

	for _, para := range paragraphs {
		n := CountTokens(para)
		if currentTokens+n > maxTokens && len(current) > 0 {
			flush()
		}
		current = append(current, para)
		currentTokens += n
	}
	flush()
	return chunks
}

var sentenceEnders = ".!?"

// splitSentences breaks text on sentence-final punctuation followed by
// whitespace. Newlines also terminate a sentence so headings and list
// lines stay whole.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		boundary := r == '\n' ||
			(strings.ContainsRune(sentenceEnders, r) &&
				(i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n'))
		if boundary {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
