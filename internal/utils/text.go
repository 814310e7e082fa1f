// internal/utils/text.go
package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MessageChunkLimit is the per-message character budget of the messaging
// platform. Narration text longer than this is split into chunks.
const MessageChunkLimit = 2000

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Simplify lowercases a string and strips diacritics, so keyword matching
// treats "Ação" and "acao" as the same token.
func Simplify(s string) string {
	folded, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// ChunkText splits text into pieces of at most limit runes each, preferring
// to break after a newline. Concatenating the returned chunks reproduces the
// input exactly; text already within the limit comes back as a single chunk.
func ChunkText(text string, limit int) []string {
	if limit <= 0 {
		limit = MessageChunkLimit
	}

	r := []rune(text)
	if len(r) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(r) > limit {
		cut := limit
		// Break after the last newline inside the window when there is one.
		for i := limit - 1; i > 0; i-- {
			if r[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(r[:cut]))
		r = r[cut:]
	}
	if len(r) > 0 {
		chunks = append(chunks, string(r))
	}
	return chunks
}

// SplitDiffFence separates a trailing ```diff fenced block from the main
// text. The diff block must survive chunking as a single unit, otherwise the
// platform renders a broken fence.
func SplitDiffFence(text string) (main string, diff string) {
	idx := strings.Index(text, "```diff")
	if idx == -1 {
		return text, ""
	}
	return text[:idx], text[idx:]
}
