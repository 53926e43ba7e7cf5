package chunker

import "strings"

// ParagraphSeparator is the blank-line boundary used as a proxy for resume sections.
const ParagraphSeparator = "\n\n"

// Split breaks extracted document text into paragraph chunks.
// Fragments are trimmed and blank ones dropped; order of appearance is kept.
func Split(text string) []string {
	parts := strings.Split(text, ParagraphSeparator)
	chunks := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			chunks = append(chunks, s)
		}
	}
	return chunks
}
