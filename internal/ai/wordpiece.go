package ai

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	tokenCLS = "[CLS]"
	tokenSEP = "[SEP]"
	tokenUNK = "[UNK]"

	maxWordChars = 100
)

// WordPiece is an uncased BERT tokenizer, matching the vocabulary shipped with
// sentence-transformers/all-MiniLM-L6-v2.
type WordPiece struct {
	vocab     map[string]int64
	maxTokens int
	cls       int64
	sep       int64
	unk       int64
}

// LoadVocab reads a vocab.txt file; the token id is the line index.
func LoadVocab(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab failed: %w", err)
	}
	defer f.Close()
	return ReadVocab(f)
}

func ReadVocab(r io.Reader) (map[string]int64, error) {
	vocab := make(map[string]int64)
	sc := bufio.NewScanner(r)
	var id int64
	for sc.Scan() {
		tok := strings.TrimRight(sc.Text(), "\r")
		if tok != "" {
			vocab[tok] = id
		}
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab failed: %w", err)
	}
	return vocab, nil
}

// NewWordPiece builds a tokenizer. maxTokens includes [CLS] and [SEP].
func NewWordPiece(vocab map[string]int64, maxTokens int) (*WordPiece, error) {
	if maxTokens < 2 {
		maxTokens = 256
	}
	w := &WordPiece{vocab: vocab, maxTokens: maxTokens}
	for tok, dst := range map[string]*int64{tokenCLS: &w.cls, tokenSEP: &w.sep, tokenUNK: &w.unk} {
		id, ok := vocab[tok]
		if !ok {
			return nil, fmt.Errorf("vocab is missing %s", tok)
		}
		*dst = id
	}
	return w, nil
}

// Encode returns [CLS] ids... [SEP], truncated to maxTokens.
func (w *WordPiece) Encode(text string) []int64 {
	ids := []int64{w.cls}
	limit := w.maxTokens - 1
	for _, word := range basicTokenize(text) {
		for _, id := range w.wordPieces(word) {
			if len(ids) >= limit {
				return append(ids, w.sep)
			}
			ids = append(ids, id)
		}
	}
	return append(ids, w.sep)
}

// greedy longest-match-first
func (w *WordPiece) wordPieces(word string) []int64 {
	runes := []rune(word)
	if len(runes) > maxWordChars {
		return []int64{w.unk}
	}
	var pieces []int64
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := false
		var id int64
		for start < end {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if v, ok := w.vocab[sub]; ok {
				id = v
				found = true
				break
			}
			end--
		}
		if !found {
			return []int64{w.unk}
		}
		pieces = append(pieces, id)
		start = end
	}
	return pieces
}

func basicTokenize(text string) []string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case isCJK(r):
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	var words []string
	for _, field := range strings.Fields(b.String()) {
		field = stripAccents(strings.ToLower(field))
		words = append(words, splitPunct(field)...)
	}
	return words
}

func stripAccents(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func splitPunct(word string) []string {
	var out []string
	var cur []rune
	for _, r := range word {
		if isPunct(r) {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = cur[:0]
			}
			out = append(out, string(r))
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.In(r, unicode.Cc, unicode.Cf)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
