// Package chunker splits raw document text into bounded, overlapping
// chunks along a descending hierarchy of separators: paragraph break,
// line break, sentence end, word boundary, and finally raw characters.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/retracehq/retrace/internal/models"
)

// sentenceEnders mark sentence boundaries; a split keeps the ender with
// the preceding sentence so chunks concatenate back to the source text.
var sentenceEnders = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// Split cuts text into chunks of at most maxSize runes. Consecutive
// chunks share a suffix/prefix of up to overlap runes, clipped at a word
// boundary when possible. Identical input always produces an identical
// chunk sequence; empty input produces no chunks.
func Split(text string, maxSize, overlap int) ([]string, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: max size must be positive, got %d", models.ErrInvalidChunkConfig, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", models.ErrInvalidChunkConfig, overlap, maxSize)
	}
	if text == "" {
		return []string{}, nil
	}
	return pack(dissect(text, 0, maxSize), maxSize, overlap), nil
}

// dissect recursively splits text into units of at most max runes,
// trying separators in priority order. Concatenating the units
// reproduces the input exactly; hard character splitting is used only
// for a unit no separator can break.
func dissect(text string, level, max int) []string {
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var parts []string
	switch level {
	case 0:
		parts = strings.SplitAfter(text, "\n\n")
	case 1:
		parts = strings.SplitAfter(text, "\n")
	case 2:
		parts = splitSentences(text)
	case 3:
		parts = strings.SplitAfter(text, " ")
	default:
		return hardSplit(text, max)
	}

	units := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		units = append(units, dissect(p, level+1, max)...)
	}
	return units
}

// splitSentences splits after sentence-ending punctuation, keeping the
// punctuation and trailing space with the sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		for _, ender := range sentenceEnders {
			if strings.HasPrefix(text[i:], ender) {
				end := i + len(ender)
				sentences = append(sentences, text[start:end])
				start = end
				i = end - 1
				break
			}
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// hardSplit cuts text into pieces of exactly max runes (the last piece
// may be shorter). Last-resort path for indivisible oversize units.
func hardSplit(text string, max int) []string {
	runes := []rune(text)
	pieces := make([]string, 0, (len(runes)+max-1)/max)
	for len(runes) > max {
		pieces = append(pieces, string(runes[:max]))
		runes = runes[max:]
	}
	if len(runes) > 0 {
		pieces = append(pieces, string(runes))
	}
	return pieces
}

// pack greedily fills chunks with consecutive units up to maxSize runes.
// When a chunk closes, the next one is seeded with the trailing overlap
// of the previous chunk. seedLen tracks how much of the current chunk is
// seed so a chunk consisting only of repeated overlap is never emitted.
func pack(units []string, maxSize, overlap int) []string {
	var chunks []string
	cur := ""
	curLen := 0
	seedLen := 0

	for _, u := range units {
		ul := utf8.RuneCountInString(u)
		if curLen+ul > maxSize {
			if curLen > seedLen {
				chunks = append(chunks, cur)
				cur = overlapTail(cur, overlap)
				curLen = utf8.RuneCountInString(cur)
				seedLen = curLen
			}
			if curLen+ul > maxSize {
				// The seed alone would crowd out the unit; trim it from
				// the left so the unit still fits. A unit of exactly
				// maxSize runes (a hard-split piece) leaves no room at
				// all, so those chunk boundaries carry no overlap.
				cur = tailRunes(cur, maxSize-ul)
				curLen = utf8.RuneCountInString(cur)
				seedLen = curLen
			}
		}
		cur += u
		curLen += ul
	}

	if curLen > seedLen || len(chunks) == 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}

// overlapTail returns the trailing overlap runes of chunk, moved forward
// to the nearest word boundary when one exists inside the window.
func overlapTail(chunk string, overlap int) string {
	tail := tailRunes(chunk, overlap)
	if i := strings.IndexAny(tail, " \n"); i >= 0 && i+1 < len(tail) {
		tail = tail[i+1:]
	}
	return tail
}

func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
