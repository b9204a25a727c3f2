package chunker_test

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace/internal/models"
	"github.com/retracehq/retrace/pkg/chunker"
)

func TestSplit_InvalidConfig(t *testing.T) {
	_, err := chunker.Split("some text", 0, 0)
	assert.ErrorIs(t, err, models.ErrInvalidChunkConfig)

	_, err = chunker.Split("some text", -5, 0)
	assert.ErrorIs(t, err, models.ErrInvalidChunkConfig)

	_, err = chunker.Split("some text", 100, 100)
	assert.ErrorIs(t, err, models.ErrInvalidChunkConfig)

	_, err = chunker.Split("some text", 100, 250)
	assert.ErrorIs(t, err, models.ErrInvalidChunkConfig)

	_, err = chunker.Split("some text", 100, -1)
	assert.ErrorIs(t, err, models.ErrInvalidChunkConfig)
}

func TestSplit_EmptyInput(t *testing.T) {
	chunks, err := chunker.Split("", 100, 20)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_ShortInputSingleChunk(t *testing.T) {
	chunks, err := chunker.Split("short text", 100, 20)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplit_RespectsMaxSize(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60)

	chunks, err := chunker.Split(text, 200, 40)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 200, "chunk %d too long", i)
		assert.NotEmpty(t, c, "chunk %d empty", i)
	}
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta epsilon zeta. ", 40)

	chunks, err := chunker.Split(text, 150, 30)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		assert.Positive(t, overlapLen(chunks[i-1], chunks[i]),
			"chunks %d and %d share no overlap", i-1, i)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("Some sentences here. And a few more there!\n\nNew paragraph. ", 30)

	first, err := chunker.Split(text, 180, 50)
	require.NoError(t, err)
	second, err := chunker.Split(text, 180, 50)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	text := "first paragraph content here.\n\nsecond paragraph content here."

	chunks, err := chunker.Split(text, 35, 5)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	assert.Contains(t, chunks[0], "first paragraph")
}

func TestSplit_HardSplitsIndivisibleUnit(t *testing.T) {
	// One unbroken 250-char word can only be cut at character level.
	text := strings.Repeat("x", 250)

	chunks, err := chunker.Split(text, 100, 10)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
	}
	assert.Equal(t, strings.Repeat("x", 100), chunks[0])
}

func TestSplit_FullSizeUnitsLeaveNoOverlapRoom(t *testing.T) {
	// Hard splitting a 250-rune word at max 100 yields pieces of 100,
	// 100 and 50 runes. A full-size piece fills its whole chunk, so the
	// boundary before it carries no overlap; the final partial piece
	// still fits behind the seed and keeps it.
	text := strings.Repeat("x", 250)

	chunks, err := chunker.Split(text, 100, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{
		strings.Repeat("x", 100),
		strings.Repeat("x", 100),
		strings.Repeat("x", 60),
	}, chunks)
}

func TestSplit_ReconstructsSourceText(t *testing.T) {
	// Unique tokens so the overlap between two chunks is unambiguous.
	var b strings.Builder
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&b, "token%03d ", i)
	}
	text := b.String()

	chunks, err := chunker.Split(text, 120, 20)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	// Concatenating chunks with the overlap regions removed restores
	// the original text.
	rebuilt := chunks[0]
	for i := 1; i < len(chunks); i++ {
		k := overlapLen(chunks[i-1], chunks[i])
		rebuilt += chunks[i][k:]
	}
	assert.Equal(t, text, rebuilt)
}

func TestSplit_MultibyteRunes(t *testing.T) {
	text := strings.Repeat("人工智能是由机器展示的智能 ", 40)

	chunks, err := chunker.Split(text, 50, 10)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 50)
		assert.True(t, utf8.ValidString(c))
	}
}

func TestSplit_TwoThousandFiveHundredChars(t *testing.T) {
	// 2500 characters with max_size=1000 and overlap=200 pack into
	// three chunks.
	text := strings.Repeat("word ", 500)

	chunks, err := chunker.Split(text, 1000, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 1000)
	}
	assert.Positive(t, overlapLen(chunks[0], chunks[1]))
	assert.Positive(t, overlapLen(chunks[1], chunks[2]))
}

// overlapLen returns the length in bytes of the longest suffix of prev
// that prefixes next.
func overlapLen(prev, next string) int {
	max := len(prev)
	if len(next) < max {
		max = len(next)
	}
	for k := max; k > 0; k-- {
		if strings.HasSuffix(prev, next[:k]) {
			return k
		}
	}
	return 0
}
