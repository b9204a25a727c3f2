package answer

import (
	"fmt"
	"strings"

	"github.com/retracehq/retrace/internal/models"
)

// Assemble renders retrieved chunks into one prompt-ready context
// block. Each chunk gets a labeled header with its rank and provenance
// followed by its full text; blocks are joined by a blank line. Empty
// results render as an empty string.
func Assemble(result models.RetrievalResult) string {
	if len(result.Chunks) == 0 {
		return ""
	}
	blocks := make([]string, len(result.Chunks))
	for i, sc := range result.Chunks {
		blocks[i] = fmt.Sprintf("[%d] %s (chunk %d)\n%s", sc.Rank, sc.Title, sc.Ordinal, sc.Text)
	}
	return strings.Join(blocks, "\n\n")
}
