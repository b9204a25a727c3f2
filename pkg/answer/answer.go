// Package answer turns retrieval results into user-facing answers via
// a degrading pipeline: generation-backed synthesis when a generator
// is available, raw-snippet presentation when it fails, and informative
// messaging when there is nothing to retrieve.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/retracehq/retrace/internal/models"
	"github.com/retracehq/retrace/internal/types"
)

// State names which tier of the pipeline produced the answer.
type State string

const (
	StateEmptyKnowledge State = "empty_knowledge"
	StateNoMatch        State = "no_match"
	StateGenerated      State = "generated"
	StateFallback       State = "fallback"
	StateUnconfigured   State = "unconfigured"
)

// Status is the contractual quality tag callers use to decide whether
// to flag a degraded response.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFallback Status = "fallback"
	StatusError    Status = "error"
)

// Answer is the terminal output of one synthesis attempt.
type Answer struct {
	Text   string
	State  State
	Status Status
}

type Config struct {
	// PreviewLength bounds snippet length, in runes, when chunks are
	// rendered directly for human display.
	PreviewLength int
	Temperature   float64
	MaxTokens     int
}

// Synthesizer runs the state machine. A nil generator means no
// generation capability is configured.
type Synthesizer struct {
	generator types.Generator
	config    Config
}

func New(generator types.Generator, config Config) *Synthesizer {
	// Temperature 0 is meaningful (deterministic sampling) and passes
	// through as-is; only invalid values get defaults.
	if config.PreviewLength <= 0 {
		config.PreviewLength = 180
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}
	return &Synthesizer{generator: generator, config: config}
}

// Synthesize walks the tiers in order: empty store, no match,
// generation, then the unconfigured/fallback snippet paths. It never
// returns an error; every failure surfaces inside the answer text and
// its status tag.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, mode models.AnswerMode, result models.RetrievalResult) Answer {
	if result.StoreCount == 0 {
		return Answer{
			Text:   fmt.Sprintf("I don't have any stored knowledge yet, so I can't answer %q. Memorize some documents first and ask again.", query),
			State:  StateEmptyKnowledge,
			Status: StatusSuccess,
		}
	}
	if len(result.Chunks) == 0 {
		return Answer{
			Text:   fmt.Sprintf("I couldn't find anything relevant to %q in the stored documents.", query),
			State:  StateNoMatch,
			Status: StatusSuccess,
		}
	}

	if s.generator == nil {
		if mode == models.ModeFreeform {
			return Answer{
				Text:   "Free-form answers require a configured generation service. Set an LLM API key and try again.",
				State:  StateUnconfigured,
				Status: StatusError,
			}
		}
		text := "No generation service is configured, so here are the most relevant passages verbatim:\n\n" +
			s.snippetListing(result) +
			"\n\nSet an LLM API key to get synthesized answers."
		return Answer{Text: text, State: StateUnconfigured, Status: StatusSuccess}
	}

	generated, err := s.generator.Generate(ctx, systemPrompt(mode, Assemble(result)), query, s.config.Temperature, s.config.MaxTokens)
	if err != nil {
		slog.Warn("generation failed, serving raw snippets", "mode", mode, "error", err)
		text := "[degraded] Answer generation failed, so here are the most relevant passages instead:\n\n" +
			s.snippetListing(result) +
			fmt.Sprintf("\n\n(generation error: %v)", err)
		return Answer{Text: text, State: StateFallback, Status: StatusFallback}
	}

	return Answer{Text: generated, State: StateGenerated, Status: StatusSuccess}
}

// snippetListing renders retrieved chunks as truncated, human-readable
// snippets, one per line, in rank order.
func (s *Synthesizer) snippetListing(result models.RetrievalResult) string {
	lines := make([]string, len(result.Chunks))
	for i, sc := range result.Chunks {
		lines[i] = fmt.Sprintf("%d. %s (chunk %d): %s", sc.Rank, sc.Title, sc.Ordinal, truncate(sc.Text, s.config.PreviewLength))
	}
	return strings.Join(lines, "\n")
}

func systemPrompt(mode models.AnswerMode, contextBlock string) string {
	switch mode {
	case models.ModeFreeform:
		return "You are a helpful assistant. Use the following retrieved passages as your primary source, " +
			"but you may draw on general knowledge where the passages fall short. " +
			"Mention which passage numbers you used.\n\nRetrieved passages:\n" + contextBlock
	case models.ModeLegacy:
		return "Answer the question briefly using only the passages below. " +
			"If they don't contain the answer, say you don't know.\n\nPassages:\n" + contextBlock
	default:
		return "You answer strictly from the retrieved passages below. " +
			"Do not use outside knowledge. If the passages do not contain the answer, " +
			"say that the stored documents don't cover it.\n\nRetrieved passages:\n" + contextBlock
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
