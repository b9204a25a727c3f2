package models

import "fmt"

// AnswerMode selects the retrieval breadth and generation policy for a
// chat query.
type AnswerMode string

const (
	// ModeStrict answers only from retrieved context.
	ModeStrict AnswerMode = "strict"
	// ModeFreeform may augment retrieved context with general knowledge.
	ModeFreeform AnswerMode = "freeform"
	// ModeLegacy is the narrow compatibility mode with the smallest
	// retrieval window.
	ModeLegacy AnswerMode = "legacy"
)

// ParseAnswerMode maps a request string to an AnswerMode. The empty
// string defaults to strict.
func ParseAnswerMode(s string) (AnswerMode, error) {
	switch AnswerMode(s) {
	case "":
		return ModeStrict, nil
	case ModeStrict, ModeFreeform, ModeLegacy:
		return AnswerMode(s), nil
	default:
		return "", fmt.Errorf("unknown answer mode %q", s)
	}
}
