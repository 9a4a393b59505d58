// Package title derives a short session title from the first user
// message. It is strictly best-effort: it runs concurrently with the main
// send, and any failure is logged and swallowed.
package title

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultMinInputLength is the minimum message length that warrants a
// generated title. Shorter prompts make for worse titles than the raw
// text itself.
const DefaultMinInputLength = 20

const prompt = "Generate a concise title (at most eight words) for a conversation that starts with the message below. Reply with the title only, no quotes.\n\nMessage:\n%s"

// Completer issues a single short completion. The Gemini agent satisfies
// this.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Summarizer generates session titles with a fast model.
type Summarizer struct {
	completer Completer
	model     string
	minLength int
	headless  bool
	logger    *zap.Logger
}

// New creates a summarizer bound to the given fast model. headless
// disables generation entirely (test and scripted runs).
func New(completer Completer, model string, minLength int, headless bool, logger *zap.Logger) *Summarizer {
	if minLength <= 0 {
		minLength = DefaultMinInputLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{
		completer: completer,
		model:     model,
		minLength: minLength,
		headless:  headless,
		logger:    logger,
	}
}

// ShouldSummarize reports whether a title should be generated for this
// input: only on the first turn, only for inputs long enough to be worth
// it, and never in headless mode.
func (s *Summarizer) ShouldSummarize(input string, firstTurn bool) bool {
	if s == nil || s.completer == nil || s.headless {
		return false
	}
	return firstTurn && len(input) >= s.minLength && s.model != ""
}

// Summarize produces the title, or "" when the model returned nothing
// usable. Callers must treat "" as "leave the title unset".
func (s *Summarizer) Summarize(ctx context.Context, input string) (string, error) {
	out, err := s.completer.Complete(ctx, s.model, fmt.Sprintf(prompt, input))
	if err != nil {
		return "", err
	}
	t := strings.TrimSpace(out)
	t = strings.Trim(t, `"'`)
	if t == "" {
		s.logger.Debug("title model returned empty output")
	}
	return t, nil
}
