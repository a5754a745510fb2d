// Package translate turns source texts into a target language through an
// upstream text-generation API. Translation is fail-soft: a failed call
// yields the source text and an OutcomeOriginal result, never an error.
package translate

import (
	"context"
	"strings"

	"hnlingo/internal/logging"
)

// Outcome tells how a Result's text was produced.
type Outcome int

const (
	// OutcomeEmpty means the source was blank; no call was made.
	OutcomeEmpty Outcome = iota
	// OutcomeTranslated means Text came back from the upstream model.
	OutcomeTranslated
	// OutcomeOriginal means translation failed or was skipped and Text is the source.
	OutcomeOriginal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeTranslated:
		return "translated"
	case OutcomeOriginal:
		return "original"
	default:
		return "unknown"
	}
}

// Result is the outcome of one translation. Err holds the swallowed cause
// when Outcome is OutcomeOriginal.
type Result struct {
	Text    string
	Outcome Outcome
	Err     error
}

// Translator translates one text. Implementations must not fail: on error
// they return the source text with OutcomeOriginal.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) Result
}

// Func adapts a plain function to Translator, applying the blank
// short-circuit and the fail-soft substitution.
type Func func(ctx context.Context, text, targetLang string) (string, error)

func (f Func) Translate(ctx context.Context, text, targetLang string) Result {
	if Blank(text) {
		return Result{Outcome: OutcomeEmpty}
	}
	out, err := f(ctx, text, targetLang)
	if err != nil {
		return original(text, err)
	}
	return Result{Text: out, Outcome: OutcomeTranslated}
}

// Noop hands back every text untranslated. Used for dry runs and when no
// provider is configured.
type Noop struct{}

func (Noop) Translate(_ context.Context, text, _ string) Result {
	if Blank(text) {
		return Result{Outcome: OutcomeEmpty}
	}
	return Result{Text: text, Outcome: OutcomeOriginal}
}

// Blank reports whether s has no visible characters.
func Blank(s string) bool { return strings.TrimSpace(s) == "" }

func original(text string, err error) Result {
	logging.Warn("translate_failed", map[string]any{"error": err.Error(), "chars": len(text)})
	return Result{Text: text, Outcome: OutcomeOriginal, Err: err}
}
