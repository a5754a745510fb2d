package translate

import (
	"context"

	"hnlingo/internal/logging"
	"hnlingo/internal/metrics"
	"hnlingo/internal/model"
)

// Batcher merges many short texts into few upstream calls and guarantees
// one output per input.
type Batcher struct {
	tr       Translator
	maxChars int
}

func NewBatcher(tr Translator, maxChars int) *Batcher {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Batcher{tr: tr, maxChars: maxChars}
}

// TranslateBatch returns exactly len(texts) strings. Blank inputs map to
// "", and a failed translation keeps the source text in its slot.
func (b *Batcher) TranslateBatch(ctx context.Context, texts []string, targetLang string) []string {
	out := make([]string, len(texts))
	for _, batch := range MakeBatches(texts, b.maxChars) {
		res := b.tr.Translate(ctx, batch.Join(), targetLang)
		parts, ok := batch.Split(res.Text)
		if !ok {
			metrics.SplitFallbacks.Inc()
			logging.Warn("translate_split_mismatch", map[string]any{"texts": len(batch.Texts), "chars": batch.Size()})
			parts = make([]string, len(batch.Texts))
			for i, text := range batch.Texts {
				parts[i] = b.tr.Translate(ctx, text, targetLang).Text
			}
		}
		for i, p := range parts {
			out[batch.Positions[i]] = p
		}
	}
	return out
}

// Pairs is TranslateBatch returning source/target couples.
func (b *Batcher) Pairs(ctx context.Context, texts []string, targetLang string) []model.TranslatedPair {
	translated := b.TranslateBatch(ctx, texts, targetLang)
	pairs := make([]model.TranslatedPair, len(texts))
	for i := range texts {
		pairs[i] = model.TranslatedPair{Source: texts[i], Target: translated[i]}
	}
	return pairs
}
