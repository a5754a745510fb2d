package translate

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// DefaultMaxChars is the character budget of one upstream request.
	DefaultMaxChars = 8000
	// ItemOverhead estimates the delimiter cost of each text in a batch.
	ItemOverhead = 10
)

// Batch is a run of source texts sent in a single upstream call.
// Positions maps each text back to its index in the caller's input.
type Batch struct {
	Texts     []string
	Positions []int
	Delimiter string
}

// MakeBatches drops blank texts and packs the rest greedily, in order,
// into batches whose size plus per-item overhead stays within maxChars.
// A text larger than the budget gets a batch of its own.
func MakeBatches(texts []string, maxChars int) []Batch {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	var (
		batches []Batch
		cur     Batch
		size    int
	)
	flush := func() {
		if len(cur.Texts) == 0 {
			return
		}
		cur.Delimiter = newDelimiter(cur.Texts)
		batches = append(batches, cur)
		cur = Batch{}
		size = 0
	}
	for i, text := range texts {
		if Blank(text) {
			continue
		}
		n := utf8.RuneCountInString(text) + ItemOverhead
		if len(cur.Texts) > 0 && size+n > maxChars {
			flush()
		}
		cur.Texts = append(cur.Texts, text)
		cur.Positions = append(cur.Positions, i)
		size += n
	}
	flush()
	return batches
}

// Size is the number of characters of the batch's texts.
func (b Batch) Size() int {
	n := 0
	for _, t := range b.Texts {
		n += utf8.RuneCountInString(t)
	}
	return n
}

// Join builds the combined request text.
func (b Batch) Join() string { return strings.Join(b.Texts, b.Delimiter) }

// Split cuts a combined reply back into one part per text. It reports
// false when the part count does not match, which callers treat as a cue
// to translate the batch item by item.
func (b Batch) Split(reply string) ([]string, bool) {
	if len(b.Texts) == 1 {
		return []string{reply}, true
	}
	if parts := strings.Split(reply, b.Delimiter); len(parts) == len(b.Texts) {
		return parts, true
	}
	// Models often rewrap whitespace around the separator line.
	token := strings.TrimSpace(b.Delimiter)
	parts := strings.Split(reply, token)
	if len(parts) != len(b.Texts) {
		return nil, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, true
}

// newDelimiter returns a separator line that occurs in none of texts.
func newDelimiter(texts []string) string {
	for {
		token := fmt.Sprintf("===DIVIDER_%d_%s===", time.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
		clash := false
		for _, t := range texts {
			if strings.Contains(t, token) {
				clash = true
				break
			}
		}
		if !clash {
			return "\n" + token + "\n"
		}
	}
}
