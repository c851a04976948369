// Package chunk splits normalized document text into token-budgeted passages.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultTokenBudget is the target estimated token count per passage.
const DefaultTokenBudget = 500

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// Passage is a contiguous span of a document, embedded independently
// for retrieval. Index is the zero-based position within the document.
type Passage struct {
	Index  int
	Text   string
	Tokens int
}

// EstimateTokens approximates the token count of s as ceil(len/4).
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// Truncate cuts s to at most limit bytes, backing up to a rune
// boundary so the result is always valid UTF-8.
func Truncate(s string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// Chunker packs paragraphs into passages without exceeding a token budget.
type Chunker struct {
	budget int
}

// New creates a Chunker with the given token budget.
// A non-positive budget falls back to DefaultTokenBudget.
func New(tokenBudget int) *Chunker {
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}
	return &Chunker{budget: tokenBudget}
}

// Budget returns the configured token budget.
func (c *Chunker) Budget() int {
	return c.budget
}

// Split divides text into passages on blank-line paragraph boundaries,
// greedily accumulating consecutive paragraphs until the next one would
// push the running estimate over the budget. A single paragraph larger
// than the budget is emitted alone rather than split mid-paragraph, so
// passages stay aligned with the source's paragraph structure.
func (c *Chunker) Split(text string) []Passage {
	var paras []string
	for _, p := range paragraphBreak.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}

	var out []Passage
	var buf []string
	tokens := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		joined := strings.Join(buf, "\n\n")
		out = append(out, Passage{
			Index:  len(out),
			Text:   joined,
			Tokens: EstimateTokens(joined),
		})
		buf = buf[:0]
		tokens = 0
	}

	for _, p := range paras {
		t := EstimateTokens(p)
		if tokens+t > c.budget && len(buf) > 0 {
			flush()
		}
		buf = append(buf, p)
		tokens += t
	}
	flush()

	return out
}
