package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 2000), 500},
	}
	for _, tc := range cases {
		if got := EstimateTokens(tc.in); got != tc.want {
			t.Errorf("EstimateTokens(%d chars): expected %d, got %d", len(tc.in), tc.want, got)
		}
	}
}

// TestSplit_TwoParagraphsOnePassage verifies that paragraphs fitting the
// budget together are packed into a single passage joined by a blank line.
func TestSplit_TwoParagraphsOnePassage(t *testing.T) {
	text := "Para A is about visas.\n\nPara B is about legislation."

	passages := New(500).Split(text)
	if len(passages) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(passages))
	}
	if passages[0].Text != text {
		t.Errorf("expected both paragraphs joined by blank line, got %q", passages[0].Text)
	}
	if passages[0].Index != 0 {
		t.Errorf("expected index 0, got %d", passages[0].Index)
	}
}

// TestSplit_BudgetRespected verifies that no passage exceeds the budget
// unless it consists of a single over-budget paragraph.
func TestSplit_BudgetRespected(t *testing.T) {
	paras := []string{
		strings.Repeat("a", 120),
		strings.Repeat("b", 120),
		strings.Repeat("c", 120),
		strings.Repeat("d", 120),
		strings.Repeat("e", 120),
	}
	budget := 80 // each paragraph estimates to 30 tokens

	passages := New(budget).Split(strings.Join(paras, "\n\n"))
	if len(passages) < 2 {
		t.Fatalf("expected multiple passages, got %d", len(passages))
	}
	for _, p := range passages {
		single := !strings.Contains(p.Text, "\n\n")
		if p.Tokens > budget && !single {
			t.Errorf("passage %d exceeds budget: %d > %d", p.Index, p.Tokens, budget)
		}
	}
}

// TestSplit_OversizedParagraphKeptWhole verifies a paragraph bigger than
// the budget is still emitted as one passage rather than split.
func TestSplit_OversizedParagraphKeptWhole(t *testing.T) {
	big := strings.Repeat("legislation ", 200) // ~600 tokens
	text := "Short intro.\n\n" + strings.TrimSpace(big) + "\n\nShort outro."

	passages := New(100).Split(text)
	found := false
	for _, p := range passages {
		if strings.Contains(p.Text, "legislation legislation") {
			found = true
			if strings.Contains(p.Text, "Short intro") || strings.Contains(p.Text, "Short outro") {
				t.Error("over-budget paragraph should be alone in its passage")
			}
			if p.Tokens <= 100 {
				t.Errorf("expected over-budget passage, got %d tokens", p.Tokens)
			}
		}
	}
	if !found {
		t.Fatal("oversized paragraph missing from output")
	}
}

func TestSplit_ContiguousIndices(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString(strings.Repeat("w", 200))
		sb.WriteString("\n\n")
	}

	passages := New(60).Split(sb.String())
	for i, p := range passages {
		if p.Index != i {
			t.Errorf("passage %d has index %d", i, p.Index)
		}
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	if got := New(500).Split(""); len(got) != 0 {
		t.Errorf("expected no passages for empty input, got %d", len(got))
	}
	if got := New(500).Split("\n\n  \n\n"); len(got) != 0 {
		t.Errorf("expected no passages for whitespace input, got %d", len(got))
	}
}

// TestSplit_SingleParagraphNoBlankLines verifies text without blank lines
// comes back as one passage (line breaks alone are not boundaries).
func TestSplit_SingleParagraphNoBlankLines(t *testing.T) {
	text := "Line one.\nLine two.\nLine three."
	passages := New(500).Split(text)
	if len(passages) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(passages))
	}
	if passages[0].Text != text {
		t.Errorf("unexpected passage text %q", passages[0].Text)
	}
}

// TestTruncate_RuneBoundary verifies a byte-limit cut never splits a
// multi-byte rune.
func TestTruncate_RuneBoundary(t *testing.T) {
	s := "ab" + strings.Repeat("é", 4) // "é" is two bytes, runes start at even offsets
	got := Truncate(s, 5)              // byte 5 is mid-rune
	if got != "abé" {
		t.Errorf("expected cut at rune boundary, got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated string is not valid UTF-8: %q", got)
	}
}

func TestTruncate_NoOpWithinLimit(t *testing.T) {
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("expected input unchanged, got %q", got)
	}
	if got := Truncate("", 0); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	if got := Truncate("é", 1); got != "" {
		t.Errorf("expected empty string when no rune fits, got %q", got)
	}
}
