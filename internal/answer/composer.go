// Package answer classifies question intent and composes cited answers
// from retrieved passages.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/migration-kb/internal/chunk"
	"github.com/bull/migration-kb/internal/storage"
)

const systemPrompt = `You are an Australian immigration information assistant.
Do NOT give personalised legal advice. Provide general information, cite sources with [n], and encourage users to verify on official sites.
If asked for tailored advice, state you cannot provide legal advice and point to the OMARA register.
When asked for process steps, use concise bullet points.
`

const intentPrompt = `Classify the user's intent into one of:
[general_info, eligibility, process_steps, definitions, updates].
Return JSON only: {"intent":"..."}.
`

// snippetLimit bounds how much of each passage goes into the model
// context.
const snippetLimit = 1200

// ChatRequest is one chat completion call.
type ChatRequest struct {
	Model       string
	System      string
	User        string
	JSONObject  bool
	Temperature float64
}

// ChatModel executes chat completions. The production implementation
// wraps the OpenAI client; tests substitute a fake.
type ChatModel interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Source maps a citation index used in the answer text back to the
// passage it refers to.
type Source struct {
	N     int    `json:"n"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Response is the full composed answer. Either all three fields are
// populated or the request failed; there is no partial success.
type Response struct {
	Intent  Intent   `json:"intent"`
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Composer runs the two-stage intent-then-synthesis flow.
type Composer struct {
	chat        ChatModel
	intentModel string
	answerModel string
	logger      *slog.Logger
}

// NewComposer creates a Composer using the given chat backend and
// model names for each stage.
func NewComposer(chat ChatModel, intentModel, answerModel string, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		chat:        chat,
		intentModel: intentModel,
		answerModel: answerModel,
		logger:      logger,
	}
}

// Compose classifies the question, then asks the model to answer from
// the numbered passages only. An empty passage list is not an error:
// the model is told there is no matching content and must acknowledge
// the uncertainty instead of inventing facts.
func (c *Composer) Compose(ctx context.Context, question string, passages []*storage.ScoredChunk) (*Response, error) {
	intent, err := c.classify(ctx, question)
	if err != nil {
		return nil, err
	}

	contextBlock := buildContext(passages)

	user := fmt.Sprintf("Question: %s\n\nContext:\n%s\n\nRules:\n- Use only the context for facts.\n- Add [n] markers mapping to the numbered context.\n- End with a one-line disclaimer.", question, contextBlock)
	if len(passages) == 0 {
		user = fmt.Sprintf("Question: %s\n\nContext:\n(no relevant passages were found in the knowledge base)\n\nRules:\n- State clearly that you could not find relevant official content for this question.\n- Do not invent facts or citations.\n- End with a one-line disclaimer.", question)
	}

	answerText, err := c.chat.Complete(ctx, ChatRequest{
		Model:       c.answerModel,
		System:      systemPrompt,
		User:        user,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("answer synthesis: %w", err)
	}

	sources := make([]Source, len(passages))
	for i, p := range passages {
		sources[i] = Source{N: i + 1, Title: p.Title, URL: p.URL}
	}

	c.logger.Debug("composed answer", "intent", intent, "sources", len(sources))
	return &Response{
		Intent:  intent,
		Answer:  answerText,
		Sources: sources,
	}, nil
}

// classify runs the intent stage. Unparseable or out-of-set model
// output fails the request.
func (c *Composer) classify(ctx context.Context, question string) (Intent, error) {
	raw, err := c.chat.Complete(ctx, ChatRequest{
		Model:      c.intentModel,
		System:     intentPrompt,
		User:       question,
		JSONObject: true,
	})
	if err != nil {
		return "", fmt.Errorf("intent classification: %w", err)
	}

	var parsed struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadIntent, err)
	}
	return ParseIntent(parsed.Intent)
}

// buildContext renders passages as a numbered block. The [[n]] tags
// are what the synthesis prompt's [n] citation markers refer to.
func buildContext(passages []*storage.ScoredChunk) string {
	blocks := make([]string, len(passages))
	for i, p := range passages {
		blocks[i] = fmt.Sprintf("[[%d]] %s\nURL: %s\n%s", i+1, p.Title, p.URL, chunk.Truncate(p.Text, snippetLimit))
	}
	return strings.Join(blocks, "\n\n")
}
