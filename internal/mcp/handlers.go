package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/migration-kb/internal/answer"
	"github.com/bull/migration-kb/internal/retrieval"
	"github.com/bull/migration-kb/internal/storage"
)

// Retriever is the retrieval slice the tool handlers depend on.
type Retriever interface {
	Retrieve(ctx context.Context, query string, profile retrieval.Profile) ([]*storage.ScoredChunk, error)
}

// Composer is the answer-composition slice the tool handlers depend on.
type Composer interface {
	Compose(ctx context.Context, question string, passages []*storage.ScoredChunk) (*answer.Response, error)
}

// StatsProvider reports index counts.
type StatsProvider interface {
	GetStats(ctx context.Context) (*storage.Stats, error)
}

// makeSearchHandler creates the search_knowledge tool handler.
// Embeds the query, runs vector similarity search, and returns ranked
// passages with their source pages. No LLM involved.
func makeSearchHandler(retriever Retriever) func(
	context.Context, *mcp.CallToolRequest, SearchKnowledgeInput,
) (*mcp.CallToolResult, SearchKnowledgeOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchKnowledgeInput) (
		*mcp.CallToolResult, SearchKnowledgeOutput, error,
	) {
		profile := retrieval.DefaultSearchProfile
		if input.MaxResults > 0 {
			profile.K = input.MaxResults
		}
		if input.MinScore > 0 {
			profile.MinScore = float32(input.MinScore)
		}

		passages, err := retriever.Retrieve(ctx, input.Query, profile)
		if err != nil {
			return nil, SearchKnowledgeOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(passages) == 0 {
			return nil, SearchKnowledgeOutput{
				Results: []KnowledgeResult{},
				Message: "No matching passages found. Try broader search terms.",
			}, nil
		}

		results := make([]KnowledgeResult, len(passages))
		for i, p := range passages {
			results[i] = KnowledgeResult{
				Text:  p.Text,
				Title: p.Title,
				URL:   p.URL,
				Score: p.Score,
			}
		}
		return nil, SearchKnowledgeOutput{Results: results}, nil
	}
}

// makeAskHandler creates the ask_question tool handler.
// Runs the full retrieve, classify, synthesize flow and returns the
// answer with numbered citations.
func makeAskHandler(retriever Retriever, composer Composer) func(
	context.Context, *mcp.CallToolRequest, AskQuestionInput,
) (*mcp.CallToolResult, AskQuestionOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskQuestionInput) (
		*mcp.CallToolResult, AskQuestionOutput, error,
	) {
		if input.Question == "" {
			return nil, AskQuestionOutput{}, fmt.Errorf("question is required")
		}

		passages, err := retriever.Retrieve(ctx, input.Question, retrieval.DefaultAnswerProfile)
		if err != nil {
			return nil, AskQuestionOutput{}, fmt.Errorf("retrieval failed: %w", err)
		}

		resp, err := composer.Compose(ctx, input.Question, passages)
		if err != nil {
			return nil, AskQuestionOutput{}, fmt.Errorf("answer composition failed: %w", err)
		}

		sources := make([]SourceRef, len(resp.Sources))
		for i, s := range resp.Sources {
			sources[i] = SourceRef{N: s.N, Title: s.Title, URL: s.URL}
		}
		return nil, AskQuestionOutput{
			Intent:  string(resp.Intent),
			Answer:  resp.Answer,
			Sources: sources,
		}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
func makeStatusHandler(stats StatsProvider) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		s, err := stats.GetStats(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("failed to read index stats: %w", err)
		}
		return nil, StatusOutput{
			TotalDocs:   s.Documents,
			TotalChunks: s.Chunks,
		}, nil
	}
}
