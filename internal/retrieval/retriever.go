// Package retrieval embeds a query and ranks stored chunks against it.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/migration-kb/internal/storage"
)

// Profile tunes a retrieval invocation. Both profiles are the same
// algorithm; only the recall/precision trade-off differs.
type Profile struct {
	K        int
	MinScore float32
}

// DefaultSearchProfile favours recall for the raw search endpoint.
var DefaultSearchProfile = Profile{K: 6, MinScore: 0.2}

// DefaultAnswerProfile is tighter, for grounding composed answers.
var DefaultAnswerProfile = Profile{K: 8, MinScore: 0.25}

// Searcher is the similarity-search slice of the document store.
type Searcher interface {
	SimilaritySearch(ctx context.Context, vector []float32, k int, minScore float32) ([]*storage.ScoredChunk, error)
}

// Embedder turns texts into embedding vectors, one per input.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever answers "which passages are relevant to this question".
type Retriever struct {
	embedder Embedder
	store    Searcher
	logger   *slog.Logger
}

// New creates a Retriever over the given embedder and store.
func New(embedder Embedder, store Searcher, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Retrieve embeds the query as a single-item batch and runs similarity
// search with the profile's bounds. An empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, profile Profile) ([]*storage.ScoredChunk, error) {
	vectors, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors for one input", len(vectors))
	}

	rows, err := r.store.SimilaritySearch(ctx, vectors[0], profile.K, profile.MinScore)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	r.logger.Debug("retrieved passages", "query", query, "count", len(rows), "k", profile.K, "min_score", profile.MinScore)
	return rows, nil
}
