// Package embedding converts text into fixed-dimension vectors via the
// OpenAI embeddings API.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// Model is the OpenAI model used for generating embeddings. The
	// same model must embed both chunks and queries or similarity
	// scores are meaningless.
	Model = "text-embedding-3-small"

	// Dimension is the vector size for text-embedding-3-small.
	// This matches storage.VectorDimension.
	Dimension = 1536

	// DefaultBatchSize keeps per-request payloads small. Chunks run a
	// few hundred tokens each, so single-digit batches stay well under
	// provider payload limits while still amortizing call overhead.
	DefaultBatchSize = 8
)

// Embedder generates embeddings in batches with exponential backoff on
// rate limit errors.
type Embedder struct {
	client    *Client
	batchSize int
}

// NewEmbedder creates an Embedder with the given client and batch size.
// A non-positive batchSize falls back to DefaultBatchSize.
func NewEmbedder(client *Client, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Embedder{
		client:    client,
		batchSize: batchSize,
	}
}

// EmbedBatch generates one embedding per input text, in input order.
// Requests are split into batches of the configured size; rate limit
// errors are retried with exponential backoff, other provider errors
// fail immediately.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var all [][]float32

	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		batch := texts[i:end]

		vectors, err := e.embedWithRetry(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, vectors...)
	}

	return all, nil
}

func (e *Embedder) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: Model,
		})
		if err != nil {
			if isRateLimitError(err) {
				return err // retry with backoff
			}
			return backoff.Permanent(err)
		}

		// API returns float64, storage keeps float32
		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return vectors, err
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
