// Package ingest drives crawled captures through extraction, change
// detection, chunking, embedding and storage.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/bull/migration-kb/internal/chunk"
	"github.com/bull/migration-kb/internal/crawler"
	"github.com/bull/migration-kb/internal/extract"
	"github.com/bull/migration-kb/internal/fingerprint"
	"github.com/bull/migration-kb/internal/storage"
)

// MinContentLength is the threshold below which an extracted page is
// treated as non-substantive and skipped.
const MinContentLength = 500

// Store is the slice of the document store the pipeline writes to.
type Store interface {
	GetDocumentByURL(ctx context.Context, url string) (*storage.Document, error)
	UpsertDocument(ctx context.Context, doc *storage.Document) (string, error)
	ReplaceChunks(ctx context.Context, doc *storage.Document, chunks []*storage.Chunk) error
}

// Embedder turns texts into embedding vectors, one per input.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Result contains statistics about one ingestion run.
type Result struct {
	TotalPages    int
	IngestedDocs  int
	UnchangedDocs int
	SkippedPages  int
	FailedDocs    []FailedDoc
	TotalChunks   int
	Duration      time.Duration
}

// FailedDoc records a document whose ingestion was abandoned.
type FailedDoc struct {
	URL    string
	Reason string
}

// Pipeline materializes the knowledge base from raw crawl captures.
type Pipeline struct {
	chunker  *chunk.Chunker
	embedder Embedder
	store    Store
	logger   *slog.Logger
}

// NewPipeline creates an ingestion pipeline with the given components.
func NewPipeline(chunker *chunk.Chunker, embedder Embedder, store Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// errNotSubstantive marks pages skipped for lacking usable content.
var errNotSubstantive = errors.New("content too short")

// errUnchanged marks documents whose fingerprint matched the store.
var errUnchanged = errors.New("content unchanged")

// IngestAll processes every capture, isolating failures per document:
// an embedding or store failure abandons that document only and the
// run continues.
func (p *Pipeline) IngestAll(ctx context.Context, captures []crawler.Capture) *Result {
	start := time.Now()
	result := &Result{TotalPages: len(captures)}

	for _, capture := range captures {
		chunks, err := p.ingestPage(ctx, capture)
		switch {
		case err == nil:
			result.IngestedDocs++
			result.TotalChunks += chunks
		case errors.Is(err, errUnchanged):
			result.UnchangedDocs++
			p.logger.Debug("document unchanged", "url", capture.URL)
		case errors.Is(err, errNotSubstantive):
			result.SkippedPages++
			p.logger.Debug("skipping non-substantive page", "url", capture.URL)
		default:
			p.logger.Warn("failed to ingest page", "url", capture.URL, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{
				URL:    capture.URL,
				Reason: err.Error(),
			})
		}
	}

	result.Duration = time.Since(start)
	p.logger.Info("ingestion complete",
		"ingested", result.IngestedDocs,
		"unchanged", result.UnchangedDocs,
		"skipped", result.SkippedPages,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)

	return result
}

// ingestPage handles the full pipeline for a single capture and
// returns the number of chunks written.
func (p *Pipeline) ingestPage(ctx context.Context, capture crawler.Capture) (int, error) {
	page, err := extract.Extract(capture.HTML)
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}
	if len(page.Content) < MinContentLength {
		return 0, errNotSubstantive
	}

	hash := fingerprint.Hash(page.Content)

	existing, err := p.store.GetDocumentByURL(ctx, capture.URL)
	if err != nil && !errors.Is(err, storage.ErrDocumentNotFound) {
		return 0, fmt.Errorf("lookup document: %w", err)
	}
	if existing != nil && !fingerprint.ShouldUpdate(existing.SHA256, hash) {
		return 0, errUnchanged
	}

	doc := &storage.Document{
		Source:      classifySource(capture.URL),
		URL:         capture.URL,
		Title:       page.Title,
		PublishedAt: page.PublishedAt,
		SHA256:      hash,
		Content:     page.Content,
		CrawledAt:   time.Now().UTC(),
	}

	passages := p.chunker.Split(page.Content)
	if len(passages) == 0 {
		// No blank-line paragraphs at all: fall back to a fixed-length
		// prefix of the raw text as a single passage.
		prefix := chunk.Truncate(page.Content, p.chunker.Budget()*4)
		passages = []chunk.Passage{{Index: 0, Text: prefix, Tokens: chunk.EstimateTokens(prefix)}}
	}

	texts := make([]string, len(passages))
	for i, passage := range passages {
		texts[i] = passage.Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(passages) {
		return 0, fmt.Errorf("embed: got %d vectors for %d passages", len(vectors), len(passages))
	}

	doc.ID = storage.DocumentID(doc.URL)
	chunks := make([]*storage.Chunk, len(passages))
	for i, passage := range passages {
		chunks[i] = &storage.Chunk{
			DocID:      doc.ID,
			Index:      passage.Index,
			Text:       passage.Text,
			TokenCount: passage.Tokens,
			Title:      doc.Title,
			URL:        doc.URL,
			Embedding:  vectors[i],
		}
	}

	// Chunks land before the document record does. If the chunk write
	// fails the stored document keeps its old hash, so the next run
	// retries this page instead of skipping it with missing chunks.
	if err := p.store.ReplaceChunks(ctx, doc, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	if _, err := p.store.UpsertDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("store document: %w", err)
	}

	p.logger.Info("ingested document", "url", capture.URL, "title", doc.Title, "chunks", len(chunks))
	return len(chunks), nil
}

// classifySource buckets a URL by origin site.
func classifySource(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "homeaffairs"
	}
	host := u.Hostname()
	switch {
	case strings.Contains(host, "legislation"):
		return "legislation"
	case strings.Contains(host, "immi"):
		return "immi"
	default:
		return "homeaffairs"
	}
}
