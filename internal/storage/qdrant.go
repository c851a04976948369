package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// vectorName is the named vector carried by chunk points. Document
// points have no vector, which lets both live in one collection.
const vectorName = "content"

// QdrantStore persists documents and chunks and serves similarity
// search over chunk vectors.
type QdrantStore struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewQdrantStore creates a Qdrant client and validates connectivity.
// It performs a health check with retry on startup and fails fast if
// Qdrant is unreachable.
func NewQdrantStore(host string, port int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &QdrantStore{
		client: client,
		host:   host,
		port:   port,
	}

	ctx := context.Background()
	if err := store.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the knowledge collection if it doesn't
// exist: 1536-dimension cosine vectors plus payload indexes for the
// filterable fields. Idempotent.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     VectorDimension,
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return s.createPayloadIndexes(ctx)
}

func (s *QdrantStore) createPayloadIndexes(ctx context.Context) error {
	// Without these indexes filtering degrades badly on large collections.
	fields := []string{
		"type",   // "document" vs "chunk"
		"url",    // document lookup by URL
		"source", // origin site classification
		"doc_id", // chunk lookup/delete by parent
	}

	for _, field := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}

	return nil
}

// ClearCollection deletes all points and recreates the collection.
func (s *QdrantStore) ClearCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, CollectionName); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// UpsertDocument inserts or updates a document by URL and returns the
// stable point ID. The point ID is derived from the URL, so writing an
// existing URL overwrites its document point in place.
func (s *QdrantStore) UpsertDocument(ctx context.Context, doc *Document) (string, error) {
	id := doc.ID
	if id == "" {
		id = DocumentID(doc.URL)
	}

	payload := map[string]any{
		"type":       "document",
		"source":     doc.Source,
		"url":        doc.URL,
		"title":      doc.Title,
		"sha256":     doc.SHA256,
		"content":    doc.Content,
		"crawled_at": doc.CrawledAt.UTC().Format(time.RFC3339),
	}
	if doc.PublishedAt != nil {
		payload["published_at"] = doc.PublishedAt.UTC().Format(time.RFC3339)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(id),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{}),
		Payload: qdrant.NewValueMap(payload),
	}

	if err := s.upsertWithRetry(ctx, []*qdrant.PointStruct{point}); err != nil {
		return "", fmt.Errorf("failed to upsert document: %w", err)
	}
	return id, nil
}

// GetDocumentByURL retrieves a document by its URL.
// Returns ErrDocumentNotFound if no document exists for the URL.
func (s *QdrantStore) GetDocumentByURL(ctx context.Context, url string) (*Document, error) {
	id := DocumentID(url)

	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: CollectionName,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrDocumentNotFound
	}

	payload := result[0].Payload
	if typeVal, ok := payload["type"]; !ok || typeVal.GetStringValue() != "document" {
		return nil, ErrDocumentNotFound
	}

	doc := &Document{
		ID:      id,
		Source:  payload["source"].GetStringValue(),
		URL:     payload["url"].GetStringValue(),
		Title:   payload["title"].GetStringValue(),
		SHA256:  payload["sha256"].GetStringValue(),
		Content: payload["content"].GetStringValue(),
	}

	if crawledAt, err := time.Parse(time.RFC3339, payload["crawled_at"].GetStringValue()); err == nil {
		doc.CrawledAt = crawledAt
	}
	if pubVal, ok := payload["published_at"]; ok {
		if publishedAt, err := time.Parse(time.RFC3339, pubVal.GetStringValue()); err == nil {
			doc.PublishedAt = &publishedAt
		}
	}

	return doc, nil
}

// ReplaceChunks atomically swaps the chunk set for a document: all
// existing chunks for doc are deleted, then the new set is inserted.
// Chunk point IDs are derived from URL and index, so a same-size
// replacement is a pure overwrite and stale tails are removed by the
// preceding delete.
func (s *QdrantStore) ReplaceChunks(ctx context.Context, doc *Document, chunks []*Chunk) error {
	for i, chunk := range chunks {
		if len(chunk.Embedding) != VectorDimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), VectorDimension)
		}
	}

	docID := doc.ID
	if docID == "" {
		docID = DocumentID(doc.URL)
	}

	// Discard the previous chunk set first.
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("type", "chunk"),
				qdrant.NewMatch("doc_id", docID),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete existing chunks: %w", err)
	}

	if len(chunks) == 0 {
		return nil
	}

	batchSize := 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))

		for j, chunk := range batch {
			id := chunk.ID
			if id == "" {
				id = ChunkID(doc.URL, chunk.Index)
			}
			points[j] = &qdrant.PointStruct{
				Id: qdrant.NewIDUUID(id),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					vectorName: qdrant.NewVector(chunk.Embedding...),
				}),
				Payload: qdrant.NewValueMap(map[string]any{
					"type":        "chunk",
					"doc_id":      docID,
					"idx":         chunk.Index,
					"text":        chunk.Text,
					"token_count": chunk.TokenCount,
					"title":       doc.Title,
					"url":         doc.URL,
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert chunk batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// SimilaritySearch returns up to k chunks whose cosine similarity to
// the query vector meets minScore, ordered by descending score. Each
// row carries the parent document's title and URL.
func (s *QdrantStore) SimilaritySearch(ctx context.Context, vector []float32, k int, minScore float32) ([]*ScoredChunk, error) {
	if len(vector) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), VectorDimension)
	}

	using := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(vector...),
		Using:          &using,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("type", "chunk"),
			},
		},
		Limit:          qdrant.PtrOf(uint64(k)),
		ScoreThreshold: qdrant.PtrOf(minScore),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	rows := make([]*ScoredChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		rows = append(rows, &ScoredChunk{
			Chunk: Chunk{
				ID:         result.Id.GetUuid(),
				DocID:      payload["doc_id"].GetStringValue(),
				Index:      int(payload["idx"].GetIntegerValue()),
				Text:       payload["text"].GetStringValue(),
				TokenCount: int(payload["token_count"].GetIntegerValue()),
				Title:      payload["title"].GetStringValue(),
				URL:        payload["url"].GetStringValue(),
			},
			Score: float64(result.Score),
		})
	}

	return rows, nil
}

// Stats holds document and chunk counts for the collection.
type Stats struct {
	Documents uint64
	Chunks    uint64
}

// GetStats counts stored documents and chunks. Used by the crawl CLI
// summary and the MCP status tool.
func (s *QdrantStore) GetStats(ctx context.Context) (*Stats, error) {
	docs, err := s.countByType(ctx, "document")
	if err != nil {
		return nil, err
	}
	chunks, err := s.countByType(ctx, "chunk")
	if err != nil {
		return nil, err
	}
	return &Stats{Documents: docs, Chunks: chunks}, nil
}

func (s *QdrantStore) countByType(ctx context.Context, pointType string) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: CollectionName,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("type", pointType),
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s points: %w", pointType, err)
	}
	return count, nil
}
