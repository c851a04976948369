//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a test store and ensures the collection
// exists. Skips the test if Qdrant is not running.
func setupTestStore(t *testing.T) *QdrantStore {
	store, err := NewQdrantStore("localhost", 6334)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	err = store.EnsureCollection(context.Background())
	require.NoError(t, err, "Failed to ensure collection")

	return store
}

func testVector(seed float32) []float32 {
	v := make([]float32, VectorDimension)
	for i := range v {
		v[i] = seed / float32(i+1)
	}
	return v
}

func TestDocumentRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	published := now.Add(-48 * time.Hour)

	doc := &Document{
		Source:      "immi",
		URL:         "https://immi.homeaffairs.gov.au/visas/getting-a-visa/visa-listing/student-500",
		Title:       "Student visa (subclass 500)",
		PublishedAt: &published,
		SHA256:      "abc123",
		Content:     "The Student visa allows full-time study in Australia.",
		CrawledAt:   now,
	}

	id, err := store.UpsertDocument(ctx, doc)
	require.NoError(t, err, "Failed to upsert document")
	assert.Equal(t, DocumentID(doc.URL), id, "point ID should be derived from URL")

	retrieved, err := store.GetDocumentByURL(ctx, doc.URL)
	require.NoError(t, err, "Failed to get document")

	assert.Equal(t, doc.Source, retrieved.Source)
	assert.Equal(t, doc.URL, retrieved.URL)
	assert.Equal(t, doc.Title, retrieved.Title)
	assert.Equal(t, doc.SHA256, retrieved.SHA256)
	assert.Equal(t, doc.Content, retrieved.Content)
	require.NotNil(t, retrieved.PublishedAt)
	assert.WithinDuration(t, published, *retrieved.PublishedAt, time.Second)
	assert.WithinDuration(t, now, retrieved.CrawledAt, time.Second)
}

func TestGetDocumentByURL_NotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	_, err := store.GetDocumentByURL(context.Background(), "https://immi.homeaffairs.gov.au/never-crawled")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestUpsertDocument_SameURLOverwrites(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	url := "https://www.legislation.gov.au/C1958A00062/latest"

	first := &Document{Source: "legislation", URL: url, Title: "Migration Act 1958", SHA256: "v1", Content: "old", CrawledAt: time.Now()}
	second := &Document{Source: "legislation", URL: url, Title: "Migration Act 1958", SHA256: "v2", Content: "new", CrawledAt: time.Now()}

	id1, err := store.UpsertDocument(ctx, first)
	require.NoError(t, err)
	id2, err := store.UpsertDocument(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "same URL must map to the same point")

	got, err := store.GetDocumentByURL(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.SHA256)
	assert.Equal(t, "new", got.Content)
}

func TestReplaceChunks_DiscardsOldSet(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	doc := &Document{
		Source:    "immi",
		URL:       "https://immi.homeaffairs.gov.au/what-we-do/migration-strategy",
		Title:     "Migration strategy",
		SHA256:    "s1",
		Content:   "strategy text",
		CrawledAt: time.Now(),
	}
	doc.ID, _ = store.UpsertDocument(ctx, doc)

	// First version: 3 chunks.
	var old []*Chunk
	for i := 0; i < 3; i++ {
		old = append(old, &Chunk{
			Index:      i,
			Text:       fmt.Sprintf("old chunk %d", i),
			TokenCount: 3,
			Embedding:  testVector(float32(i + 1)),
		})
	}
	require.NoError(t, store.ReplaceChunks(ctx, doc, old))

	// Second version shrinks to 1 chunk; the stale tail must go.
	replacement := []*Chunk{{
		Index:      0,
		Text:       "new chunk 0",
		TokenCount: 3,
		Embedding:  testVector(9),
	}}
	require.NoError(t, store.ReplaceChunks(ctx, doc, replacement))

	rows, err := store.SimilaritySearch(ctx, testVector(9), 10, 0)
	require.NoError(t, err)

	for _, row := range rows {
		if row.DocID == doc.ID {
			assert.Equal(t, "new chunk 0", row.Text, "old chunks must be gone after replacement")
		}
	}
}

func TestSimilaritySearch_OrderingAndThreshold(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	doc := &Document{
		Source:    "immi",
		URL:       "https://immi.homeaffairs.gov.au/visas/getting-a-visa/visa-listing",
		Title:     "Visa listing",
		SHA256:    "s1",
		Content:   "visa listing text",
		CrawledAt: time.Now(),
	}
	doc.ID, _ = store.UpsertDocument(ctx, doc)

	chunks := []*Chunk{
		{Index: 0, Text: "student visas", TokenCount: 3, Embedding: testVector(1)},
		{Index: 1, Text: "partner visas", TokenCount: 3, Embedding: testVector(2)},
		{Index: 2, Text: "skilled visas", TokenCount: 3, Embedding: testVector(3)},
	}
	require.NoError(t, store.ReplaceChunks(ctx, doc, chunks))

	minScore := float32(0.2)
	rows, err := store.SimilaritySearch(ctx, testVector(1), 2, minScore)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(rows), 2, "k caps the result count")

	for i, row := range rows {
		assert.GreaterOrEqual(t, row.Score, float64(minScore))
		assert.Equal(t, doc.Title, row.Title, "rows carry the parent title")
		assert.Equal(t, doc.URL, row.URL, "rows carry the parent URL")
		if i > 0 {
			assert.LessOrEqual(t, row.Score, rows[i-1].Score, "scores must be non-increasing")
		}
	}
}

func TestSimilaritySearch_DimensionMismatch(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	_, err := store.SimilaritySearch(context.Background(), []float32{1, 2, 3}, 5, 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
