package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Document is a crawled page stored in Qdrant. Document points carry no
// embedding vector; they exist for change detection and full-content
// retrieval. A document is uniquely identified by its source URL.
type Document struct {
	ID          string     // UUID derived from URL
	Source      string     // Origin site classification: "immi", "homeaffairs", "legislation"
	URL         string     // Canonical page URL, unique per document
	Title       string     // Page title
	PublishedAt *time.Time // Best-effort publication time, nil when unknown
	SHA256      string     // Digest of the normalized content
	Content     string     // Full normalized text
	CrawledAt   time.Time  // When this version was ingested
}

// Chunk is a token-budgeted span of a document with an embedding
// vector. Title and URL are denormalized from the parent so similarity
// results need no second lookup.
type Chunk struct {
	ID         string    // UUID derived from URL and index
	DocID      string    // Parent Document.ID
	Index      int       // Zero-based position in document
	Text       string    // Passage text
	TokenCount int       // Estimated token count
	Title      string    // Parent document title
	URL        string    // Parent document URL
	Embedding  []float32 // 1536-dim vector (text-embedding-3-small)
}

// ScoredChunk is a similarity search row: a chunk plus its score
// against the query vector.
type ScoredChunk struct {
	Chunk
	Score float64
}

// CollectionName is the single Qdrant collection for documents and chunks.
const CollectionName = "knowledge"

// VectorDimension is the embedding size for text-embedding-3-small.
const VectorDimension = 1536

// DocumentID returns the stable point ID for a URL. Using a name-based
// UUID makes upsert-by-URL a plain Qdrant point overwrite.
func DocumentID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// ChunkID returns the stable point ID for a chunk of the given URL.
func ChunkID(url string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", url, index))).String()
}
