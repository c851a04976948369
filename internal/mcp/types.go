// Package mcp exposes the knowledge base over the Model Context Protocol.
package mcp

// SearchKnowledgeInput defines the input parameters for the search_knowledge tool.
type SearchKnowledgeInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query for finding relevant passages"`
	// MaxResults is the maximum number of passages to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"minimum=1,maximum=20,default=6,description=Maximum number of passages to return"`
	// MinScore is the minimum relevance threshold (0-1).
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum=0,maximum=1,default=0.2,description=Minimum relevance score threshold (0-1)"`
}

// SearchKnowledgeOutput contains the search results.
type SearchKnowledgeOutput struct {
	// Results is the list of matching passages, best first.
	Results []KnowledgeResult `json:"results"`
	// Message provides informational context (e.g., "No matching passages found").
	Message string `json:"message,omitempty"`
}

// KnowledgeResult represents a single passage match from semantic search.
type KnowledgeResult struct {
	// Text is the passage content.
	Text string `json:"text"`
	// Title is the source page title.
	Title string `json:"title"`
	// URL is the source page URL.
	URL string `json:"url"`
	// Score is the similarity score (0-1).
	Score float64 `json:"score"`
}

// AskQuestionInput defines the input parameters for the ask_question tool.
type AskQuestionInput struct {
	// Question is the user question to answer from the knowledge base.
	Question string `json:"question" jsonschema:"required,description=The question to answer from indexed government pages"`
}

// AskQuestionOutput contains the synthesized answer with citations.
type AskQuestionOutput struct {
	// Intent is the classified question intent.
	Intent string `json:"intent"`
	// Answer is the synthesized answer with [n] citation markers.
	Answer string `json:"answer"`
	// Sources lists the cited pages, numbered to match the markers.
	Sources []SourceRef `json:"sources"`
}

// SourceRef is one numbered citation source.
type SourceRef struct {
	N     int    `json:"n"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// StatusInput defines the input parameters for the get_index_status tool.
// This tool takes no parameters.
type StatusInput struct {
	// No input parameters required
}

// StatusOutput contains the current index counts.
type StatusOutput struct {
	// TotalDocs is the number of indexed pages.
	TotalDocs uint64 `json:"total_docs"`
	// TotalChunks is the number of indexed passages.
	TotalChunks uint64 `json:"total_chunks"`
}
