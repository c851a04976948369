package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Retriever Retriever
	Composer  Composer
	Stats     StatsProvider
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "migration-kb-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search indexed Australian migration and legislation pages semantically. Returns ranked passages with source URLs. Use ask_question for a synthesized answer.",
	}, makeSearchHandler(cfg.Retriever))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question from the indexed government pages. Returns a grounded answer with numbered [n] citations and the cited sources.",
	}, makeAskHandler(cfg.Retriever, cfg.Composer))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the current size of the knowledge index: number of indexed pages and passages.",
	}, makeStatusHandler(cfg.Stats))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
