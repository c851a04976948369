// Package main provides the question-answering server entry point.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/migration-kb/internal/answer"
	"github.com/bull/migration-kb/internal/api"
	"github.com/bull/migration-kb/internal/config"
	"github.com/bull/migration-kb/internal/embedding"
	"github.com/bull/migration-kb/internal/logger"
	mcpserver "github.com/bull/migration-kb/internal/mcp"
	"github.com/bull/migration-kb/internal/retrieval"
	"github.com/bull/migration-kb/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	slogger := logger.New("server")

	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Initialize storage
	store, err := storage.NewQdrantStore(cfg.Host, cfg.Port)
	if err != nil {
		log.Fatalf("failed to connect to Qdrant: %v", err)
	}
	defer store.Close()

	// Ensure collection exists
	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("failed to ensure collection: %v", err)
	}

	// Initialize embedding client; the answer composer reuses the same
	// OpenAI connection for chat completions.
	embeddingClient, err := embedding.NewClient()
	if err != nil {
		log.Fatalf("failed to create embedding client: %v", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0) // Use default batch size

	retriever := retrieval.New(embedder, store, slogger)
	composer := answer.NewComposer(
		answer.NewOpenAIChat(embeddingClient.Client()),
		cfg.IntentModel,
		cfg.AnswerModel,
		slogger,
	)

	// Create MCP server
	server := mcpserver.NewServer(&mcpserver.Config{
		Retriever: retriever,
		Composer:  composer,
		Stats:     store,
	})

	// HTTP surface: landing page, MCP transport, and the REST API
	apiRouter := api.NewServer(cfg, retriever, composer, store, slogger).Router()

	mux := http.NewServeMux()
	mux.Handle("/", mcpserver.NewLandingHandler())
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))
	mux.Handle("/api/", apiRouter)
	mux.Handle("/health", apiRouter)

	// Check if running in server mode (HTTP) or stdio mode (local development)
	serverMode := os.Getenv("SERVER_MODE") == "true"

	if serverMode {
		slogger.Info("starting HTTP server", "addr", cfg.BindAddr)
		if err := serveHTTP(ctx, cfg.BindAddr, mux); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	}

	// Stdio mode: run MCP over stdin/stdout for local clients, with the
	// HTTP surface in the background for health checks and the REST API.
	go func() {
		slogger.Info("starting background HTTP server", "addr", cfg.BindAddr)
		if err := serveHTTP(ctx, cfg.BindAddr, mux); err != nil {
			slogger.Error("background HTTP server stopped", "err", err)
		}
	}()

	slogger.Info("starting MCP server (stdio mode)")
	if err := server.Run(ctx); err != nil {
		slogger.Error("MCP server stopped", "err", err)
		os.Exit(1)
	}
}

// serveHTTP runs the server until ctx is cancelled, then drains
// in-flight requests.
func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
