// Package main provides the crawl CLI for the migration knowledge base.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/migration-kb/internal/chunk"
	"github.com/bull/migration-kb/internal/config"
	"github.com/bull/migration-kb/internal/crawler"
	"github.com/bull/migration-kb/internal/embedding"
	"github.com/bull/migration-kb/internal/fetch"
	"github.com/bull/migration-kb/internal/ingest"
	"github.com/bull/migration-kb/internal/logger"
	"github.com/bull/migration-kb/internal/storage"
)

var fullRebuild bool

var rootCmd = &cobra.Command{
	Use:   "migration-kb",
	Short: "Migration knowledge base indexing tool",
	Long:  "CLI tool for crawling Australian migration and legislation pages into Qdrant",
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl configured government pages and index them",
	Long: `Crawls the configured seed pages, extracts readable content, and
indexes new or changed pages into Qdrant.

This command:
1. Connects to Qdrant and verifies health
2. Crawls seed URLs breadth-first within the configured scope
3. Extracts readable text and splits it into passages
4. Embeds passages for pages whose content hash changed
5. Upserts documents and replaces their passages in Qdrant

Unchanged pages are detected by content hash and skipped, so repeated
runs are cheap. Use --full to clear the collection and rebuild.

Environment variables:
  QDRANT_HOST      Qdrant hostname (default: localhost)
  QDRANT_PORT      Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY   OpenAI API key for embeddings (required)
  CRAWL_SEEDS      Comma-separated seed URLs
  CRAWL_MAX_PAGES  Page cap per run (default: 20)
  CRAWL_DELAY      Politeness delay between fetches (default: 2s)`,
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().BoolVar(&fullRebuild, "full", false, "clear the collection and rebuild from scratch")
	rootCmd.AddCommand(crawlCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()
	log := logger.New("crawl")

	cfg, err := config.LoadCrawl()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Println("Starting crawl...")
	fmt.Println()

	// 1. Connect to Qdrant
	fmt.Printf("Connecting to Qdrant at %s:%d...\n", cfg.Host, cfg.Port)
	store, err := storage.NewQdrantStore(cfg.Host, cfg.Port)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()

	// 2. Check health
	if err := store.Health(ctx); err != nil {
		return fmt.Errorf("Qdrant health check failed: %w", err)
	}
	fmt.Println("Qdrant healthy")

	// 3. Ensure collection exists
	if err := store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	if fullRebuild {
		fmt.Println()
		fmt.Println("Clearing existing collection...")
		if err := store.ClearCollection(ctx); err != nil {
			return fmt.Errorf("failed to clear collection: %w", err)
		}
		fmt.Println("Collection cleared")
	}

	// 4. Initialize embedding client
	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, cfg.EmbedBatchSize)

	// 5. Crawl
	fmt.Println()
	fmt.Printf("Crawling %d seed pages (max %d captures)...\n", len(cfg.Seeds), cfg.MaxPages)
	fetcher := fetch.New(cfg.FetchTimeout, fetch.DefaultUserAgent)
	c := crawler.New(fetcher, crawler.Policy{
		AllowHosts:    cfg.AllowHosts,
		ScopePrefixes: cfg.ScopePrefixes,
		MaxPages:      cfg.MaxPages,
		Delay:         cfg.Delay,
		Concurrency:   cfg.Concurrency,
	}, log)

	captures, err := c.Run(ctx, cfg.Seeds)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	fmt.Printf("Captured %d pages\n", len(captures))

	// 6. Ingest
	fmt.Println()
	fmt.Println("Indexing captured pages...")
	pipeline := ingest.NewPipeline(chunk.New(cfg.ChunkTokens), embedder, store, log)
	result := pipeline.IngestAll(ctx, captures)

	// 7. Print results
	fmt.Println()
	fmt.Println("Crawl complete!")
	fmt.Printf("  Pages:     %d captured\n", result.TotalPages)
	fmt.Printf("  Indexed:   %d (unchanged: %d, skipped: %d)\n",
		result.IngestedDocs, result.UnchangedDocs, result.SkippedPages)
	fmt.Printf("  Passages:  %d\n", result.TotalChunks)
	fmt.Printf("  Duration:  %s\n", result.Duration.Round(time.Second))

	if len(result.FailedDocs) > 0 {
		fmt.Println()
		fmt.Println("Failed pages:")
		for _, failed := range result.FailedDocs {
			fmt.Printf("  - %s: %s\n", failed.URL, failed.Reason)
		}
	}

	// 8. Final index stats
	if stats, err := store.GetStats(ctx); err == nil {
		fmt.Println()
		fmt.Printf("Index now holds %d documents and %d passages\n", stats.Documents, stats.Chunks)
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))

	return nil
}
