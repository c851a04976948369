// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default crawl scope: Department of Home Affairs visa/program pages
// and the federal legislation register (Migration Act and Regulations).
var (
	DefaultSeeds = []string{
		"https://immi.homeaffairs.gov.au/visas/getting-a-visa/visa-listing",
		"https://immi.homeaffairs.gov.au/visas/already-have-a-visa/check-visa-details-and-conditions/overview",
		"https://immi.homeaffairs.gov.au/what-we-do/migration-program-planning-levels",
		"https://immi.homeaffairs.gov.au/what-we-do/migration-strategy",
		"https://immi.homeaffairs.gov.au/news-media",
		"https://www.legislation.gov.au/C1958A00062/latest",
		"https://www.legislation.gov.au/F1996B03551/latest",
	}

	DefaultAllowHosts = []string{
		"immi.homeaffairs.gov.au",
		"www.homeaffairs.gov.au",
		"www.legislation.gov.au",
	}

	DefaultScopePrefixes = []string{
		"https://immi.homeaffairs.gov.au/visas",
		"https://immi.homeaffairs.gov.au/what-we-do",
		"https://www.legislation.gov.au/",
	}
)

// Qdrant holds connection parameters shared by every service.
type Qdrant struct {
	Host string
	Port int
}

// Crawl configures a crawl + ingest run.
type Crawl struct {
	Qdrant
	Seeds          []string
	AllowHosts     []string
	ScopePrefixes  []string
	MaxPages       int
	Delay          time.Duration
	Concurrency    int
	ChunkTokens    int
	EmbedBatchSize int
	FetchTimeout   time.Duration
}

// Server configures the question-answering HTTP/MCP server.
type Server struct {
	Qdrant
	BindAddr string

	// Search profile: higher recall, used by the raw search endpoint.
	SearchMatchCount     int
	SearchMatchThreshold float64

	// Answer profile: tighter grounding for composed answers.
	AnswerMatchCount     int
	AnswerMatchThreshold float64

	IntentModel string
	AnswerModel string
}

// LoadCrawl builds a Crawl config from environment variables.
func LoadCrawl() (*Crawl, error) {
	c := &Crawl{
		Qdrant:         loadQdrant(),
		Seeds:          getList("CRAWL_SEEDS", DefaultSeeds),
		AllowHosts:     getList("CRAWL_ALLOW_HOSTS", DefaultAllowHosts),
		ScopePrefixes:  getList("CRAWL_SCOPE_PREFIXES", DefaultScopePrefixes),
		MaxPages:       getInt("CRAWL_MAX_PAGES", 20),
		Delay:          getDuration("CRAWL_DELAY", "2s"),
		Concurrency:    getInt("CRAWL_CONCURRENCY", 1),
		ChunkTokens:    getInt("CRAWL_CHUNK_TOKENS", 500),
		EmbedBatchSize: getInt("EMBED_BATCH_SIZE", 8),
		FetchTimeout:   getDuration("FETCH_TIMEOUT", "15s"),
	}

	if len(c.Seeds) == 0 {
		return nil, fmt.Errorf("CRAWL_SEEDS must contain at least one URL")
	}
	if len(c.AllowHosts) == 0 {
		return nil, fmt.Errorf("CRAWL_ALLOW_HOSTS must contain at least one host")
	}
	if c.MaxPages <= 0 {
		return nil, fmt.Errorf("CRAWL_MAX_PAGES must be positive")
	}
	if c.Concurrency <= 0 {
		return nil, fmt.Errorf("CRAWL_CONCURRENCY must be positive")
	}
	if c.ChunkTokens <= 0 {
		return nil, fmt.Errorf("CRAWL_CHUNK_TOKENS must be positive")
	}

	return c, nil
}

// LoadServer builds a Server config from environment variables.
func LoadServer() (*Server, error) {
	c := &Server{
		Qdrant:               loadQdrant(),
		BindAddr:             "0.0.0.0:" + getEnv("PORT", "8080"),
		SearchMatchCount:     getInt("SEARCH_MATCH_COUNT", 6),
		SearchMatchThreshold: getFloat("SEARCH_MATCH_THRESHOLD", 0.2),
		AnswerMatchCount:     getInt("ANSWER_MATCH_COUNT", 8),
		AnswerMatchThreshold: getFloat("ANSWER_MATCH_THRESHOLD", 0.25),
		IntentModel:          getEnv("INTENT_MODEL", "gpt-4o-mini"),
		AnswerModel:          getEnv("ANSWER_MODEL", "gpt-4.1-mini"),
	}

	if c.SearchMatchCount <= 0 || c.AnswerMatchCount <= 0 {
		return nil, fmt.Errorf("match counts must be positive")
	}
	if c.SearchMatchThreshold < 0 || c.SearchMatchThreshold > 1 ||
		c.AnswerMatchThreshold < 0 || c.AnswerMatchThreshold > 1 {
		return nil, fmt.Errorf("match thresholds must be within [0,1]")
	}

	return c, nil
}

func loadQdrant() Qdrant {
	return Qdrant{
		Host: getEnv("QDRANT_HOST", "localhost"),
		Port: getInt("QDRANT_PORT", 6334),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
