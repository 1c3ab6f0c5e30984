package main

import (
	"context"
	"io"
	"time"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/crawl"
	"github.com/fwojciec/sitechat/embedding"
)

// SiteCrawler crawls configured sites.
type SiteCrawler interface {
	CrawlSite(ctx context.Context, name string, maxDepthOverride *int) (*crawl.Summary, error)
}

// PendingEmbedder embeds content that lacks fragments.
type PendingEmbedder interface {
	EmbedAllPending(ctx context.Context) (*embedding.Summary, error)
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer

	Registry  sitechat.SiteRegistry
	Stats     sitechat.StatsService
	Crawler   SiteCrawler
	Embedder  PendingEmbedder
	Retriever sitechat.Retriever
	Asker     sitechat.Asker

	// RetrieveOptions are the configured retrieval bounds.
	RetrieveOptions sitechat.RetrieveOptions
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config `embed:""`

	Sites    SitesCmd    `cmd:"" help:"List configured sites"`
	Crawl    CrawlCmd    `cmd:"" help:"Crawl a configured site and store new pages"`
	Embed    EmbedCmd    `cmd:"" help:"Embed every page that is not fully embedded"`
	Retrieve RetrieveCmd `cmd:"" help:"Show the fragments retrieved for one or more queries"`
	Ask      AskCmd      `cmd:"" help:"Answer a question from the indexed sites"`
	Status   StatusCmd   `cmd:"" help:"Show crawl and embedding counts per site"`
}

// Config holds settings shared by all commands. Every setting can be
// provided through its environment variable.
type Config struct {
	DB          string `name:"db" env:"SITECHAT_DB" help:"SQLite database path (default ~/.sitechat/sitechat.db)"`
	DatabaseURL string `name:"database-url" env:"DATABASE_URL" help:"PostgreSQL connection URL; used instead of SQLite when set"`
	RedisURL    string `name:"redis-url" env:"REDIS_URL" help:"Redis URL of the embedding cache"`
	SitesFile   string `name:"sites-file" env:"SITES_FILE" help:"YAML or JSON file with site definitions"`
	SitesConfig string `name:"sites-config" env:"SITES_CONFIG" default:"${sites_config}" help:"Inline site definitions, used when no sites file is given"`
	Verbose     bool   `short:"v" help:"Log every fetch and embedding call"`

	MaxDepth         int           `name:"default-max-depth" env:"MAX_DEPTH" default:"3" help:"Crawl depth for sites without their own"`
	MaxContentLength int           `env:"MAX_CONTENT_LENGTH" default:"100000" help:"Maximum stored characters per page"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" default:"30s" help:"Page fetch timeout"`
	RequestDelay     time.Duration `env:"REQUEST_DELAY" default:"1s" help:"Delay between page fetches to one host"`
	RespectRobots    bool          `env:"RESPECT_ROBOTS" help:"Skip URLs disallowed by robots.txt"`

	GeminiAPIKey        string `name:"gemini-api-key" env:"GEMINI_API_KEY" help:"Gemini API key"`
	EmbeddingModel      string `env:"GEMINI_EMBEDDING_MODEL" default:"gemini-embedding-001" help:"Embedding model"`
	EmbeddingDimensions int    `env:"GEMINI_EMBEDDING_DIMENSIONS" default:"1536" help:"Embedding vector length"`
	QueryModel          string `env:"QUERY_ANALYSIS_MODEL" default:"gemini-2.5-flash" help:"Model that expands questions into queries"`
	ResponseModel       string `env:"RESPONSE_MODEL" default:"gemini-2.5-flash" help:"Model that writes answers"`
	MaxContextTokens    int    `env:"MAX_CONTEXT_TOKENS" default:"0" help:"Token budget of the answer prompt; 0 disables trimming"`

	DocumentsPerQuery int `env:"DOCUMENTS_PER_QUERY" default:"5" help:"Fragments retrieved per query"`
	MaxTotalDocuments int `env:"MAX_TOTAL_DOCUMENTS" default:"15" help:"Maximum fragments per question"`
	ChunkSize         int `env:"CHUNK_SIZE" default:"1000" help:"Maximum fragment length in characters"`
	ChunkOverlap      int `env:"CHUNK_OVERLAP" default:"150" help:"Characters shared by consecutive fragments"`

	APIDelay              time.Duration `name:"api-delay" env:"API_DELAY" default:"1s" help:"Minimum spacing between API calls"`
	MaxRetries            int           `env:"MAX_RETRIES" default:"3" help:"Retries of rate-limited API calls"`
	RetryDelay            time.Duration `env:"RETRY_DELAY" default:"2s" help:"Backoff before the first retry"`
	MaxConcurrentRequests int           `env:"MAX_CONCURRENT_REQUESTS" default:"1" help:"Maximum API calls in flight"`
}

// SitesCmd is the "sites" subcommand.
type SitesCmd struct{}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	Site     string `arg:"" help:"Configured site name"`
	MaxDepth int    `name:"max-depth" default:"-1" help:"Override the crawl depth"`
}

// EmbedCmd is the "embed" subcommand.
type EmbedCmd struct{}

// RetrieveCmd is the "retrieve" subcommand.
type RetrieveCmd struct {
	Queries  []string `arg:"" help:"Search queries"`
	PerQuery int      `name:"per-query" help:"Fragments retrieved per query"`
	Cap      int      `help:"Maximum fragments returned"`
}

// AskCmd is the "ask" subcommand.
type AskCmd struct {
	Question string `arg:"" help:"Question to answer"`
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct{}
