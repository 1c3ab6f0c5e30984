package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/chunk"
	"github.com/fwojciec/sitechat/crawl"
	"github.com/fwojciec/sitechat/embedding"
	"github.com/fwojciec/sitechat/gemini"
	"github.com/fwojciec/sitechat/goquery"
	sitechathttp "github.com/fwojciec/sitechat/http"
	"github.com/fwojciec/sitechat/postgres"
	sitechatredis "github.com/fwojciec/sitechat/redis"
	"github.com/fwojciec/sitechat/retry"
	"github.com/fwojciec/sitechat/search"
	sitechatslog "github.com/fwojciec/sitechat/slog"
	"github.com/fwojciec/sitechat/sqlite"
	"github.com/fwojciec/sitechat/yaml"
	"github.com/redis/go-redis/v9"
	"google.golang.org/genai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// defaultSitesConfig is used when neither SITES_FILE nor SITES_CONFIG is set.
const defaultSitesConfig = `{"gitlab": [{"url": "https://handbook.gitlab.com/handbook/", "enabled": true}, {"url": "https://about.gitlab.com/direction/", "enabled": true}]}`

// Main represents the program.
type Main struct {
	// Store backing the services. Opened by Run.
	Store *Store

	// Redis client of the embedding cache, when configured.
	Redis *redis.Client

	// Logger is built from the parsed flags.
	Logger *slog.Logger
}

// NewMain returns a new instance of Main.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.Redis != nil {
		m.Redis.Close()
	}
	if m.Store != nil {
		return m.Store.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("sitechat"),
		kong.Description("Crawl websites, embed their pages and answer questions about them."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Vars{"sites_config": defaultSitesConfig},
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'sitechat --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := kongCtx.Selected().Name
	cfg := cli.Config

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	m.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	registry, err := loadRegistry(cfg)
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Check SITES_FILE or SITES_CONFIG")
		return err
	}
	deps.Registry = registry
	deps.RetrieveOptions = sitechat.RetrieveOptions{
		PerQueryLimit: cfg.DocumentsPerQuery,
		GlobalCap:     cfg.MaxTotalDocuments,
	}

	if cmd == "sites" {
		return kongCtx.Run(deps)
	}

	m.Store, err = OpenStore(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Set SITECHAT_DB or DATABASE_URL to use a different database")
		return err
	}
	defer m.Close()
	deps.Stats = m.Store.Stats

	switch cmd {
	case "crawl":
		deps.Crawler = m.newCoordinator(cfg, deps.Registry, stderr)
	case "embed", "retrieve", "ask":
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Get an API key at https://aistudio.google.com/apikey")
			return fmt.Errorf("failed to connect to Gemini API: %w", err)
		}
		if err := m.wireGemini(ctx, deps, cfg, client, cmd == "ask"); err != nil {
			return err
		}
	}

	return kongCtx.Run(deps)
}

func loadRegistry(cfg Config) (*yaml.Registry, error) {
	if cfg.SitesFile != "" {
		return yaml.Load(cfg.SitesFile)
	}
	return yaml.Parse([]byte(cfg.SitesConfig))
}

// newCoordinator builds the crawl pipeline: a polite HTTP fetcher, goquery
// extraction and the breadth-first crawler.
func (m *Main) newCoordinator(cfg Config, registry sitechat.SiteRegistry, progress io.Writer) *crawl.Coordinator {
	httpFetcher := sitechathttp.NewFetcher(sitechathttp.WithTimeout(cfg.RequestTimeout))

	var fetcher sitechat.Fetcher = httpFetcher
	if cfg.Verbose {
		fetcher = sitechatslog.NewLoggingFetcher(fetcher, m.Logger)
	}
	fetcher = crawl.NewLimitedFetcher(fetcher, crawl.NewDomainLimiter(cfg.RequestDelay))

	crawler := crawl.NewCrawler(fetcher, goquery.NewLinkExtractor())
	crawler.Logger = m.Logger
	if cfg.RespectRobots {
		crawler.Robots = sitechathttp.NewRobotsPolicy(httpFetcher.Client(), httpFetcher.UserAgent(), m.Logger)
	}

	content := crawl.NewContentFetcher(fetcher, goquery.NewExtractor(cfg.MaxContentLength))
	content.Logger = m.Logger

	var sitemaps sitechat.SitemapService = sitechathttp.NewSitemapService(httpFetcher.Client(), httpFetcher.UserAgent())
	if cfg.Verbose {
		sitemaps = sitechatslog.NewLoggingSitemapService(sitemaps, m.Logger)
	}

	return &crawl.Coordinator{
		Registry:        registry,
		Sites:           m.Store.Sites,
		URLs:            m.Store.URLs,
		Pages:           m.Store.Pages,
		Crawler:         crawler,
		Content:         content,
		Sitemaps:        sitemaps,
		DefaultMaxDepth: cfg.MaxDepth,
		Progress:        crawlProgress(progress),
		Logger:          m.Logger,
	}
}

// wireGemini builds the embedding chain and, per command, the pipeline,
// retriever or asker.
func (m *Main) wireGemini(ctx context.Context, deps *Dependencies, cfg Config, client *genai.Client, countTokens bool) error {
	executor := retry.NewExecutor(retry.Config{
		MaxRetries:  cfg.MaxRetries,
		BaseDelay:   cfg.RetryDelay,
		MaxDelay:    retry.DefaultMaxDelay,
		Jitter:      retry.DefaultJitter,
		Interval:    cfg.APIDelay,
		Concurrency: cfg.MaxConcurrentRequests,
	})
	executor.Logger = m.Logger

	geminiEmbedder := gemini.NewEmbedder(client.Models, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	var embedder sitechat.Embedder = geminiEmbedder
	if cfg.Verbose {
		embedder = sitechatslog.NewLoggingEmbedder(embedder, m.Logger)
	}
	embedder = retry.NewEmbedder(embedder, executor)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return sitechat.Errorf(sitechat.ECONFIG, "invalid REDIS_URL: %v", err)
		}
		m.Redis = redis.NewClient(opts)
		if err := m.Redis.Ping(ctx).Err(); err != nil {
			m.Logger.Warn("embedding cache unavailable", "error", err)
		}
		cache := sitechatredis.NewEmbeddingCache(m.Redis, embedder,
			geminiEmbedder.Model()+":"+strconv.Itoa(geminiEmbedder.Dimensions()))
		cache.Logger = m.Logger
		embedder = cache
	}

	pipeline := embedding.NewPipeline(m.Store.Contents, m.Store.Fragments,
		chunk.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap), embedder)
	pipeline.Dimensions = geminiEmbedder.Dimensions()
	pipeline.Concurrency = cfg.MaxConcurrentRequests
	pipeline.Logger = m.Logger
	pipeline.Progress = embedProgress(deps.Stderr)
	deps.Embedder = pipeline

	aggregator := search.NewAggregator(embedder, m.Store.Searcher)
	aggregator.Concurrency = cfg.MaxConcurrentRequests
	aggregator.Logger = m.Logger
	deps.Retriever = aggregator

	expander := gemini.NewQueryExpander(client.Models, executor, cfg.QueryModel)
	expander.Logger = m.Logger
	asker := gemini.NewAsker(client.Models, expander, aggregator, executor, cfg.ResponseModel)
	asker.Options = deps.RetrieveOptions
	asker.Logger = m.Logger
	if countTokens && cfg.MaxContextTokens > 0 {
		tokens, err := gemini.NewTokenCounter(cfg.ResponseModel)
		if err != nil {
			return fmt.Errorf("failed to create token counter: %w", err)
		}
		tokens.System = gemini.BuildConfig().SystemInstruction
		asker.Tokens = tokens
		asker.MaxContextTokens = cfg.MaxContextTokens
	}
	deps.Asker = asker

	return nil
}

// Store groups the services of one storage backend.
type Store struct {
	Sites     sitechat.SiteService
	URLs      sitechat.URLService
	Pages     sitechat.PageWriter
	Contents  sitechat.ContentService
	Fragments sitechat.FragmentService
	Searcher  sitechat.FragmentSearcher
	Stats     sitechat.StatsService

	close func() error
}

// Close releases the backend's connections.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStore opens PostgreSQL when a database URL is configured and SQLite
// otherwise.
func OpenStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DatabaseURL != "" {
		db := postgres.NewDB(cfg.DatabaseURL)
		if err := db.Open(ctx); err != nil {
			return nil, fmt.Errorf("failed to open postgres database: %w", err)
		}
		urls := postgres.NewURLService(db)
		fragments := postgres.NewFragmentService(db)
		return &Store{
			Sites:     postgres.NewSiteService(db),
			URLs:      urls,
			Pages:     urls,
			Contents:  postgres.NewContentService(db),
			Fragments: fragments,
			Searcher:  fragments,
			Stats:     postgres.NewStatsService(db),
			close:     db.Close,
		}, nil
	}

	path := cfg.DB
	if path == "" {
		path = defaultDBPath()
	}
	db := sqlite.NewDB(path)
	if err := db.Open(); err != nil {
		return nil, fmt.Errorf("failed to open database at %q: %w", path, err)
	}
	urls := sqlite.NewURLService(db)
	fragments := sqlite.NewFragmentService(db)
	return &Store{
		Sites:     sqlite.NewSiteService(db),
		URLs:      urls,
		Pages:     urls,
		Contents:  sqlite.NewContentService(db),
		Fragments: fragments,
		Searcher:  fragments,
		Stats:     sqlite.NewStatsService(db),
		close:     db.Close,
	}, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sitechat.db"
	}
	dir := filepath.Join(home, ".sitechat")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "sitechat.db")
}
