// Package dhs provides a public client for scraping the Historical
// Dictionary of Switzerland as a library.
//
// Example usage:
//
//	client, err := dhs.NewClient(
//	    dhs.WithLanguage("de"),
//	    dhs.WithDelay(time.Second),
//	    dhs.WithParseArticles(true),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Search(ctx, []string{"Zwingli"}, func(a *article.Article) error {
//	    fmt.Println(a.ID(), *a.Title)
//	    return nil
//	})
package dhs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/IshaanNene/dhscrape/internal/article"
	"github.com/IshaanNene/dhscrape/internal/config"
	"github.com/IshaanNene/dhscrape/internal/crawler"
	"github.com/IshaanNene/dhscrape/internal/fetcher"
	"github.com/IshaanNene/dhscrape/internal/observability"
	"github.com/IshaanNene/dhscrape/internal/storage"
)

var bareIDRegex = regexp.MustCompile(`^(?:dhs-)?\d+$`)

// Client is the high-level API over the fetcher, the crawl controller and
// the article parsers.
type Client struct {
	cfg     *config.Config
	fetcher fetcher.Fetcher
	crawler *crawler.Crawler
	metrics *observability.Metrics
	logger  *slog.Logger
}

type settings struct {
	cfg     *config.Config
	logger  *slog.Logger
	fetcher fetcher.Fetcher
	metrics *observability.Metrics
}

// Option configures a Client.
type Option func(*settings)

// WithConfig replaces the default configuration. Later options still apply.
func WithConfig(cfg *config.Config) Option {
	return func(s *settings) { s.cfg = cfg }
}

// WithLanguage sets the edition used by searches and bare ids.
func WithLanguage(lang string) Option {
	return func(s *settings) { s.cfg.Scraper.Language = lang }
}

// WithDelay sets the politeness delay between requests.
func WithDelay(d time.Duration) Option {
	return func(s *settings) { s.cfg.Scraper.PolitenessDelay = d }
}

// WithMaxArticles caps the results of each listing.
func WithMaxArticles(n int) Option {
	return func(s *settings) { s.cfg.Scraper.MaxArticles = n }
}

// WithParseArticles makes crawls run every field parser on each article.
func WithParseArticles(parse bool) Option {
	return func(s *settings) { s.cfg.Scraper.ParseArticles = parse }
}

// WithBaseURL points listings to another host, e.g. a mirror.
func WithBaseURL(u string) Option {
	return func(s *settings) { s.cfg.Scraper.BaseURL = u }
}

// WithOutput sets the JSONL output path used by Save.
func WithOutput(path string) Option {
	return func(s *settings) {
		s.cfg.Storage.Type = "jsonl"
		s.cfg.Storage.OutputPath = path
	}
}

// WithLogger sets the logger. The default logs to stderr at info level.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithFetcher replaces the configured fetcher.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(s *settings) { s.fetcher = f }
}

// WithMetrics records crawl and storage metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(s *settings) { s.cfg.Logging.Level = "debug" }
}

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) (*Client, error) {
	s := &settings{cfg: config.DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if err := config.Validate(s.cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if s.logger == nil {
		level := slog.LevelInfo
		if s.cfg.Logging.Level == "debug" {
			level = slog.LevelDebug
		}
		s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	if s.cfg.Storage.IncludePageContent && s.cfg.Scraper.DropPages {
		s.logger.Warn("storage.include_page_content is set, keeping parsed pages despite scraper.drop_pages")
		s.cfg.Scraper.DropPages = false
	}

	if s.fetcher == nil {
		f, err := fetcher.New(s.cfg, s.logger)
		if err != nil {
			return nil, fmt.Errorf("create fetcher: %w", err)
		}
		s.fetcher = fetcher.NewRetryFetcher(f, s.cfg.Fetcher.MaxRetries, s.cfg.Fetcher.RetryDelay, s.logger)
	}

	c := &Client{
		cfg:     s.cfg,
		fetcher: s.fetcher,
		metrics: s.metrics,
		logger:  s.logger,
	}
	c.crawler = crawler.New(c.fetcher, &c.cfg.Scraper, c.logger,
		crawler.WithMetrics(c.metrics),
		crawler.WithArticleOptions(c.ArticleOptions()...),
	)
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() *config.Config { return c.cfg }

// Crawler returns the underlying crawl controller.
func (c *Client) Crawler() *crawler.Crawler { return c.crawler }

// ArticleOptions returns the options every article of this client uses.
func (c *Client) ArticleOptions() []article.Option {
	return []article.Option{
		article.WithFetcher(c.fetcher),
		article.WithLogger(c.logger),
		article.WithTextSeparator(c.cfg.Scraper.TextSeparator),
		article.WithMetagridURL(c.cfg.Scraper.MetagridURL),
	}
}

// NewArticle builds a stub from an article URL or a bare id. Bare ids use
// the client language.
func (c *Client) NewArticle(ref string) (*article.Article, error) {
	if bareIDRegex.MatchString(ref) {
		return article.New(article.Reference{Language: c.cfg.Scraper.Language, ID: ref}, c.ArticleOptions()...)
	}
	return article.FromURL(ref, c.ArticleOptions()...)
}

// Article downloads ref and runs every field parser on it.
func (c *Client) Article(ctx context.Context, ref string, opts ...article.ParseOption) (*article.Article, error) {
	a, err := c.NewArticle(ref)
	if err != nil {
		return nil, err
	}
	if err := a.ParseAll(ctx, opts...); err != nil {
		return a, err
	}
	return a, nil
}

func (c *Client) crawlOptions(visited *crawler.VisitedSet) crawler.Options {
	opts := crawler.OptionsFromConfig(&c.cfg.Scraper)
	opts.Visited = visited
	return opts
}

// Crawl walks a listing URL ending with the page offset parameter.
func (c *Client) Crawl(ctx context.Context, listingURL string, visited *crawler.VisitedSet, fn crawler.Handler) error {
	return c.crawler.Crawl(ctx, listingURL, c.crawlOptions(visited), fn)
}

// Search walks the keyword search results in the client language.
func (c *Client) Search(ctx context.Context, keywords []string, fn crawler.Handler) error {
	return c.crawler.Search(ctx, keywords, c.cfg.Scraper.Language, c.crawlOptions(nil), fn)
}

// ScrapeAll walks the whole alphabetical index in the client language.
// Ids in visited are skipped.
func (c *Client) ScrapeAll(ctx context.Context, visited *crawler.VisitedSet, fn crawler.Handler) error {
	return c.crawler.ScrapeAll(ctx, c.cfg.Scraper.Language, c.crawlOptions(visited), fn)
}

// NewWriter opens the configured storage behind a buffered writer.
func (c *Client) NewWriter() (*storage.Writer, error) {
	store, err := storage.New(&c.cfg.Storage, c.logger)
	if err != nil {
		return nil, err
	}
	return storage.NewWriter(store, c.logger,
		storage.WithBufferSize(c.cfg.Storage.BufferSize),
		storage.WithEncodeOptions(article.EncodeOptions{IncludePageContent: c.cfg.Storage.IncludePageContent}),
		storage.WithMetrics(c.metrics),
	), nil
}

// Save streams every article of a search to the configured storage and
// returns the number of records written.
func (c *Client) Save(ctx context.Context, keywords []string) (int, error) {
	w, err := c.NewWriter()
	if err != nil {
		return 0, err
	}
	crawlErr := c.Search(ctx, keywords, w.Write)
	closeErr := w.Close()
	if crawlErr != nil {
		return w.Written(), crawlErr
	}
	return w.Written(), closeErr
}

// Close releases the fetcher.
func (c *Client) Close() error {
	return c.fetcher.Close()
}
