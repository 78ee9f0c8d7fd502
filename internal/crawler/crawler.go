// Package crawler walks DHS search listings and yields article stubs.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/dhscrape/internal/article"
	"github.com/IshaanNene/dhscrape/internal/config"
	"github.com/IshaanNene/dhscrape/internal/fetcher"
	"github.com/IshaanNene/dhscrape/internal/observability"
	"github.com/IshaanNene/dhscrape/internal/parser"
	"github.com/IshaanNene/dhscrape/internal/types"
)

// Alphabet is the set of initial letters walked by ScrapeAll.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Handler receives every yielded article. Returning types.ErrCrawlStopped
// ends the crawl without error; any other error aborts it.
type Handler func(a *article.Article) error

// Options controls one listing crawl.
type Options struct {
	// RowsPerPage must match the rows argument of the listing URL.
	RowsPerPage int

	// MaxArticles caps the result index; 0 means no cap.
	MaxArticles   int
	ParseArticles bool

	// KeepDuplicates yields articles whose id was already visited. The
	// zero value skips them.
	KeepDuplicates bool

	// ForceLanguage, when set, overrides the language of every stub.
	ForceLanguage string

	// Visited is shared across crawls; a fresh set is used when nil.
	Visited      *VisitedSet
	ParseOptions []article.ParseOption
}

// Stats counts the work of a crawler across crawls.
type Stats struct {
	ListingPages      atomic.Int64
	ArticlesYielded   atomic.Int64
	DuplicatesSkipped atomic.Int64
	ParseFailures     atomic.Int64
	StartTime         time.Time
}

// Snapshot returns a copy of stats safe for reading.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"listing_pages":      s.ListingPages.Load(),
		"articles_yielded":   s.ArticlesYielded.Load(),
		"duplicates_skipped": s.DuplicatesSkipped.Load(),
		"parse_failures":     s.ParseFailures.Load(),
		"elapsed":            time.Since(s.StartTime).String(),
	}
}

// Crawler is the crawl controller. It issues one request at a time and
// waits the politeness delay between requests.
type Crawler struct {
	fetcher     fetcher.Fetcher
	baseURL     string
	language    string
	searchRows  int
	delay       time.Duration
	paceMu      sync.Mutex
	lastDone    time.Time
	articleOpts []article.Option
	metrics     *observability.Metrics
	stats       *Stats
	logger      *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMetrics counts crawl events.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Crawler) { c.metrics = m }
}

// WithArticleOptions sets the options of every article the crawler builds.
func WithArticleOptions(opts ...article.Option) Option {
	return func(c *Crawler) { c.articleOpts = append(c.articleOpts, opts...) }
}

// New creates a crawler fetching through f.
func New(f fetcher.Fetcher, cfg *config.ScraperConfig, logger *slog.Logger, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:    f,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		language:   cfg.Language,
		searchRows: cfg.SearchRows,
		delay:      cfg.PolitenessDelay,
		stats:      &Stats{StartTime: time.Now()},
		logger:     logger.With("component", "crawler"),
	}
	c.articleOpts = []article.Option{article.WithFetcher(f), article.WithLogger(logger)}
	for _, opt := range opts {
		opt(c)
	}
	if c.searchRows <= 0 {
		c.searchRows = 100
	}
	return c
}

// Stats returns the live crawl counters.
func (c *Crawler) Stats() *Stats { return c.stats }

// OptionsFromConfig maps the scraper configuration onto crawl options.
func OptionsFromConfig(cfg *config.ScraperConfig) Options {
	opts := Options{
		RowsPerPage:    cfg.RowsPerPage,
		MaxArticles:    cfg.MaxArticles,
		ParseArticles:  cfg.ParseArticles,
		KeepDuplicates: !cfg.SkipDuplicates,
		ForceLanguage:  cfg.ForceLanguage,
	}
	if cfg.DropPages {
		opts.ParseOptions = append(opts.ParseOptions, article.DropPage())
	}
	return opts
}

// wait blocks until the politeness delay has passed since the previous
// request completed. The first request of a crawler never waits.
func (c *Crawler) wait(ctx context.Context) error {
	c.paceMu.Lock()
	last := c.lastDone
	c.paceMu.Unlock()
	if c.delay <= 0 || last.IsZero() {
		return nil
	}
	remaining := c.delay - time.Since(last)
	if remaining <= 0 {
		c.metrics.ObservePolitenessWait(0)
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	c.metrics.ObservePolitenessWait(remaining.Seconds())
	return nil
}

// done records the completion of a request, successful or not.
func (c *Crawler) done() {
	c.paceMu.Lock()
	c.lastDone = time.Now()
	c.paceMu.Unlock()
}

// Crawl walks the listing whose URL ends with the page offset parameter
// (e.g. "...&firstIndex=") and passes every new article to fn.
func (c *Crawler) Crawl(ctx context.Context, listingURL string, opts Options, fn Handler) error {
	err := c.crawl(ctx, listingURL, opts, fn)
	if errors.Is(err, types.ErrCrawlStopped) {
		c.logger.Info("crawl stopped by handler", "url", listingURL)
		return nil
	}
	return err
}

func (c *Crawler) crawl(ctx context.Context, listingURL string, opts Options, fn Handler) error {
	if opts.RowsPerPage <= 0 {
		return fmt.Errorf("rows per page must be positive, got %d", opts.RowsPerPage)
	}
	if opts.ForceLanguage != "" && !config.IsLanguage(opts.ForceLanguage) {
		return fmt.Errorf("%w: %q", types.ErrInvalidLanguage, opts.ForceLanguage)
	}
	if opts.Visited == nil {
		opts.Visited = NewVisitedSet()
	}

	listing, err := c.fetchListing(ctx, listingURL, 0)
	if err != nil {
		return err
	}
	c.logger.Info("listing loaded", "url", listingURL, "pages", listing.Pages)

	pages := listing.Pages
	for page := 0; page < pages; page++ {
		offset := page * opts.RowsPerPage
		if opts.MaxArticles > 0 && offset >= opts.MaxArticles {
			break
		}
		if page > 0 {
			if listing, err = c.fetchListing(ctx, listingURL, offset); err != nil {
				return err
			}
		}

		for i, entry := range listing.Entries {
			if opts.MaxArticles > 0 && offset+i >= opts.MaxArticles {
				break
			}
			if err := c.handleEntry(ctx, entry, opts, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Crawler) fetchListing(ctx context.Context, listingURL string, offset int) (*parser.Listing, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	pageURL := listingURL + strconv.Itoa(offset)
	c.logger.Debug("loading listing page", "url", pageURL, "offset", offset)

	body, err := fetcher.Get(ctx, c.fetcher, pageURL, types.KindListing)
	c.done()
	if err != nil {
		return nil, fmt.Errorf("listing page %s: %w", pageURL, err)
	}
	listing, err := parser.ParseListing(body)
	if err != nil {
		return nil, fmt.Errorf("listing page %s: %w", pageURL, err)
	}
	c.stats.ListingPages.Add(1)
	c.metrics.IncListingPages()
	return listing, nil
}

func (c *Crawler) handleEntry(ctx context.Context, entry parser.ListingEntry, opts Options, fn Handler) error {
	a, err := c.stub(entry, opts.ForceLanguage)
	if err != nil {
		c.logger.Warn("skipping listing row", "href", entry.Href, "error", err)
		return nil
	}

	if !opts.KeepDuplicates && opts.Visited.Seen(a.ID()) {
		c.stats.DuplicatesSkipped.Add(1)
		c.metrics.IncDuplicatesSkipped()
		c.logger.Info("skipping duplicate", "id", a.ID(), "name", entry.Name)
		return nil
	}

	if opts.ParseArticles {
		if err := c.wait(ctx); err != nil {
			return err
		}
		c.parse(ctx, a, opts.ParseOptions)
		c.done()
	}

	opts.Visited.Mark(a.ID())
	c.stats.ArticlesYielded.Add(1)
	c.metrics.IncArticlesYielded()
	return fn(a)
}

// stub builds the article of a listing row.
func (c *Crawler) stub(entry parser.ListingEntry, forceLanguage string) (*article.Article, error) {
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidURL, c.baseURL)
	}
	href, err := url.Parse(entry.Href)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidURL, entry.Href)
	}
	id, ok := article.ParseURL(base.ResolveReference(href).String())
	if !ok {
		return nil, fmt.Errorf("%w: not an article url: %s", types.ErrInvalidReference, entry.Href)
	}
	if forceLanguage != "" {
		id.Language = forceLanguage
	}
	return article.New(article.Reference{
		Language:         id.Language,
		ID:               id.ID,
		Version:          id.Version,
		SearchResultName: entry.Name,
	}, c.articleOpts...)
}

// parse runs every field parser on a. A failure is logged and counted;
// the article is yielded anyway, possibly partially populated.
func (c *Crawler) parse(ctx context.Context, a *article.Article, opts []article.ParseOption) {
	defer func() {
		if r := recover(); r != nil {
			c.parseFailed(a, fmt.Errorf("panic: %v", r), string(debug.Stack()))
		}
	}()
	if err := a.ParseAll(ctx, opts...); err != nil {
		c.parseFailed(a, err, string(debug.Stack()))
		return
	}
	if a.MetagridID != nil && string(a.MetagridLinks) == "[]" {
		c.metrics.IncMetagridMisses()
	}
}

func (c *Crawler) parseFailed(a *article.Article, err error, stack string) {
	c.stats.ParseFailures.Add(1)
	c.metrics.IncParseFailures()
	c.logger.Error("article parse failed", "id", a.ID(), "url", a.URL(), "error", err, "stack", stack)
}

// SearchURL returns the keyword search listing of language, ready for an
// offset to be appended.
func (c *Crawler) SearchURL(keywords []string, language string) string {
	if language == "" {
		language = c.language
	}
	return fmt.Sprintf("%s/%s/search/?sort=score&sortOrder=desc&rows=%d&highlight=true&facet=true&r=1&text=%s&firstIndex=",
		c.baseURL, language, c.searchRows, url.QueryEscape(strings.Join(keywords, " ")))
}

// AlphabetURL returns the listing of the articles of language whose title
// starts with letter.
func (c *Crawler) AlphabetURL(letter byte, language string) string {
	if language == "" {
		language = c.language
	}
	return fmt.Sprintf("%s/%s/search/alphabetic?text=*&sort=hls.title_sortString&sortOrder=asc&collapsed=true&r=1&rows=%d&f_hls.letter_string=%c&firstIndex=",
		c.baseURL, language, c.searchRows, letter)
}

// Search crawls the keyword search results of language.
func (c *Crawler) Search(ctx context.Context, keywords []string, language string, opts Options, fn Handler) error {
	opts.RowsPerPage = c.searchRows
	return c.Crawl(ctx, c.SearchURL(keywords, language), opts, fn)
}

// ScrapeAll crawls the alphabetical listing letter by letter. One visited
// set is shared by all letters and MaxArticles applies per letter.
func (c *Crawler) ScrapeAll(ctx context.Context, language string, opts Options, fn Handler) error {
	opts.RowsPerPage = c.searchRows
	if opts.Visited == nil {
		opts.Visited = NewVisitedSet()
	}

	stopped := false
	stop := func(a *article.Article) error {
		err := fn(a)
		if errors.Is(err, types.ErrCrawlStopped) {
			stopped = true
		}
		return err
	}

	for i := 0; i < len(Alphabet); i++ {
		letter := Alphabet[i]
		c.logger.Info("scraping letter", "letter", string(letter), "language", language, "visited", opts.Visited.Count())
		if err := c.Crawl(ctx, c.AlphabetURL(letter, language), opts, stop); err != nil {
			return fmt.Errorf("letter %c: %w", letter, err)
		}
		if stopped {
			return nil
		}
	}
	return nil
}
