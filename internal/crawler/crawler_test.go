package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/IshaanNene/dhscrape/internal/article"
	"github.com/IshaanNene/dhscrape/internal/config"
	"github.com/IshaanNene/dhscrape/internal/fetcher"
	"github.com/IshaanNene/dhscrape/internal/observability"
	"github.com/IshaanNene/dhscrape/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// site serves paginated listings and article pages.
type site struct {
	rows     int
	results  []string
	articles map[string]string

	mu       sync.Mutex
	requests []string
}

func listingHTML(hrefs []string, pages int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="search-results">`)
	for i, href := range hrefs {
		fmt.Fprintf(&b, `<div class="search-result"><a href="%s"><span class="search-result__title">Result %d</span></a></div>`, href, i)
	}
	b.WriteString(`</div>`)
	if pages > 1 {
		b.WriteString(`<div class="pagination">`)
		for p := 1; p <= pages; p++ {
			fmt.Fprintf(&b, `<a href="#">%d</a>`, p)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.RequestURI())
	s.mu.Unlock()

	if strings.Contains(r.URL.Path, "/search") {
		offset, _ := strconv.Atoi(r.URL.Query().Get("firstIndex"))
		end := offset + s.rows
		if end > len(s.results) {
			end = len(s.results)
		}
		pages := (len(s.results) + s.rows - 1) / s.rows
		_, _ = w.Write([]byte(listingHTML(s.results[offset:end], pages)))
		return
	}
	if body, ok := s.articles[r.URL.Path]; ok {
		_, _ = w.Write([]byte(body))
		return
	}
	http.NotFound(w, r)
}

func (s *site) listingRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if strings.Contains(r, "/search") {
			n++
		}
	}
	return n
}

// hostRewriter sends requests for the live site to the test server.
type hostRewriter struct {
	fetcher.Fetcher
	target *url.URL
}

func (h *hostRewriter) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	if req.URL.Host == "hls-dhs-dss.ch" {
		u := *req.URL
		u.Scheme, u.Host = h.target.Scheme, h.target.Host
		req.URL = &u
	}
	return h.Fetcher.Fetch(ctx, req)
}

func newTestCrawler(t *testing.T, s *site, opts ...Option) (*Crawler, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Scraper.BaseURL = srv.URL
	cfg.Scraper.PolitenessDelay = 0
	cfg.Scraper.SearchRows = s.rows
	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	target, _ := url.Parse(srv.URL)
	return New(&hostRewriter{Fetcher: f, target: target}, &cfg.Scraper, testLogger, opts...), srv
}

func hrefs(ids ...string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "/fr/articles/" + id + "/2020-01-01/"
	}
	return out
}

func collect(out *[]*article.Article) Handler {
	return func(a *article.Article) error {
		*out = append(*out, a)
		return nil
	}
}

func ids(articles []*article.Article) string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.ID()
	}
	return strings.Join(out, ",")
}

func TestCrawlPaginates(t *testing.T) {
	s := &site{rows: 2, results: hrefs("000001", "000002", "000003", "000004", "000005")}
	c, srv := newTestCrawler(t, s)

	var got []*article.Article
	err := c.Crawl(context.Background(), srv.URL+"/fr/search/?rows=2&firstIndex=", Options{RowsPerPage: 2}, collect(&got))
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if ids(got) != "000001,000002,000003,000004,000005" {
		t.Errorf("ids = %s", ids(got))
	}
	if s.listingRequests() != 3 {
		t.Errorf("listing requests = %d, want 3", s.listingRequests())
	}
	if got[0].Language() != "fr" || got[0].Version() != "2020-01-01" {
		t.Errorf("identity = %s", got[0].Identity())
	}
	if got[0].SearchResultName == nil || *got[0].SearchResultName != "Result 0" {
		t.Errorf("search result name = %v", got[0].SearchResultName)
	}
	if n := c.Stats().ListingPages.Load(); n != 3 {
		t.Errorf("stats listing pages = %d", n)
	}
}

func TestCrawlMaxArticlesStopsBeforeFetch(t *testing.T) {
	s := &site{rows: 2, results: hrefs("000001", "000002", "000003", "000004", "000005")}
	c, srv := newTestCrawler(t, s)

	var got []*article.Article
	err := c.Crawl(context.Background(), srv.URL+"/fr/search/?firstIndex=", Options{RowsPerPage: 2, MaxArticles: 3}, collect(&got))
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if ids(got) != "000001,000002,000003" {
		t.Errorf("ids = %s", ids(got))
	}
	if s.listingRequests() != 2 {
		t.Errorf("listing requests = %d, want 2", s.listingRequests())
	}

	s.requests = nil
	got = nil
	if err := c.Crawl(context.Background(), srv.URL+"/fr/search/?firstIndex=", Options{RowsPerPage: 2, MaxArticles: 2}, collect(&got)); err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(got) != 2 || s.listingRequests() != 1 {
		t.Errorf("got %d articles with %d listing requests", len(got), s.listingRequests())
	}
}

func TestCrawlSkipsDuplicates(t *testing.T) {
	s := &site{rows: 10, results: hrefs("000001", "000002", "000001", "000003")}
	m := observability.NewMetrics(testLogger)
	c, srv := newTestCrawler(t, s, WithMetrics(m))

	visited := NewVisitedSet("000003")
	var got []*article.Article
	err := c.Crawl(context.Background(), srv.URL+"/fr/search/?firstIndex=", Options{RowsPerPage: 10, Visited: visited}, collect(&got))
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if ids(got) != "000001,000002" {
		t.Errorf("ids = %s", ids(got))
	}
	if visited.Count() != 3 {
		t.Errorf("visited = %v", visited.Export())
	}
	if v := testutil.ToFloat64(m.DuplicatesSkipped); v != 2 {
		t.Errorf("duplicates skipped = %v, want 2", v)
	}
	if v := testutil.ToFloat64(m.ArticlesYielded); v != 2 {
		t.Errorf("articles yielded = %v, want 2", v)
	}
}

func TestCrawlKeepsDuplicatesWhenAsked(t *testing.T) {
	s := &site{rows: 10, results: hrefs("000001", "000001")}
	c, srv := newTestCrawler(t, s)

	var got []*article.Article
	if err := c.Crawl(context.Background(), srv.URL+"/fr/search/?firstIndex=", Options{RowsPerPage: 10, KeepDuplicates: true}, collect(&got)); err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d articles, want 2", len(got))
	}
}

func TestCrawlForcesLanguage(t *testing.T) {
	s := &site{rows: 10, results: []string{"/de/articles/000001/", "/it/articles/000002/2020-01-01/"}}
	c, srv := newTestCrawler(t, s)

	var got []*article.Article
	if err := c.Crawl(context.Background(), srv.URL+"/fr/search/?firstIndex=", Options{RowsPerPage: 10, ForceLanguage: "fr"}, collect(&got)); err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	for _, a := range got {
		if a.Language() != "fr" {
			t.Errorf("article %s language = %q", a.ID(), a.Language())
		}
	}
	if got[1].Version() != "2020-01-01" {
		t.Errorf("version lost: %s", got[1].Identity())
	}

	err := c.Crawl(context.Background(), srv.URL+"/fr/search/?firstIndex=", Options{RowsPerPage: 10, ForceLanguage: "en"}, collect(&got))
	if !errors.Is(err, types.ErrInvalidLanguage) {
		t.Errorf("expected ErrInvalidLanguage, got %v", err)
	}
}

func TestCrawlParseFailureIsIsolated(t *testing.T) {
	page, err := os.ReadFile("../parser/testdata/article.html")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	s := &site{
		rows:    10,
		results: hrefs("010446", "000002"),
		articles: map[string]string{
			"/fr/articles/010446/2020-01-01": string(page),
			"/fr/articles/000002/2020-01-01": "<html><body><p>nothing here</p></body></html>",
			"/metagrid/10446.json":            `[{"provider":"gnd"}]`,
		},
	}
	m := observability.NewMetrics(testLogger)
	c, srv := newTestCrawler(t, s, WithMetrics(m))
	c.articleOpts = append(c.articleOpts, article.WithMetagridURL(srv.URL+"/metagrid/<article_id>.json?lang=<language>"))

	var got []*article.Article
	opts := Options{RowsPerPage: 10, ParseArticles: true, ParseOptions: []article.ParseOption{article.DropPage()}}
	if err := c.Crawl(context.Background(), srv.URL+"/fr/search/?firstIndex=", opts, collect(&got)); err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d articles, want 2", len(got))
	}
	if got[0].Title == nil || got[0].Tags == nil {
		t.Errorf("first article should be fully parsed: %s", got[0])
	}
	if got[0].HasPage() {
		t.Error("page should be dropped after parsing")
	}
	if string(got[0].MetagridLinks) != `[{"provider":"gnd"}]` {
		t.Errorf("metagrid links = %s", got[0].MetagridLinks)
	}
	if got[1].Title != nil {
		t.Errorf("second article title = %q", *got[1].Title)
	}
	if v := testutil.ToFloat64(m.ParseFailures); v != 1 {
		t.Errorf("parse failures = %v, want 1", v)
	}
}

func TestCrawlHandlerStops(t *testing.T) {
	s := &site{rows: 10, results: hrefs("000001", "000002", "000003")}
	c, srv := newTestCrawler(t, s)

	calls := 0
	err := c.Crawl(context.Background(), srv.URL+"/fr/search/?firstIndex=", Options{RowsPerPage: 10}, func(*article.Article) error {
		calls++
		return types.ErrCrawlStopped
	})
	if err != nil || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}

	boom := errors.New("boom")
	err = c.Crawl(context.Background(), srv.URL+"/fr/search/?firstIndex=", Options{RowsPerPage: 10}, func(*article.Article) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected handler error, got %v", err)
	}
}

func TestCrawlListingError(t *testing.T) {
	s := &site{rows: 10}
	c, srv := newTestCrawler(t, s)
	err := c.Crawl(context.Background(), srv.URL+"/missing?firstIndex=", Options{RowsPerPage: 10}, func(*article.Article) error { return nil })
	var fe *types.FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 fetch error, got %v", err)
	}
}

func TestPolitenessDelay(t *testing.T) {
	s := &site{rows: 1, results: hrefs("000001", "000002", "000003")}
	srv := httptest.NewServer(s)
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Scraper.BaseURL = srv.URL
	cfg.Scraper.PolitenessDelay = 30 * time.Millisecond
	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	defer f.Close()
	c := New(f, &cfg.Scraper, testLogger)

	start := time.Now()
	if err := c.Crawl(context.Background(), srv.URL+"/fr/search/?firstIndex=", Options{RowsPerPage: 1}, func(*article.Article) error { return nil }); err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("3 listing requests took %v, want at least 2 delays", elapsed)
	}
}

// slowSite delays every response and records when each request arrived
// and when its response was written.
type slowSite struct {
	*site
	latency time.Duration

	mu       sync.Mutex
	arrivals []time.Time
	finishes []time.Time
}

func (s *slowSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.arrivals = append(s.arrivals, time.Now())
	s.mu.Unlock()

	time.Sleep(s.latency)
	s.site.ServeHTTP(w, r)

	s.mu.Lock()
	s.finishes = append(s.finishes, time.Now())
	s.mu.Unlock()
}

func TestPolitenessDelayFollowsSlowResponses(t *testing.T) {
	s := &slowSite{
		site:    &site{rows: 1, results: hrefs("000001", "000002", "000003")},
		latency: 150 * time.Millisecond,
	}
	srv := httptest.NewServer(s)
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Scraper.BaseURL = srv.URL
	cfg.Scraper.PolitenessDelay = 100 * time.Millisecond
	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	defer f.Close()
	c := New(f, &cfg.Scraper, testLogger)

	if err := c.Crawl(context.Background(), srv.URL+"/fr/search/?firstIndex=", Options{RowsPerPage: 1}, func(*article.Article) error { return nil }); err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.arrivals) != 3 {
		t.Fatalf("requests = %d, want 3", len(s.arrivals))
	}
	for i := 1; i < len(s.arrivals); i++ {
		if gap := s.arrivals[i].Sub(s.finishes[i-1]); gap < cfg.Scraper.PolitenessDelay {
			t.Errorf("request %d sent %v after the previous response, want at least %v", i, gap, cfg.Scraper.PolitenessDelay)
		}
	}
}

func TestPolitenessDelayHonoursContext(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scraper.PolitenessDelay = time.Hour
	c := New(nil, &cfg.Scraper, testLogger)
	c.done()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("wait = %v, want deadline exceeded", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	if opts := OptionsFromConfig(&cfg.Scraper); opts.KeepDuplicates {
		t.Error("default config should skip duplicates")
	}
	cfg.Scraper.SkipDuplicates = false
	if opts := OptionsFromConfig(&cfg.Scraper); !opts.KeepDuplicates {
		t.Error("skip_duplicates=false should keep duplicates")
	}
}

func TestSearchURL(t *testing.T) {
	cfg := config.DefaultConfig()
	c := New(nil, &cfg.Scraper, testLogger)
	got := c.SearchURL([]string{"Zwingli", "Zürich"}, "de")
	want := "https://hls-dhs-dss.ch/de/search/?sort=score&sortOrder=desc&rows=100&highlight=true&facet=true&r=1&text=Zwingli+Z%C3%BCrich&firstIndex="
	if got != want {
		t.Errorf("SearchURL =\n%s\nwant\n%s", got, want)
	}
	if got := c.AlphabetURL('B', ""); !strings.HasPrefix(got, "https://hls-dhs-dss.ch/fr/search/alphabetic?") ||
		!strings.HasSuffix(got, "f_hls.letter_string=B&firstIndex=") {
		t.Errorf("AlphabetURL = %s", got)
	}
}

func TestScrapeAllSharesVisitedSet(t *testing.T) {
	// Every letter lists the same two articles.
	s := &site{rows: 10, results: hrefs("000001", "000002")}
	c, _ := newTestCrawler(t, s)

	var got []*article.Article
	if err := c.ScrapeAll(context.Background(), "fr", Options{}, collect(&got)); err != nil {
		t.Fatalf("ScrapeAll: %v", err)
	}
	if ids(got) != "000001,000002" {
		t.Errorf("ids = %s", ids(got))
	}
	if s.listingRequests() != len(Alphabet) {
		t.Errorf("listing requests = %d, want %d", s.listingRequests(), len(Alphabet))
	}
}

func TestScrapeAllStops(t *testing.T) {
	s := &site{rows: 10, results: hrefs("000001", "000002")}
	c, _ := newTestCrawler(t, s)

	err := c.ScrapeAll(context.Background(), "fr", Options{}, func(*article.Article) error { return types.ErrCrawlStopped })
	if err != nil {
		t.Fatalf("ScrapeAll: %v", err)
	}
	if s.listingRequests() != 1 {
		t.Errorf("listing requests = %d, want 1", s.listingRequests())
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	if n, err := LoadCheckpoint(path, NewVisitedSet()); err != nil || n != 0 {
		t.Fatalf("missing checkpoint: n=%d err=%v", n, err)
	}

	if err := SaveCheckpoint(path, "fr", NewVisitedSet("000002", "000001")); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}

	restored := NewVisitedSet("000009")
	n, err := LoadCheckpoint(path, restored)
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if n != 2 || strings.Join(restored.Export(), ",") != "000001,000002,000009" {
		t.Errorf("restored %d: %v", n, restored.Export())
	}

	if err := RemoveCheckpoint(path); err != nil {
		t.Fatalf("RemoveCheckpoint: %v", err)
	}
	if err := RemoveCheckpoint(path); err != nil {
		t.Errorf("second remove: %v", err)
	}
}

func TestVisitedSet(t *testing.T) {
	v := NewVisitedSet()
	if v.Seen("1") {
		t.Error("empty set")
	}
	v.Mark("1")
	if !v.Seen("1") || v.Count() != 1 {
		t.Error("mark")
	}
	v.Reset()
	if v.Count() != 0 {
		t.Error("reset")
	}
}
