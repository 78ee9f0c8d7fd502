package article

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/IshaanNene/dhscrape/internal/config"
	"github.com/IshaanNene/dhscrape/internal/fetcher"
	"github.com/IshaanNene/dhscrape/internal/parser"
	"github.com/IshaanNene/dhscrape/internal/types"
)

// textReprLimit is the number of text characters String shows.
const textReprLimit = 100

// Article is one encyclopedia entry. Its identity never changes; every
// other field is nil until the parser that fills it has run. A non-nil
// empty slice means "parsed, nothing found".
type Article struct {
	identity Identity

	// SearchResultName is the name shown in a search listing, not the title.
	SearchResultName *string

	Title              *string
	GivenName          *string
	FamilyName         *string
	AuthorsTranslators []string
	TextBlocks         []types.TextBlock
	TextLinks          [][]types.TextLink
	Sources            map[string][]types.Source
	NoticeLinks        []types.NoticeLink
	MetagridID         *string
	MetagridLinks      json.RawMessage
	Bref               []types.BrefRow
	Tags               []types.Tag
	BirthDate          *string
	DeathDate          *string

	// ScraperVersion is the version of the scraper that produced the record.
	ScraperVersion string

	text    textCell
	initial initialCell
	page    page

	fetcher     fetcher.Fetcher
	logger      *slog.Logger
	parser      *parser.Parser
	separator   string
	metagridURL string
}

// textCell caches the derived article text.
type textCell struct {
	value string
	valid bool
}

// initialCell caches the identifying initial. A computed empty value means
// the text has no identifying initial.
type initialCell struct {
	value    string
	computed bool
}

// Option configures an Article.
type Option func(*Article)

// WithFetcher sets the fetcher used to download the page on demand.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(a *Article) { a.fetcher = f }
}

// WithLogger sets the logger of the article parsers.
func WithLogger(l *slog.Logger) Option {
	return func(a *Article) {
		a.logger = l
		a.parser = parser.New(l)
	}
}

// WithTextSeparator sets the separator placed between text blocks.
func WithTextSeparator(sep string) Option {
	return func(a *Article) { a.separator = sep }
}

// WithMetagridURL sets the cross-reference lookup URL template.
func WithMetagridURL(template string) Option {
	return func(a *Article) { a.metagridURL = template }
}

// New builds an article from ref. It fails with ErrInvalidReference when
// neither ref.ID nor ref.URL gives an id.
func New(ref Reference, opts ...Option) (*Article, error) {
	id, err := ref.identity()
	if err != nil {
		return nil, err
	}

	a := newArticle(id, opts...)
	if ref.SearchResultName != "" {
		name := ref.SearchResultName
		a.SearchResultName = &name
	}
	return a, nil
}

// FromURL is New with only a URL.
func FromURL(rawURL string, opts ...Option) (*Article, error) {
	return New(Reference{URL: rawURL}, opts...)
}

func newArticle(id Identity, opts ...Option) *Article {
	a := &Article{
		identity:       id,
		ScraperVersion: config.ScraperVersion,
		separator:      parser.DefaultTextSeparator,
		metagridURL:    config.DefaultMetagridURL,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
		a.parser = parser.New(a.logger)
	}
	return a
}

// Configure applies opts to an existing article, typically one read from disk.
func (a *Article) Configure(opts ...Option) {
	for _, opt := range opts {
		opt(a)
	}
}

// Identity returns the identity triple.
func (a *Article) Identity() Identity { return a.identity }

// Language returns the language edition, "" for the server default.
func (a *Article) Language() string { return a.identity.Language }

// ID returns the article id.
func (a *Article) ID() string { return a.identity.ID }

// Version returns the version date, "" for the latest.
func (a *Article) Version() string { return a.identity.Version }

// URL returns the canonical article URL.
func (a *Article) URL() string { return a.identity.URL() }

// Equal reports whether both articles have the same identity.
func (a *Article) Equal(o *Article) bool {
	if a == nil || o == nil {
		return a == o
	}
	return a.identity == o.identity
}

// ToLanguage returns a new stub of the same article in another edition.
func (a *Article) ToLanguage(language string) (*Article, error) {
	if !config.IsLanguage(language) {
		return nil, fmt.Errorf("%w: %q, must be one of %s", types.ErrInvalidLanguage, language, strings.Join(config.Languages, ", "))
	}
	id := a.identity
	id.Language = language
	return newArticle(id, a.options()...), nil
}

func (a *Article) options() []Option {
	return []Option{
		WithFetcher(a.fetcher),
		WithLogger(a.logger),
		WithTextSeparator(a.separator),
		WithMetagridURL(a.metagridURL),
	}
}

// IsPerson reports whether the bref box holds biographical dates. It fails
// with ErrFieldNotParsed before ParseBref has run.
func (a *Article) IsPerson() (bool, error) {
	if a.Bref == nil {
		return false, types.ErrFieldNotParsed
	}
	return parser.IsPerson(a.Bref), nil
}

// CachedText returns the text held by the cache, if any.
func (a *Article) CachedText() (string, bool) {
	return a.text.value, a.text.valid
}

// SetText fills the text cache.
func (a *Article) SetText(text string) {
	a.text = textCell{value: text, valid: true}
}

// InvalidateText empties the text cache so the next read recomputes it.
func (a *Article) InvalidateText() {
	a.text = textCell{}
}

// CachedInitial returns the identifying initial if it has been computed.
func (a *Article) CachedInitial() (string, bool) {
	return a.initial.value, a.initial.computed
}

func (a *Article) String() string {
	var parts []string
	add := func(k string, v any) { parts = append(parts, fmt.Sprintf("%s: %v", k, v)) }
	deref := func(p *string) any {
		if p == nil {
			return "<nil>"
		}
		return *p
	}

	add("language", a.identity.Language)
	add("id", a.identity.ID)
	add("version", a.identity.Version)
	add("search_result_name", deref(a.SearchResultName))
	if a.Title != nil {
		add("title", *a.Title)
	}
	if text, ok := a.CachedText(); ok {
		if r := []rune(text); len(r) > textReprLimit {
			text = string(r[:textReprLimit]) + " [...]"
		}
		add("text", fmt.Sprintf("%q", text))
	}
	if a.Tags != nil {
		tags := make([]string, len(a.Tags))
		for i, t := range a.Tags {
			tags[i] = t.Tag
		}
		add("tags", tags)
	}
	if a.Sources != nil {
		sections := make([]string, 0, len(a.Sources))
		for k := range a.Sources {
			sections = append(sections, k)
		}
		sort.Strings(sections)
		add("sources", sections)
	}
	if a.page.loaded() {
		add("page_content", "loaded")
	} else {
		add("page_content", "not loaded")
	}
	return "Article(" + strings.Join(parts, ", ") + ")"
}
