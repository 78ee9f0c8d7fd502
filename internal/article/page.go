package article

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/dhscrape/internal/fetcher"
	"github.com/IshaanNene/dhscrape/internal/parser"
	"github.com/IshaanNene/dhscrape/internal/types"
)

// page is the cached article page and its parsed tree.
type page struct {
	content []byte
	doc     *goquery.Document
}

func (p *page) loaded() bool { return p.content != nil }

// ParseOption tunes a single parse call.
type ParseOption func(*parseOptions)

type parseOptions struct {
	dropPage bool
}

// DropPage releases the page once the parse call returns.
func DropPage() ParseOption {
	return func(o *parseOptions) { o.dropPage = true }
}

// EnsurePage downloads the page unless it is already cached and returns
// the parsed tree.
func (a *Article) EnsurePage(ctx context.Context) (*goquery.Document, error) {
	if a.page.content == nil {
		if a.fetcher == nil {
			return nil, fmt.Errorf("download %s: %w", a.URL(), types.ErrNoFetcher)
		}
		body, err := fetcher.Get(ctx, a.fetcher, a.URL(), types.KindArticle)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", a.URL(), err)
		}
		a.page.content = body
	}
	if a.page.doc == nil {
		doc, err := parser.Document(a.page.content)
		if err != nil {
			return nil, &types.ParseError{URL: a.URL(), Field: "page", Err: err}
		}
		a.page.doc = doc
	}
	return a.page.doc, nil
}

// SetPageContent fills the page cache without a download.
func (a *Article) SetPageContent(content []byte) {
	a.page = page{content: content}
}

// PageContent returns the cached page, nil when none is loaded.
func (a *Article) PageContent() []byte { return a.page.content }

// HasPage reports whether the page is cached.
func (a *Article) HasPage() bool { return a.page.loaded() }

// DropPage frees the cached page and its tree. Extracted fields are kept.
func (a *Article) DropPage() {
	a.page = page{}
}

// withPage runs fn with the page available and drops it afterwards if asked.
func (a *Article) withPage(ctx context.Context, opts []ParseOption, fn func(doc *goquery.Document) error) error {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}

	doc, err := a.EnsurePage(ctx)
	if err != nil {
		return err
	}
	if o.dropPage {
		defer a.DropPage()
	}
	return fn(doc)
}
