package article

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/dhscrape/internal/fetcher"
	"github.com/IshaanNene/dhscrape/internal/parser"
	"github.com/IshaanNene/dhscrape/internal/types"
)

var emptyLinks = json.RawMessage("[]")

// ParseTitle fills Title and, on person articles, GivenName and FamilyName.
func (a *Article) ParseTitle(ctx context.Context, opts ...ParseOption) (string, error) {
	err := a.withPage(ctx, opts, func(doc *goquery.Document) error {
		t, err := a.parser.Title(doc)
		if err != nil {
			return a.fieldError(err)
		}
		a.Title, a.GivenName, a.FamilyName = &t.Title, t.GivenName, t.FamilyName
		return nil
	})
	if err != nil {
		return "", err
	}
	return *a.Title, nil
}

// ParseAuthorsTranslators fills AuthorsTranslators.
func (a *Article) ParseAuthorsTranslators(ctx context.Context, opts ...ParseOption) ([]string, error) {
	err := a.withPage(ctx, opts, func(doc *goquery.Document) error {
		a.AuthorsTranslators = a.parser.AuthorsTranslators(doc)
		return nil
	})
	return a.AuthorsTranslators, err
}

func (a *Article) textElements() (*goquery.Selection, error) {
	elements, err := parser.TextElements(a.page.content)
	if err != nil {
		return nil, &types.ParseError{URL: a.URL(), Field: "text", Err: err}
	}
	return elements, nil
}

// ParseTextBlocks fills TextBlocks.
func (a *Article) ParseTextBlocks(ctx context.Context, opts ...ParseOption) ([]types.TextBlock, error) {
	err := a.withPage(ctx, opts, func(*goquery.Document) error {
		elements, err := a.textElements()
		if err != nil {
			return err
		}
		a.TextBlocks = a.parser.TextBlocks(elements)
		return nil
	})
	return a.TextBlocks, err
}

// ParseText recomputes the article text from the page and caches it.
func (a *Article) ParseText(ctx context.Context, opts ...ParseOption) (string, error) {
	err := a.withPage(ctx, opts, func(*goquery.Document) error {
		elements, err := a.textElements()
		if err != nil {
			return err
		}
		a.SetText(a.parser.Text(elements, a.separator))
		return nil
	})
	return a.text.value, err
}

// Text returns the cached text, computing it first from the cached page or,
// without page, from the text blocks. It fails with ErrFieldNotParsed
// when neither is available.
func (a *Article) Text(ctx context.Context) (string, error) {
	if a.text.valid {
		return a.text.value, nil
	}
	if a.page.loaded() {
		return a.ParseText(ctx)
	}
	if a.TextBlocks != nil {
		texts := make([]string, len(a.TextBlocks))
		for i, b := range a.TextBlocks {
			texts[i] = b.Text
		}
		a.SetText(strings.Join(texts, a.separator))
		return a.text.value, nil
	}
	return "", types.ErrFieldNotParsed
}

// ParseTextLinks fills TextLinks, one list per text block.
func (a *Article) ParseTextLinks(ctx context.Context, opts ...ParseOption) ([][]types.TextLink, error) {
	err := a.withPage(ctx, opts, func(*goquery.Document) error {
		elements, err := a.textElements()
		if err != nil {
			return err
		}
		a.TextLinks = a.parser.TextLinks(elements)
		return nil
	})
	return a.TextLinks, err
}

// ParseSources fills Sources.
func (a *Article) ParseSources(ctx context.Context, opts ...ParseOption) (map[string][]types.Source, error) {
	err := a.withPage(ctx, opts, func(doc *goquery.Document) error {
		a.Sources = a.parser.Sources(doc, a.identity.ID)
		return nil
	})
	return a.Sources, err
}

// ParseNoticeLinks fills NoticeLinks.
func (a *Article) ParseNoticeLinks(ctx context.Context, opts ...ParseOption) ([]types.NoticeLink, error) {
	err := a.withPage(ctx, opts, func(doc *goquery.Document) error {
		a.NoticeLinks = a.parser.NoticeLinks(doc)
		return nil
	})
	return a.NoticeLinks, err
}

// ParseMetagrid fills MetagridID and, with one extra request, MetagridLinks.
// A failed lookup leaves MetagridLinks empty and is only logged.
func (a *Article) ParseMetagrid(ctx context.Context, opts ...ParseOption) (json.RawMessage, error) {
	err := a.withPage(ctx, opts, func(doc *goquery.Document) error {
		id, ok := a.parser.MetagridID(doc)
		if !ok {
			a.MetagridID, a.MetagridLinks = nil, emptyLinks
			return nil
		}
		a.MetagridID = &id
		a.MetagridLinks = a.lookupMetagrid(ctx, id)
		return nil
	})
	return a.MetagridLinks, err
}

func (a *Article) lookupMetagrid(ctx context.Context, id string) json.RawMessage {
	url := parser.MetagridURL(a.metagridURL, id, a.identity.Language)
	body, err := fetcher.Get(ctx, a.fetcher, url, types.KindMetagrid)
	if err != nil {
		a.logger.Warn("metagrid lookup failed", "id", a.identity.ID, "url", url, "error", err)
		return emptyLinks
	}
	if !json.Valid(body) {
		a.logger.Warn("metagrid lookup returned invalid json", "id", a.identity.ID, "url", url)
		return emptyLinks
	}
	return json.RawMessage(body)
}

// ParseBref fills Bref and the BirthDate and DeathDate shortcuts.
func (a *Article) ParseBref(ctx context.Context, opts ...ParseOption) ([]types.BrefRow, error) {
	err := a.withPage(ctx, opts, func(doc *goquery.Document) error {
		b, err := a.parser.Bref(doc)
		if err != nil {
			return a.fieldError(err)
		}
		a.Bref, a.BirthDate, a.DeathDate = b.Rows, b.BirthDate, b.DeathDate
		return nil
	})
	return a.Bref, err
}

// ParseTags fills Tags.
func (a *Article) ParseTags(ctx context.Context, opts ...ParseOption) ([]types.Tag, error) {
	err := a.withPage(ctx, opts, func(doc *goquery.Document) error {
		a.Tags = a.parser.Tags(doc)
		return nil
	})
	return a.Tags, err
}

// ParseAll runs every field parser under a single page download.
func (a *Article) ParseAll(ctx context.Context, opts ...ParseOption) error {
	return a.withPage(ctx, opts, func(*goquery.Document) error {
		steps := []func() error{
			func() error { _, err := a.ParseTitle(ctx); return err },
			func() error { _, err := a.ParseAuthorsTranslators(ctx); return err },
			func() error { _, err := a.ParseTextBlocks(ctx); return err },
			func() error { _, err := a.ParseText(ctx); return err },
			func() error { _, err := a.ParseTextLinks(ctx); return err },
			func() error { _, err := a.ParseSources(ctx); return err },
			func() error { _, err := a.ParseMetagrid(ctx); return err },
			func() error { _, err := a.ParseNoticeLinks(ctx); return err },
			func() error { _, err := a.ParseBref(ctx); return err },
			func() error { _, err := a.ParseTags(ctx); return err },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
}

// ParseInitial computes the identifying initial, parsing the text and the
// title first when they are missing.
func (a *Article) ParseInitial(ctx context.Context) (string, error) {
	text, err := a.Text(ctx)
	if errors.Is(err, types.ErrFieldNotParsed) {
		text, err = a.ParseText(ctx)
	}
	if err != nil {
		return "", err
	}
	if a.Title == nil {
		if _, err := a.ParseTitle(ctx); err != nil {
			return "", err
		}
	}

	initial, err := parser.IdentifyingInitial(text, *a.Title)
	if err != nil {
		var ie *types.InitialError
		if errors.As(err, &ie) {
			ie.ID = a.identity.ID
		}
		return "", err
	}
	a.initial = initialCell{value: initial, computed: true}
	return initial, nil
}

// Initial returns the cached identifying initial or computes it.
func (a *Article) Initial(ctx context.Context) (string, error) {
	if a.initial.computed {
		return a.initial.value, nil
	}
	return a.ParseInitial(ctx)
}

func (a *Article) fieldError(err error) error {
	var pe *types.ParseError
	if errors.As(err, &pe) {
		pe.URL = a.URL()
		return pe
	}
	return &types.ParseError{URL: a.URL(), Err: err}
}
