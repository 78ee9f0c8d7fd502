package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/IshaanNene/dhscrape/internal/article"
	"github.com/IshaanNene/dhscrape/internal/types"
	"github.com/IshaanNene/dhscrape/internal/wikidata"
)

// WikidataMiddleware cross-references the in-text links of every article.
type WikidataMiddleware struct {
	Table  *wikidata.Table
	Logger *slog.Logger
}

func (m *WikidataMiddleware) Name() string { return "wikidata" }

func (m *WikidataMiddleware) Process(_ context.Context, a *article.Article) (*article.Article, error) {
	m.Table.AnnotateTextLinks(a, m.Logger)
	return a, nil
}

// InitialMiddleware computes the identifying initial. Articles the
// heuristic cannot decide are kept without one.
type InitialMiddleware struct {
	Logger *slog.Logger
}

func (m *InitialMiddleware) Name() string { return "initial" }

func (m *InitialMiddleware) Process(ctx context.Context, a *article.Article) (*article.Article, error) {
	_, err := a.Initial(ctx)
	var ie *types.InitialError
	if errors.As(err, &ie) {
		m.Logger.Warn("no rule for identifying initial", "id", a.ID(), "candidates", ie.Candidates)
		return a, nil
	}
	return a, err
}

// PersonFilterMiddleware keeps biographical articles only. Articles whose
// bref box was not parsed are dropped.
type PersonFilterMiddleware struct{}

func (m *PersonFilterMiddleware) Name() string { return "person_filter" }

func (m *PersonFilterMiddleware) Process(_ context.Context, a *article.Article) (*article.Article, error) {
	ok, err := a.IsPerson()
	if err != nil || !ok {
		return nil, nil
	}
	return a, nil
}

// TagFilterMiddleware keeps articles carrying at least one tag whose path
// starts with one of Prefixes.
type TagFilterMiddleware struct {
	Prefixes []string
}

func (m *TagFilterMiddleware) Name() string { return "tag_filter" }

func (m *TagFilterMiddleware) Process(_ context.Context, a *article.Article) (*article.Article, error) {
	if len(m.Prefixes) == 0 {
		return a, nil
	}
	for _, tag := range a.Tags {
		for _, prefix := range m.Prefixes {
			if strings.HasPrefix(tag.Tag, prefix) {
				return a, nil
			}
		}
	}
	return nil, nil
}

// DropPageMiddleware frees the cached page once the fields are extracted.
type DropPageMiddleware struct{}

func (m *DropPageMiddleware) Name() string { return "drop_page" }

func (m *DropPageMiddleware) Process(_ context.Context, a *article.Article) (*article.Article, error) {
	a.DropPage()
	return a, nil
}
