package article

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/IshaanNene/dhscrape/internal/types"
)

// EncodeOptions controls the JSON form of an article.
type EncodeOptions struct {
	// IncludePageContent stores the page and leaves out text and
	// text_blocks, which are derived from it.
	IncludePageContent bool
}

// wireArticle is the on-disk shape. Pointers to slices keep "parsed, empty"
// apart from "not parsed".
type wireArticle struct {
	Language         *string `json:"language"`
	ID               string  `json:"id"`
	Version          *string `json:"version"`
	SearchResultName *string `json:"search_result_name"`
	URL              string  `json:"url"`
	ScraperVersion   string  `json:"scraper_version,omitempty"`

	Title              *string                    `json:"title,omitempty"`
	GivenName          *string                    `json:"given_name,omitempty"`
	FamilyName         *string                    `json:"family_name,omitempty"`
	AuthorsTranslators *[]string                  `json:"authors_translators,omitempty"`
	TextBlocks         *[]types.TextBlock         `json:"text_blocks,omitempty"`
	Text               *string                    `json:"text,omitempty"`
	TextLinks          *[][]types.TextLink        `json:"text_links,omitempty"`
	Sources            *map[string][]types.Source `json:"sources,omitempty"`
	NoticeLinks        *[]types.NoticeLink        `json:"notice_links,omitempty"`
	MetagridID         json.RawMessage            `json:"metagrid_id,omitempty"`
	MetagridLinks      json.RawMessage            `json:"metagrid_links,omitempty"`
	Bref               *[]types.BrefRow           `json:"bref,omitempty"`
	BirthDate          *string                    `json:"birth_date,omitempty"`
	DeathDate          *string                    `json:"death_date,omitempty"`
	Tags               *[]types.Tag               `json:"tags,omitempty"`
	Initial            json.RawMessage            `json:"initial,omitempty"`
	PageContent        *string                    `json:"page_content,omitempty"`
}

// legacyNames holds the field names older exports used.
type legacyNames struct {
	Name    *string         `json:"name"`
	Text    *string         `json:"_text"`
	Initial json.RawMessage `json:"_initial"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullable(p *string) json.RawMessage {
	if p == nil {
		return json.RawMessage("null")
	}
	b, _ := json.Marshal(*p)
	return b
}

// MarshalJSON encodes the article without its page.
func (a *Article) MarshalJSON() ([]byte, error) {
	return a.Encode(EncodeOptions{})
}

// Encode returns the single-line JSON form of the article. The identity
// comes first so the id can be read back without a full decode.
func (a *Article) Encode(opts EncodeOptions) ([]byte, error) {
	w := wireArticle{
		Language:         optional(a.identity.Language),
		ID:               a.identity.ID,
		Version:          optional(a.identity.Version),
		SearchResultName: a.SearchResultName,
		URL:              a.URL(),
		ScraperVersion:   a.ScraperVersion,
		Title:            a.Title,
		GivenName:        a.GivenName,
		FamilyName:       a.FamilyName,
		BirthDate:        a.BirthDate,
		DeathDate:        a.DeathDate,
	}
	if a.AuthorsTranslators != nil {
		w.AuthorsTranslators = &a.AuthorsTranslators
	}
	if a.TextLinks != nil {
		w.TextLinks = &a.TextLinks
	}
	if a.Sources != nil {
		w.Sources = &a.Sources
	}
	if a.NoticeLinks != nil {
		w.NoticeLinks = &a.NoticeLinks
	}
	if a.MetagridLinks != nil {
		w.MetagridID = nullable(a.MetagridID)
		w.MetagridLinks = a.MetagridLinks
	} else if a.MetagridID != nil {
		w.MetagridID = nullable(a.MetagridID)
	}
	if a.Bref != nil {
		w.Bref = &a.Bref
	}
	if a.Tags != nil {
		w.Tags = &a.Tags
	}
	if a.initial.computed {
		w.Initial = nullable(optional(a.initial.value))
	}

	if opts.IncludePageContent && a.page.loaded() {
		content := string(a.page.content)
		w.PageContent = &content
	} else {
		if a.TextBlocks != nil {
			w.TextBlocks = &a.TextBlocks
		}
		if a.text.valid {
			text := a.text.value
			w.Text = &text
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, fmt.Errorf("encode article %s: %w", a.identity.ID, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes either field naming convention. Unknown keys are
// ignored.
func (a *Article) UnmarshalJSON(data []byte) error {
	var w wireArticle
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode article: %w", err)
	}
	var legacy legacyNames
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("decode article: %w", err)
	}
	normalize(&w, &legacy)

	if w.ID == "" {
		return fmt.Errorf("decode article: %w: missing id", types.ErrInvalidReference)
	}

	opts := []Option{}
	if a.logger != nil {
		opts = a.options()
	}
	*a = *newArticle(Identity{
		Language: deref(w.Language),
		ID:       w.ID,
		Version:  deref(w.Version),
	}, opts...)

	a.SearchResultName = w.SearchResultName
	if w.ScraperVersion != "" {
		a.ScraperVersion = w.ScraperVersion
	}
	a.Title, a.GivenName, a.FamilyName = w.Title, w.GivenName, w.FamilyName
	a.BirthDate, a.DeathDate = w.BirthDate, w.DeathDate
	if w.AuthorsTranslators != nil {
		a.AuthorsTranslators = *w.AuthorsTranslators
	}
	if w.TextBlocks != nil {
		a.TextBlocks = *w.TextBlocks
	}
	if w.TextLinks != nil {
		a.TextLinks = *w.TextLinks
	}
	if w.Sources != nil {
		a.Sources = *w.Sources
	}
	if w.NoticeLinks != nil {
		a.NoticeLinks = *w.NoticeLinks
	}
	if w.MetagridID != nil {
		if err := json.Unmarshal(w.MetagridID, &a.MetagridID); err != nil {
			return fmt.Errorf("decode article %s metagrid_id: %w", w.ID, err)
		}
	}
	if w.MetagridLinks != nil {
		a.MetagridLinks = append(json.RawMessage(nil), w.MetagridLinks...)
	}
	if w.Bref != nil {
		a.Bref = *w.Bref
	}
	if w.Tags != nil {
		a.Tags = *w.Tags
	}
	if w.Text != nil {
		a.SetText(*w.Text)
	}
	if w.Initial != nil {
		var initial *string
		if err := json.Unmarshal(w.Initial, &initial); err != nil {
			return fmt.Errorf("decode article %s initial: %w", w.ID, err)
		}
		a.initial = initialCell{value: deref(initial), computed: true}
	}
	if w.PageContent != nil {
		a.SetPageContent([]byte(*w.PageContent))
	}
	return nil
}

// normalize folds the legacy names into the current ones.
func normalize(w *wireArticle, legacy *legacyNames) {
	if w.SearchResultName == nil {
		w.SearchResultName = legacy.Name
	}
	if w.Text == nil {
		w.Text = legacy.Text
	}
	if w.Initial == nil {
		w.Initial = legacy.Initial
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Decode builds an article from one JSON record and applies opts.
func Decode(data []byte, opts ...Option) (*Article, error) {
	a := &Article{}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, err
	}
	a.Configure(opts...)
	return a, nil
}
