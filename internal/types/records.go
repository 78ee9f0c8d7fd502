package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Text block kinds produced by the text-block parser.
const (
	BlockH1 = "h1"
	BlockH2 = "h2"
	BlockH3 = "h3"
	BlockH4 = "h4"
	BlockP  = "p"
)

// TextBlock is one paragraph or heading of an article body.
// On disk it is a two-element array: ["p", "text"].
type TextBlock struct {
	Kind string
	Text string
}

// MarshalJSON encodes the block as [kind, text].
func (b TextBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{b.Kind, b.Text})
}

// UnmarshalJSON decodes a [kind, text] pair.
func (b *TextBlock) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode text block: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode text block: expected 2 elements, got %d", len(pair))
	}
	b.Kind, b.Text = pair[0], pair[1]
	return nil
}

// TextLink is an anchor found inside a text block. Start and End are
// code point offsets into the block text, End exclusive.
type TextLink struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Mention string `json:"mention"`
	Href    string `json:"href"`

	// Filled by the wikidata cross-reference pass. A non-nil WikiLinks
	// marks the link as annotated.
	WikiLinks          []map[string]string `json:"wiki_links,omitempty"`
	WikidataURL        *string             `json:"wikidata_url,omitempty"`
	WikipediaPageTitle *string             `json:"wikipedia_page_title,omitempty"`
}

// MarshalJSON leaves the wikidata fields out of links that were never
// annotated and always writes them, null when unknown, on annotated ones.
func (l TextLink) MarshalJSON() ([]byte, error) {
	type plain TextLink
	if l.WikiLinks == nil {
		return json.Marshal(plain(l))
	}
	return json.Marshal(struct {
		plain
		WikiLinks          []map[string]string `json:"wiki_links"`
		WikidataURL        *string             `json:"wikidata_url"`
		WikipediaPageTitle *string             `json:"wikipedia_page_title"`
	}{plain(l), l.WikiLinks, l.WikidataURL, l.WikipediaPageTitle})
}

// Source is one bibliographic entry. Sub-fields are present only when
// their marker occurs in the entry.
type Source struct {
	Text    string   `json:"text"`
	Author  []string `json:"author,omitempty"`
	TPub    []string `json:"tpub,omitempty"`
	Journal []string `json:"journal,omitempty"`
	Link    []string `json:"link,omitempty"`
}

// NoticeLink points to an authority record (mostly GND).
type NoticeLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// BrefRow is one row of the "at a glance" box.
type BrefRow struct {
	Title     string   `json:"title"`
	Text      string   `json:"text"`
	Link      []string `json:"link,omitempty"`
	BirthDate *string  `json:"birth_date,omitempty"`
	DeathDate *string  `json:"death_date,omitempty"`
}

// Tag is a position in the thematic classification, e.g.
// "Entités politiques / Commune". Two tags are the same tag when their
// paths match, whatever their URL.
type Tag struct {
	Tag string `json:"tag"`
	URL string `json:"url"`
}

// Key returns the identity of the tag. Use it as a map key.
func (t Tag) Key() string { return t.Tag }

// Equal reports whether both tags name the same path.
func (t Tag) Equal(o Tag) bool { return t.Tag == o.Tag }

// Levels splits the path on "/" and trims every level.
func (t Tag) Levels() []string {
	parts := strings.Split(t.Tag, "/")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Level returns the n-th level. When n is out of range it returns the
// last level if defaultToLast is set, "" and false otherwise.
func (t Tag) Level(n int, defaultToLast bool) (string, bool) {
	levels := t.Levels()
	if n >= 0 && n < len(levels) {
		return levels[n], true
	}
	if defaultToLast {
		return levels[len(levels)-1], true
	}
	return "", false
}

// Last returns the final level of the path.
func (t Tag) Last() string {
	levels := t.Levels()
	return levels[len(levels)-1]
}

func (t Tag) String() string {
	return fmt.Sprintf("Tag(%q)", t.Tag)
}
