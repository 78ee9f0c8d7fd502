// Package wikidata cross-references DHS ids with the Wikidata entities that
// point to them (property P902) and their Wikipedia page titles.
//
// The table is a CSV export of a SPARQL query with at least the columns
// dhsid and item, plus one name<language> column per Wikipedia language.
package wikidata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/IshaanNene/dhscrape/internal/article"
)

const (
	ColumnDHSID = "dhsid"
	ColumnItem  = "item"
	ColumnGND   = "gndid"
	// ColumnNamePrefix is followed by a language code, e.g. "namefr".
	ColumnNamePrefix = "name"
)

// Record is one CSV row keyed by column name.
type Record map[string]string

// Table maps a DHS id to its records, in file order.
type Table struct {
	links map[string][]Record
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*Table{}
)

// Load reads the table at path once per process and returns the cached
// copy afterwards.
func Load(path string) (*Table, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if t, ok := cache[path]; ok {
		return t, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wikidata links file %s: %w (export the SPARQL query result as CSV first)", path, err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("wikidata links file %s: %w", path, err)
	}
	cache[path] = t
	return t, nil
}

// Parse reads a table from CSV with a header row.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Table{links: map[string][]Record{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !hasColumn(header, ColumnDHSID) {
		return nil, fmt.Errorf("missing %q column", ColumnDHSID)
	}

	t := &Table{links: map[string][]Record{}}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		id := rec[ColumnDHSID]
		t.links[id] = append(t.links[id], rec)
	}
	return t, nil
}

func hasColumn(header []string, name string) bool {
	for _, h := range header {
		if h == name {
			return true
		}
	}
	return false
}

// Len returns the number of distinct DHS ids.
func (t *Table) Len() int { return len(t.links) }

// Links returns every record pointing to id, or nil.
func (t *Table) Links(id string) []Record {
	return t.links[id]
}

// MainLink picks the Wikidata item and Wikipedia title of id in language:
// the first record with a usable title wins. When no record has one, the
// item of the last record is returned with no title.
func (t *Table) MainLink(id, language string) (item, title *string) {
	key := ColumnNamePrefix + language
	for _, rec := range t.links[id] {
		url := rec[ColumnItem]
		name, ok := rec[key]
		if ok && name != "" && name != "null" {
			return &url, &name
		}
		item, title = &url, nil
	}
	return item, title
}

// AnnotateTextLinks adds wiki_links, wikidata_url and wikipedia_page_title
// to every in-text link of a. Titles are taken in the article language.
// Links to other sites get no wiki links and no main link.
func (t *Table) AnnotateTextLinks(a *article.Article, logger *slog.Logger) {
	if a.TextLinks == nil {
		logger.Warn("article has no parsed text links, skipping wikidata annotation", "id", a.ID())
		return
	}
	for _, block := range a.TextLinks {
		for i := range block {
			link := &block[i]
			target, ok := article.ParseURL(link.Href)
			if !ok {
				link.WikiLinks = []map[string]string{}
				link.WikidataURL, link.WikipediaPageTitle = nil, nil
				continue
			}
			links := t.Links(target.ID)
			link.WikiLinks = make([]map[string]string, len(links))
			for j, rec := range links {
				link.WikiLinks[j] = rec
			}
			link.WikidataURL, link.WikipediaPageTitle = t.MainLink(target.ID, a.Language())
		}
	}
}
