package wikidata

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/IshaanNene/dhscrape/internal/article"
	"github.com/IshaanNene/dhscrape/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func loadFixture(t *testing.T) *Table {
	t.Helper()
	table, err := Load("testdata/links.csv")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return table
}

func TestLoadCachesPerPath(t *testing.T) {
	a := loadFixture(t)
	b := loadFixture(t)
	if a != b {
		t.Error("second load should return the cached table")
	}
	if a.Len() != 3 {
		t.Errorf("Len = %d, want 3", a.Len())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("testdata/nope.csv"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseRequiresDHSID(t *testing.T) {
	if _, err := Parse(strings.NewReader("item,name\nx,y\n")); err == nil {
		t.Fatal("expected error for missing dhsid column")
	}
}

func TestLinks(t *testing.T) {
	table := loadFixture(t)
	if got := len(table.Links("000171")); got != 2 {
		t.Errorf("Links(000171) = %d records, want 2", got)
	}
	if got := table.Links("999999"); got != nil {
		t.Errorf("unknown id should have no links, got %v", got)
	}
}

func TestMainLink(t *testing.T) {
	table := loadFixture(t)
	tests := []struct {
		id, lang  string
		wantItem  string
		wantTitle string
	}{
		{"010446", "de", "http://www.wikidata.org/entity/Q123034", "Huldrych Zwingli"},
		// "null" is skipped in favour of the next record.
		{"000171", "fr", "http://www.wikidata.org/entity/Q11943", "Zurich"},
		{"000171", "de", "http://www.wikidata.org/entity/Q72", "Zürich"},
		{"000171", "it", "http://www.wikidata.org/entity/Q72", "Zurigo"},
		// No title in any record: item of the last record.
		{"007388", "fr", "http://www.wikidata.org/entity/Q999", ""},
		{"000171", "en", "http://www.wikidata.org/entity/Q11943", ""},
		{"999999", "fr", "", ""},
	}
	for _, tt := range tests {
		item, title := table.MainLink(tt.id, tt.lang)
		if got := deref(item); got != tt.wantItem {
			t.Errorf("MainLink(%s, %s) item = %q, want %q", tt.id, tt.lang, got, tt.wantItem)
		}
		if got := deref(title); got != tt.wantTitle {
			t.Errorf("MainLink(%s, %s) title = %q, want %q", tt.id, tt.lang, got, tt.wantTitle)
		}
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func TestAnnotateTextLinks(t *testing.T) {
	table := loadFixture(t)
	a, err := article.New(article.Reference{Language: "fr", ID: "000001"}, article.WithLogger(testLogger))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.TextLinks = [][]types.TextLink{
		{
			{Start: 0, End: 7, Mention: "Zwingli", Href: "/fr/articles/010446/2013-11-06/"},
			{Start: 10, End: 12, Mention: "ici", Href: "https://example.org/"},
		},
		{},
	}
	table.AnnotateTextLinks(a, testLogger)

	link := a.TextLinks[0][0]
	if len(link.WikiLinks) != 1 || link.WikiLinks[0][ColumnGND] != "118637479" {
		t.Errorf("wiki links = %v", link.WikiLinks)
	}
	if deref(link.WikidataURL) != "http://www.wikidata.org/entity/Q123034" || deref(link.WikipediaPageTitle) != "Ulrich Zwingli" {
		t.Errorf("main link = %v %v", link.WikidataURL, link.WikipediaPageTitle)
	}
	other := a.TextLinks[0][1]
	if other.WikiLinks == nil || len(other.WikiLinks) != 0 || other.WikidataURL != nil || other.WikipediaPageTitle != nil {
		t.Errorf("non-article link should carry empty wikidata fields: %+v", other)
	}
	data, err := json.Marshal(other)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"start":10,"end":12,"mention":"ici","href":"https://example.org/","wiki_links":[],"wikidata_url":null,"wikipedia_page_title":null}`
	if string(data) != want {
		t.Errorf("encoded link =\n%s\nwant\n%s", data, want)
	}
}

func TestAnnotateWithoutTextLinks(t *testing.T) {
	table := loadFixture(t)
	a, _ := article.New(article.Reference{ID: "000001"}, article.WithLogger(testLogger))
	table.AnnotateTextLinks(a, testLogger)
	if a.TextLinks != nil {
		t.Error("text links should stay unparsed")
	}
}
