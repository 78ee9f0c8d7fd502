// Package parser holds the field extractors for encyclopedia article pages
// and the search-listing parser. Field extractors are pure functions of a
// parsed page and can be run in any order, any number of times.
package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/dhscrape/internal/types"
)

// Locale variants of the box titles the page layout uses.
var (
	BrefTitles             = []string{"En bref", "Kurzinformationen", "Scheda informativa"}
	BiographicalDateTitles = []string{"Dates biographiques", "Lebensdaten", "Dati biografici"}
	TagBoxTitles           = []string{"Indexation thématique", "Systematik", "Classificazione"}
)

// Selectors of the article page layout.
const (
	SelectorTitle        = ".hls-article-title"
	SelectorGivenName    = "span[itemprop=givenName]"
	SelectorFamilyName   = "span[itemprop=familyName]"
	SelectorAuthor       = ".hls-article-text-author"
	SelectorMediaContent = ".media-content"
	SelectorTextElements = ".hls-article-text-unit p, h1, h2, .hls-article-text-unit h3, .hls-article-text-unit h4"
	SelectorSourcePanels = "#_hls_references .panel"
	SelectorNoticeLinks  = ".hls-service-box-left a"
	SelectorMetagrid     = "#hls-service-box-metagrid"
	SelectorBrefBox      = ".hls-service-box-right .hls-service-box-element:first-child"
	SelectorTagBox       = ".hls-service-box-right .hls-service-box-element:last-child"
	SelectorBoxTitle     = ".hls-service-box-title"
)

// Parser extracts article fields from a parsed page tree.
type Parser struct {
	logger *slog.Logger
}

// New creates a field parser. The logger receives the non-fatal findings
// of the extractors (repeated markers, skipped rows).
func New(logger *slog.Logger) *Parser {
	return &Parser{
		logger: logger.With("component", "field_parser"),
	}
}

// Document parses raw page content into a goquery tree.
func Document(content []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func trimmedText(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

func hrefs(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		out = append(out, href)
	})
	return out
}

func missing(field, selector string) error {
	return &types.ParseError{Field: field, Selector: selector, Err: fmt.Errorf("no element matches")}
}
