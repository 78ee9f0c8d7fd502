package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Title holds the heading of an article. GivenName and FamilyName are only
// set on person articles.
type Title struct {
	Title      string
	GivenName  *string
	FamilyName *string
}

// Title extracts the heading as displayed on the page: the text fragments of
// the heading's first structural child, joined with single spaces.
func (p *Parser) Title(doc *goquery.Document) (Title, error) {
	heading := doc.Find(SelectorTitle).First()
	if heading.Length() == 0 {
		return Title{}, missing("title", SelectorTitle)
	}

	var parts []string
	heading.Children().First().Children().Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, trimmedText(s))
	})

	t := Title{Title: strings.Join(parts, " ")}
	if s := heading.Find(SelectorGivenName).First(); s.Length() > 0 {
		v := trimmedText(s)
		t.GivenName = &v
	}
	if s := heading.Find(SelectorFamilyName).First(); s.Length() > 0 {
		v := trimmedText(s)
		t.FamilyName = &v
	}
	return t, nil
}

// AuthorsTranslators returns the author and translator credits in page order.
func (p *Parser) AuthorsTranslators(doc *goquery.Document) []string {
	out := []string{}
	doc.Find(SelectorAuthor).Each(func(_ int, s *goquery.Selection) {
		out = append(out, trimmedText(s))
	})
	return out
}
