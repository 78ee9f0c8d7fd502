package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// XPath equivalents of ".pagination a:last-child", ".search-result a" and
// ".search-result__title".
const (
	xpathLastPage    = `//*[contains(concat(' ', normalize-space(@class), ' '), ' pagination ')]//a[not(following-sibling::*)]`
	xpathResults     = `//*[contains(concat(' ', normalize-space(@class), ' '), ' search-result ')]//a`
	xpathResultTitle = `.//*[contains(concat(' ', normalize-space(@class), ' '), ' search-result__title ')]`
)

// ListingEntry is one row of a search-results page.
type ListingEntry struct {
	Href string
	Name string
}

// Listing is one parsed search-results page.
type Listing struct {
	// Pages is the number of result pages; 1 when there is no pagination.
	Pages   int
	Entries []ListingEntry
}

// ParseListing extracts the page count and the result rows of a listing page.
func ParseListing(body []byte) (*Listing, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	listing := &Listing{Pages: 1}

	if last := htmlquery.FindOne(doc, xpathLastPage); last != nil {
		text := strings.TrimSpace(htmlquery.InnerText(last))
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("parse listing page count %q: %w", text, err)
		}
		listing.Pages = n
	}

	for _, a := range htmlquery.Find(doc, xpathResults) {
		entry := ListingEntry{Href: htmlquery.SelectAttr(a, "href")}
		if t := htmlquery.FindOne(a, xpathResultTitle); t != nil {
			entry.Name = strings.TrimSpace(htmlquery.InnerText(t))
		}
		listing.Entries = append(listing.Entries, entry)
	}
	return listing, nil
}
