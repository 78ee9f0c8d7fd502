package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/dhscrape/internal/types"
)

// DefaultTextSeparator joins text blocks into the article text.
const DefaultTextSeparator = "\n\n"

// wordBoundaryRegex finds a capital glued to the preceding word.
var wordBoundaryRegex = regexp.MustCompile(`([\p{L}\p{N}_]+)([A-Z])`)

// TextElements parses content into a fresh tree, drops the media captions
// and returns the paragraph and heading elements in document order.
// The tree is private to the caller since it has been mutated.
func TextElements(content []byte) (*goquery.Selection, error) {
	doc, err := Document(content)
	if err != nil {
		return nil, err
	}
	doc.Find(SelectorMediaContent).Remove()
	return doc.Find(SelectorTextElements), nil
}

// TextBlocks returns the kind and text of every text element. The first
// block gets a space inserted before each capital glued to a word, which
// repairs the way person titles are rendered.
func (p *Parser) TextBlocks(elements *goquery.Selection) []types.TextBlock {
	blocks := make([]types.TextBlock, 0, elements.Length())
	elements.Each(func(_ int, s *goquery.Selection) {
		blocks = append(blocks, types.TextBlock{Kind: goquery.NodeName(s), Text: s.Text()})
	})
	if len(blocks) > 0 {
		blocks[0].Text = FixWordBoundaries(blocks[0].Text)
	}
	return blocks
}

// FixWordBoundaries turns "JohnSmith" into "John Smith".
func FixWordBoundaries(s string) string {
	return wordBoundaryRegex.ReplaceAllString(s, "${1} ${2}")
}

// Text joins the raw element texts with sep.
func (p *Parser) Text(elements *goquery.Selection, sep string) string {
	texts := make([]string, 0, elements.Length())
	elements.Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, s.Text())
	})
	return strings.Join(texts, sep)
}

// TextLinks returns, for every text element, the anchors it contains with
// their code point span in the element text.
func (p *Parser) TextLinks(elements *goquery.Selection) [][]types.TextLink {
	out := make([][]types.TextLink, 0, elements.Length())
	elements.Each(func(_ int, s *goquery.Selection) {
		out = append(out, BlockLinks(s.Get(0)))
	})
	return out
}

// BlockLinks walks n depth-first over text runs and anchors, without
// descending into anchors, and records each anchor span. Text runs and
// anchor mentions together cover the whole element text.
func BlockLinks(n *html.Node) []types.TextLink {
	links := []types.TextLink{}
	offset := 0
	walkTextAndLinks(n, func(node *html.Node) {
		if node.Type == html.TextNode {
			offset += utf8.RuneCountInString(node.Data)
			return
		}
		mention := nodeText(node)
		length := utf8.RuneCountInString(mention)
		links = append(links, types.TextLink{
			Start:   offset,
			End:     offset + length,
			Mention: mention,
			Href:    attr(node, "href"),
		})
		offset += length
	})
	return links
}

func walkTextAndLinks(n *html.Node, visit func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			visit(c)
		case c.Type == html.ElementNode && c.Data == "a":
			visit(c)
		case c.Type == html.ElementNode:
			walkTextAndLinks(c, visit)
		}
	}
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
