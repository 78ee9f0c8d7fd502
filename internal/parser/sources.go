package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/dhscrape/internal/types"
)

// DefaultSourceSection keys the sources of a panel without a title.
const DefaultSourceSection = "default"

// Sources groups the bibliography entries by reference panel. id is only
// used to give context to the log.
func (p *Parser) Sources(doc *goquery.Document, id string) map[string][]types.Source {
	out := map[string][]types.Source{}
	doc.Find(SelectorSourcePanels).Each(func(_ int, panel *goquery.Selection) {
		title := DefaultSourceSection
		if t := panel.Find(".panel-title").First(); t.Length() > 0 {
			title = trimmedText(t)
		}

		sources := []types.Source{}
		panel.Find("li").Each(func(_ int, li *goquery.Selection) {
			sources = append(sources, p.source(li, id))
		})
		out[title] = sources
	})
	return out
}

func (p *Parser) source(li *goquery.Selection, id string) types.Source {
	src := types.Source{
		Text:    trimmedText(li),
		Author:  texts(li.Find(".au")),
		TPub:    texts(li.Find(".tpub")),
		Journal: texts(li.Find("em")),
		Link:    hrefs(li.Find("a")),
	}
	if len(src.Author) > 1 {
		p.logger.Warn("more than one author for a source", "id", id, "source", src.Text)
	}
	if len(src.Link) > 1 {
		p.logger.Warn("more than one link for a source", "id", id, "source", src.Text)
	}
	return src
}

// texts returns nil for an empty selection so the sub-field stays absent.
func texts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, trimmedText(s))
	})
	return out
}

// NoticeLinks returns the authority record links, mostly GND.
func (p *Parser) NoticeLinks(doc *goquery.Document) []types.NoticeLink {
	out := []types.NoticeLink{}
	doc.Find(SelectorNoticeLinks).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		out = append(out, types.NoticeLink{Title: a.Text(), URL: href})
	})
	return out
}

// MetagridID reads the cross-reference id of the page, if the marker is there.
func (p *Parser) MetagridID(doc *goquery.Document) (string, bool) {
	div := doc.Find(SelectorMetagrid).First()
	if div.Length() == 0 {
		return "", false
	}
	return div.AttrOr("articleid", ""), true
}

// MetagridURL fills the id and language placeholders of template.
// An empty language asks for German.
func MetagridURL(template, id, language string) string {
	if language == "" {
		language = "de"
	}
	return strings.NewReplacer("<article_id>", id, "<language>", language).Replace(template)
}
