package parser

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/dhscrape/internal/types"
)

// Bref is the parsed "at a glance" box. BirthDate and DeathDate repeat the
// values of the biographical dates row.
type Bref struct {
	Rows      []types.BrefRow
	BirthDate *string
	DeathDate *string
}

// Bref parses the "at a glance" box. The box layout is only stable on the
// French edition.
func (p *Parser) Bref(doc *goquery.Document) (Bref, error) {
	b := Bref{Rows: []types.BrefRow{}}

	box := doc.Find(SelectorBrefBox).First()
	if box.Length() == 0 {
		return b, nil
	}
	title := box.Find(SelectorBoxTitle).First()
	if title.Length() == 0 || !contains(BrefTitles, trimmedText(title)) {
		return b, nil
	}

	var err error
	box.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		var row types.BrefRow
		row, err = brefRow(tr)
		if err != nil {
			return false
		}
		b.Rows = append(b.Rows, row)
		return true
	})
	if err != nil {
		return Bref{}, err
	}

	for _, row := range b.Rows {
		if !contains(BiographicalDateTitles, row.Title) {
			continue
		}
		if row.BirthDate != nil {
			b.BirthDate = row.BirthDate
		}
		if row.DeathDate != nil {
			b.DeathDate = row.DeathDate
		}
	}
	return b, nil
}

func brefRow(tr *goquery.Selection) (types.BrefRow, error) {
	title := tr.Find(".hls-service-box-table-title").First()
	if title.Length() == 0 {
		return types.BrefRow{}, missing("bref", ".hls-service-box-table-title")
	}
	text := tr.Find(".hls-service-box-table-text").First()
	if text.Length() == 0 {
		return types.BrefRow{}, missing("bref", ".hls-service-box-table-text")
	}

	row := types.BrefRow{
		Title: trimmedText(title),
		Text:  trimmedText(text),
		Link:  hrefs(tr.Find(".hls-service-box-table-text a")),
	}
	if contains(BiographicalDateTitles, row.Title) {
		if s := tr.Find(".hls-service-box-table-text span[itemprop=birthDate]").First(); s.Length() > 0 {
			v := trimmedText(s)
			row.BirthDate = &v
		}
		if s := tr.Find(".hls-service-box-table-text span[itemprop=deathDate]").First(); s.Length() > 0 {
			v := trimmedText(s)
			row.DeathDate = &v
		}
	}
	return row, nil
}

// IsPerson reports whether rows hold a biographical dates row.
func IsPerson(rows []types.BrefRow) bool {
	for _, r := range rows {
		if contains(BiographicalDateTitles, r.Title) {
			return true
		}
	}
	return false
}

// Tags returns the thematic classification of the article. A box with a
// different title is not a tag box and yields no tags.
func (p *Parser) Tags(doc *goquery.Document) []types.Tag {
	tags := []types.Tag{}

	box := doc.Find(SelectorTagBox).First()
	if box.Length() == 0 {
		return tags
	}
	title := box.Find(SelectorBoxTitle).First()
	if title.Length() == 0 || !contains(TagBoxTitles, trimmedText(title)) {
		return tags
	}

	box.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		tags = append(tags, types.Tag{Tag: a.Text(), URL: href})
	})
	return tags
}
