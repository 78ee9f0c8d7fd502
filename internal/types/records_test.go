package types

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestTextBlockJSON(t *testing.T) {
	data, err := json.Marshal(TextBlock{Kind: BlockH2, Text: "Sources"})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["h2","Sources"]` {
		t.Errorf("got %s", data)
	}

	var b TextBlock
	if err := json.Unmarshal([]byte(`["p","Né à Genève."]`), &b); err != nil {
		t.Fatal(err)
	}
	if b.Kind != BlockP || b.Text != "Né à Genève." {
		t.Errorf("got %+v", b)
	}

	for _, bad := range []string{`["p"]`, `{"kind":"p"}`, `["p","a","b"]`} {
		if err := json.Unmarshal([]byte(bad), &b); err == nil {
			t.Errorf("%s: expected error", bad)
		}
	}
}

func TestTagLevels(t *testing.T) {
	tag := Tag{Tag: "Entités politiques / Commune ", URL: "/fr/search/?f_hls.lexicofacet_string=1"}
	levels := tag.Levels()
	if len(levels) != 2 || levels[0] != "Entités politiques" || levels[1] != "Commune" {
		t.Fatalf("levels = %q", levels)
	}
	if got := tag.Last(); got != "Commune" {
		t.Errorf("Last = %q", got)
	}
	if got, ok := tag.Level(0, false); !ok || got != "Entités politiques" {
		t.Errorf("Level(0) = %q, %v", got, ok)
	}
	if _, ok := tag.Level(5, false); ok {
		t.Error("Level(5) should be out of range")
	}
	if got, ok := tag.Level(5, true); !ok || got != "Commune" {
		t.Errorf("Level(5, last) = %q, %v", got, ok)
	}
}

func TestTagEqualIgnoresURL(t *testing.T) {
	a := Tag{Tag: "Personnes", URL: "/fr/a"}
	b := Tag{Tag: "Personnes", URL: "/de/b"}
	if !a.Equal(b) || a.Key() != b.Key() {
		t.Error("tags with the same path should be equal")
	}
	if a.Equal(Tag{Tag: "Familles"}) {
		t.Error("different paths should differ")
	}
}

func TestErrorUnwrap(t *testing.T) {
	fe := &FetchError{URL: "https://hls-dhs-dss.ch/fr/articles/1", StatusCode: 503, Err: ErrEmptyResponse, Retryable: true}
	if !errors.Is(fe, ErrEmptyResponse) || !fe.IsRetryable() {
		t.Error("FetchError should unwrap and be retryable")
	}
	pe := &PipelineError{Stage: "wikidata", ID: "010446", Err: fe}
	var target *FetchError
	if !errors.As(pe, &target) || target.StatusCode != 503 {
		t.Error("PipelineError should unwrap to FetchError")
	}
}

func TestTextLinkJSON(t *testing.T) {
	link := TextLink{Start: 0, End: 7, Mention: "Zwingli", Href: "/fr/articles/010446/"}
	data, err := json.Marshal(link)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"start":0,"end":7,"mention":"Zwingli","href":"/fr/articles/010446/"}`; string(data) != want {
		t.Errorf("unannotated link = %s", data)
	}

	item := "http://www.wikidata.org/entity/Q123034"
	link.WikiLinks = []map[string]string{{"dhsid": "010446"}}
	link.WikidataURL = &item
	data, err = json.Marshal(link)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"start":0,"end":7,"mention":"Zwingli","href":"/fr/articles/010446/","wiki_links":[{"dhsid":"010446"}],"wikidata_url":"http://www.wikidata.org/entity/Q123034","wikipedia_page_title":null}`
	if string(data) != want {
		t.Errorf("annotated link =\n%s\nwant\n%s", data, want)
	}

	var back TextLink
	if err := json.Unmarshal([]byte(`{"start":1,"end":2,"mention":"x","href":"y","wiki_links":[],"wikidata_url":null}`), &back); err != nil {
		t.Fatal(err)
	}
	if back.WikiLinks == nil || len(back.WikiLinks) != 0 {
		t.Errorf("empty wiki links should decode as annotated: %+v", back)
	}
}

func TestResponseStatus(t *testing.T) {
	req, err := NewKindRequest("https://hls-dhs-dss.ch/fr/articles/010446/", KindArticle)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		status          int
		success, server bool
	}{
		{200, true, false},
		{404, false, false},
		{503, false, true},
	}
	for _, tt := range tests {
		resp := NewResponse(req, tt.status, nil)
		if resp.IsSuccess() != tt.success || resp.IsServerError() != tt.server {
			t.Errorf("status %d: success=%v server=%v", tt.status, resp.IsSuccess(), resp.IsServerError())
		}
		if resp.Request != req {
			t.Errorf("status %d: request not kept", tt.status)
		}
	}
}
