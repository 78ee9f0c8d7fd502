// Package article holds the encyclopedia entity: its identity, the fields
// extracted from its page, and its JSON form.
package article

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/IshaanNene/dhscrape/internal/types"
)

// Host serves every language edition.
const Host = "https://hls-dhs-dss.ch"

// LegacyIDPrefix is carried by ids of older exports.
const LegacyIDPrefix = "dhs-"

var urlRegex = regexp.MustCompile(`/(?:(\w+)/)?articles/([^/?#]+)(?:/(\d{4}-\d{2}-\d{2}))?`)

// Identity is the (language, id, version) triple. An empty language means
// the server default (German) and an empty version the latest one.
// Identity is comparable and can be used as a map key.
type Identity struct {
	Language string
	ID       string
	Version  string
}

// ParseURL extracts the identity from an article URL or path. ok is false
// when the path has no articles segment with an id.
func ParseURL(rawURL string) (Identity, bool) {
	m := urlRegex.FindStringSubmatch(rawURL)
	if m == nil {
		return Identity{}, false
	}
	return Identity{Language: m[1], ID: m[2], Version: m[3]}, true
}

// CanonicalURL builds the article URL, leaving out the segments of an
// empty language or version.
func CanonicalURL(id, language, version string) string {
	id = strings.TrimPrefix(id, LegacyIDPrefix)
	var sb strings.Builder
	sb.WriteString(Host)
	if language != "" {
		sb.WriteString("/")
		sb.WriteString(language)
	}
	sb.WriteString("/articles/")
	sb.WriteString(id)
	if version != "" {
		sb.WriteString("/")
		sb.WriteString(version)
	}
	return sb.String()
}

// URL returns the canonical URL of the identity.
func (i Identity) URL() string {
	return CanonicalURL(i.ID, i.Language, i.Version)
}

func (i Identity) String() string {
	return fmt.Sprintf("%s/%s/%s", i.Language, i.ID, i.Version)
}

// Reference is whatever a caller knows about an article. Either ID or URL
// must be set; when ID is empty the identity comes from URL.
type Reference struct {
	Language         string
	ID               string
	Version          string
	URL              string
	SearchResultName string
}

func (r Reference) identity() (Identity, error) {
	if r.ID != "" {
		return Identity{Language: r.Language, ID: r.ID, Version: r.Version}, nil
	}
	if r.URL == "" {
		return Identity{}, fmt.Errorf("%w: one of id or url must be set", types.ErrInvalidReference)
	}
	id, ok := ParseURL(r.URL)
	if !ok || id.ID == "" {
		return Identity{}, fmt.Errorf("%w: not an article url: %s", types.ErrInvalidReference, r.URL)
	}
	return id, nil
}
