package tagtree

import (
	"fmt"

	"github.com/IshaanNene/dhscrape/internal/article"
	"github.com/IshaanNene/dhscrape/internal/types"
)

// TagArticles pairs a tag with the articles carrying it.
type TagArticles struct {
	Tag      types.Tag
	Articles []*article.Article
}

// ArticlesPerTag groups articles by tag, tags in order of first appearance.
// Articles without parsed tags are skipped.
func ArticlesPerTag(articles []*article.Article) []TagArticles {
	index := map[string]int{}
	var out []TagArticles
	for _, a := range articles {
		seen := map[string]bool{}
		for _, t := range a.Tags {
			if seen[t.Key()] {
				continue
			}
			seen[t.Key()] = true

			i, ok := index[t.Key()]
			if !ok {
				i = len(out)
				index[t.Key()] = i
				out = append(out, TagArticles{Tag: t})
			}
			out[i].Articles = append(out[i].Articles, a)
		}
	}
	return out
}

// Tags returns the distinct tags of articles in order of first appearance.
func Tags(articles []*article.Article) []types.Tag {
	groups := ArticlesPerTag(articles)
	tags := make([]types.Tag, len(groups))
	for i, g := range groups {
		tags[i] = g.Tag
	}
	return tags
}

// AnnotateArticles gives every node an articles field: the articles whose
// tag ends exactly at that node, an empty list elsewhere. Ancestors do not
// receive the articles of their descendants.
func AnnotateArticles(root *Node, articles []*article.Article) error {
	return AnnotateGroups(root, ArticlesPerTag(articles))
}

// AnnotateGroups is AnnotateArticles with the grouping already done.
func AnnotateGroups(root *Node, groups []TagArticles) error {
	Walk(root, func(n *Node) {
		n.SetField(FieldArticles, []*article.Article{})
	})
	for _, g := range groups {
		node, err := Lookup(root, g.Tag, MissingNil)
		if err != nil {
			return err
		}
		if node == nil {
			return fmt.Errorf("%w: %s", types.ErrTagNotFound, g.Tag)
		}
		node.SetField(FieldArticles, append([]*article.Article(nil), g.Articles...))
	}
	return nil
}

// MutateNodeField replaces the named field of every node by fn of its
// value, children first. The returned function puts the original values
// back; it relies on the tree shape being unchanged.
func MutateNodeField(root *Node, field string, fn func(any) any) (revert func()) {
	var originals []any
	var present []bool
	Walk(root, func(n *Node) {
		v, ok := n.Field(field)
		originals = append(originals, v)
		present = append(present, ok)
		n.SetField(field, fn(v))
	})

	return func() {
		i := 0
		Walk(root, func(n *Node) {
			if present[i] {
				n.SetField(field, originals[i])
			} else {
				delete(n.fields, field)
			}
			i++
		})
	}
}
