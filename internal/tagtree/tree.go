// Package tagtree builds the thematic classification tree out of article
// tags and computes per-node statistics over it.
package tagtree

import (
	"fmt"

	"github.com/IshaanNene/dhscrape/internal/article"
	"github.com/IshaanNene/dhscrape/internal/types"
)

// RootName names the root node of every tree.
const RootName = "root"

// Node fields filled by the annotation and statistics passes.
const (
	FieldArticles           = "articles"
	FieldStatistics         = "statistics"
	FieldChildrenStatistics = "children_statistics"
	FieldTotalStatistics    = "total_statistics"
)

// Node is one level of the classification. Parent holds the parent name
// only; the tree is owned top-down.
type Node struct {
	Name     string
	Parent   string
	Children []*Node

	fields map[string]any
}

// NewNode returns a node without children or fields.
func NewNode(name, parent string) *Node {
	return &Node{Name: name, Parent: parent}
}

// Field returns the named annotation of the node.
func (n *Node) Field(name string) (any, bool) {
	v, ok := n.fields[name]
	return v, ok
}

// SetField sets the named annotation of the node.
func (n *Node) SetField(name string, v any) {
	if n.fields == nil {
		n.fields = map[string]any{}
	}
	n.fields[name] = v
}

// Articles returns the articles attached by AnnotateArticles.
func (n *Node) Articles() []*article.Article {
	v, _ := n.fields[FieldArticles].([]*article.Article)
	return v
}

// child returns the first child named name, nil if there is none.
func (n *Node) child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Missing selects what Lookup does with a level that has no node.
type Missing int

const (
	// MissingNil makes Lookup return nil.
	MissingNil Missing = iota
	// MissingCreate inserts the node.
	MissingCreate
	// MissingError makes Lookup fail with ErrTagNotFound.
	MissingError
)

// Lookup walks the levels of tag from root. Names match case-sensitively
// and the first matching child wins.
func Lookup(root *Node, tag types.Tag, onMissing Missing) (*Node, error) {
	current := root
	for _, level := range tag.Levels() {
		next := current.child(level)
		if next == nil {
			switch onMissing {
			case MissingCreate:
				next = NewNode(level, current.Name)
				current.Children = append(current.Children, next)
			case MissingError:
				return nil, fmt.Errorf("%w: level %q of %s", types.ErrTagNotFound, level, tag)
			default:
				return nil, nil
			}
		}
		current = next
	}
	return current, nil
}

// Build inserts the level path of every tag under a new root.
func Build(tags []types.Tag) *Node {
	root := NewNode(RootName, "")
	for _, t := range tags {
		_, _ = Lookup(root, t, MissingCreate)
	}
	return root
}

// Walk visits the tree children first, then the node itself.
func Walk(n *Node, fn func(*Node)) {
	for _, c := range n.Children {
		Walk(c, fn)
	}
	fn(n)
}

// Fold computes fn bottom-up: fn receives the node and the results of its
// children, in child order.
func Fold[T any](n *Node, fn func(n *Node, children []T) T) T {
	results := make([]T, len(n.Children))
	for i, c := range n.Children {
		results[i] = Fold(c, fn)
	}
	return fn(n, results)
}

// Count returns the number of nodes, root included.
func Count(root *Node) int {
	return Fold(root, func(_ *Node, children []int) int {
		total := 1
		for _, c := range children {
			total += c
		}
		return total
	})
}
