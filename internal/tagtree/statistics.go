package tagtree

// ComputeStatistics folds the tree bottom-up. Every node gets its own
// statistic (stat), the totals of its children and its own total
// (aggregate of both). The root total is returned.
func ComputeStatistics[T any](root *Node, stat func(*Node) T, aggregate func(own T, children []T) T) T {
	return Fold(root, func(n *Node, children []T) T {
		own := stat(n)
		total := aggregate(own, children)
		n.SetField(FieldChildrenStatistics, children)
		n.SetField(FieldStatistics, own)
		n.SetField(FieldTotalStatistics, total)
		return total
	})
}

// Statistic returns the typed statistics fields of a node.
func Statistic[T any](n *Node) (own T, children []T, total T, ok bool) {
	o, ok1 := n.fields[FieldStatistics].(T)
	c, ok2 := n.fields[FieldChildrenStatistics].([]T)
	t, ok3 := n.fields[FieldTotalStatistics].(T)
	return o, c, t, ok1 && ok2 && ok3
}

// ArticleCount is a one-element statistic: the number of articles tagged
// at the node.
func ArticleCount(n *Node) []int {
	return []int{len(n.Articles())}
}

// SumLists adds the children lists element-wise to own.
func SumLists(own []int, children [][]int) []int {
	out := append([]int(nil), own...)
	for i := range out {
		for _, c := range children {
			if i < len(c) {
				out[i] += c[i]
			}
		}
	}
	return out
}

// IDSet is a set of article ids.
type IDSet map[string]struct{}

// ArticlesByCategory returns a statistic giving, for each category, the
// ids of the node articles that belong to it.
func ArticlesByCategory(idsByCategory map[string]IDSet) func(*Node) map[string]IDSet {
	return func(n *Node) map[string]IDSet {
		out := make(map[string]IDSet, len(idsByCategory))
		for category, ids := range idsByCategory {
			set := IDSet{}
			for _, a := range n.Articles() {
				if _, ok := ids[a.ID()]; ok {
					set[a.ID()] = struct{}{}
				}
			}
			out[category] = set
		}
		return out
	}
}

// UnionByCategory merges the children sets into own, category by category.
func UnionByCategory(own map[string]IDSet, children []map[string]IDSet) map[string]IDSet {
	out := make(map[string]IDSet, len(own))
	for category, ids := range own {
		set := IDSet{}
		for id := range ids {
			set[id] = struct{}{}
		}
		for _, c := range children {
			for id := range c[category] {
				set[id] = struct{}{}
			}
		}
		out[category] = set
	}
	return out
}

// Proportions divides every category count by the total number of ids seen.
func Proportions(sets map[string]IDSet) map[string]float64 {
	all := IDSet{}
	for _, s := range sets {
		for id := range s {
			all[id] = struct{}{}
		}
	}
	out := make(map[string]float64, len(sets))
	for category, s := range sets {
		if len(all) == 0 {
			out[category] = 0
			continue
		}
		out[category] = float64(len(s)) / float64(len(all))
	}
	return out
}
