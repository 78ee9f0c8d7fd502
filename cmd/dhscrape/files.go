package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/dhscrape/internal/storage"
	"github.com/IshaanNene/dhscrape/internal/tagtree"
)

// idsCmd creates the "ids" subcommand.
func idsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ids <file.jsonl>",
		Short: "Print the id of every article of a JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			ids, err := storage.ReadIDs(args[0], logger)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

// tagsCmd creates the "tags" subcommand.
func tagsCmd() *cobra.Command {
	var (
		maxDepth int
		ids      []string
	)
	cmd := &cobra.Command{
		Use:   "tags <file.jsonl>",
		Short: "Print the tag tree of a JSONL file with article counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := storage.Filter{}
			if len(ids) > 0 {
				filter.IDs = make(map[string]bool, len(ids))
				for _, id := range ids {
					filter.IDs[id] = true
				}
			}
			articles, err := storage.LoadJSONL(args[0], filter)
			if err != nil {
				return err
			}

			root := tagtree.Build(tagtree.Tags(articles))
			if err := tagtree.AnnotateArticles(root, articles); err != nil {
				return err
			}
			tagtree.ComputeStatistics(root, tagtree.ArticleCount, tagtree.SumLists)
			printTree(root, 0, maxDepth)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDepth, "depth", 0, "maximum depth to print (0 = all)")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "only count these article ids")
	return cmd
}

func printTree(n *tagtree.Node, depth, maxDepth int) {
	own, _, total, _ := tagtree.Statistic[[]int](n)
	count, sum := 0, 0
	if len(own) > 0 {
		count = own[0]
	}
	if len(total) > 0 {
		sum = total[0]
	}
	fmt.Printf("%s%s (%d, total %d)\n", strings.Repeat("  ", depth), n.Name, count, sum)
	if maxDepth > 0 && depth+1 > maxDepth {
		return
	}
	children := append([]*tagtree.Node(nil), n.Children...)
	sort.SliceStable(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	for _, c := range children {
		printTree(c, depth+1, maxDepth)
	}
}
