package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/dhscrape/internal/article"
	"github.com/IshaanNene/dhscrape/internal/config"
)

// articleCmd creates the "article" subcommand.
func articleCmd() *cobra.Command {
	var (
		language     string
		withInitial  bool
		withWikidata bool
		pageContent  bool
	)

	cmd := &cobra.Command{
		Use:   "article <url|id>",
		Short: "Parse one article and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(func(cfg *config.Config) {
				if language != "" {
					cfg.Scraper.Language = language
				}
			})
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := signalContext()
			defer cancel()

			a, err := s.client.Article(ctx, args[0])
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			p, err := s.pipeline(pipelineFlags{initial: withInitial, wikidata: withWikidata})
			if err != nil {
				return err
			}
			if a, err = p.Process(ctx, a); err != nil {
				return err
			}

			data, err := a.Encode(article.EncodeOptions{IncludePageContent: pageContent})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(os.Stdout, string(data))
			return err
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "language of a bare id: fr, de or it")
	cmd.Flags().BoolVar(&withInitial, "initial", false, "compute the identifying initial")
	cmd.Flags().BoolVar(&withWikidata, "wikidata", false, "annotate text links from the wikidata links file")
	cmd.Flags().BoolVar(&pageContent, "page-content", false, "include the raw page instead of the derived text")
	return cmd
}
