package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/dhscrape/internal/article"
	"github.com/IshaanNene/dhscrape/internal/config"
	"github.com/IshaanNene/dhscrape/internal/crawler"
	"github.com/IshaanNene/dhscrape/internal/pipeline"
	"github.com/IshaanNene/dhscrape/internal/storage"
	"github.com/IshaanNene/dhscrape/internal/wikidata"
)

// crawlFlags are shared by the listing subcommands.
type crawlFlags struct {
	language      string
	output        string
	storageType   string
	maxArticles   int
	parse         bool
	forceLanguage string
	delay         string
	keepDupes     bool
	pipelineFlags
}

type pipelineFlags struct {
	initial     bool
	wikidata    bool
	personsOnly bool
	tags        []string
	dropPages   bool
}

func (f *crawlFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.language, "language", "l", "", "edition to crawl: fr, de or it")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output JSONL file path")
	cmd.Flags().StringVar(&f.storageType, "storage", "", "storage backend: jsonl, mongodb, multi")
	cmd.Flags().IntVarP(&f.maxArticles, "max", "m", 0, "maximum number of results per listing (0 = unlimited)")
	cmd.Flags().BoolVarP(&f.parse, "parse", "p", false, "download and parse every article")
	cmd.Flags().StringVar(&f.forceLanguage, "force-language", "", "rewrite the language of every result")
	cmd.Flags().StringVar(&f.delay, "delay", "", "politeness delay between requests")
	cmd.Flags().BoolVar(&f.keepDupes, "keep-duplicates", false, "yield articles listed more than once")
	cmd.Flags().BoolVar(&f.initial, "initial", false, "compute the identifying initial of parsed articles")
	cmd.Flags().BoolVar(&f.wikidata, "wikidata", false, "annotate text links from the wikidata links file")
	cmd.Flags().BoolVar(&f.personsOnly, "persons", false, "keep biographical articles only (implies --parse)")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "keep articles with a tag starting with this path (implies --parse)")
	cmd.Flags().BoolVar(&f.dropPages, "drop-pages", true, "free each page once parsed")
}

func (f *crawlFlags) apply(cfg *config.Config) {
	if f.language != "" {
		cfg.Scraper.Language = f.language
	}
	if f.output != "" {
		cfg.Storage.OutputPath = f.output
	}
	if f.storageType != "" {
		cfg.Storage.Type = f.storageType
	}
	if f.maxArticles > 0 {
		cfg.Scraper.MaxArticles = f.maxArticles
	}
	if f.parse || f.personsOnly || len(f.tags) > 0 || f.initial {
		cfg.Scraper.ParseArticles = true
	}
	if f.forceLanguage != "" {
		cfg.Scraper.ForceLanguage = f.forceLanguage
	}
	if f.delay != "" {
		if d, err := time.ParseDuration(f.delay); err == nil {
			cfg.Scraper.PolitenessDelay = d
		}
	}
	if f.keepDupes {
		cfg.Scraper.SkipDuplicates = false
	}
	cfg.Scraper.DropPages = f.dropPages
}

// pipeline builds the post-processing chain selected by flags.
func (s *session) pipeline(f pipelineFlags) (*pipeline.Pipeline, error) {
	p := pipeline.New(s.logger)
	if f.personsOnly {
		p.Use(&pipeline.PersonFilterMiddleware{})
	}
	if len(f.tags) > 0 {
		p.Use(&pipeline.TagFilterMiddleware{Prefixes: f.tags})
	}
	if f.initial {
		p.Use(&pipeline.InitialMiddleware{Logger: s.logger})
	}
	if f.wikidata {
		if s.cfg.Wikidata.LinksFile == "" {
			return nil, fmt.Errorf("--wikidata needs wikidata.links_file in the config")
		}
		table, err := wikidata.Load(s.cfg.Wikidata.LinksFile)
		if err != nil {
			return nil, err
		}
		p.Use(&pipeline.WikidataMiddleware{Table: table, Logger: s.logger})
	}
	if s.cfg.Scraper.DropPages {
		p.Use(&pipeline.DropPageMiddleware{})
	}
	return p, nil
}

// run streams the articles of walk through the pipeline into storage.
func (s *session) run(f *crawlFlags, walk func(ctx context.Context, fn crawler.Handler) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := s.pipeline(f.pipelineFlags)
	if err != nil {
		return err
	}
	w, err := s.client.NewWriter()
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}

	start := time.Now()
	crawlErr := walk(ctx, func(a *article.Article) error {
		out, err := p.Process(ctx, a)
		if err != nil {
			s.logger.Error("pipeline failed", "id", a.ID(), "error", err)
			return nil
		}
		if out == nil {
			return nil
		}
		return w.Write(out)
	})
	if errors.Is(crawlErr, context.Canceled) {
		s.logger.Info("interrupted, flushing buffered articles")
		crawlErr = nil
	}
	closeErr := w.Close()

	stats := s.client.Crawler().Stats().Snapshot()
	s.logger.Info("crawl complete",
		"elapsed", time.Since(start),
		"listing_pages", stats["listing_pages"],
		"yielded", stats["articles_yielded"],
		"duplicates", stats["duplicates_skipped"],
		"parse_failures", stats["parse_failures"],
		"written", w.Written(),
	)
	fmt.Printf("\nCrawl complete in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Listing pages: %v\n", stats["listing_pages"])
	fmt.Printf("   Articles:      %v yielded, %v duplicates, %v parse failures\n",
		stats["articles_yielded"], stats["duplicates_skipped"], stats["parse_failures"])
	fmt.Printf("   Written:       %d to %s\n", w.Written(), s.cfg.Storage.Type)

	if crawlErr != nil {
		return crawlErr
	}
	return closeErr
}

// searchCmd creates the "search" subcommand.
func searchCmd() *cobra.Command {
	var f crawlFlags
	cmd := &cobra.Command{
		Use:   "search <keywords...>",
		Short: "Scrape the results of a keyword search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(f.apply)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.run(&f, func(ctx context.Context, fn crawler.Handler) error {
				return s.client.Search(ctx, args, fn)
			})
		},
	}
	f.register(cmd)
	return cmd
}

// crawlCmd creates the "crawl" subcommand.
func crawlCmd() *cobra.Command {
	var (
		f    crawlFlags
		rows int
	)
	cmd := &cobra.Command{
		Use:   "crawl <listing-url>",
		Short: "Scrape every result of a search listing URL",
		Long: `Scrape every result of a search listing URL. The URL must end with the
page offset parameter, e.g. "...&rows=100&firstIndex=", and --rows must match
its rows argument.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateURL(args[0]); err != nil {
				return fmt.Errorf("invalid URL %q: %w", args[0], err)
			}
			s, err := newSession(func(cfg *config.Config) {
				f.apply(cfg)
				if rows > 0 {
					cfg.Scraper.RowsPerPage = rows
				}
			})
			if err != nil {
				return err
			}
			defer s.Close()
			return s.run(&f, func(ctx context.Context, fn crawler.Handler) error {
				return s.client.Crawl(ctx, args[0], nil, fn)
			})
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&rows, "rows", 0, "rows per listing page (default from config)")
	return cmd
}

// allCmd creates the "all" subcommand.
func allCmd() *cobra.Command {
	var (
		f          crawlFlags
		resume     bool
		checkpoint string
	)
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Scrape the whole alphabetical index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(func(cfg *config.Config) {
				f.apply(cfg)
				if checkpoint != "" {
					cfg.Scraper.CheckpointPath = checkpoint
				}
			})
			if err != nil {
				return err
			}
			defer s.Close()

			visited := crawler.NewVisitedSet()
			if resume {
				if err := s.restore(visited); err != nil {
					return err
				}
			}

			err = s.run(&f, func(ctx context.Context, fn crawler.Handler) error {
				return s.client.ScrapeAll(ctx, visited, fn)
			})
			if path := s.cfg.Scraper.CheckpointPath; path != "" {
				if cerr := crawler.SaveCheckpoint(path, s.cfg.Scraper.Language, visited); cerr != nil {
					s.logger.Error("checkpoint save failed", "path", path, "error", cerr)
				} else {
					s.logger.Info("checkpoint saved", "path", path, "visited", visited.Count())
				}
			}
			return err
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&resume, "resume", false, "skip the articles already in the output file and checkpoint")
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "visited-set checkpoint file")
	return cmd
}

// restore seeds visited from the existing output and checkpoint.
func (s *session) restore(visited *crawler.VisitedSet) error {
	ids, err := storage.ReadIDs(s.cfg.Storage.OutputPath, s.logger)
	if err != nil {
		return fmt.Errorf("read existing ids: %w", err)
	}
	visited.Import(ids)
	restored := 0
	if path := s.cfg.Scraper.CheckpointPath; path != "" {
		if restored, err = crawler.LoadCheckpoint(path, visited); err != nil {
			return err
		}
	}
	s.logger.Info("resuming", "from_output", len(ids), "from_checkpoint", restored, "visited", visited.Count())
	return nil
}
