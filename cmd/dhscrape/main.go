package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/dhscrape/internal/config"
	"github.com/IshaanNene/dhscrape/internal/observability"
	"github.com/IshaanNene/dhscrape/pkg/dhs"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dhscrape",
		Short: "dhscrape scrapes the Historical Dictionary of Switzerland",
		Long: `dhscrape downloads articles of the Historical Dictionary of Switzerland
(hls-dhs-dss.ch) in French, German or Italian, extracts their fields and
streams them to JSONL or MongoDB.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(articleCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(allCmd())
	rootCmd.AddCommand(idsCmd())
	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogger creates a structured logger from the logging section.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// session is the configuration, logger and client of one command run.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *dhs.Client
	metrics *observability.Metrics
}

// newSession loads the config, applies overrides and builds the client.
func newSession(override func(*config.Config)) (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if override != nil {
		override(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg)
	s := &session{cfg: cfg, logger: logger}
	if cfg.Metrics.Enabled {
		s.metrics = observability.NewMetrics(logger)
		s.metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	s.client, err = dhs.NewClient(dhs.WithConfig(cfg), dhs.WithLogger(logger), dhs.WithMetrics(s.metrics))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) Close() {
	if err := s.client.Close(); err != nil {
		s.logger.Error("fetcher close error", "error", err)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dhscrape %s (scraper version %s)\n", config.Version, config.ScraperVersion)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Scraper:\n")
			fmt.Printf("  Base URL:          %s\n", cfg.Scraper.BaseURL)
			fmt.Printf("  Language:          %s\n", cfg.Scraper.Language)
			fmt.Printf("  Politeness Delay:  %s\n", cfg.Scraper.PolitenessDelay)
			fmt.Printf("  Rows Per Page:     %d (search: %d)\n", cfg.Scraper.RowsPerPage, cfg.Scraper.SearchRows)
			fmt.Printf("  Max Articles:      %d\n", cfg.Scraper.MaxArticles)
			fmt.Printf("  Parse Articles:    %v\n", cfg.Scraper.ParseArticles)
			fmt.Printf("  Skip Duplicates:   %v\n", cfg.Scraper.SkipDuplicates)
			fmt.Printf("  Metagrid URL:      %s\n", cfg.Scraper.MetagridURL)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Max Retries:       %d\n", cfg.Fetcher.MaxRetries)
			fmt.Printf("  User Agent:        %s\n", cfg.Fetcher.UserAgent)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Output Path:       %s\n", cfg.Storage.OutputPath)
			fmt.Printf("  Buffer Size:       %d\n", cfg.Storage.BufferSize)
			fmt.Printf("  Mongo:             %s/%s.%s\n", cfg.Storage.Mongo.URI, cfg.Storage.Mongo.Database, cfg.Storage.Mongo.Collection)
			fmt.Printf("\nWikidata:\n")
			fmt.Printf("  Links File:        %s\n", cfg.Wikidata.LinksFile)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}
