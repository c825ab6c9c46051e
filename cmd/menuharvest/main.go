package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saratoga-data/menuharvest/aggregate"
	"github.com/saratoga-data/menuharvest/browser"
	"github.com/saratoga-data/menuharvest/config"
	"github.com/saratoga-data/menuharvest/fetch"
	"github.com/saratoga-data/menuharvest/sites"
	"github.com/saratoga-data/menuharvest/storage"
	"github.com/saratoga-data/menuharvest/vision"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "menuharvest",
	Short: "menuharvest scrapes Saratoga-area restaurant menus into JSON and a unified CSV.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		initLogger(cfg.Log)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(aggregateCmd)

	scrapeCmd.Flags().Bool("skip-aggregate", false, "Do not rebuild the unified CSV after scraping.")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered restaurant scrapers.",
	Run: func(cmd *cobra.Command, args []string) {
		for _, s := range sites.All() {
			name, url := s.Restaurant()
			extras := ""
			if s.NeedsBrowser() {
				extras += " [browser]"
			}
			if s.NeedsVision() {
				extras += " [vision]"
			}
			fmt.Printf("%-22s %s (%s)%s\n", s.Slug(), name, url, extras)
		}
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [slug ...]",
	Short: "Scrape all restaurants, or just the named ones, into per-restaurant JSON files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		scrapers, err := selectScrapers(args)
		if err != nil {
			return err
		}

		env, closeBrowser := buildEnv(cfg)
		defer closeBrowser()

		ctx := cmd.Context()
		failed := 0
		for _, s := range scrapers {
			if err := runScraper(ctx, cfg, env, s); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				slog.Error("scrape failed", "site", s.Slug(), "error", err)
				failed++
			}
		}

		if failed == len(scrapers) {
			return fmt.Errorf("all %d scrapers failed", failed)
		}
		if failed > 0 {
			slog.Warn("some scrapers failed", "failed", failed, "total", len(scrapers))
		}

		skipAgg, _ := cmd.Flags().GetBool("skip-aggregate")
		if skipAgg || len(args) > 0 {
			return nil
		}
		return runAggregate(cfg)
	},
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Rebuild the unified CSV and summary from existing JSON files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAggregate(config.Load())
	},
}

func selectScrapers(slugs []string) ([]sites.Scraper, error) {
	if len(slugs) == 0 {
		return sites.All(), nil
	}
	out := make([]sites.Scraper, 0, len(slugs))
	for _, slug := range slugs {
		s, ok := sites.Lookup(slug)
		if !ok {
			return nil, fmt.Errorf("unknown site %q, run 'menuharvest list' for available slugs", slug)
		}
		out = append(out, s)
	}
	return out, nil
}

// buildEnv wires the shared clients. The browser is expensive to
// launch, so it starts lazily on first use and only once.
func buildEnv(cfg *config.Config) (*sites.Env, func()) {
	var (
		once    sync.Once
		session *browser.Session
		sessErr error
	)

	env := &sites.Env{
		Fetch:  fetch.NewClient(cfg.Fetch),
		Vision: vision.NewClient(cfg.Gemini, nil),
		Browser: func() (*browser.Session, error) {
			once.Do(func() {
				slog.Info("launching browser", "headless", cfg.Browser.Headless)
				session, sessErr = browser.New(cfg.Browser)
			})
			return session, sessErr
		},
	}

	closer := func() {
		if session != nil {
			session.Close()
		}
	}
	return env, closer
}

func runScraper(ctx context.Context, cfg *config.Config, env *sites.Env, s sites.Scraper) error {
	if s.NeedsVision() && !env.Vision.Enabled() {
		slog.Warn("skipping site, no Gemini API key configured", "site", s.Slug())
		return nil
	}

	name, _ := s.Restaurant()
	slog.Info("scraping", "site", s.Slug(), "restaurant", name)

	items, err := s.Scrape(ctx, env)
	if err != nil {
		return err
	}

	path, err := storage.WriteMenu(cfg.Output.Dir, s.Slug(), items)
	if err != nil {
		return err
	}
	slog.Info("scraped", "site", s.Slug(), "items", len(items), "file", path)
	return nil
}

// runAggregate rebuilds the CSV from the JSON directory. The CSV and
// summary land in the working directory, alongside the output dir.
func runAggregate(cfg *config.Config) error {
	_, err := aggregate.Run(cfg.Output.Dir, cfg.Output.CSVPath, cfg.Output.SummaryPath)
	return err
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
