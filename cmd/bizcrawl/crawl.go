package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FranksOps/bizcrawl/internal/metrics"
	"github.com/FranksOps/bizcrawl/internal/pipeline"
	"github.com/FranksOps/bizcrawl/internal/scraper"
	"github.com/FranksOps/bizcrawl/pkg/useragent"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl one category in one location",
	Example: `  bizcrawl crawl --category Contractors --location "San Francisco, CA" --max-pages 3
  bizcrawl crawl --config bizcrawl.yaml --backend sqlite --output businesses.db`,
	RunE: runCrawl,
}

func init() {
	f := crawlCmd.Flags()
	f.String("category", "", "search category (find_desc)")
	f.String("location", "", "search location (find_loc)")
	f.Int("max-pages", 0, "exclusive cap on the 1-based search page index")
	f.Int("review-count", 0, "reviews kept per business")
	f.String("base-url", "", "directory origin")
	f.Int("concurrency", 0, "concurrent fetches")
	f.Float64("rps", 0, "requests per second (0 = unlimited)")
	f.Bool("respect-robots", false, "honour robots.txt")
	f.Int("metrics-port", 0, "serve Prometheus metrics on this port")

	bindFlags(f, map[string]string{
		"search.category":           "category",
		"search.location":           "location",
		"search.max_pages":          "max-pages",
		"search.review_count":       "review-count",
		"site.base_url":             "base-url",
		"fetch.concurrency":         "concurrency",
		"fetch.requests_per_second": "rps",
		"fetch.respect_robots":      "respect-robots",
		"metrics.port":              "metrics-port",
	})

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Port > 0 {
		srv := metrics.Start(cfg.Metrics.Port, logger)
		defer func() { _ = srv.Stop(context.Background()) }()
		logger.Info("serving metrics", "port", cfg.Metrics.Port)
	}

	controller, err := pipeline.NewController(pipeline.Config{
		BaseURL:     cfg.Site.BaseURL,
		Category:    cfg.Search.Category,
		Location:    cfg.Search.Location,
		MaxPages:    cfg.Search.MaxPages,
		ReviewCount: cfg.Search.ReviewCount,
	})
	if err != nil {
		return err
	}

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:      cfg.Fetch.Timeout,
		MaxRedirects: cfg.Fetch.MaxRedirects,
		UseCookieJar: true,
		MaxRetries:   cfg.Fetch.MaxRetries,
		UAPool:       useragent.NewPool(cfg.Fetch.UserAgents),
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}

	engine := scraper.NewEngine(scraper.EngineConfig{
		Concurrency:       cfg.Fetch.Concurrency,
		RespectRobots:     cfg.Fetch.RespectRobots,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Jitter:            cfg.Fetch.Jitter,
	}, fetcher, logger)

	backend, err := openBackend(ctx, cfg.Output)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Output.Backend, err)
	}
	defer backend.Close()

	logger.Info("starting crawl",
		"category", cfg.Search.Category,
		"location", cfg.Search.Location,
		"max_pages", cfg.Search.MaxPages,
		"backend", cfg.Output.Backend,
		"output", cfg.Output.Path,
	)

	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		Controller: controller,
		Engine:     engine,
		Sink:       backend,
		Logger:     logger,
	})

	stats, err := runner.Run(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d pages, %d listings, %d records written to %s\n",
		stats.RunID, stats.Pages, stats.Listings, stats.Emitted, cfg.Output.Path)

	return err
}
