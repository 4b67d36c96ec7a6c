package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/raywall/gh-productivity/analyzer"
	"github.com/raywall/gh-productivity/cache"
	"github.com/raywall/gh-productivity/config"
	"github.com/raywall/gh-productivity/domain"
	"github.com/raywall/gh-productivity/logging"
	"github.com/raywall/gh-productivity/source"
	"github.com/raywall/gh-productivity/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		config.Usage(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n\n", err)
		config.Usage(os.Stderr)
		os.Exit(2)
	}

	log, err := logging.NewLogger(cfg.LogLevel, cfg.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("run failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	records := cache.New(cfg.CacheDir, log.Named("cache"))
	if cfg.ClearCache {
		if err := records.Clear(); err != nil {
			return err
		}
	}

	gh, err := source.NewGitHub(ctx, source.Config{
		Token:          cfg.Token,
		BaseURL:        cfg.BaseURL,
		PageSize:       cfg.PageSize,
		RateLimitFloor: cfg.RateLimitFloor,
	}, log.Named("github"))
	if err != nil {
		return err
	}
	src := source.NewCaching(gh, records, log.Named("source"))

	repos, err := repositories(ctx, cfg, src)
	if err != nil {
		return err
	}
	log.Info("starting analysis",
		zap.Int("repositories", len(repos)),
		zap.Time("start", cfg.Start),
		zap.Time("end", cfg.End),
	)

	a := analyzer.NewAnalyzer(src, cfg.Window(), options(cfg), log.Named("analyzer"))
	metrics, err := a.Check(ctx, repos)
	if err != nil {
		return err
	}

	if err := analyzer.Export(metrics, cfg.Output); err != nil {
		return err
	}
	log.Info("metrics exported", zap.String("file", cfg.Output))

	if cfg.DatabaseURL != "" {
		if err := save(ctx, cfg.DatabaseURL, metrics, log.Named("store")); err != nil {
			return err
		}
	}

	if cfg.Summary {
		for _, m := range metrics {
			if err := analyzer.Summary(os.Stdout, m); err != nil {
				return err
			}
			fmt.Println()
		}
	}
	return nil
}

// repositories merges the configured list with the organization scan.
func repositories(ctx context.Context, cfg *config.Config, src source.RecordSource) ([]domain.Repository, error) {
	repos := cfg.Repositories
	if cfg.Org == "" {
		return repos, nil
	}

	scanned, err := src.ListRepositories(ctx, cfg.Org)
	if err != nil {
		return nil, err
	}
	seen := make(map[domain.Repository]bool, len(repos))
	for _, r := range repos {
		seen[r] = true
	}
	for _, r := range scanned {
		if !seen[r] {
			seen[r] = true
			repos = append(repos, r)
		}
	}
	return repos, nil
}

func options(cfg *config.Config) analyzer.Options {
	opts := analyzer.Options{
		Dora:           cfg.Dora,
		IncidentLabels: cfg.IncidentLabels,
		TopFiles:       cfg.TopFiles,
		Concurrency:    cfg.Concurrency,
		FetchTimeline:  cfg.FetchTimeline,
	}
	if b := cfg.Board; b != nil {
		opts.Board = &analyzer.BoardOptions{Name: b.Name, DoneColumn: b.DoneColumn}
	}
	if p := cfg.ProjectV2; p != nil {
		opts.ProjectV2 = &analyzer.ProjectV2Options{
			Owner:          p.Owner,
			Number:         p.Number,
			IterationField: p.IterationField,
			StatusField:    p.StatusField,
			DoneStatus:     p.DoneStatus,
		}
	}
	return opts
}

func save(ctx context.Context, dsn string, metrics []analyzer.RepoMetrics, log *zap.Logger) error {
	db, err := store.Open(ctx, dsn, log)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, m := range metrics {
		if _, err := db.Save(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
