package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// DefaultPageSize is the number of items requested per page.
	DefaultPageSize = 100
	// DefaultRateLimitFloor is the remaining-requests level below which calls are paused.
	DefaultRateLimitFloor = 100
	// DefaultRateLimitPause is how long a call waits once under the floor.
	DefaultRateLimitPause = 5 * time.Second
)

// Config configures the GitHub record source.
type Config struct {
	Token          string
	BaseURL        string // GitHub Enterprise API root; empty means api.github.com
	PageSize       int
	RateLimitFloor int
	RateLimitPause time.Duration
}

// GitHub implements RecordSource on the GitHub REST and GraphQL APIs.
type GitHub struct {
	client      *github.Client
	graphqlPath string
	pageSize    int
	rateFloor   int
	ratePause   time.Duration
	log         *zap.Logger
}

// NewGitHub creates a GitHub source with an authenticated client.
func NewGitHub(ctx context.Context, cfg Config, log *zap.Logger) (*GitHub, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)

	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("configure enterprise url %q: %w", cfg.BaseURL, err)
		}
	}
	return NewGitHubFromClient(client, cfg, log), nil
}

// NewGitHubFromClient wraps an already configured client.
func NewGitHubFromClient(client *github.Client, cfg Config, log *zap.Logger) *GitHub {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.RateLimitFloor <= 0 {
		cfg.RateLimitFloor = DefaultRateLimitFloor
	}
	if cfg.RateLimitPause <= 0 {
		cfg.RateLimitPause = DefaultRateLimitPause
	}
	if log == nil {
		log = zap.NewNop()
	}

	// enterprise servers serve GraphQL at /api/graphql next to /api/v3/
	graphqlPath := "graphql"
	if strings.HasSuffix(client.BaseURL.Path, "/api/v3/") {
		graphqlPath = "../graphql"
	}

	return &GitHub{
		client:      client,
		graphqlPath: graphqlPath,
		pageSize:    cfg.PageSize,
		rateFloor:   cfg.RateLimitFloor,
		ratePause:   cfg.RateLimitPause,
		log:         log,
	}
}

// pages drives page-based pagination. fetch returns the number of items it got
// and whether the caller has seen enough; the loop also ends on a short page or
// when the API reports no next page.
func (g *GitHub) pages(ctx context.Context, what string, fetch func(page int) (int, *github.Response, bool, error)) error {
	page := 1
	for {
		n, resp, stop, err := fetch(page)
		if err != nil {
			return fmt.Errorf("list %s (page %d): %w", what, page, err)
		}
		g.log.Debug("fetched page", zap.String("resource", what), zap.Int("page", page), zap.Int("items", n))

		if stop || n < g.pageSize || resp == nil || resp.NextPage == 0 {
			return nil
		}
		page = resp.NextPage
		if err := g.checkRateLimit(ctx, resp); err != nil {
			return err
		}
	}
}

// checkRateLimit checks the rate limit and sleeps if necessary.
func (g *GitHub) checkRateLimit(ctx context.Context, resp *github.Response) error {
	if resp == nil || resp.Rate.Limit == 0 || resp.Rate.Remaining >= g.rateFloor {
		return nil
	}
	g.log.Info("rate limit low, pausing",
		zap.Int("remaining", resp.Rate.Remaining),
		zap.Duration("pause", g.ratePause),
	)
	select {
	case <-time.After(g.ratePause):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *GitHub) listOptions(page int) github.ListOptions {
	return github.ListOptions{Page: page, PerPage: g.pageSize}
}

func timePtr(ts *github.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}

func timeOf(ts *github.Timestamp) time.Time {
	if ts == nil {
		return time.Time{}
	}
	return ts.Time.UTC()
}
