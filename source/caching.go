package source

import (
	"context"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/raywall/gh-productivity/cache"
	"github.com/raywall/gh-productivity/domain"
)

// Caching wraps a RecordSource with the file cache.
// Concurrent calls for the same key share one upstream fetch. Cache failures
// are logged and treated as misses; upstream errors are returned untouched.
type Caching struct {
	inner RecordSource
	cache *cache.FileCache
	log   *zap.Logger
	group singleflight.Group
}

var _ RecordSource = (*Caching)(nil)

// NewCaching creates a caching decorator around inner.
func NewCaching(inner RecordSource, c *cache.FileCache, log *zap.Logger) *Caching {
	if log == nil {
		log = zap.NewNop()
	}
	return &Caching{inner: inner, cache: c, log: log}
}

// cached serves key from the cache or runs fetch and stores its result.
// Results rejected by store (absent lookups) are returned but not written.
func cached[T any](c *Caching, key string, fetch func() (T, error), store func(T) bool) (T, error) {
	var out T
	found, err := c.cache.Read(key, &out)
	switch {
	case err != nil:
		c.log.Warn("cache read failed, fetching", zap.String("key", key), zap.Error(err))
	case found:
		c.log.Debug("cache hit", zap.String("key", key))
		return out, nil
	default:
		c.log.Debug("cache miss", zap.String("key", key))
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		data, err := fetch()
		if err != nil {
			return data, err
		}
		if store == nil || store(data) {
			if err := c.cache.Write(key, data); err != nil {
				c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return data, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if shared {
		c.log.Debug("shared in-flight fetch", zap.String("key", key))
	}
	return v.(T), nil
}

func present[T any](p *T) bool {
	return p != nil
}

// ListPullRequests returns a slice owned by the caller. Callers sharing one
// in-flight fetch each get their own copy, since hydration edits it in place.
func (c *Caching) ListPullRequests(ctx context.Context, repo domain.Repository, window domain.Window) ([]domain.PullRequest, error) {
	key := cache.Key("pulls", repo.Owner, repo.Name, window.Start, window.End)
	pulls, err := cached(c, key, func() ([]domain.PullRequest, error) {
		return c.inner.ListPullRequests(ctx, repo, window)
	}, nil)
	return slices.Clone(pulls), err
}

func (c *Caching) GetPullRequest(ctx context.Context, repo domain.Repository, number int) (*domain.PullRequest, error) {
	key := cache.Key("pull", repo.Owner, repo.Name, number)
	return cached(c, key, func() (*domain.PullRequest, error) {
		return c.inner.GetPullRequest(ctx, repo, number)
	}, present[domain.PullRequest])
}

func (c *Caching) ListReviewComments(ctx context.Context, repo domain.Repository, number int) ([]domain.ReviewComment, error) {
	key := cache.Key("review-comments", repo.Owner, repo.Name, number)
	return cached(c, key, func() ([]domain.ReviewComment, error) {
		return c.inner.ListReviewComments(ctx, repo, number)
	}, nil)
}

func (c *Caching) ListFiles(ctx context.Context, repo domain.Repository, number int) ([]domain.File, error) {
	key := cache.Key("files", repo.Owner, repo.Name, number)
	return cached(c, key, func() ([]domain.File, error) {
		return c.inner.ListFiles(ctx, repo, number)
	}, nil)
}

func (c *Caching) ListTimeline(ctx context.Context, repo domain.Repository, number int) ([]domain.TimelineEvent, error) {
	key := cache.Key("timeline", repo.Owner, repo.Name, number)
	return cached(c, key, func() ([]domain.TimelineEvent, error) {
		return c.inner.ListTimeline(ctx, repo, number)
	}, nil)
}

func (c *Caching) ListIssues(ctx context.Context, repo domain.Repository, window domain.Window) ([]domain.Issue, error) {
	key := cache.Key("issues", repo.Owner, repo.Name, window.Start, window.End)
	return cached(c, key, func() ([]domain.Issue, error) {
		return c.inner.ListIssues(ctx, repo, window)
	}, nil)
}

func (c *Caching) ListDeployments(ctx context.Context, repo domain.Repository, window domain.Window) ([]domain.Deployment, error) {
	key := cache.Key("deployments", repo.Owner, repo.Name, window.Start, window.End)
	return cached(c, key, func() ([]domain.Deployment, error) {
		return c.inner.ListDeployments(ctx, repo, window)
	}, nil)
}

func (c *Caching) ListReleases(ctx context.Context, repo domain.Repository, window domain.Window) ([]domain.Release, error) {
	key := cache.Key("releases", repo.Owner, repo.Name, window.Start, window.End)
	return cached(c, key, func() ([]domain.Release, error) {
		return c.inner.ListReleases(ctx, repo, window)
	}, nil)
}

func (c *Caching) FindProject(ctx context.Context, repo domain.Repository, name string) (*domain.Project, error) {
	key := cache.Key("project", repo.Owner, repo.Name, name)
	return cached(c, key, func() (*domain.Project, error) {
		return c.inner.FindProject(ctx, repo, name)
	}, present[domain.Project])
}

func (c *Caching) ListProjectColumns(ctx context.Context, projectID int64) ([]domain.ProjectColumn, error) {
	key := cache.Key("columns", projectID)
	return cached(c, key, func() ([]domain.ProjectColumn, error) {
		return c.inner.ListProjectColumns(ctx, projectID)
	}, nil)
}

func (c *Caching) ListColumnCards(ctx context.Context, columnID int64) ([]domain.ProjectCard, error) {
	key := cache.Key("cards", columnID)
	return cached(c, key, func() ([]domain.ProjectCard, error) {
		return c.inner.ListColumnCards(ctx, columnID)
	}, nil)
}

func (c *Caching) GetProjectV2(ctx context.Context, owner string, number int) (*domain.ProjectV2, error) {
	key := cache.Key("projectv2", owner, number)
	return cached(c, key, func() (*domain.ProjectV2, error) {
		return c.inner.GetProjectV2(ctx, owner, number)
	}, present[domain.ProjectV2])
}

func (c *Caching) GetProjectV2Items(ctx context.Context, projectID string, fields ProjectV2Fields) ([]domain.ProjectV2Item, error) {
	key := cache.Key("projectv2-items", projectID, fields.Iteration, fields.Status)
	return cached(c, key, func() ([]domain.ProjectV2Item, error) {
		return c.inner.GetProjectV2Items(ctx, projectID, fields)
	}, nil)
}

func (c *Caching) ListRepositories(ctx context.Context, org string) ([]domain.Repository, error) {
	key := cache.Key("repos", org)
	return cached(c, key, func() ([]domain.Repository, error) {
		return c.inner.ListRepositories(ctx, org)
	}, nil)
}
