package source

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/raywall/gh-productivity/domain"
)

// DefaultConcurrency bounds the pull requests hydrated at the same time.
const DefaultConcurrency = 10

// HydratePullRequests fills in line counts, merge commit, review comments and
// files of every pull request in place, plus timeline events when withTimeline
// is set. At most concurrency pull requests are in flight; the first failure
// cancels the rest and is returned.
func HydratePullRequests(ctx context.Context, src RecordSource, repo domain.Repository,
	pulls []domain.PullRequest, concurrency int, withTimeline bool) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range pulls {
		pr := &pulls[i]
		g.Go(func() error {
			return hydrate(ctx, src, repo, pr, withTimeline)
		})
	}
	return g.Wait()
}

// hydrate only writes to pr, so concurrent calls never share state.
func hydrate(ctx context.Context, src RecordSource, repo domain.Repository, pr *domain.PullRequest, withTimeline bool) error {
	detail, err := src.GetPullRequest(ctx, repo, pr.Number)
	if err != nil {
		return fmt.Errorf("hydrate #%d: %w", pr.Number, err)
	}
	if detail != nil {
		pr.Additions = detail.Additions
		pr.Deletions = detail.Deletions
		if detail.MergeCommitSHA != "" {
			pr.MergeCommitSHA = detail.MergeCommitSHA
		}
	}

	if pr.ReviewComments, err = src.ListReviewComments(ctx, repo, pr.Number); err != nil {
		return fmt.Errorf("hydrate #%d: %w", pr.Number, err)
	}
	if pr.Files, err = src.ListFiles(ctx, repo, pr.Number); err != nil {
		return fmt.Errorf("hydrate #%d: %w", pr.Number, err)
	}
	if withTimeline {
		if pr.Timeline, err = src.ListTimeline(ctx, repo, pr.Number); err != nil {
			return fmt.Errorf("hydrate #%d: %w", pr.Number, err)
		}
	}
	return nil
}
