package source

import (
	"context"
	"fmt"

	"github.com/google/go-github/v62/github"

	"github.com/raywall/gh-productivity/domain"
)

// ListPullRequests lists closed pull requests, most recently updated first, and
// keeps the ones merged inside the window. Listing stops once a page ends before
// the window start, since nothing older can have been merged inside it.
func (g *GitHub) ListPullRequests(ctx context.Context, repo domain.Repository, window domain.Window) ([]domain.PullRequest, error) {
	var pulls []domain.PullRequest
	err := g.pages(ctx, "pull requests", func(page int) (int, *github.Response, bool, error) {
		prs, resp, err := g.client.PullRequests.List(ctx, repo.Owner, repo.Name, &github.PullRequestListOptions{
			State:       "closed",
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: g.listOptions(page),
		})
		if err != nil {
			return 0, resp, false, err
		}

		for _, pr := range prs {
			mergedAt := timePtr(pr.MergedAt)
			if mergedAt == nil || !window.Contains(*mergedAt) {
				continue
			}
			pulls = append(pulls, convertPullRequest(pr))
		}

		stop := false
		if n := len(prs); n > 0 {
			if updated := timePtr(prs[n-1].UpdatedAt); updated != nil && updated.Before(window.Start) {
				stop = true
			}
		}
		return len(prs), resp, stop, nil
	})
	if err != nil {
		return nil, err
	}
	return pulls, nil
}

// GetPullRequest fetches a single pull request with its line counts.
func (g *GitHub) GetPullRequest(ctx context.Context, repo domain.Repository, number int) (*domain.PullRequest, error) {
	pr, resp, err := g.client.PullRequests.Get(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return nil, fmt.Errorf("get pull request #%d: %w", number, err)
	}
	if err := g.checkRateLimit(ctx, resp); err != nil {
		return nil, err
	}
	out := convertPullRequest(pr)
	return &out, nil
}

// ListReviewComments lists the diff comments of a pull request.
func (g *GitHub) ListReviewComments(ctx context.Context, repo domain.Repository, number int) ([]domain.ReviewComment, error) {
	var comments []domain.ReviewComment
	err := g.pages(ctx, fmt.Sprintf("review comments of #%d", number), func(page int) (int, *github.Response, bool, error) {
		list, resp, err := g.client.PullRequests.ListComments(ctx, repo.Owner, repo.Name, number,
			&github.PullRequestListCommentsOptions{ListOptions: g.listOptions(page)})
		if err != nil {
			return 0, resp, false, err
		}
		for _, c := range list {
			comments = append(comments, domain.ReviewComment{
				Author:    c.GetUser().GetLogin(),
				CreatedAt: timeOf(c.CreatedAt),
			})
		}
		return len(list), resp, false, nil
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// ListFiles lists the files changed by a pull request.
func (g *GitHub) ListFiles(ctx context.Context, repo domain.Repository, number int) ([]domain.File, error) {
	var files []domain.File
	err := g.pages(ctx, fmt.Sprintf("files of #%d", number), func(page int) (int, *github.Response, bool, error) {
		opts := g.listOptions(page)
		list, resp, err := g.client.PullRequests.ListFiles(ctx, repo.Owner, repo.Name, number, &opts)
		if err != nil {
			return 0, resp, false, err
		}
		for _, f := range list {
			files = append(files, domain.File{
				Filename:  f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Changes:   f.GetChanges(),
			})
		}
		return len(list), resp, false, nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ListTimeline lists the timeline events of a pull request.
func (g *GitHub) ListTimeline(ctx context.Context, repo domain.Repository, number int) ([]domain.TimelineEvent, error) {
	var events []domain.TimelineEvent
	err := g.pages(ctx, fmt.Sprintf("timeline of #%d", number), func(page int) (int, *github.Response, bool, error) {
		opts := g.listOptions(page)
		list, resp, err := g.client.Issues.ListIssueTimeline(ctx, repo.Owner, repo.Name, number, &opts)
		if err != nil {
			return 0, resp, false, err
		}
		for _, ev := range list {
			events = append(events, domain.TimelineEvent{
				Event:     ev.GetEvent(),
				Actor:     ev.GetActor().GetLogin(),
				CreatedAt: timePtr(ev.CreatedAt),
			})
		}
		return len(list), resp, false, nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func convertPullRequest(pr *github.PullRequest) domain.PullRequest {
	return domain.PullRequest{
		Number:         pr.GetNumber(),
		Title:          pr.GetTitle(),
		Author:         pr.GetUser().GetLogin(),
		CreatedAt:      timePtr(pr.CreatedAt),
		MergedAt:       timePtr(pr.MergedAt),
		UpdatedAt:      timePtr(pr.UpdatedAt),
		MergeCommitSHA: pr.GetMergeCommitSHA(),
		Additions:      pr.GetAdditions(),
		Deletions:      pr.GetDeletions(),
	}
}
