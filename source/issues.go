package source

import (
	"context"

	"github.com/google/go-github/v62/github"

	"github.com/raywall/gh-productivity/domain"
)

// ListIssues lists closed issues updated since the window start and keeps the
// ones closed inside the window. Pull requests returned by the issues API are dropped.
func (g *GitHub) ListIssues(ctx context.Context, repo domain.Repository, window domain.Window) ([]domain.Issue, error) {
	var issues []domain.Issue
	err := g.pages(ctx, "issues", func(page int) (int, *github.Response, bool, error) {
		list, resp, err := g.client.Issues.ListByRepo(ctx, repo.Owner, repo.Name, &github.IssueListByRepoOptions{
			State:       "closed",
			Since:       window.Start,
			ListOptions: g.listOptions(page),
		})
		if err != nil {
			return 0, resp, false, err
		}

		for _, issue := range list {
			if issue.IsPullRequest() {
				continue
			}
			closedAt := timePtr(issue.ClosedAt)
			if closedAt == nil || !window.Contains(*closedAt) {
				continue
			}
			issues = append(issues, convertIssue(issue))
		}
		return len(list), resp, false, nil
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}

func convertIssue(issue *github.Issue) domain.Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		if name := l.GetName(); name != "" {
			labels = append(labels, name)
		}
	}
	return domain.Issue{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Author:    issue.GetUser().GetLogin(),
		Assignee:  issue.GetAssignee().GetLogin(),
		CreatedAt: timePtr(issue.CreatedAt),
		ClosedAt:  timePtr(issue.ClosedAt),
		Labels:    labels,
	}
}
