package source

import (
	"context"

	"github.com/google/go-github/v62/github"

	"github.com/raywall/gh-productivity/domain"
)

// ListDeployments lists the deployments created inside the window.
func (g *GitHub) ListDeployments(ctx context.Context, repo domain.Repository, window domain.Window) ([]domain.Deployment, error) {
	var deployments []domain.Deployment
	err := g.pages(ctx, "deployments", func(page int) (int, *github.Response, bool, error) {
		list, resp, err := g.client.Repositories.ListDeployments(ctx, repo.Owner, repo.Name,
			&github.DeploymentsListOptions{ListOptions: g.listOptions(page)})
		if err != nil {
			return 0, resp, false, err
		}
		for _, d := range list {
			createdAt := timeOf(d.CreatedAt)
			if !window.Contains(createdAt) {
				continue
			}
			deployments = append(deployments, domain.Deployment{
				ID:          d.GetID(),
				SHA:         d.GetSHA(),
				Environment: d.GetEnvironment(),
				CreatedAt:   createdAt,
			})
		}
		return len(list), resp, false, nil
	})
	if err != nil {
		return nil, err
	}
	return deployments, nil
}

// ListReleases lists the releases published inside the window. Drafts have no
// publish date and fall back to their creation date.
func (g *GitHub) ListReleases(ctx context.Context, repo domain.Repository, window domain.Window) ([]domain.Release, error) {
	var releases []domain.Release
	err := g.pages(ctx, "releases", func(page int) (int, *github.Response, bool, error) {
		opts := g.listOptions(page)
		list, resp, err := g.client.Repositories.ListReleases(ctx, repo.Owner, repo.Name, &opts)
		if err != nil {
			return 0, resp, false, err
		}
		for _, r := range list {
			publishedAt := timeOf(r.PublishedAt)
			if publishedAt.IsZero() {
				publishedAt = timeOf(r.CreatedAt)
			}
			if !window.Contains(publishedAt) {
				continue
			}
			releases = append(releases, domain.Release{
				ID:          r.GetID(),
				TagName:     r.GetTagName(),
				CommitRef:   r.GetTargetCommitish(),
				PublishedAt: publishedAt,
			})
		}
		return len(list), resp, false, nil
	})
	if err != nil {
		return nil, err
	}
	return releases, nil
}
