package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v62/github"

	"github.com/raywall/gh-productivity/domain"
)

// FindProject returns the open or closed classic project named name, or nil.
func (g *GitHub) FindProject(ctx context.Context, repo domain.Repository, name string) (*domain.Project, error) {
	var found *domain.Project
	err := g.pages(ctx, "projects", func(page int) (int, *github.Response, bool, error) {
		list, resp, err := g.client.Repositories.ListProjects(ctx, repo.Owner, repo.Name,
			&github.ProjectListOptions{State: "all", ListOptions: g.listOptions(page)})
		if err != nil {
			return 0, resp, false, err
		}
		for _, p := range list {
			if strings.EqualFold(strings.TrimSpace(p.GetName()), strings.TrimSpace(name)) {
				found = &domain.Project{
					ID:     p.GetID(),
					Number: p.GetNumber(),
					Name:   p.GetName(),
					State:  p.GetState(),
				}
				return len(list), resp, true, nil
			}
		}
		return len(list), resp, false, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListProjectColumns lists the columns of a classic project in board order.
func (g *GitHub) ListProjectColumns(ctx context.Context, projectID int64) ([]domain.ProjectColumn, error) {
	var columns []domain.ProjectColumn
	err := g.pages(ctx, fmt.Sprintf("columns of project %d", projectID), func(page int) (int, *github.Response, bool, error) {
		opts := g.listOptions(page)
		list, resp, err := g.client.Projects.ListProjectColumns(ctx, projectID, &opts)
		if err != nil {
			return 0, resp, false, err
		}
		for _, c := range list {
			columns = append(columns, domain.ProjectColumn{ID: c.GetID(), Name: c.GetName()})
		}
		return len(list), resp, false, nil
	})
	if err != nil {
		return nil, err
	}
	return columns, nil
}

// ListColumnCards lists the non-archived cards of a column.
func (g *GitHub) ListColumnCards(ctx context.Context, columnID int64) ([]domain.ProjectCard, error) {
	var cards []domain.ProjectCard
	err := g.pages(ctx, fmt.Sprintf("cards of column %d", columnID), func(page int) (int, *github.Response, bool, error) {
		list, resp, err := g.client.Projects.ListProjectCards(ctx, columnID,
			&github.ProjectCardListOptions{ListOptions: g.listOptions(page)})
		if err != nil {
			return 0, resp, false, err
		}
		for _, c := range list {
			cards = append(cards, domain.ProjectCard{
				ID:        c.GetID(),
				ColumnID:  columnID,
				Note:      c.GetNote(),
				Creator:   c.GetCreator().GetLogin(),
				CreatedAt: timeOf(c.CreatedAt),
				UpdatedAt: timeOf(c.UpdatedAt),
			})
		}
		return len(list), resp, false, nil
	})
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// ListRepositories lists the non-archived repositories of an organization.
func (g *GitHub) ListRepositories(ctx context.Context, org string) ([]domain.Repository, error) {
	var repos []domain.Repository
	err := g.pages(ctx, "repositories of "+org, func(page int) (int, *github.Response, bool, error) {
		list, resp, err := g.client.Repositories.ListByOrg(ctx, org,
			&github.RepositoryListByOrgOptions{Type: "all", ListOptions: g.listOptions(page)})
		if err != nil {
			return 0, resp, false, err
		}
		for _, r := range list {
			if r.GetArchived() {
				continue
			}
			repos = append(repos, domain.Repository{Owner: r.GetOwner().GetLogin(), Name: r.GetName()})
		}
		return len(list), resp, false, nil
	})
	if err != nil {
		return nil, err
	}
	return repos, nil
}
