// Package source fetches activity records for the aggregators. Collections are
// returned complete (all pages) and already filtered to the analysis window.
package source

import (
	"context"

	"github.com/raywall/gh-productivity/domain"
)

// RecordSource is the contract the analyzer needs from a record provider.
// Lookups of named resources return nil without error when nothing matches.
type RecordSource interface {
	// ListPullRequests returns the pull requests merged inside the window.
	// Sub-resources and line counts are filled by Hydrate.
	ListPullRequests(ctx context.Context, repo domain.Repository, window domain.Window) ([]domain.PullRequest, error)

	// GetPullRequest returns the detailed pull request (line counts, merge commit).
	GetPullRequest(ctx context.Context, repo domain.Repository, number int) (*domain.PullRequest, error)

	ListReviewComments(ctx context.Context, repo domain.Repository, number int) ([]domain.ReviewComment, error)
	ListFiles(ctx context.Context, repo domain.Repository, number int) ([]domain.File, error)
	ListTimeline(ctx context.Context, repo domain.Repository, number int) ([]domain.TimelineEvent, error)

	// ListIssues returns the issues closed inside the window, pull requests excluded.
	ListIssues(ctx context.Context, repo domain.Repository, window domain.Window) ([]domain.Issue, error)

	ListDeployments(ctx context.Context, repo domain.Repository, window domain.Window) ([]domain.Deployment, error)
	ListReleases(ctx context.Context, repo domain.Repository, window domain.Window) ([]domain.Release, error)

	// FindProject looks up a classic project board of the repository by name.
	FindProject(ctx context.Context, repo domain.Repository, name string) (*domain.Project, error)
	ListProjectColumns(ctx context.Context, projectID int64) ([]domain.ProjectColumn, error)
	ListColumnCards(ctx context.Context, columnID int64) ([]domain.ProjectCard, error)

	// GetProjectV2 looks up a Projects (v2) board of a user or organization.
	GetProjectV2(ctx context.Context, owner string, number int) (*domain.ProjectV2, error)
	GetProjectV2Items(ctx context.Context, projectID string, fields ProjectV2Fields) ([]domain.ProjectV2Item, error)

	// ListRepositories returns the non-archived repositories of an organization.
	ListRepositories(ctx context.Context, org string) ([]domain.Repository, error)
}

// ProjectV2Fields names the board fields read from every item.
type ProjectV2Fields struct {
	Iteration string
	Status    string
}

// DefaultProjectV2Fields are the field names GitHub creates for new boards.
var DefaultProjectV2Fields = ProjectV2Fields{Iteration: "Iteration", Status: "Status"}
