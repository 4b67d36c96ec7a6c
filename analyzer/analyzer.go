package analyzer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raywall/gh-productivity/domain"
	"github.com/raywall/gh-productivity/source"
)

// NewAnalyzer creates a new Analyzer reading records from src.
func NewAnalyzer(src source.RecordSource, window domain.Window, opts Options, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = source.DefaultConcurrency
	}
	return &Analyzer{
		Window:  window,
		Options: opts,
		source:  src,
		log:     log,
		now:     time.Now,
	}
}

// records is everything fetched for one repository run.
type records struct {
	pulls       []domain.PullRequest
	issues      []domain.Issue
	deployments []domain.Deployment
	releases    []domain.Release

	project *domain.Project
	columns []domain.ColumnCards

	projectV2 *domain.ProjectV2
	items     []domain.ProjectV2Item
}

// Analyze fetches the records of repo and reduces them into one metrics bundle.
// Any fetch failure aborts the run; no partial bundle is returned.
func (a *Analyzer) Analyze(ctx context.Context, repo domain.Repository) (*RepoMetrics, error) {
	log := a.log.With(zap.String("repo", repo.String()))
	started := a.now()
	log.Info("analyzing repository",
		zap.Time("start", a.Window.Start),
		zap.Time("end", a.Window.End),
	)

	recs, err := a.fetch(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", repo, err)
	}
	log.Info("records fetched",
		zap.Int("pullRequests", len(recs.pulls)),
		zap.Int("issues", len(recs.issues)),
		zap.Int("deployments", len(recs.deployments)),
		zap.Int("releases", len(recs.releases)),
	)

	m := &RepoMetrics{
		Repo:         repo.String(),
		Window:       a.Window,
		GeneratedAt:  a.now().UTC(),
		PullRequests: AggregatePullRequests(recs.pulls),
		Issues:       AggregateIssues(recs.issues),
		Churn:        AggregateChurn(recs.pulls, a.Options.TopFiles),
	}

	if a.Options.Dora {
		dora := CorrelateDora(a.Window, recs.pulls, recs.issues, recs.deployments, recs.releases, a.Options.IncidentLabels)
		m.Dora = &dora
	}

	if board := a.Options.Board; board != nil {
		switch {
		case recs.project == nil:
			log.Warn("project board not found, skipping", zap.String("project", board.Name))
		default:
			pm, ok := AggregateProjectBoard(recs.project.Name, recs.columns, board.DoneColumn)
			if !ok {
				log.Warn("done column not found, skipping board",
					zap.String("project", recs.project.Name),
					zap.String("column", board.DoneColumn),
				)
			}
			m.Project = pm
		}
	}

	if v2 := a.Options.ProjectV2; v2 != nil {
		if recs.projectV2 == nil {
			log.Warn("project v2 not found, skipping iterations",
				zap.String("owner", v2.Owner),
				zap.Int("number", v2.Number),
			)
		} else {
			m.Iterations = AggregateIterations(recs.projectV2.Title, recs.items, v2.DoneStatus)
		}
	}

	log.Info("repository analyzed", zap.Duration("took", a.now().Sub(started)))
	return m, nil
}

// fetch loads the independent collections concurrently.
func (a *Analyzer) fetch(ctx context.Context, repo domain.Repository) (*records, error) {
	var recs records
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pulls, err := a.source.ListPullRequests(ctx, repo, a.Window)
		if err != nil {
			return err
		}
		if err := source.HydratePullRequests(ctx, a.source, repo, pulls, a.Options.Concurrency, a.Options.FetchTimeline); err != nil {
			return err
		}
		recs.pulls = pulls
		return nil
	})

	g.Go(func() error {
		issues, err := a.source.ListIssues(ctx, repo, a.Window)
		recs.issues = issues
		return err
	})

	if a.Options.Dora {
		g.Go(func() error {
			deployments, err := a.source.ListDeployments(ctx, repo, a.Window)
			recs.deployments = deployments
			return err
		})
		g.Go(func() error {
			releases, err := a.source.ListReleases(ctx, repo, a.Window)
			recs.releases = releases
			return err
		})
	}

	if board := a.Options.Board; board != nil {
		g.Go(func() error {
			project, columns, err := a.fetchBoard(ctx, repo, board.Name)
			recs.project, recs.columns = project, columns
			return err
		})
	}

	if v2 := a.Options.ProjectV2; v2 != nil {
		g.Go(func() error {
			project, items, err := a.fetchProjectV2(ctx, v2)
			recs.projectV2, recs.items = project, items
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &recs, nil
}

func (a *Analyzer) fetchBoard(ctx context.Context, repo domain.Repository, name string) (*domain.Project, []domain.ColumnCards, error) {
	project, err := a.source.FindProject(ctx, repo, name)
	if err != nil || project == nil {
		return nil, nil, err
	}

	columns, err := a.source.ListProjectColumns(ctx, project.ID)
	if err != nil {
		return nil, nil, err
	}
	board := make([]domain.ColumnCards, 0, len(columns))
	for _, col := range columns {
		cards, err := a.source.ListColumnCards(ctx, col.ID)
		if err != nil {
			return nil, nil, err
		}
		board = append(board, domain.ColumnCards{Column: col, Cards: cards})
	}
	return project, board, nil
}

func (a *Analyzer) fetchProjectV2(ctx context.Context, opts *ProjectV2Options) (*domain.ProjectV2, []domain.ProjectV2Item, error) {
	project, err := a.source.GetProjectV2(ctx, opts.Owner, opts.Number)
	if err != nil || project == nil {
		return nil, nil, err
	}

	fields := source.DefaultProjectV2Fields
	if opts.IterationField != "" {
		fields.Iteration = opts.IterationField
	}
	if opts.StatusField != "" {
		fields.Status = opts.StatusField
	}
	items, err := a.source.GetProjectV2Items(ctx, project.ID, fields)
	if err != nil {
		return nil, nil, err
	}
	return project, items, nil
}

// Check computes all metrics for all repos sequentially. The first failing
// repository aborts the run.
func (a *Analyzer) Check(ctx context.Context, repos []domain.Repository) ([]RepoMetrics, error) {
	metrics := make([]RepoMetrics, 0, len(repos))
	for _, repo := range repos {
		m, err := a.Analyze(ctx, repo)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, *m)
	}
	return metrics, nil
}
