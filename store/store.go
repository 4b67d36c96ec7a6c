// Package store keeps a history of metric runs in Postgres.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	trmcontext "github.com/avito-tech/go-transaction-manager/trm/v2/context"
	trmmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/raywall/gh-productivity/analyzer"
	"github.com/raywall/gh-productivity/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when a repository has no stored run.
var ErrNotFound = errors.New("snapshot not found")

// Contributor kinds.
const (
	KindPullRequest = "pull_request"
	KindIssue       = "issue"
)

var ctxGetter = trmsql.DefaultCtxGetter

// Snapshot is one stored run of a repository.
type Snapshot struct {
	ID         int64
	Repository string
	Window     domain.Window
	CreatedAt  time.Time
	Metrics    analyzer.RepoMetrics
}

// ContributorRow is the per-contributor digest stored next to a run.
type ContributorRow struct {
	Kind         string
	Identity     string
	Records      int
	TotalMinutes float64
	AvgMinutes   float64
}

// Postgres stores snapshots in a Postgres database.
type Postgres struct {
	db  *sql.DB
	tm  trm.Manager
	log *zap.Logger
}

// Open connects to dsn and applies the pending migrations.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db, log), nil
}

// New wraps an already migrated database.
func New(db *sql.DB, log *zap.Logger) *Postgres {
	if log == nil {
		log = zap.NewNop()
	}
	mgr := trmmanager.Must(
		trmsql.NewDefaultFactory(db),
		trmmanager.WithCtxManager(trmcontext.DefaultManager),
	)
	return &Postgres{db: db, tm: mgr, log: log}
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close closes the database.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Save stores m and its contributor digest in one transaction and returns the run id.
func (p *Postgres) Save(ctx context.Context, m analyzer.RepoMetrics) (int64, error) {
	bundle, err := json.Marshal(m)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}

	var id int64
	err = p.tm.Do(ctx, func(ctx context.Context) error {
		tr := ctxGetter.DefaultTrOrDB(ctx, p.db)
		err := tr.QueryRowContext(ctx,
			`INSERT INTO metric_runs (repository, window_start, window_end, bundle)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			m.Repo, m.Window.Start, m.Window.End, string(bundle),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, row := range contributorRows(m) {
			_, err := tr.ExecContext(ctx,
				`INSERT INTO contributor_metrics (run_id, kind, identity, records, total_minutes, avg_minutes)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				id, row.Kind, row.Identity, row.Records, row.TotalMinutes, row.AvgMinutes,
			)
			if err != nil {
				return fmt.Errorf("insert contributor %s/%s: %w", row.Kind, row.Identity, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("save snapshot of %s: %w", m.Repo, err)
	}

	p.log.Info("snapshot saved", zap.String("repo", m.Repo), zap.Int64("run", id))
	return id, nil
}

// contributorRows flattens the contributor maps, sorted by identity.
func contributorRows(m analyzer.RepoMetrics) []ContributorRow {
	var rows []ContributorRow
	for _, id := range analyzer.Identities(m.PullRequests.Contributors) {
		c := m.PullRequests.Contributors[id]
		rows = append(rows, ContributorRow{
			Kind:         KindPullRequest,
			Identity:     id,
			Records:      c.MergedPullRequests,
			TotalMinutes: c.TotalTimeToMerge,
			AvgMinutes:   c.AvgTimeToMerge,
		})
	}
	for _, id := range analyzer.Identities(m.Issues.Contributors) {
		c := m.Issues.Contributors[id]
		rows = append(rows, ContributorRow{
			Kind:         KindIssue,
			Identity:     id,
			Records:      c.ClosedIssues,
			TotalMinutes: c.TotalIssueResolutionTime,
			AvgMinutes:   c.AvgIssueResolutionTime,
		})
	}
	return rows
}

// Latest returns the most recent snapshot of repository.
func (p *Postgres) Latest(ctx context.Context, repository string) (*Snapshot, error) {
	var (
		s      Snapshot
		bundle []byte
	)
	tr := ctxGetter.DefaultTrOrDB(ctx, p.db)
	err := tr.QueryRowContext(ctx,
		`SELECT id, repository, window_start, window_end, created_at, bundle
		 FROM metric_runs
		 WHERE repository = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		repository,
	).Scan(&s.ID, &s.Repository, &s.Window.Start, &s.Window.End, &s.CreatedAt, &bundle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot of %s: %w", repository, err)
	}

	if err := json.Unmarshal(bundle, &s.Metrics); err != nil {
		return nil, fmt.Errorf("decode snapshot %d: %w", s.ID, err)
	}
	s.Window.Start = s.Window.Start.UTC()
	s.Window.End = s.Window.End.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

// Contributors lists the contributor digest of a run.
func (p *Postgres) Contributors(ctx context.Context, runID int64) ([]ContributorRow, error) {
	tr := ctxGetter.DefaultTrOrDB(ctx, p.db)
	rows, err := tr.QueryContext(ctx,
		`SELECT kind, identity, records, total_minutes, avg_minutes
		 FROM contributor_metrics
		 WHERE run_id = $1
		 ORDER BY kind DESC, identity`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list contributors of run %d: %w", runID, err)
	}
	defer rows.Close()

	var out []ContributorRow
	for rows.Next() {
		var r ContributorRow
		if err := rows.Scan(&r.Kind, &r.Identity, &r.Records, &r.TotalMinutes, &r.AvgMinutes); err != nil {
			return nil, fmt.Errorf("scan contributor: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
