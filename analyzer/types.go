package analyzer

import (
	"time"

	"go.uber.org/zap"

	"github.com/raywall/gh-productivity/domain"
	"github.com/raywall/gh-productivity/source"
)

// RepoMetrics holds all the computed metrics for a single repository.
// Pull request and issue timings are in minutes, DORA and project timings in hours.
type RepoMetrics struct {
	Repo         string            `json:"repo"`
	Window       domain.Window     `json:"window"`
	GeneratedAt  time.Time         `json:"generatedAt"`
	PullRequests PullRequestReport `json:"pullRequests"`
	Issues       IssueReport       `json:"issues"`
	Dora         *DoraMetrics      `json:"dora,omitempty"`
	Project      *ProjectMetrics   `json:"project,omitempty"`
	Iterations   *IterationReport  `json:"iterations,omitempty"`
	Churn        *ChurnMetrics     `json:"churn,omitempty"`
}

// PullRequestMetrics are the repository-wide pull request figures.
type PullRequestMetrics struct {
	MergedPullRequests       int     `json:"mergedPullRequests"`
	AvgTimeToFirstReview     float64 `json:"avgTimeToFirstReview"`
	AvgTimeToMerge           float64 `json:"avgTimeToMerge"`
	TotalLinesChanged        int     `json:"totalLinesChanged"`
	AvgReviewCommentsPerPR   float64 `json:"avgReviewCommentsPerPR"`
	AvgReviewIterationsPerPR float64 `json:"avgReviewIterationsPerPR"`
	AvgReviewsPerPR          float64 `json:"avgReviewsPerPR"`
}

// ContributorPullRequestMetrics are the per-author totals and their averages.
type ContributorPullRequestMetrics struct {
	MergedPullRequests     int     `json:"mergedPullRequests"`
	TotalTimeToFirstReview float64 `json:"totalTimeToFirstReview"`
	TotalTimeToMerge       float64 `json:"totalTimeToMerge"`
	TotalLinesChanged      int     `json:"totalLinesChanged"`
	TotalReviewComments    int     `json:"totalReviewComments"`
	TotalReviewIterations  int     `json:"totalReviewIterations"`
	AvgTimeToFirstReview   float64 `json:"avgTimeToFirstReview"`
	AvgTimeToMerge         float64 `json:"avgTimeToMerge"`
	AvgLinesChanged        float64 `json:"avgLinesChanged"`
	AvgReviewComments      float64 `json:"avgReviewComments"`
	AvgReviewIterations    float64 `json:"avgReviewIterations"`
}

// PullRequestSeries is one granularity of pull request time series.
type PullRequestSeries struct {
	MergedPullRequests TimeSeries `json:"mergedPullRequests"`
	AvgTimeToMerge     TimeSeries `json:"avgTimeToMerge"`
}

// PullRequestTimeSeries groups the three granularities.
type PullRequestTimeSeries struct {
	Daily   PullRequestSeries `json:"daily"`
	Weekly  PullRequestSeries `json:"weekly"`
	Monthly PullRequestSeries `json:"monthly"`
}

// PullRequestReport is the full pull request reduction.
type PullRequestReport struct {
	Overall      PullRequestMetrics                        `json:"overall"`
	Contributors map[string]*ContributorPullRequestMetrics `json:"contributors"`
	TimeSeries   PullRequestTimeSeries                     `json:"timeSeries"`
}

// IssueMetrics are the repository-wide issue figures.
type IssueMetrics struct {
	ClosedIssues           int     `json:"closedIssues"`
	AvgIssueResolutionTime float64 `json:"avgIssueResolutionTime"`
}

// ContributorIssueMetrics are the per-assignee totals.
type ContributorIssueMetrics struct {
	ClosedIssues             int     `json:"closedIssues"`
	TotalIssueResolutionTime float64 `json:"totalIssueResolutionTime"`
	AvgIssueResolutionTime   float64 `json:"avgIssueResolutionTime"`
}

// IssueSeries is one granularity of issue time series.
type IssueSeries struct {
	ClosedIssues           TimeSeries `json:"closedIssues"`
	AvgIssueResolutionTime TimeSeries `json:"avgIssueResolutionTime"`
}

// IssueTimeSeries groups the three granularities.
type IssueTimeSeries struct {
	Daily   IssueSeries `json:"daily"`
	Weekly  IssueSeries `json:"weekly"`
	Monthly IssueSeries `json:"monthly"`
}

// IssueReport is the full issue reduction.
type IssueReport struct {
	Overall      IssueMetrics                        `json:"overall"`
	Contributors map[string]*ContributorIssueMetrics `json:"contributors"`
	TimeSeries   IssueTimeSeries                     `json:"timeSeries"`
}

// DoraMetrics are the four delivery indicators.
type DoraMetrics struct {
	DeploymentFrequency int     `json:"deploymentFrequency"`
	LeadTimeForChanges  float64 `json:"leadTimeForChanges"` // hours
	ChangeFailureRate   float64 `json:"changeFailureRate"`  // percent
	MeanTimeToRecovery  float64 `json:"meanTimeToRecovery"` // hours
}

// ProjectMetrics summarize a classic project board.
type ProjectMetrics struct {
	Project         string  `json:"project"`
	TotalCards      int     `json:"totalCards"`
	CompletedCards  int     `json:"completedCards"`
	AvgCardLeadTime float64 `json:"avgCardLeadTime"` // hours
	Throughput      float64 `json:"throughput"`      // cards per week
}

// IterationMetrics is the throughput of one iteration of a Projects (v2) board.
type IterationMetrics struct {
	IterationID          string    `json:"iterationId"`
	Title                string    `json:"title"`
	StartDate            time.Time `json:"startDate"`
	EndDate              time.Time `json:"endDate"`
	Duration             int       `json:"duration"` // days
	TotalItems           int       `json:"totalItems"`
	CompletedItems       int       `json:"completedItems"`
	Throughput           float64   `json:"throughput"` // items per week
	TotalStoryPoints     float64   `json:"totalStoryPoints"`
	CompletedStoryPoints float64   `json:"completedStoryPoints"`
}

// IterationReport lists the iterations of one board, ordered by start date.
type IterationReport struct {
	Project    string             `json:"project"`
	Iterations []IterationMetrics `json:"iterations"`
}

// Options selects the optional sub-reports.
type Options struct {
	Dora           bool
	Board          *BoardOptions
	ProjectV2      *ProjectV2Options
	IncidentLabels []string
	TopFiles       int
	Concurrency    int
	FetchTimeline  bool // needed for avgReviewsPerPR
}

// BoardOptions names a classic project board and its done column.
type BoardOptions struct {
	Name       string
	DoneColumn string
}

// ProjectV2Options locates a Projects (v2) board and its fields.
type ProjectV2Options struct {
	Owner          string
	Number         int
	IterationField string
	StatusField    string
	DoneStatus     string
}

// Analyzer is the main struct for repository metrics analysis.
type Analyzer struct {
	Window  domain.Window
	Options Options
	source  source.RecordSource
	log     *zap.Logger
	now     func() time.Time
}
