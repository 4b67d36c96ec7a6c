package source

import (
	"context"
	"sync"
	"time"

	"github.com/raywall/gh-productivity/domain"
)

// fakeSource serves canned records and counts calls per method.
type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int
	errs  map[string]error

	// delay holds every call open this long; inFlight and maxInFlight track
	// how many calls overlapped.
	delay       time.Duration
	inFlight    int
	maxInFlight int
	// gate, when set, blocks ListPullRequests until closed.
	gate chan struct{}

	pulls    []domain.PullRequest
	details  map[int]*domain.PullRequest
	comments map[int][]domain.ReviewComment
	files    map[int][]domain.File
	timeline map[int][]domain.TimelineEvent
	issues   []domain.Issue
	deploys  []domain.Deployment
	releases []domain.Release
	project  *domain.Project
	columns  []domain.ProjectColumn
	cards    map[int64][]domain.ProjectCard
	v2       *domain.ProjectV2
	v2Items  []domain.ProjectV2Item
	repos    []domain.Repository
}

var _ RecordSource = (*fakeSource)(nil)

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls:    make(map[string]int),
		errs:     make(map[string]error),
		details:  make(map[int]*domain.PullRequest),
		comments: make(map[int][]domain.ReviewComment),
		files:    make(map[int][]domain.File),
		timeline: make(map[int][]domain.TimelineEvent),
		cards:    make(map[int64][]domain.ProjectCard),
	}
}

func (f *fakeSource) record(method string) error {
	f.mu.Lock()
	f.calls[method]++
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	err := f.errs[method]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return err
}

func (f *fakeSource) peakInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *fakeSource) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeSource) ListPullRequests(_ context.Context, _ domain.Repository, _ domain.Window) ([]domain.PullRequest, error) {
	if err := f.record("ListPullRequests"); err != nil {
		return nil, err
	}
	if f.gate != nil {
		<-f.gate
	}
	return append([]domain.PullRequest(nil), f.pulls...), nil
}

func (f *fakeSource) GetPullRequest(_ context.Context, _ domain.Repository, number int) (*domain.PullRequest, error) {
	if err := f.record("GetPullRequest"); err != nil {
		return nil, err
	}
	return f.details[number], nil
}

func (f *fakeSource) ListReviewComments(_ context.Context, _ domain.Repository, number int) ([]domain.ReviewComment, error) {
	if err := f.record("ListReviewComments"); err != nil {
		return nil, err
	}
	return f.comments[number], nil
}

func (f *fakeSource) ListFiles(_ context.Context, _ domain.Repository, number int) ([]domain.File, error) {
	if err := f.record("ListFiles"); err != nil {
		return nil, err
	}
	return f.files[number], nil
}

func (f *fakeSource) ListTimeline(_ context.Context, _ domain.Repository, number int) ([]domain.TimelineEvent, error) {
	if err := f.record("ListTimeline"); err != nil {
		return nil, err
	}
	return f.timeline[number], nil
}

func (f *fakeSource) ListIssues(_ context.Context, _ domain.Repository, _ domain.Window) ([]domain.Issue, error) {
	if err := f.record("ListIssues"); err != nil {
		return nil, err
	}
	return f.issues, nil
}

func (f *fakeSource) ListDeployments(_ context.Context, _ domain.Repository, _ domain.Window) ([]domain.Deployment, error) {
	if err := f.record("ListDeployments"); err != nil {
		return nil, err
	}
	return f.deploys, nil
}

func (f *fakeSource) ListReleases(_ context.Context, _ domain.Repository, _ domain.Window) ([]domain.Release, error) {
	if err := f.record("ListReleases"); err != nil {
		return nil, err
	}
	return f.releases, nil
}

func (f *fakeSource) FindProject(_ context.Context, _ domain.Repository, _ string) (*domain.Project, error) {
	if err := f.record("FindProject"); err != nil {
		return nil, err
	}
	return f.project, nil
}

func (f *fakeSource) ListProjectColumns(_ context.Context, _ int64) ([]domain.ProjectColumn, error) {
	if err := f.record("ListProjectColumns"); err != nil {
		return nil, err
	}
	return f.columns, nil
}

func (f *fakeSource) ListColumnCards(_ context.Context, columnID int64) ([]domain.ProjectCard, error) {
	if err := f.record("ListColumnCards"); err != nil {
		return nil, err
	}
	return f.cards[columnID], nil
}

func (f *fakeSource) GetProjectV2(_ context.Context, _ string, _ int) (*domain.ProjectV2, error) {
	if err := f.record("GetProjectV2"); err != nil {
		return nil, err
	}
	return f.v2, nil
}

func (f *fakeSource) GetProjectV2Items(_ context.Context, _ string, _ ProjectV2Fields) ([]domain.ProjectV2Item, error) {
	if err := f.record("GetProjectV2Items"); err != nil {
		return nil, err
	}
	return f.v2Items, nil
}

func (f *fakeSource) ListRepositories(_ context.Context, _ string) ([]domain.Repository, error) {
	if err := f.record("ListRepositories"); err != nil {
		return nil, err
	}
	return f.repos, nil
}
