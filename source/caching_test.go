package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/raywall/gh-productivity/cache"
	"github.com/raywall/gh-productivity/domain"
)

var (
	testRepo   = domain.Repository{Owner: "acme", Name: "widget"}
	testWindow = domain.Window{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 23, 59, 59, 999e6, time.UTC),
	}
)

func newTestCaching(t *testing.T, inner RecordSource) (*Caching, *cache.FileCache) {
	t.Helper()
	fc := cache.New(filepath.Join(t.TempDir(), "cache"), zaptest.NewLogger(t))
	return NewCaching(inner, fc, zaptest.NewLogger(t)), fc
}

func TestCachingServesSecondCallFromCache(t *testing.T) {
	ctx := context.Background()
	inner := newFakeSource()
	merged := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	inner.pulls = []domain.PullRequest{{Number: 1, Author: "alice", MergedAt: &merged}}
	c, fc := newTestCaching(t, inner)

	first, err := c.ListPullRequests(ctx, testRepo, testWindow)
	require.NoError(t, err)
	second, err := c.ListPullRequests(ctx, testRepo, testWindow)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.count("ListPullRequests"))
	assert.Equal(t, first, second)

	key := cache.Key("pulls", "acme", "widget", testWindow.Start, testWindow.End)
	_, err = os.Stat(filepath.Join(fc.Dir(), key+".json"))
	assert.NoError(t, err)
}

func TestCachingKeysPerPullRequest(t *testing.T) {
	ctx := context.Background()
	inner := newFakeSource()
	inner.comments[1] = []domain.ReviewComment{{Author: "bob"}}
	inner.comments[2] = []domain.ReviewComment{{Author: "carol"}}
	c, _ := newTestCaching(t, inner)

	one, err := c.ListReviewComments(ctx, testRepo, 1)
	require.NoError(t, err)
	two, err := c.ListReviewComments(ctx, testRepo, 2)
	require.NoError(t, err)
	_, err = c.ListReviewComments(ctx, testRepo, 1)
	require.NoError(t, err)

	assert.Equal(t, "bob", one[0].Author)
	assert.Equal(t, "carol", two[0].Author)
	assert.Equal(t, 2, inner.count("ListReviewComments"))
}

func TestCachingDoesNotStoreAbsentProject(t *testing.T) {
	ctx := context.Background()
	inner := newFakeSource()
	c, _ := newTestCaching(t, inner)

	p, err := c.FindProject(ctx, testRepo, "Sprint Board")
	require.NoError(t, err)
	assert.Nil(t, p)

	inner.project = &domain.Project{ID: 42, Name: "Sprint Board"}
	p, err = c.FindProject(ctx, testRepo, "Sprint Board")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(42), p.ID)

	_, err = c.FindProject(ctx, testRepo, "Sprint Board")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.count("FindProject"))
}

func TestCachingPropagatesUpstreamErrorsWithoutStoring(t *testing.T) {
	ctx := context.Background()
	inner := newFakeSource()
	boom := errors.New("boom")
	inner.errs["ListIssues"] = boom
	c, _ := newTestCaching(t, inner)

	_, err := c.ListIssues(ctx, testRepo, testWindow)
	assert.ErrorIs(t, err, boom)

	delete(inner.errs, "ListIssues")
	inner.issues = []domain.Issue{{Number: 3}}
	issues, err := c.ListIssues(ctx, testRepo, testWindow)
	require.NoError(t, err)
	assert.Len(t, issues, 1)
	assert.Equal(t, 2, inner.count("ListIssues"))
}

func TestCachingTreatsCorruptEntryAsMiss(t *testing.T) {
	ctx := context.Background()
	inner := newFakeSource()
	inner.columns = []domain.ProjectColumn{{ID: 1, Name: "Done"}}
	c, fc := newTestCaching(t, inner)

	require.NoError(t, os.MkdirAll(fc.Dir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(fc.Dir(), "columns-7.json"), []byte("{not json"), 0o644))

	columns, err := c.ListProjectColumns(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, inner.columns, columns)
	assert.Equal(t, 1, inner.count("ListProjectColumns"))

	// the fresh result replaced the corrupt entry
	_, err = c.ListProjectColumns(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.count("ListProjectColumns"))
}

func TestCachingKeepsSimilarProjectNamesApart(t *testing.T) {
	ctx := context.Background()
	inner := newFakeSource()
	inner.project = &domain.Project{ID: 1, Name: "Sprint Board"}
	c, _ := newTestCaching(t, inner)

	p, err := c.FindProject(ctx, testRepo, "Sprint Board")
	require.NoError(t, err)
	require.NotNil(t, p)

	inner.project = nil
	p, err = c.FindProject(ctx, testRepo, "Sprint_Board")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, 2, inner.count("FindProject"))
}

func TestCachingCollapsesConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	inner := newFakeSource()
	inner.pulls = []domain.PullRequest{{Number: 1, Author: "alice"}}
	inner.gate = make(chan struct{})
	c, _ := newTestCaching(t, inner)

	const callers = 8
	results := make([][]domain.PullRequest, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.ListPullRequests(ctx, testRepo, testWindow)
		}()
	}

	require.Eventually(t, func() bool { return inner.count("ListPullRequests") == 1 }, time.Second, time.Millisecond)
	// let the remaining callers join the in-flight fetch
	time.Sleep(50 * time.Millisecond)
	close(inner.gate)
	wg.Wait()

	assert.Equal(t, 1, inner.count("ListPullRequests"))
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i], 1)
		assert.Equal(t, "alice", results[i][0].Author)
	}

	// every caller owns its slice
	results[0][0].Additions = 99
	for i := 1; i < callers; i++ {
		assert.Zero(t, results[i][0].Additions)
	}
}
