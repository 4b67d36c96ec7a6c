package analyzer

import (
	"github.com/raywall/gh-productivity/domain"
)

// AggregatePullRequests reduces merged pull requests, with their review comments
// attached, into overall, per-author and time-bucketed metrics.
//
// Review iterations are the number of distinct review commenters of a pull request.
// Time to merge only counts pull requests that carry both timestamps; the other
// overall averages are taken over all merged pull requests.
func AggregatePullRequests(pulls []domain.PullRequest) PullRequestReport {
	var (
		totalTimeToFirstReview float64
		totalTimeToMerge       float64
		mergeSamples           int
		totalLinesChanged      int
		totalReviewComments    int
		totalReviewIterations  int
		totalReviews           int
	)

	contributors := make(map[string]*ContributorPullRequestMetrics)
	merges := newGranularBuckets()

	for _, pr := range pulls {
		c := contributor(contributors, identity(pr.Author))
		c.MergedPullRequests++

		if pr.CreatedAt != nil && pr.MergedAt != nil {
			timeToMerge := minutesBetween(*pr.CreatedAt, *pr.MergedAt)
			totalTimeToMerge += timeToMerge
			mergeSamples++
			c.TotalTimeToMerge += timeToMerge
			merges.add(*pr.MergedAt, timeToMerge)
		}

		lines := pr.LinesChanged()
		totalLinesChanged += lines
		c.TotalLinesChanged += lines

		totalReviewComments += len(pr.ReviewComments)
		c.TotalReviewComments += len(pr.ReviewComments)

		if len(pr.ReviewComments) > 0 {
			if pr.CreatedAt != nil {
				first := pr.ReviewComments[0].CreatedAt
				for _, rc := range pr.ReviewComments[1:] {
					if rc.CreatedAt.Before(first) {
						first = rc.CreatedAt
					}
				}
				timeToFirstReview := minutesBetween(*pr.CreatedAt, first)
				totalTimeToFirstReview += timeToFirstReview
				c.TotalTimeToFirstReview += timeToFirstReview
			}

			iterations := distinctCommenters(pr.ReviewComments)
			totalReviewIterations += iterations
			c.TotalReviewIterations += iterations
		}

		for _, ev := range pr.Timeline {
			if ev.Event == domain.TimelineReviewed {
				totalReviews++
			}
		}
	}

	for _, c := range contributors {
		n := c.MergedPullRequests
		c.AvgTimeToFirstReview = average(c.TotalTimeToFirstReview, n)
		c.AvgTimeToMerge = average(c.TotalTimeToMerge, n)
		c.AvgLinesChanged = average(float64(c.TotalLinesChanged), n)
		c.AvgReviewComments = average(float64(c.TotalReviewComments), n)
		c.AvgReviewIterations = average(float64(c.TotalReviewIterations), n)
	}

	numPulls := len(pulls)
	return PullRequestReport{
		Overall: PullRequestMetrics{
			MergedPullRequests:       numPulls,
			AvgTimeToFirstReview:     average(totalTimeToFirstReview, numPulls),
			AvgTimeToMerge:           average(totalTimeToMerge, mergeSamples),
			TotalLinesChanged:        totalLinesChanged,
			AvgReviewCommentsPerPR:   average(float64(totalReviewComments), numPulls),
			AvgReviewIterationsPerPR: average(float64(totalReviewIterations), numPulls),
			AvgReviewsPerPR:          average(float64(totalReviews), numPulls),
		},
		Contributors: contributors,
		TimeSeries: PullRequestTimeSeries{
			Daily:   PullRequestSeries{MergedPullRequests: merges[Daily].counts(), AvgTimeToMerge: merges[Daily].means()},
			Weekly:  PullRequestSeries{MergedPullRequests: merges[Weekly].counts(), AvgTimeToMerge: merges[Weekly].means()},
			Monthly: PullRequestSeries{MergedPullRequests: merges[Monthly].counts(), AvgTimeToMerge: merges[Monthly].means()},
		},
	}
}
