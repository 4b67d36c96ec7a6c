package analyzer

import (
	"github.com/raywall/gh-productivity/domain"
)

// AggregateIssues reduces closed issues keyed by assignee, falling back to the author.
// Issues without both timestamps still count as closed but carry no resolution time.
func AggregateIssues(issues []domain.Issue) IssueReport {
	var (
		totalResolution float64
		resolved        int
	)

	contributors := make(map[string]*ContributorIssueMetrics)
	closes := newGranularBuckets()

	for _, issue := range issues {
		c := contributor(contributors, identity(issue.Assignee, issue.Author))
		c.ClosedIssues++

		if issue.CreatedAt == nil || issue.ClosedAt == nil {
			continue
		}
		resolution := minutesBetween(*issue.CreatedAt, *issue.ClosedAt)
		totalResolution += resolution
		resolved++
		c.TotalIssueResolutionTime += resolution
		closes.add(*issue.ClosedAt, resolution)
	}

	for _, c := range contributors {
		c.AvgIssueResolutionTime = average(c.TotalIssueResolutionTime, c.ClosedIssues)
	}

	return IssueReport{
		Overall: IssueMetrics{
			ClosedIssues:           len(issues),
			AvgIssueResolutionTime: average(totalResolution, resolved),
		},
		Contributors: contributors,
		TimeSeries: IssueTimeSeries{
			Daily:   IssueSeries{ClosedIssues: closes[Daily].counts(), AvgIssueResolutionTime: closes[Daily].means()},
			Weekly:  IssueSeries{ClosedIssues: closes[Weekly].counts(), AvgIssueResolutionTime: closes[Weekly].means()},
			Monthly: IssueSeries{ClosedIssues: closes[Monthly].counts(), AvgIssueResolutionTime: closes[Monthly].means()},
		},
	}
}
