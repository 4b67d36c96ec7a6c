package analyzer

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// Summary writes a plain text digest of m to w.
func Summary(w io.Writer, m RepoMetrics) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Repository:\t%s\n", m.Repo)
	fmt.Fprintf(tw, "Period:\t%s .. %s\n", m.Window.Start.Format(time.DateOnly), m.Window.End.Format(time.DateOnly))

	pr := m.PullRequests.Overall
	fmt.Fprintln(tw, "\nPull requests")
	fmt.Fprintf(tw, "  merged:\t%d\n", pr.MergedPullRequests)
	fmt.Fprintf(tw, "  avg time to first review:\t%s\n", FormatMinutes(pr.AvgTimeToFirstReview))
	fmt.Fprintf(tw, "  avg time to merge:\t%s\n", FormatMinutes(pr.AvgTimeToMerge))
	fmt.Fprintf(tw, "  lines changed:\t%d\n", pr.TotalLinesChanged)
	fmt.Fprintf(tw, "  review comments per PR:\t%.2f\n", pr.AvgReviewCommentsPerPR)
	fmt.Fprintf(tw, "  review iterations per PR:\t%.2f\n", pr.AvgReviewIterationsPerPR)

	is := m.Issues.Overall
	fmt.Fprintln(tw, "\nIssues")
	fmt.Fprintf(tw, "  closed:\t%d\n", is.ClosedIssues)
	fmt.Fprintf(tw, "  avg resolution time:\t%s\n", FormatMinutes(is.AvgIssueResolutionTime))

	if d := m.Dora; d != nil {
		fmt.Fprintln(tw, "\nDORA")
		fmt.Fprintf(tw, "  deployments:\t%d\n", d.DeploymentFrequency)
		fmt.Fprintf(tw, "  lead time for changes:\t%.1fh\n", d.LeadTimeForChanges)
		fmt.Fprintf(tw, "  change failure rate:\t%.1f%%\n", d.ChangeFailureRate)
		fmt.Fprintf(tw, "  mean time to recovery:\t%.1fh\n", d.MeanTimeToRecovery)
	}

	if p := m.Project; p != nil {
		fmt.Fprintf(tw, "\nProject %s\n", p.Project)
		fmt.Fprintf(tw, "  cards:\t%d (%d done)\n", p.TotalCards, p.CompletedCards)
		fmt.Fprintf(tw, "  avg card lead time:\t%.1fh\n", p.AvgCardLeadTime)
		fmt.Fprintf(tw, "  throughput:\t%.2f/week\n", p.Throughput)
	}

	if it := m.Iterations; it != nil {
		fmt.Fprintf(tw, "\nIterations of %s\n", it.Project)
		for _, i := range it.Iterations {
			fmt.Fprintf(tw, "  %s\t%d/%d done\t%.2f/week\n", i.Title, i.CompletedItems, i.TotalItems, i.Throughput)
		}
	}

	if c := m.Churn; c != nil && len(c.TopFiles) > 0 {
		fmt.Fprintln(tw, "\nMost changed files")
		for _, f := range c.TopFiles {
			fmt.Fprintf(tw, "  %s\t%d PRs\t%d lines\n", f.Filename, f.PullRequests, f.LinesChanged)
		}
	}

	if len(m.PullRequests.Contributors) > 0 {
		fmt.Fprintln(tw, "\nContributors")
		for _, id := range Identities(m.PullRequests.Contributors) {
			c := m.PullRequests.Contributors[id]
			fmt.Fprintf(tw, "  %s\t%d merged\tavg merge %s\n", id, c.MergedPullRequests, FormatMinutes(c.AvgTimeToMerge))
		}
	}

	return tw.Flush()
}
