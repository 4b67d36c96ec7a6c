package analyzer

import (
	"sort"
	"time"

	"github.com/raywall/gh-productivity/domain"
)

// DefaultIncidentLabels mark an issue as a production incident.
var DefaultIncidentLabels = []string{"bug", "incident"}

// CorrelateDora derives the four DORA indicators. Deployments and releases
// outside the window are ignored; both count as deploy events.
//
// A pull request's lead time runs from its merge to the earliest deploy event on
// the same commit SHA that is not before the merge. Pull requests without such an
// event are left out of the mean.
func CorrelateDora(window domain.Window, pulls []domain.PullRequest, issues []domain.Issue,
	deployments []domain.Deployment, releases []domain.Release, incidentLabels []string) DoraMetrics {
	if len(incidentLabels) == 0 {
		incidentLabels = DefaultIncidentLabels
	}

	// commit sha -> ascending deploy instants
	deploys := make(map[string][]time.Time)
	frequency := 0
	for _, d := range deployments {
		if !window.Contains(d.CreatedAt) {
			continue
		}
		frequency++
		if d.SHA != "" {
			deploys[d.SHA] = append(deploys[d.SHA], d.CreatedAt)
		}
	}
	for _, r := range releases {
		if !window.Contains(r.PublishedAt) {
			continue
		}
		frequency++
		if r.CommitRef != "" {
			deploys[r.CommitRef] = append(deploys[r.CommitRef], r.PublishedAt)
		}
	}
	for _, times := range deploys {
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	}

	var totalLeadTime float64
	matched := 0
	for _, pr := range pulls {
		if pr.MergedAt == nil || pr.MergeCommitSHA == "" {
			continue
		}
		at, ok := firstAtOrAfter(deploys[pr.MergeCommitSHA], *pr.MergedAt)
		if !ok {
			continue
		}
		totalLeadTime += hoursBetween(*pr.MergedAt, at)
		matched++
	}

	incidents := 0
	var totalRecovery float64
	recovered := 0
	for _, issue := range issues {
		if !issue.HasLabel(incidentLabels...) {
			continue
		}
		incidents++
		if issue.CreatedAt != nil && issue.ClosedAt != nil {
			totalRecovery += hoursBetween(*issue.CreatedAt, *issue.ClosedAt)
			recovered++
		}
	}

	var failureRate float64
	if frequency > 0 {
		failureRate = float64(incidents) / float64(frequency) * 100
	}

	return DoraMetrics{
		DeploymentFrequency: frequency,
		LeadTimeForChanges:  average(totalLeadTime, matched),
		ChangeFailureRate:   failureRate,
		MeanTimeToRecovery:  average(totalRecovery, recovered),
	}
}

// firstAtOrAfter returns the earliest instant of the ascending slice not before t.
func firstAtOrAfter(ascending []time.Time, t time.Time) (time.Time, bool) {
	i := sort.Search(len(ascending), func(i int) bool { return !ascending[i].Before(t) })
	if i == len(ascending) {
		return time.Time{}, false
	}
	return ascending[i], true
}
