package analyzer

import (
	"sort"
	"strings"

	"github.com/raywall/gh-productivity/domain"
)

// AggregateProjectBoard summarizes a classic board. A card's lead time is
// updatedAt - createdAt of the cards in the done column; throughput is the mean
// number of completed cards per ISO week that saw a completion.
// It reports false when the done column does not exist.
func AggregateProjectBoard(project string, columns []domain.ColumnCards, doneColumn string) (*ProjectMetrics, bool) {
	var done *domain.ColumnCards
	total := 0
	for i := range columns {
		total += len(columns[i].Cards)
		if done == nil && strings.EqualFold(strings.TrimSpace(columns[i].Column.Name), strings.TrimSpace(doneColumn)) {
			done = &columns[i]
		}
	}
	if done == nil {
		return nil, false
	}

	var totalLeadTime float64
	weeks := buckets{}
	for _, card := range done.Cards {
		totalLeadTime += hoursBetween(card.CreatedAt, card.UpdatedAt)
		weeks.add(BucketKey(card.UpdatedAt, Weekly), 1)
	}

	completed := len(done.Cards)
	return &ProjectMetrics{
		Project:         project,
		TotalCards:      total,
		CompletedCards:  completed,
		AvgCardLeadTime: average(totalLeadTime, completed),
		Throughput:      average(float64(completed), len(weeks)),
	}, true
}

// AggregateIterations groups board items by iteration. Items without an
// iteration value are skipped. Story points are not tracked yet and stay 0.
func AggregateIterations(project string, items []domain.ProjectV2Item, doneStatus string) *IterationReport {
	byID := make(map[string]*IterationMetrics)
	for _, item := range items {
		it := item.Iteration
		if it == nil || it.ID == "" {
			continue
		}
		m, ok := byID[it.ID]
		if !ok {
			m = &IterationMetrics{
				IterationID: it.ID,
				Title:       it.Title,
				StartDate:   it.StartDate,
				EndDate:     it.StartDate.AddDate(0, 0, it.Duration),
				Duration:    it.Duration,
			}
			byID[it.ID] = m
		}
		m.TotalItems++
		if item.Status == doneStatus {
			m.CompletedItems++
		}
	}

	report := &IterationReport{Project: project, Iterations: make([]IterationMetrics, 0, len(byID))}
	for _, m := range byID {
		if m.Duration > 0 {
			m.Throughput = float64(m.CompletedItems) / (float64(m.Duration) / 7)
		}
		report.Iterations = append(report.Iterations, *m)
	}
	sort.Slice(report.Iterations, func(i, j int) bool {
		a, b := report.Iterations[i], report.Iterations[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return a.IterationID < b.IterationID
	})
	return report
}
