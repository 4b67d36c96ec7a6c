package analyzer

import (
	"path"
	"sort"

	"github.com/raywall/gh-productivity/domain"
)

// ChurnMetrics count how many merged pull requests touched each file and directory.
type ChurnMetrics struct {
	ByFile   map[string]int `json:"byFile"`
	ByDir    map[string]int `json:"byDir"`
	TopFiles []FileChurn    `json:"topFiles"`
}

// FileChurn is one entry of the churn ranking.
type FileChurn struct {
	Filename     string `json:"filename"`
	PullRequests int    `json:"pullRequests"`
	LinesChanged int    `json:"linesChanged"`
}

// AggregateChurn returns nil when no pull request carries file data.
func AggregateChurn(pulls []domain.PullRequest, top int) *ChurnMetrics {
	churn := make(map[string]int)
	lines := make(map[string]int)
	for _, pr := range pulls {
		for _, f := range pr.Files {
			if f.Filename == "" {
				continue
			}
			churn[f.Filename]++
			lines[f.Filename] += f.Additions + f.Deletions
		}
	}
	if len(churn) == 0 {
		return nil
	}

	churnByDir := make(map[string]int)
	for file, count := range churn {
		churnByDir[path.Dir(file)] += count
	}

	ranking := make([]FileChurn, 0, len(churn))
	for file, count := range churn {
		ranking = append(ranking, FileChurn{Filename: file, PullRequests: count, LinesChanged: lines[file]})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].PullRequests != ranking[j].PullRequests {
			return ranking[i].PullRequests > ranking[j].PullRequests
		}
		return ranking[i].Filename < ranking[j].Filename
	})
	if top > 0 && len(ranking) > top {
		ranking = ranking[:top]
	}

	return &ChurnMetrics{ByFile: churn, ByDir: churnByDir, TopFiles: ranking}
}
