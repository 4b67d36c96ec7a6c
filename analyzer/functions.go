package analyzer

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"
)

// minutesBetween returns whole minutes from start to end, truncated toward zero.
func minutesBetween(start, end time.Time) float64 {
	return math.Trunc(end.Sub(start).Minutes())
}

func hoursBetween(start, end time.Time) float64 {
	return end.Sub(start).Hours()
}

// average is total/n, or 0 when n is 0.
func average(total float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// FormatMinutes renders a minute amount as hh:mm.
func FormatMinutes(minutes float64) string {
	m := int(math.Round(minutes))
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%02d:%02d", sign, m/60, m%60)
}

// Export exports the metrics to a JSON file.
func Export(metrics []RepoMetrics, filename string) error {
	jsonData, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if err := os.WriteFile(filename, jsonData, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}
