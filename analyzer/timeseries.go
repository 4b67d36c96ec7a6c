package analyzer

import (
	"sort"
	"time"
)

// TimeSeries is an ascending sequence of bucket labels and their values.
type TimeSeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Granularity of a time bucket.
type Granularity int

const (
	Daily Granularity = iota
	Weekly
	Monthly
)

// BucketKey returns the label of the bucket holding t: YYYY-MM-DD for days
// and for weeks (the Monday the week starts on), YYYY-MM for months. Buckets are UTC.
func BucketKey(t time.Time, g Granularity) string {
	t = t.UTC()
	switch g {
	case Weekly:
		return weekStart(t).Format(time.DateOnly)
	case Monthly:
		return t.Format("2006-01")
	default:
		return t.Format(time.DateOnly)
	}
}

func weekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	sinceMonday := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -sinceMonday)
}

type bucket struct {
	sum   float64
	count int
}

// buckets accumulates {sum, count} per label. Only labels that received a value exist.
type buckets map[string]*bucket

func (b buckets) add(key string, v float64) {
	acc, ok := b[key]
	if !ok {
		acc = &bucket{}
		b[key] = acc
	}
	acc.sum += v
	acc.count++
}

// labels are zero-padded ISO dates, so lexical order is chronological.
func (b buckets) labels() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b buckets) counts() TimeSeries {
	return b.series(func(acc *bucket) float64 { return float64(acc.count) })
}

func (b buckets) means() TimeSeries {
	return b.series(func(acc *bucket) float64 { return average(acc.sum, acc.count) })
}

func (b buckets) series(value func(*bucket) float64) TimeSeries {
	labels := b.labels()
	ts := TimeSeries{Labels: labels, Values: make([]float64, len(labels))}
	for i, l := range labels {
		ts.Values[i] = value(b[l])
	}
	return ts
}

// granularBuckets feeds the same event into day, week and month buckets.
type granularBuckets [3]buckets

func newGranularBuckets() granularBuckets {
	return granularBuckets{buckets{}, buckets{}, buckets{}}
}

func (g granularBuckets) add(at time.Time, v float64) {
	for _, gr := range []Granularity{Daily, Weekly, Monthly} {
		g[gr].add(BucketKey(at, gr), v)
	}
}
