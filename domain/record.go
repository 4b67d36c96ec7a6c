// Package domain holds the normalized activity records the aggregators consume.
// Records are built at the source boundary: nullable timestamps are pointers,
// a missing user is an empty login.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// UnknownIdentity is used when a record carries no usable login.
const UnknownIdentity = "unknown"

// ErrInvalidRepository is returned for repository names not in owner/repo form.
var ErrInvalidRepository = errors.New("invalid repository")

// Window is the closed analysis interval [Start, End].
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Repository identifies an owner/name pair.
type Repository struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// ParseRepository splits an "owner/repo" string.
func ParseRepository(s string) (Repository, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, fmt.Errorf("%w: %q must be in owner/repo form", ErrInvalidRepository, s)
	}
	return Repository{Owner: owner, Name: name}, nil
}

func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// PullRequest is a merged pull request with its sub-resources attached.
type PullRequest struct {
	Number         int             `json:"number"`
	Title          string          `json:"title"`
	Author         string          `json:"author"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
	MergedAt       *time.Time      `json:"merged_at,omitempty"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
	MergeCommitSHA string          `json:"merge_commit_sha,omitempty"`
	Additions      int             `json:"additions"`
	Deletions      int             `json:"deletions"`
	ReviewComments []ReviewComment `json:"review_comments,omitempty"`
	Files          []File          `json:"files,omitempty"`
	Timeline       []TimelineEvent `json:"timeline,omitempty"`
}

// LinesChanged is additions plus deletions.
func (p PullRequest) LinesChanged() int {
	return p.Additions + p.Deletions
}

// ReviewComment is a diff comment left on a pull request.
type ReviewComment struct {
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// File is one changed file of a pull request.
type File struct {
	Filename  string `json:"filename"`
	Status    string `json:"status,omitempty"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
}

// TimelineEvent is an entry of the issue/pull request timeline.
type TimelineEvent struct {
	Event     string     `json:"event"`
	Actor     string     `json:"actor,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// TimelineReviewed is the timeline event emitted when a review is submitted.
const TimelineReviewed = "reviewed"

// Issue is a closed issue (pull requests excluded).
type Issue struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Author    string     `json:"author"`
	Assignee  string     `json:"assignee,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	Labels    []string   `json:"labels,omitempty"`
}

// HasLabel reports whether any label equals one of names, case-insensitively.
func (i Issue) HasLabel(names ...string) bool {
	for _, l := range i.Labels {
		for _, n := range names {
			if strings.EqualFold(l, n) {
				return true
			}
		}
	}
	return false
}

// Deployment is a deployment record of the repository.
type Deployment struct {
	ID          int64     `json:"id"`
	SHA         string    `json:"sha"`
	Environment string    `json:"environment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Release is a published release. CommitRef is the target commitish.
type Release struct {
	ID          int64     `json:"id"`
	TagName     string    `json:"tag_name"`
	CommitRef   string    `json:"commit_ref"`
	PublishedAt time.Time `json:"published_at"`
}
