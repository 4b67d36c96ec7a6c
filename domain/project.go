package domain

import "time"

// Project is a classic (v1) project board.
type Project struct {
	ID     int64  `json:"id"`
	Number int    `json:"number"`
	Name   string `json:"name"`
	State  string `json:"state,omitempty"`
}

// ProjectColumn is a column of a classic board.
type ProjectColumn struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProjectCard is a card resident in a column.
type ProjectCard struct {
	ID        int64     `json:"id"`
	ColumnID  int64     `json:"column_id"`
	Note      string    `json:"note,omitempty"`
	Creator   string    `json:"creator,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ColumnCards pairs a column with the cards it holds.
type ColumnCards struct {
	Column ProjectColumn `json:"column"`
	Cards  []ProjectCard `json:"cards"`
}

// ProjectV2 is a Projects (v2) board.
type ProjectV2 struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// Content types of a ProjectV2Item.
const (
	ContentTypeIssue       = "ISSUE"
	ContentTypePullRequest = "PULL_REQUEST"
	ContentTypeDraftIssue  = "DRAFT_ISSUE"
)

// ProjectV2Item is a board item with the field values the aggregators need.
type ProjectV2Item struct {
	ID          string          `json:"id"`
	ContentType string          `json:"content_type"`
	Number      int             `json:"number,omitempty"`
	Title       string          `json:"title"`
	Iteration   *IterationValue `json:"iteration,omitempty"`
	Status      string          `json:"status,omitempty"`
}

// IterationValue is the value of an iteration field on an item.
type IterationValue struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"start_date"`
	Duration  int       `json:"duration"` // days
}
