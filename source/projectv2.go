package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/raywall/gh-productivity/domain"
)

const projectV2Query = `query($owner: String!, $number: Int!) {
  repositoryOwner(login: $owner) {
    ... on ProjectV2Owner {
      projectV2(number: $number) { id number title }
    }
  }
}`

const projectV2ItemsQuery = `query($id: ID!, $first: Int!, $cursor: String) {
  node(id: $id) {
    ... on ProjectV2 {
      items(first: $first, after: $cursor) {
        pageInfo { hasNextPage endCursor }
        nodes {
          id
          type
          content {
            ... on Issue { number title }
            ... on PullRequest { number title }
            ... on DraftIssue { title }
          }
          fieldValues(first: 50) {
            nodes {
              ... on ProjectV2ItemFieldIterationValue {
                iterationId title startDate duration
                field { ... on ProjectV2FieldCommon { name } }
              }
              ... on ProjectV2ItemFieldSingleSelectValue {
                name
                field { ... on ProjectV2FieldCommon { name } }
              }
            }
          }
        }
      }
    }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type graphqlErrors []graphqlError

func (e graphqlErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ge := range e {
		msgs[i] = ge.Message
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

func (e graphqlErrors) onlyNotFound() bool {
	for _, ge := range e {
		if ge.Type != "NOT_FOUND" {
			return false
		}
	}
	return len(e) > 0
}

// graphql posts a query and decodes its data member into data.
func (g *GitHub) graphql(ctx context.Context, query string, vars map[string]any, data any) error {
	req, err := g.client.NewRequest(http.MethodPost, g.graphqlPath, graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("build graphql request: %w", err)
	}

	var out struct {
		Data   json.RawMessage `json:"data"`
		Errors graphqlErrors   `json:"errors"`
	}
	resp, err := g.client.Do(ctx, req, &out)
	if err != nil {
		return fmt.Errorf("graphql request: %w", err)
	}
	if err := g.checkRateLimit(ctx, resp); err != nil {
		return err
	}

	if len(out.Data) > 0 && string(out.Data) != "null" {
		if err := json.Unmarshal(out.Data, data); err != nil {
			return fmt.Errorf("decode graphql data: %w", err)
		}
	}
	if len(out.Errors) > 0 {
		return out.Errors
	}
	return nil
}

// GetProjectV2 returns the board numbered number of owner, or nil when it does not exist.
func (g *GitHub) GetProjectV2(ctx context.Context, owner string, number int) (*domain.ProjectV2, error) {
	var data struct {
		RepositoryOwner *struct {
			ProjectV2 *struct {
				ID     string `json:"id"`
				Number int    `json:"number"`
				Title  string `json:"title"`
			} `json:"projectV2"`
		} `json:"repositoryOwner"`
	}

	err := g.graphql(ctx, projectV2Query, map[string]any{"owner": owner, "number": number}, &data)
	var gqlErrs graphqlErrors
	if errors.As(err, &gqlErrs) && gqlErrs.onlyNotFound() {
		g.log.Debug("project v2 not found", zap.String("owner", owner), zap.Int("number", number))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project v2 %s#%d: %w", owner, number, err)
	}
	if data.RepositoryOwner == nil || data.RepositoryOwner.ProjectV2 == nil {
		return nil, nil
	}

	p := data.RepositoryOwner.ProjectV2
	return &domain.ProjectV2{ID: p.ID, Number: p.Number, Title: p.Title}, nil
}

type projectV2FieldValue struct {
	IterationID string `json:"iterationId"`
	Title       string `json:"title"`
	StartDate   string `json:"startDate"`
	Duration    int    `json:"duration"`
	Name        string `json:"name"`
	Field       struct {
		Name string `json:"name"`
	} `json:"field"`
}

type projectV2ItemNode struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Content *struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
	} `json:"content"`
	FieldValues struct {
		Nodes []projectV2FieldValue `json:"nodes"`
	} `json:"fieldValues"`
}

// GetProjectV2Items lists every item of a board with its iteration and status values.
func (g *GitHub) GetProjectV2Items(ctx context.Context, projectID string, fields ProjectV2Fields) ([]domain.ProjectV2Item, error) {
	var (
		items  []domain.ProjectV2Item
		cursor *string
	)
	for {
		var data struct {
			Node *struct {
				Items struct {
					PageInfo struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
					Nodes []projectV2ItemNode `json:"nodes"`
				} `json:"items"`
			} `json:"node"`
		}

		vars := map[string]any{"id": projectID, "first": g.pageSize, "cursor": cursor}
		if err := g.graphql(ctx, projectV2ItemsQuery, vars, &data); err != nil {
			return nil, fmt.Errorf("list project v2 items of %s: %w", projectID, err)
		}
		if data.Node == nil {
			return items, nil
		}

		for _, node := range data.Node.Items.Nodes {
			item, err := convertProjectV2Item(node, fields)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		g.log.Debug("fetched project v2 items", zap.String("project", projectID), zap.Int("items", len(items)))

		page := data.Node.Items.PageInfo
		if !page.HasNextPage || page.EndCursor == "" {
			return items, nil
		}
		next := page.EndCursor
		cursor = &next
	}
}

func convertProjectV2Item(node projectV2ItemNode, fields ProjectV2Fields) (domain.ProjectV2Item, error) {
	item := domain.ProjectV2Item{ID: node.ID, ContentType: node.Type}
	if node.Content != nil {
		item.Number = node.Content.Number
		item.Title = node.Content.Title
	}

	for _, fv := range node.FieldValues.Nodes {
		switch {
		case fv.IterationID != "" && strings.EqualFold(fv.Field.Name, fields.Iteration):
			start, err := time.Parse(time.DateOnly, fv.StartDate)
			if err != nil {
				return domain.ProjectV2Item{}, fmt.Errorf("item %s: iteration start date %q: %w", node.ID, fv.StartDate, err)
			}
			item.Iteration = &domain.IterationValue{
				ID:        fv.IterationID,
				Title:     fv.Title,
				StartDate: start,
				Duration:  fv.Duration,
			}
		case fv.Name != "" && strings.EqualFold(fv.Field.Name, fields.Status):
			item.Status = fv.Name
		}
	}
	return item, nil
}
