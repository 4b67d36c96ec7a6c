package analyzer

import (
	"sort"

	"github.com/raywall/gh-productivity/domain"
)

// identity maps the first non-empty login to itself, or to domain.UnknownIdentity.
func identity(logins ...string) string {
	for _, l := range logins {
		if l != "" {
			return l
		}
	}
	return domain.UnknownIdentity
}

// contributor returns the accumulator for id, creating it on first sight.
func contributor[T any](m map[string]*T, id string) *T {
	acc, ok := m[id]
	if !ok {
		acc = new(T)
		m[id] = acc
	}
	return acc
}

// Identities returns the contributor identities of m in ascending order.
func Identities[T any](m map[string]T) []string {
	list := make([]string, 0, len(m))
	for u := range m {
		list = append(list, u)
	}
	sort.Strings(list)
	return list
}

// distinctCommenters counts the distinct authors of the comments.
func distinctCommenters(comments []domain.ReviewComment) int {
	unique := make(map[string]struct{}, len(comments))
	for _, c := range comments {
		unique[identity(c.Author)] = struct{}{}
	}
	return len(unique)
}
