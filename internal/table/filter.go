package table

import "strings"

// Any is the filter value that matches every row.
const Any = "all"

// MatchEnum reports whether value passes an enumerated filter. An empty
// filter or "all" matches everything.
func MatchEnum(filter, value string) bool {
	filter = strings.TrimSpace(filter)
	return filter == "" || strings.EqualFold(filter, Any) || filter == value
}

// MatchSearch reports whether any field contains term, case-insensitively.
// An empty term matches everything.
func MatchSearch(term string, fields ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// Filter returns the rows for which keep is true, preserving order.
func Filter[T any](rows []T, keep func(T) bool) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
