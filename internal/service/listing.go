package service

import (
	"errors"

	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/table"
)

// ErrInvalidSort is returned for an unknown sort column.
var ErrInvalidSort = errors.New("invalid sort column")

// Page is one page of a filtered, sorted listing.
type Page[T any] struct {
	Items   []T
	Total   int
	Page    int
	PerPage int
}

// sortAndPage sorts rows by q (falling back to the default column and
// direction) and cuts the requested page. PerPage zero returns every row.
func sortAndPage[T any](rows []T, cols table.Columns[T], q model.ListQuery, defCol string, defDir table.Direction) (Page[T], error) {
	col := q.SortBy
	if col == "" {
		col = defCol
	}
	if err := table.Sort(rows, cols, col, table.ParseDirection(q.SortDir, defDir)); err != nil {
		return Page[T]{}, ErrInvalidSort
	}

	p := Page[T]{Items: rows, Total: len(rows), Page: 1}
	if q.PerPage <= 0 {
		return p, nil
	}

	page := max(q.Page, 1)
	start := min((page-1)*q.PerPage, len(rows))
	end := min(start+q.PerPage, len(rows))
	p.Items = rows[start:end]
	p.Page = page
	p.PerPage = q.PerPage
	return p, nil
}

// timestampValue makes backend timestamps comparable chronologically.
func timestampValue(s string) any {
	if s == "" {
		return nil
	}
	if t, ok := model.ParseTimestamp(s); ok {
		return t.UnixNano()
	}
	return s
}
