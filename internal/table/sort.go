// Package table implements the column sorting and filtering shared by the
// roster and results listings.
package table

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrUnknownColumn = errors.New("unknown sort column")

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts "asc" or "desc" (any case); anything else yields def.
func ParseDirection(s string, def Direction) Direction {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Asc:
		return Asc
	case Desc:
		return Desc
	}
	return def
}

// Toggle flips the direction, as repeated clicks on a column header do.
func (d Direction) Toggle() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// Accessor extracts a sortable value from a row. It returns nil for a missing
// value. Supported values are string, int, int64 and float64.
type Accessor[T any] func(T) any

// Columns maps a column key to its accessor.
type Columns[T any] map[string]Accessor[T]

// Sort orders rows in place by column. Missing values (nil or empty string)
// always sort last regardless of direction. The sort is stable.
func Sort[T any](rows []T, cols Columns[T], column string, dir Direction) error {
	get, ok := cols[column]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	slices.SortStableFunc(rows, func(a, b T) int {
		va, vb := get(a), get(b)
		na, nb := missing(va), missing(vb)
		switch {
		case na && nb:
			return 0
		case na:
			return 1
		case nb:
			return -1
		}
		c := compare(va, vb)
		if dir == Desc {
			return -c
		}
		return c
	})
	return nil
}

func missing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}

func compare(a, b any) int {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(strings.ToLower(x), strings.ToLower(y))
		}
	case int:
		if y, ok := b.(int); ok {
			return cmp.Compare(x, y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y)
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
