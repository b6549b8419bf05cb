// Package search builds parameterized listing queries: exact-match facets,
// case-insensitive substring search and LIMIT/OFFSET paging.
package search

import (
	"fmt"
	"strings"
)

// MaxTermLength bounds free-text search input.
const MaxTermLength = 100

// Query accumulates WHERE clauses and their positional arguments for a
// single FROM expression. Column names are always supplied by code, never by
// the request; only values flow through args.
type Query struct {
	cols    string
	from    string
	where   string
	args    []interface{}
	idx     int
	orderBy string
}

// NewQuery creates a query selecting cols from the given FROM expression
// (which may include JOINs).
func NewQuery(cols, from string) *Query {
	return &Query{cols: cols, from: from, idx: 1}
}

// Where appends a raw clause (without leading AND). Placeholders in the
// clause must be numbered starting at Idx().
func (q *Query) Where(clause string, args ...interface{}) *Query {
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx += len(args)
	return q
}

// Idx returns the next placeholder number.
func (q *Query) Idx() int { return q.idx }

// Equal adds "column = $n" unless value is empty or one of the ignore
// sentinels (UI values such as "All Specialties").
func (q *Query) Equal(column, value string, ignore ...string) *Query {
	value = strings.TrimSpace(value)
	if value == "" {
		return q
	}
	for _, s := range ignore {
		if strings.EqualFold(value, s) {
			return q
		}
	}
	return q.Where(fmt.Sprintf("%s = $%d", column, q.idx), value)
}

// ContainsAny adds a case-insensitive substring match of term against any of
// the columns, sharing one placeholder.
func (q *Query) ContainsAny(term string, columns ...string) *Query {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return q
	}
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", col, q.idx)
	}
	return q.Where("("+strings.Join(parts, " OR ")+")", "%"+EscapeLike(term)+"%")
}

// OrderBy sets the ORDER BY expression (without the keyword).
func (q *Query) OrderBy(orderBy string) *Query {
	q.orderBy = orderBy
	return q
}

// CountSQL returns the count query.
func (q *Query) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", q.from, q.where)
}

// Args returns the filter arguments (for CountSQL).
func (q *Query) Args() []interface{} {
	return q.args
}

// DataSQL returns the page query with ORDER BY and LIMIT/OFFSET.
func (q *Query) DataSQL() string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", q.cols, q.from, q.where)
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", q.idx, q.idx+1)
	return sql
}

// DataArgs returns the filter arguments followed by limit and offset.
func (q *Query) DataArgs(limit, offset int) []interface{} {
	result := make([]interface{}, len(q.args)+2)
	copy(result, q.args)
	result[len(q.args)] = limit
	result[len(q.args)+1] = offset
	return result
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE metacharacters so user input matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ValidateTerm reports whether a free-text term is within bounds.
func ValidateTerm(term string) error {
	if len(term) > MaxTermLength {
		return fmt.Errorf("search term must be at most %d characters", MaxTermLength)
	}
	return nil
}
