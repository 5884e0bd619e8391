package repository

import (
	"strings"

	"agrovision/internal/dto"
)

// Placeholder renders the n-th (1-based) bind parameter for a SQL dialect.
type Placeholder func(n int) string

// QuestionMark is the sqlite placeholder style.
func QuestionMark(int) string { return "?" }

// SightingConditions builds the WHERE clause shared by the list and count
// queries. The returned clause starts with " WHERE" or is empty.
func SightingConditions(filter *dto.SightingFilters, bind Placeholder) (string, []any) {
	if filter == nil {
		return "", nil
	}

	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", bind(len(args)), 1))
	}

	if filter.MarkerID != nil {
		add("marker_id = ?", *filter.MarkerID)
	}
	if filter.RunID != "" {
		add("run_id = ?", filter.RunID)
	}
	if !filter.Since.IsZero() {
		add("detected_at >= ?", filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		add("detected_at <= ?", filter.Until.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Paging appends LIMIT/OFFSET clauses. OFFSET is only applied together
// with a positive LIMIT, which keeps the clause valid for both dialects.
func Paging(filter *dto.SightingFilters, bind Placeholder, args []any) (string, []any) {
	if filter == nil || filter.Limit <= 0 {
		return "", args
	}

	args = append(args, filter.Limit)
	clause := " LIMIT " + bind(len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		clause += " OFFSET " + bind(len(args))
	}
	return clause, args
}
