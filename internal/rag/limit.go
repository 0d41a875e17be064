package rag

import "strings"

const defaultLimit = 90

// limitClasses are checked in order; the first class with a keyword found
// in the query wins. Aggregation questions need a wide slice of history,
// recency questions a narrow recent one.
var limitClasses = []struct {
	limit    int
	keywords []string
}{
	{300, []string{"total", "sum", "average", "per month", "per year", "statistics", "top", "ranking"}},
	{70, []string{"last", "recent", "yesterday", "today", "when", "find"}},
	{100, []string{"cafe", "restaurant", "taxi", "food", "subscription", "entertainment"}},
}

// EstimateLimit guesses how many transactions a query needs from its
// wording. Matching is case-insensitive substring search.
func EstimateLimit(query string) int {
	q := strings.ToLower(query)
	for _, class := range limitClasses {
		for _, kw := range class.keywords {
			if strings.Contains(q, kw) {
				return class.limit
			}
		}
	}
	return defaultLimit
}
