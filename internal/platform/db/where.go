package db

import (
	"strconv"
	"strings"
)

// Where accumulates AND-ed SQL predicates with positional arguments. Each
// predicate uses ? placeholders which are numbered in order of addition.
type Where struct {
	conds []string
	args  []any
}

// Add appends a predicate. The number of ? markers must match len(args).
func (w *Where) Add(cond string, args ...any) {
	var b strings.Builder
	next := 0
	for _, r := range cond {
		if r == '?' && next < len(args) {
			w.args = append(w.args, args[next])
			next++
			b.WriteString("$" + strconv.Itoa(len(w.args)))
			continue
		}
		b.WriteRune(r)
	}
	w.conds = append(w.conds, b.String())
}

// SQL renders the WHERE clause, or an empty string when no predicate exists.
func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// Args returns the collected arguments.
func (w *Where) Args() []any {
	return w.args
}

// Next returns the placeholder for an argument appended after the predicates,
// typically LIMIT and OFFSET.
func (w *Where) Next(offset int) string {
	return "$" + strconv.Itoa(len(w.args)+offset)
}
