package query

import (
	"fmt"
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(token string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(token)) + "%"
}

func like(column string) string {
	return fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, column)
}

// SearchClause builds a case-insensitive substring match. A single token is
// matched against every field; several tokens produce an OR of every
// token/field match, plus both first/last orderings of the first two tokens
// when pair is set. It returns an empty clause for a blank search.
func SearchClause(search string, fields []string, pair *NamePair) (string, []any) {
	tokens := strings.Fields(search)
	if len(tokens) == 0 || len(fields) == 0 {
		return "", nil
	}

	var parts []string
	var args []any
	for _, tok := range tokens {
		pattern := containsPattern(tok)
		for _, f := range fields {
			parts = append(parts, like(f))
			args = append(args, pattern)
		}
	}

	if pair != nil && len(tokens) >= 2 {
		a, b := containsPattern(tokens[0]), containsPattern(tokens[1])
		both := "(" + like(pair.First) + " AND " + like(pair.Last) + ")"
		parts = append(parts, both, both)
		args = append(args, a, b, b, a)
	}

	return "(" + strings.Join(parts, " OR ") + ")", args
}
