package table

import (
	"strings"

	"mailtrack/pkg/model"
)

// MaxSuggestions caps the autocomplete list.
const MaxSuggestions = 5

// Suggest derives up to MaxSuggestions distinct autocomplete strings from
// the searchable fields. Suggestions are raw field values, not highlighted
// substrings; selecting one replaces the query text with that exact value.
// An empty query yields no suggestions.
func Suggest[R model.Record](s Schema[R], records []R, query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	seen := make(map[string]struct{}, MaxSuggestions)
	var out []string
	for _, rec := range records {
		for _, key := range s.Searchable {
			val := stringify(s.Field(rec, key))
			if val == "" {
				continue
			}
			if !strings.Contains(strings.ToLower(val), query) {
				continue
			}
			if _, dup := seen[val]; dup {
				continue
			}
			seen[val] = struct{}{}
			out = append(out, val)
			if len(out) == MaxSuggestions {
				return out
			}
		}
	}
	return out
}
