package table

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"mailtrack/pkg/model"
)

// SortDirection orders a sorted view.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Options is the per-keystroke input of the query pipeline.
type Options[R model.Record] struct {
	Query    string
	SortKey  string
	SortDir  SortDirection
	Filters  []Filter[R]
	Page     int
	PageSize int
}

// Page is one visible page of the derived view. Row indices are the
// positions in the full filtered-and-sorted sequence: 1-based, contiguous.
type Page[R model.Record] struct {
	Rows          []Row[R] `json:"rows"`
	Number        int      `json:"page"`
	TotalPages    int      `json:"totalPages"`
	TotalMatching int      `json:"totalMatching"`
}

// Empty reports the explicit "no results" signal. It is distinct from
// "loading", which the owning view tracks separately.
func (p Page[R]) Empty() bool {
	return p.TotalMatching == 0
}

// Compute derives the visible page from the raw records. Pure: the input
// slice is not mutated and the result depends only on the arguments. The
// wall clock is passed in so date-bucket filters are testable.
func Compute[R model.Record](s Schema[R], records []R, opts Options[R], now time.Time) Page[R] {
	matched := make([]R, 0, len(records))

	// 1. Filtering: every active filter must hold.
	// 2. Search: at least one searchable field contains the query.
	query := strings.ToLower(strings.TrimSpace(opts.Query))
outer:
	for _, rec := range records {
		for _, f := range opts.Filters {
			if !f.Matches(s, rec, now) {
				continue outer
			}
		}
		if query != "" && !matchesSearch(s, rec, query) {
			continue
		}
		matched = append(matched, rec)
	}

	// 3. Sort: stable; absence of a sort key preserves collection order.
	if opts.SortKey != "" {
		desc := opts.SortDir == SortDesc
		sort.SliceStable(matched, func(i, j int) bool {
			less := compareValues(s.Field(matched[i], opts.SortKey), s.Field(matched[j], opts.SortKey)) < 0
			if desc {
				return compareValues(s.Field(matched[j], opts.SortKey), s.Field(matched[i], opts.SortKey)) < 0
			}
			return less
		})
	}

	// 4. Paginate: clamp the requested page into [1, totalPages].
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = 1
	}
	totalMatching := len(matched)
	totalPages := (totalMatching + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1 // keeps pager controls well-defined on empty results
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > totalMatching {
		start = totalMatching
	}
	if end > totalMatching {
		end = totalMatching
	}

	rows := make([]Row[R], end-start)
	for i := start; i < end; i++ {
		rows[i-start] = Row[R]{Index: i + 1, Record: matched[i]}
	}

	return Page[R]{
		Rows:          rows,
		Number:        page,
		TotalPages:    totalPages,
		TotalMatching: totalMatching,
	}
}

// matchesSearch reports whether any searchable field's lower-cased string
// form contains the lower-cased query. Plain substring match, no
// tokenization.
func matchesSearch[R model.Record](s Schema[R], rec R, loweredQuery string) bool {
	for _, key := range s.Searchable {
		val := stringify(s.Field(rec, key))
		if val == "" {
			continue
		}
		if strings.Contains(strings.ToLower(val), loweredQuery) {
			return true
		}
	}
	return false
}

// compareValues orders two field values: numeric when both coerce
// cleanly, so numeric columns carried as strings still order by value,
// lexical (case-insensitive) otherwise.
func compareValues(a, b any) int {
	af, aOK := toFloat(a)
	bf, bOK := toFloat(b)
	if aOK && bOK {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.Compare(strings.ToLower(as), strings.ToLower(bs))
	}

	return strings.Compare(stringify(a), stringify(b))
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
