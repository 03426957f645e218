package table

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"mailtrack/pkg/model"
)

// Filter is one ad-hoc predicate applied by the query pipeline. A record
// is retained only if every active filter matches.
type Filter[R model.Record] interface {
	Matches(s Schema[R], rec R, now time.Time) bool
}

// CategoricalFilter retains records whose named field equals the value,
// case-insensitively.
type CategoricalFilter[R model.Record] struct {
	Field string
	Value string
}

func (f CategoricalFilter[R]) Matches(s Schema[R], rec R, _ time.Time) bool {
	return strings.EqualFold(stringify(s.Field(rec, f.Field)), f.Value)
}

// DateBucket selects the wall-clock window a date filter compares against.
type DateBucket string

const (
	BucketToday     DateBucket = "today"
	BucketThisWeek  DateBucket = "this_week"
	BucketThisMonth DateBucket = "this_month"
)

// ParseDateBucket maps a raw bucket name to a DateBucket.
func ParseDateBucket(s string) (DateBucket, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today":
		return BucketToday, nil
	case "this_week", "this week", "week":
		return BucketThisWeek, nil
	case "this_month", "this month", "month":
		return BucketThisMonth, nil
	default:
		return "", fmt.Errorf("unknown date bucket: %q", s)
	}
}

// DateBucketFilter retains records whose parsed date field falls inside
// the bucket's window: a closed interval ending now for today/this week,
// the current month and year for this month. Records whose field cannot
// be parsed never match.
type DateBucketFilter[R model.Record] struct {
	Field  string
	Bucket DateBucket
}

func (f DateBucketFilter[R]) Matches(s Schema[R], rec R, now time.Time) bool {
	raw := stringify(s.Field(rec, f.Field))
	t, ok := parseDateTime(raw, now.Location())
	if !ok {
		return false
	}

	switch f.Bucket {
	case BucketToday:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return !t.Before(start) && !t.After(now)
	case BucketThisWeek:
		return !t.Before(startOfWeek(now)) && !t.After(now)
	case BucketThisMonth:
		return t.Year() == now.Year() && t.Month() == now.Month()
	default:
		return false
	}
}

// startOfWeek returns midnight of the Monday of now's week.
func startOfWeek(now time.Time) time.Time {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the preceding Monday's week
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return day.AddDate(0, 0, -(weekday - 1))
}

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDateTime(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// celEnv is shared by all expression filters. Records are bound as the
// "doc" map variable.
var celEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("doc", cel.MapType(cel.StringType, cel.DynType)),
	)
})

// ExprFilter retains records matching a compiled CEL expression, e.g.
// doc["branchCode"] == "BR-01" && doc["status"] != "claimed".
type ExprFilter[R model.Record] struct {
	expr string
	prg  cel.Program
}

// NewExprFilter compiles a CEL expression into a filter.
func NewExprFilter[R model.Record](expr string) (*ExprFilter[R], error) {
	env, err := celEnv()
	if err != nil {
		return nil, fmt.Errorf("CEL environment error: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program creation error: %w", err)
	}

	return &ExprFilter[R]{expr: expr, prg: prg}, nil
}

// Expr returns the source expression.
func (f *ExprFilter[R]) Expr() string {
	return f.expr
}

// Matches evaluates the expression against the record. Evaluation errors
// and non-boolean results count as non-matches.
func (f *ExprFilter[R]) Matches(s Schema[R], rec R, _ time.Time) bool {
	out, _, err := f.prg.Eval(map[string]any{
		"doc": s.DocOf(rec),
	})
	if err != nil {
		return false
	}
	result, ok := out.Value().(bool)
	return ok && result
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
