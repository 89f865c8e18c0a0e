package feed

import (
	"fmt"
	"sort"
	"time"

	"github.com/quietharbor/harbormind/internal/models"
	"github.com/quietharbor/harbormind/internal/store"
)

// TimeWindow restricts a feed to a recency bucket
type TimeWindow string

const (
	WindowAll   TimeWindow = "all"
	WindowToday TimeWindow = "today"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
)

// Valid reports whether w is a known time window
func (w TimeWindow) Valid() bool {
	switch w {
	case WindowAll, WindowToday, WindowWeek, WindowMonth, "":
		return true
	}
	return false
}

// SortKey selects the feed ordering
type SortKey string

const (
	SortCreatedDesc   SortKey = "created_desc"
	SortCreatedAsc    SortKey = "created_asc"
	SortReactionsDesc SortKey = "reactions_desc"
	SortLevelAsc      SortKey = "level_asc"
	SortLevelDesc     SortKey = "level_desc"
)

// Valid reports whether k is a known sort key
func (k SortKey) Valid() bool {
	switch k {
	case SortCreatedDesc, SortCreatedAsc, SortReactionsDesc, SortLevelAsc, SortLevelDesc, "":
		return true
	}
	return false
}

// LevelRange is an inclusive intensity-level range
type LevelRange struct {
	Min int
	Max int
}

// NewLevelRange builds a level range, rejecting inverted or out-of-bound values
func NewLevelRange(min, max int) (LevelRange, error) {
	if min > max {
		return LevelRange{}, fmt.Errorf("invalid level range: min %d > max %d", min, max)
	}
	if min < models.LevelMin || max > models.LevelMax {
		return LevelRange{}, fmt.Errorf("level range %d..%d outside %d..%d", min, max, models.LevelMin, models.LevelMax)
	}
	return LevelRange{Min: min, Max: max}, nil
}

// FeedFilter is the value object describing one view of the feed
type FeedFilter struct {
	TimeWindow  TimeWindow
	Levels      *LevelRange
	Tags        []string
	Sort        SortKey
	SearchQuery string
}

// Validate checks the filter's invariants
func (f FeedFilter) Validate() error {
	if !f.TimeWindow.Valid() {
		return fmt.Errorf("unknown time window: %q", f.TimeWindow)
	}
	if !f.Sort.Valid() {
		return fmt.Errorf("unknown sort key: %q", f.Sort)
	}
	if f.Levels != nil {
		if _, err := NewLevelRange(f.Levels.Min, f.Levels.Max); err != nil {
			return err
		}
	}
	return nil
}

// BuildQuery translates a filter into an ordered constraint set. It is
// pure: equal filters and the same now always yield the same query.
// Constraints are emitted in fixed priority order (time window, level
// range, tag membership, then sort) because the backend cannot freely
// reorder range and membership constraints; broad combinations degrade
// to the capped fetch window rather than erroring.
func BuildQuery(f FeedFilter, now time.Time, limit int) store.Query {
	q := store.Query{Limit: limit}

	if since, ok := windowStart(f.TimeWindow, now); ok {
		q.Constraints = append(q.Constraints, store.Constraint{
			Field: "created_at", Op: store.OpGte, Value: since,
		})
	}

	if f.Levels != nil {
		q.Constraints = append(q.Constraints,
			store.Constraint{Field: "level", Op: store.OpGte, Value: f.Levels.Min},
			store.Constraint{Field: "level", Op: store.OpLte, Value: f.Levels.Max},
		)
	}

	if len(f.Tags) > 0 {
		tags := append([]string(nil), f.Tags...)
		sort.Strings(tags)
		q.Constraints = append(q.Constraints, store.Constraint{
			Field: "tags", Op: store.OpTagsAny, Value: tags,
		})
	}

	q.Order = sortOrder(f.Sort)
	return q
}

func windowStart(w TimeWindow, now time.Time) (time.Time, bool) {
	switch w {
	case WindowToday:
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	case WindowWeek:
		return now.UTC().AddDate(0, 0, -7), true
	case WindowMonth:
		return now.UTC().AddDate(0, 0, -30), true
	default:
		return time.Time{}, false
	}
}

func sortOrder(k SortKey) []store.Ordering {
	switch k {
	case SortCreatedAsc:
		return []store.Ordering{{Field: "created_at"}}
	case SortReactionsDesc:
		return []store.Ordering{
			{Field: "reaction_count", Desc: true},
			{Field: "created_at", Desc: true},
		}
	case SortLevelAsc:
		return []store.Ordering{
			{Field: "level"},
			{Field: "created_at", Desc: true},
		}
	case SortLevelDesc:
		return []store.Ordering{
			{Field: "level", Desc: true},
			{Field: "created_at", Desc: true},
		}
	default:
		// Empty filter and SortCreatedDesc both fall here: newest first.
		return []store.Ordering{{Field: "created_at", Desc: true}}
	}
}
