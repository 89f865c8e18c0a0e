package feed

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/quietharbor/harbormind/internal/models"
	"github.com/quietharbor/harbormind/internal/store"
)

// stubStore is an in-memory, call-counting backend used across the feed
// tests. It evaluates queries the way a real document store would:
// constraints in order, then ordering, then limit.
type stubStore struct {
	entries    []models.Entry
	queryCalls int32
	failWith   error
	lastQuery  store.Query
	onQuery    func()
}

func (s *stubStore) QueryEntries(ctx context.Context, q store.Query) ([]models.Entry, error) {
	atomic.AddInt32(&s.queryCalls, 1)
	s.lastQuery = q
	if s.onQuery != nil {
		s.onQuery()
	}
	if s.failWith != nil {
		return nil, s.failWith
	}

	var matched []models.Entry
	for _, e := range s.entries {
		if matchesConstraints(e, q.Constraints) {
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return lessByOrder(matched[i], matched[j], q.Order)
	})

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (s *stubStore) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	for i := range s.entries {
		if s.entries[i].ID == id {
			e := s.entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (s *stubStore) GetReaction(ctx context.Context, entryID, userID string) (*models.Reaction, error) {
	return nil, nil
}

func (s *stubStore) Apply(ctx context.Context, b *store.Batch) error {
	return s.failWith
}

func (s *stubStore) calls() int {
	return int(atomic.LoadInt32(&s.queryCalls))
}

func matchesConstraints(e models.Entry, constraints []store.Constraint) bool {
	for _, c := range constraints {
		switch c.Op {
		case store.OpGte:
			if !fieldGte(e, c.Field, c.Value) {
				return false
			}
		case store.OpLte:
			if !fieldLte(e, c.Field, c.Value) {
				return false
			}
		case store.OpEq:
			if !fieldGte(e, c.Field, c.Value) || !fieldLte(e, c.Field, c.Value) {
				return false
			}
		case store.OpTagsAny:
			tags, _ := c.Value.([]string)
			if !intersects(e.Tags, tags) {
				return false
			}
		}
	}
	return true
}

func fieldGte(e models.Entry, field string, value interface{}) bool {
	switch field {
	case "created_at":
		return !e.CreatedAt.Before(value.(time.Time))
	case "level":
		return e.Level >= value.(int)
	case "reaction_count":
		return e.ReactionCount >= int64(value.(int))
	}
	return false
}

func fieldLte(e models.Entry, field string, value interface{}) bool {
	switch field {
	case "created_at":
		return !e.CreatedAt.After(value.(time.Time))
	case "level":
		return e.Level <= value.(int)
	case "reaction_count":
		return e.ReactionCount <= int64(value.(int))
	}
	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func lessByOrder(a, b models.Entry, order []store.Ordering) bool {
	for _, o := range order {
		var cmp int
		switch o.Field {
		case "created_at":
			switch {
			case a.CreatedAt.Before(b.CreatedAt):
				cmp = -1
			case a.CreatedAt.After(b.CreatedAt):
				cmp = 1
			}
		case "level":
			switch {
			case a.Level < b.Level:
				cmp = -1
			case a.Level > b.Level:
				cmp = 1
			}
		case "reaction_count":
			switch {
			case a.ReactionCount < b.ReactionCount:
				cmp = -1
			case a.ReactionCount > b.ReactionCount:
				cmp = 1
			}
		}
		if cmp == 0 {
			continue
		}
		if o.Desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}
