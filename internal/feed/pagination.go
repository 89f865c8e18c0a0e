package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/quietharbor/harbormind/internal/models"
	"github.com/quietharbor/harbormind/internal/store"
)

// DefaultPageCeiling bounds the cost of a single simulated-cursor fetch
const DefaultPageCeiling = 1000

// PageWindow is the stateless page arithmetic for a limit-only backend.
// It is re-derived from (page, size) on every request; nothing about an
// earlier window survives a filter change.
type PageWindow struct {
	Page int
	Size int
}

// NewPageWindow validates and builds a page window
func NewPageWindow(page, size int) (PageWindow, error) {
	if page < 1 {
		return PageWindow{}, fmt.Errorf("page must be >= 1, got %d", page)
	}
	if size < 1 {
		return PageWindow{}, fmt.Errorf("page size must be > 0, got %d", size)
	}
	return PageWindow{Page: page, Size: size}, nil
}

// Skip returns how many leading entries fall before this page
func (w PageWindow) Skip() int {
	return (w.Page - 1) * w.Size
}

// FetchLimit returns the backend fetch size, capped at the ceiling
func (w PageWindow) FetchLimit(ceiling int) int {
	limit := w.Page * w.Size
	if limit > ceiling {
		return ceiling
	}
	return limit
}

// PaginatedResponse is one page of entries.
//
// HasNext is a heuristic: it is true when the backend returned the full
// fetch window, meaning more entries probably exist. TotalCount is the
// size of the capped fetch, never an authoritative total.
type PaginatedResponse struct {
	Items       []models.Entry `json:"items"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
	TotalCount  int            `json:"total_count"`
	HasNext     bool           `json:"has_next"`
	HasPrevious bool           `json:"has_previous"`
}

// Paginator simulates cursor pagination over a backend that only
// supports "first N matching documents" queries
type Paginator struct {
	store   store.Store
	ceiling int
	clock   func() time.Time
}

// NewPaginator creates a paginator with the given fetch ceiling
func NewPaginator(s store.Store, ceiling int) *Paginator {
	if ceiling <= 0 {
		ceiling = DefaultPageCeiling
	}
	return &Paginator{store: s, ceiling: ceiling, clock: time.Now}
}

// WithClock overrides the time source, for tests
func (p *Paginator) WithClock(clock func() time.Time) *Paginator {
	p.clock = clock
	return p
}

// Page fetches one page of the filtered feed. The backend is asked for
// page*size entries (capped), the leading (page-1)*size are dropped and
// the next size are returned. No shared state is touched on failure.
func (p *Paginator) Page(ctx context.Context, filter FeedFilter, page, size int) (*PaginatedResponse, error) {
	window, err := NewPageWindow(page, size)
	if err != nil {
		return nil, store.NewFetchError(store.KindBackendRejected, err)
	}
	if err := filter.Validate(); err != nil {
		return nil, store.NewFetchError(store.KindBackendRejected, err)
	}

	fetchLimit := window.FetchLimit(p.ceiling)
	q := BuildQuery(filter, p.clock(), fetchLimit)

	fetched, err := p.store.QueryEntries(ctx, q)
	if err != nil {
		return nil, err
	}

	return paginate(fetched, window, fetchLimit), nil
}

// paginate applies the drop/take arithmetic to a raw fetch
func paginate(fetched []models.Entry, window PageWindow, fetchLimit int) *PaginatedResponse {
	skip := window.Skip()

	var items []models.Entry
	if skip < len(fetched) {
		end := skip + window.Size
		if end > len(fetched) {
			end = len(fetched)
		}
		items = fetched[skip:end]
	}

	return &PaginatedResponse{
		Items:       items,
		Page:        window.Page,
		PageSize:    window.Size,
		TotalCount:  len(fetched),
		HasNext:     len(fetched) == fetchLimit,
		HasPrevious: window.Page > 1,
	}
}
