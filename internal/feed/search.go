package feed

import (
	"context"
	"strings"
	"time"

	"github.com/quietharbor/harbormind/internal/models"
	"github.com/quietharbor/harbormind/internal/store"
)

const (
	// minTokenLength drops noise tokens before matching
	minTokenLength = 2
	// DefaultSearchWidenFactor compensates for client-side filtering
	// shrinking the raw fetch
	DefaultSearchWidenFactor = 2
)

// Searcher applies token-based substring search client-side over a
// widened raw fetch. The backend has no text index; matching any token
// (OR, not AND) is the deliberate design choice here.
type Searcher struct {
	store     store.Store
	paginator *Paginator
	ceiling   int
	widen     int
	clock     func() time.Time
}

// NewSearcher creates a searcher that falls back to the paginator when
// the query carries no usable tokens
func NewSearcher(s store.Store, paginator *Paginator, ceiling, widen int) *Searcher {
	if ceiling <= 0 {
		ceiling = DefaultPageCeiling
	}
	if widen < 1 {
		widen = DefaultSearchWidenFactor
	}
	return &Searcher{
		store:     s,
		paginator: paginator,
		ceiling:   ceiling,
		widen:     widen,
		clock:     time.Now,
	}
}

// WithClock overrides the time source, for tests
func (s *Searcher) WithClock(clock func() time.Time) *Searcher {
	s.clock = clock
	return s
}

// Search pages through entries matching any token of the query.
// TotalCount is derived from the filtered set, an approximation only.
func (s *Searcher) Search(ctx context.Context, query string, page, size int) (*PaginatedResponse, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return s.paginator.Page(ctx, FeedFilter{}, page, size)
	}

	window, err := NewPageWindow(page, size)
	if err != nil {
		return nil, store.NewFetchError(store.KindBackendRejected, err)
	}

	// Widen the raw fetch so client-side filtering still fills the page.
	fetchLimit := window.FetchLimit(s.ceiling) * s.widen
	if fetchLimit > s.ceiling {
		fetchLimit = s.ceiling
	}

	q := BuildQuery(FeedFilter{}, s.clock(), fetchLimit)
	fetched, err := s.store.QueryEntries(ctx, q)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.Entry, 0, len(fetched))
	for i := range fetched {
		if matchesAny(&fetched[i], tokens) {
			filtered = append(filtered, fetched[i])
		}
	}

	skip := window.Skip()
	var items []models.Entry
	if skip < len(filtered) {
		end := skip + window.Size
		if end > len(filtered) {
			end = len(filtered)
		}
		items = filtered[skip:end]
	}

	return &PaginatedResponse{
		Items:       items,
		Page:        window.Page,
		PageSize:    window.Size,
		TotalCount:  len(filtered),
		HasNext:     len(filtered) > skip+window.Size,
		HasPrevious: window.Page > 1,
	}, nil
}

// Tokenize splits a query on whitespace and discards tokens shorter
// than two characters
func Tokenize(query string) []string {
	fields := strings.Fields(query)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < minTokenLength {
			continue
		}
		tokens = append(tokens, strings.ToLower(f))
	}
	return tokens
}

// matchesAny reports whether the entry's folded title, body or tags
// contain any of the tokens
func matchesAny(e *models.Entry, tokens []string) bool {
	var b strings.Builder
	b.WriteString(e.Title)
	b.WriteString(" ")
	b.WriteString(e.Body)
	for _, tag := range e.Tags {
		b.WriteString(" ")
		b.WriteString(tag)
	}
	haystack := strings.ToLower(b.String())

	for _, token := range tokens {
		if strings.Contains(haystack, token) {
			return true
		}
	}
	return false
}
