package feed

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/quietharbor/harbormind/internal/models"
)

func searchFixture() []models.Entry {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	entries := []models.Entry{
		{ID: "slime", Title: "rough day", Body: "felt like fighting a slime all morning", Level: 6, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "tagged", Title: "quiet evening", Body: "nothing much", Tags: []string{"gratitude"}, Level: 3, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "plain", Title: "regular note", Body: "walked the dog", Level: 4, CreatedAt: base.Add(time.Hour)},
	}
	return entries
}

func newTestSearcher(backend *stubStore) *Searcher {
	paginator := NewPaginator(backend, DefaultPageCeiling)
	return NewSearcher(backend, paginator, DefaultPageCeiling, DefaultSearchWidenFactor)
}

func TestSearchMatchesAnyToken(t *testing.T) {
	backend := &stubStore{entries: searchFixture()}
	s := newTestSearcher(backend)

	// "slime" matches one body, "king" matches nothing; OR semantics
	// must still return the slime entry.
	resp, err := s.Search(context.Background(), "slime king", 1, 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 match, got %d", len(resp.Items))
	}
	if resp.Items[0].ID != "slime" {
		t.Errorf("expected entry 'slime', got %s", resp.Items[0].ID)
	}
}

func TestSearchMatchesTags(t *testing.T) {
	backend := &stubStore{entries: searchFixture()}
	s := newTestSearcher(backend)

	resp, err := s.Search(context.Background(), "GRATITUDE", 1, 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "tagged" {
		t.Errorf("expected tag match on 'tagged', got %+v", resp.Items)
	}
}

func TestSearchEmptyQueryDelegates(t *testing.T) {
	backend := &stubStore{entries: searchFixture()}
	s := newTestSearcher(backend)

	resp, err := s.Search(context.Background(), "   ", 1, 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(resp.Items) != 3 {
		t.Errorf("blank query should return the unfiltered feed, got %d items", len(resp.Items))
	}
}

func TestSearchShortTokensDiscarded(t *testing.T) {
	backend := &stubStore{entries: searchFixture()}
	s := newTestSearcher(backend)

	// Every token is below the length threshold, so the query is empty
	// and the unconstrained feed comes back.
	resp, err := s.Search(context.Background(), "a b c", 1, 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(resp.Items) != 3 {
		t.Errorf("short tokens should be discarded, got %d items", len(resp.Items))
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"basic", "slime king", []string{"slime", "king"}},
		{"case folded", "Slime KING", []string{"slime", "king"}},
		{"short dropped", "a slime b", []string{"slime"}},
		{"whitespace only", "  \t ", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.query)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestSearchPaginatesFilteredSet(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var entries []models.Entry
	for i := 0; i < 7; i++ {
		entries = append(entries, models.Entry{
			ID:        fmt.Sprintf("m%d", i),
			Body:      "morning pages",
			Level:     5,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	entries = append(entries, models.Entry{ID: "x", Body: "unrelated", Level: 5, CreatedAt: base})

	backend := &stubStore{entries: entries}
	s := newTestSearcher(backend)

	page1, err := s.Search(context.Background(), "morning", 1, 5)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(page1.Items) != 5 {
		t.Errorf("page 1: expected 5 items, got %d", len(page1.Items))
	}
	if !page1.HasNext {
		t.Error("page 1: expected HasNext with 7 matches")
	}
	if page1.TotalCount != 7 {
		t.Errorf("approximate total should be the filtered count 7, got %d", page1.TotalCount)
	}

	page2, err := s.Search(context.Background(), "morning", 2, 5)
	if err != nil {
		t.Fatalf("Search() page 2 error: %v", err)
	}
	if len(page2.Items) != 2 {
		t.Errorf("page 2: expected 2 items, got %d", len(page2.Items))
	}
	if page2.HasNext {
		t.Error("page 2: expected HasNext = false")
	}
	if !page2.HasPrevious {
		t.Error("page 2: expected HasPrevious = true")
	}
}

func TestSearchWidensRawFetch(t *testing.T) {
	backend := &stubStore{entries: searchFixture()}
	s := newTestSearcher(backend)

	if _, err := s.Search(context.Background(), "slime", 1, 10); err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if backend.lastQuery.Limit != 20 {
		t.Errorf("expected widened fetch limit 20, got %d", backend.lastQuery.Limit)
	}
}
