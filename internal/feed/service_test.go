package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quietharbor/harbormind/pkg/config"
)

func testFeedConfig() *config.FeedConfig {
	return &config.FeedConfig{
		PageCeiling:        DefaultPageCeiling,
		MetadataSampleSize: 500,
		MetadataTTL:        10 * time.Minute,
		TwinLimit:          DefaultTwinLimit,
		SearchWidenFactor:  DefaultSearchWidenFactor,
	}
}

func TestRequestTrackerGenerations(t *testing.T) {
	var tr RequestTracker

	g1 := tr.Begin()
	if !tr.Current(g1) {
		t.Error("freshly begun generation should be current")
	}

	g2 := tr.Begin()
	if tr.Current(g1) {
		t.Error("older generation should be superseded")
	}
	if !tr.Current(g2) {
		t.Error("newest generation should be current")
	}
	if g2 <= g1 {
		t.Errorf("generations must be monotonic, got %d then %d", g1, g2)
	}
}

func TestServiceDiscardsSupersededPage(t *testing.T) {
	backend := &stubStore{entries: fixtureEntries(25)}

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	backend.onQuery = func() {
		blocked := false
		once.Do(func() { blocked = true })
		if blocked {
			close(started)
			<-release
		}
	}

	svc := NewService(backend, nil, testFeedConfig())

	result := make(chan error, 1)
	go func() {
		_, err := svc.Page(context.Background(), "client-a", FeedFilter{}, 1, 10)
		result <- err
	}()

	// Wait for the first page fetch to reach the backend, then start a
	// newer request on the same stream while it is still in flight.
	<-started
	if _, err := svc.Search(context.Background(), "client-a", "", 1, 10); err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	close(release)
	if err := <-result; !errors.Is(err, ErrSuperseded) {
		t.Errorf("overtaken page should come back superseded, got %v", err)
	}
}

func TestServiceStreamsAreIndependent(t *testing.T) {
	backend := &stubStore{entries: fixtureEntries(25)}

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	backend.onQuery = func() {
		blocked := false
		once.Do(func() { blocked = true })
		if blocked {
			close(started)
			<-release
		}
	}

	svc := NewService(backend, nil, testFeedConfig())

	result := make(chan error, 1)
	go func() {
		_, err := svc.Page(context.Background(), "client-a", weekWorkFilter(t), 1, 10)
		result <- err
	}()

	// A concurrent request from another consumer must not supersede the
	// one still in flight.
	<-started
	if _, err := svc.Page(context.Background(), "client-b", FeedFilter{TimeWindow: WindowToday}, 1, 10); err != nil {
		t.Fatalf("second consumer's Page() error: %v", err)
	}

	close(release)
	if err := <-result; err != nil {
		t.Errorf("first consumer's request was spuriously discarded: %v", err)
	}
}

func TestServiceUntrackedRequestsNeverSuperseded(t *testing.T) {
	backend := &stubStore{entries: fixtureEntries(25)}

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	backend.onQuery = func() {
		blocked := false
		once.Do(func() { blocked = true })
		if blocked {
			close(started)
			<-release
		}
	}

	svc := NewService(backend, nil, testFeedConfig())

	result := make(chan error, 1)
	go func() {
		_, err := svc.Page(context.Background(), "", FeedFilter{}, 1, 10)
		result <- err
	}()

	<-started
	if _, err := svc.Search(context.Background(), "", "", 1, 10); err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	close(release)
	if err := <-result; err != nil {
		t.Errorf("request without a stream id must be independent, got %v", err)
	}
}

func TestServiceLatestRequestSurvives(t *testing.T) {
	backend := &stubStore{entries: fixtureEntries(25)}
	svc := NewService(backend, nil, testFeedConfig())

	resp, err := svc.Page(context.Background(), "client-a", FeedFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("Page() error: %v", err)
	}
	if len(resp.Items) != 10 {
		t.Errorf("expected 10 items, got %d", len(resp.Items))
	}
}

func TestServiceGetEntryNotFound(t *testing.T) {
	backend := &stubStore{}
	svc := NewService(backend, nil, testFeedConfig())

	_, err := svc.GetEntry(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestFilterKeyIgnoresTagOrder(t *testing.T) {
	a := filterKey(FeedFilter{TimeWindow: WindowWeek, Tags: []string{"work", "sleep"}})
	b := filterKey(FeedFilter{TimeWindow: WindowWeek, Tags: []string{"sleep", "work"}})
	if a != b {
		t.Errorf("equal tag sets must share one cache key, got %q and %q", a, b)
	}

	c := filterKey(FeedFilter{TimeWindow: WindowWeek, Tags: []string{"family"}})
	if a == c {
		t.Error("different tag sets must not collide")
	}
}
