package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quietharbor/harbormind/internal/models"
	"github.com/quietharbor/harbormind/internal/store"
)

const (
	// DefaultMetadataTTL is how long an aggregated snapshot stays fresh
	DefaultMetadataTTL = 10 * time.Minute
	// DefaultMetadataSampleSize bounds the aggregation window
	DefaultMetadataSampleSize = 500
	// popularTagLimit caps the ranked tag list
	popularTagLimit = 20
)

// TagCount is one ranked tag with its observed frequency
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// FilterMetadata describes the filterable universe observed in a recent
// sample of entries
type FilterMetadata struct {
	PopularTags []TagCount `json:"popular_tags"`
	LevelMin    int        `json:"level_min"`
	LevelMax    int        `json:"level_max"`
	Earliest    time.Time  `json:"earliest"`
	Latest      time.Time  `json:"latest"`
	SampleSize  int        `json:"sample_size"`
}

// cachedMetadata carries the snapshot and when it was computed
type cachedMetadata struct {
	value      FilterMetadata
	computedAt time.Time
}

// isStale is the pure freshness predicate
func (c cachedMetadata) isStale(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.computedAt) >= ttl
}

// Aggregator computes and caches filter metadata. A cache hit inside
// the TTL performs zero backend fetches; concurrent misses share one
// refresh instead of racing.
type Aggregator struct {
	store      store.Store
	sampleSize int
	ttl        time.Duration
	clock      func() time.Time

	mu         sync.Mutex
	cond       *sync.Cond
	cached     *cachedMetadata
	refreshing bool
	epoch      uint64
}

// NewAggregator creates a metadata aggregator
func NewAggregator(s store.Store, sampleSize int, ttl time.Duration) *Aggregator {
	if sampleSize <= 0 {
		sampleSize = DefaultMetadataSampleSize
	}
	if ttl <= 0 {
		ttl = DefaultMetadataTTL
	}
	a := &Aggregator{
		store:      s,
		sampleSize: sampleSize,
		ttl:        ttl,
		clock:      time.Now,
	}
	a.cond = sync.NewCond(&a.mu)
	return a
}

// WithClock overrides the time source, for tests
func (a *Aggregator) WithClock(clock func() time.Time) *Aggregator {
	a.clock = clock
	return a
}

// Metadata returns the cached snapshot when fresh, otherwise samples
// the most recent entries and recomputes it
func (a *Aggregator) Metadata(ctx context.Context) (*FilterMetadata, error) {
	a.mu.Lock()
	for {
		if a.cached != nil && !a.cached.isStale(a.clock(), a.ttl) {
			value := a.cached.value
			a.mu.Unlock()
			return &value, nil
		}
		if !a.refreshing {
			break
		}
		// Another caller is already refreshing; wait for its outcome
		// instead of issuing a second fetch.
		a.cond.Wait()
	}
	a.refreshing = true
	epoch := a.epoch
	a.mu.Unlock()

	value, err := a.compute(ctx)

	a.mu.Lock()
	a.refreshing = false
	// A refresh that an Invalidate overtook must not resurrect a snapshot
	// of the pre-invalidation world; its value is still returned, only
	// the cache write is dropped.
	if err == nil && epoch == a.epoch {
		a.cached = &cachedMetadata{value: *value, computedAt: a.clock()}
	}
	a.cond.Broadcast()
	a.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return value, nil
}

// Invalidate drops the cached snapshot so the next call recomputes.
// A refresh already in flight is discarded on completion too.
func (a *Aggregator) Invalidate() {
	a.mu.Lock()
	a.cached = nil
	a.epoch++
	a.mu.Unlock()
}

// compute samples recent entries and folds tags, levels and dates.
// Records that fail to decode contribute nothing instead of failing
// the whole aggregation.
func (a *Aggregator) compute(ctx context.Context) (*FilterMetadata, error) {
	q := store.Query{
		Order: []store.Ordering{{Field: "created_at", Desc: true}},
		Limit: a.sampleSize,
	}
	sample, err := a.store.QueryEntries(ctx, q)
	if err != nil {
		return nil, err
	}

	meta := &FilterMetadata{SampleSize: len(sample)}
	tagCounts := make(map[string]int)
	first := true

	for i := range sample {
		e := &sample[i]
		if e.Level < models.LevelMin || e.Level > models.LevelMax {
			// Malformed record; skip rather than poison the ranges.
			continue
		}
		if first {
			meta.LevelMin, meta.LevelMax = e.Level, e.Level
			meta.Earliest, meta.Latest = e.CreatedAt, e.CreatedAt
			first = false
		} else {
			if e.Level < meta.LevelMin {
				meta.LevelMin = e.Level
			}
			if e.Level > meta.LevelMax {
				meta.LevelMax = e.Level
			}
			if e.CreatedAt.Before(meta.Earliest) {
				meta.Earliest = e.CreatedAt
			}
			if e.CreatedAt.After(meta.Latest) {
				meta.Latest = e.CreatedAt
			}
		}
		for _, tag := range e.Tags {
			if tag == "" {
				continue
			}
			tagCounts[tag]++
		}
	}

	meta.PopularTags = rankTags(tagCounts, popularTagLimit)
	return meta, nil
}

// rankTags orders tags by frequency descending, ties alphabetically
func rankTags(counts map[string]int, limit int) []TagCount {
	ranked := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		ranked = append(ranked, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Tag < ranked[j].Tag
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
