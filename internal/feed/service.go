package feed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quietharbor/harbormind/internal/cache"
	"github.com/quietharbor/harbormind/internal/models"
	"github.com/quietharbor/harbormind/internal/store"
	"github.com/quietharbor/harbormind/pkg/config"
	"github.com/quietharbor/harbormind/pkg/logging"
	"github.com/quietharbor/harbormind/pkg/telemetry"
)

// Service is the feed facade consumed by the presentation layer. It
// bundles the paginator, searcher, metadata aggregator and twin matcher
// behind the operations of the public surface, with an optional Redis
// layer over page and metadata responses.
type Service struct {
	store      store.Store
	paginator  *Paginator
	searcher   *Searcher
	aggregator *Aggregator
	matcher    *Matcher
	cache      *cache.Cache
	logger     *zap.Logger

	mu       sync.Mutex
	trackers map[string]*RequestTracker
}

// NewService wires the feed core from configuration
func NewService(s store.Store, redisCache *cache.Cache, cfg *config.FeedConfig) *Service {
	paginator := NewPaginator(s, cfg.PageCeiling)
	return &Service{
		store:      s,
		paginator:  paginator,
		searcher:   NewSearcher(s, paginator, cfg.PageCeiling, cfg.SearchWidenFactor),
		aggregator: NewAggregator(s, cfg.MetadataSampleSize, cfg.MetadataTTL),
		matcher:    NewMatcher(s, cfg.TwinLimit),
		cache:      redisCache,
		logger:     logging.WithComponent("feed-service"),
		trackers:   make(map[string]*RequestTracker),
	}
}

// trackerFor returns the tracker owned by one consumer stream. Requests
// that carry no stream id are independent and never supersede anything.
func (s *Service) trackerFor(stream string) *RequestTracker {
	if stream == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trackers[stream]
	if !ok {
		t = &RequestTracker{}
		s.trackers[stream] = t
	}
	return t
}

// Page returns one page of the filtered feed. Each call supersedes any
// in-flight page or search request on the same consumer stream; an
// overtaken response comes back as ErrSuperseded so it is discarded
// rather than applied. Streams are independent of each other.
func (s *Service) Page(ctx context.Context, stream string, filter FeedFilter, page, size int) (*PaginatedResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.page")
	defer span.End()

	tracker := s.trackerFor(stream)
	var gen uint64
	if tracker != nil {
		gen = tracker.Begin()
	}

	cacheKey := cache.HashKey("feed_page", filterKey(filter), fmt.Sprintf("%d", page), fmt.Sprintf("%d", size))
	if s.cache != nil {
		var cached PaginatedResponse
		if err := s.cache.GetJSON(cacheKey, &cached); err == nil {
			if tracker != nil && !tracker.Current(gen) {
				return nil, ErrSuperseded
			}
			return &cached, nil
		}
	}

	resp, err := s.paginator.Page(ctx, filter, page, size)
	if err != nil {
		return nil, err
	}
	if tracker != nil && !tracker.Current(gen) {
		return nil, ErrSuperseded
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(cacheKey, resp, pageCacheTTL(filter.Sort)); err != nil && err != cache.ErrCacheDisabled {
			s.logger.Warn("page cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

// Search returns one page of entries matching the free-text query,
// superseding earlier requests on the same stream
func (s *Service) Search(ctx context.Context, stream, query string, page, size int) (*PaginatedResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.search")
	defer span.End()

	tracker := s.trackerFor(stream)
	var gen uint64
	if tracker != nil {
		gen = tracker.Begin()
	}

	resp, err := s.searcher.Search(ctx, query, page, size)
	if err != nil {
		return nil, err
	}
	if tracker != nil && !tracker.Current(gen) {
		return nil, ErrSuperseded
	}
	return resp, nil
}

// Metadata returns the filterable-universe snapshot
func (s *Service) Metadata(ctx context.Context) (*FilterMetadata, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.metadata")
	defer span.End()

	return s.aggregator.Metadata(ctx)
}

// InvalidateMetadata drops the metadata cache
func (s *Service) InvalidateMetadata() {
	s.aggregator.Invalidate()
	s.logger.Info("metadata cache invalidated")
}

// FindTwins returns the ranked twin set for a seed entry
func (s *Service) FindTwins(ctx context.Context, seedID string, tags []string, level int) ([]models.Entry, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.find_twins")
	defer span.End()

	return s.matcher.FindTwins(ctx, seedID, tags, level)
}

// GetEntry does a point read of one entry
func (s *Service) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.get_entry")
	defer span.End()

	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, store.NewFetchError(store.KindNotFound, fmt.Errorf("entry %s not found", id))
	}
	return entry, nil
}

// Matcher exposes the twin matcher for maintenance tooling
func (s *Service) Matcher() *Matcher {
	return s.matcher
}

// filterKey renders a filter into a stable cache-key fragment. Tags are
// sorted so reordered but equal tag sets share one cache slot, matching
// how BuildQuery normalizes them.
func filterKey(f FeedFilter) string {
	levels := ""
	if f.Levels != nil {
		levels = fmt.Sprintf("%d..%d", f.Levels.Min, f.Levels.Max)
	}
	tags := append([]string(nil), f.Tags...)
	sort.Strings(tags)
	return strings.Join([]string{
		string(f.TimeWindow),
		levels,
		strings.Join(tags, ","),
		string(f.Sort),
	}, "|")
}

// pageCacheTTL keeps recency-sorted pages fresher than slow-moving sorts
func pageCacheTTL(key SortKey) time.Duration {
	switch key {
	case SortReactionsDesc:
		return 60 * time.Second
	case SortLevelAsc, SortLevelDesc:
		return 30 * time.Second
	default:
		return 3 * time.Second
	}
}
