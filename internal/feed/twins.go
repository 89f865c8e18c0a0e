package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/quietharbor/harbormind/internal/models"
	"github.com/quietharbor/harbormind/internal/store"
)

const (
	// DefaultTwinLimit caps the ranked twin set
	DefaultTwinLimit = 10
	// twinLevelTolerance is the +/- window around the seed level
	twinLevelTolerance = 2
	// twinFetchMultiplier over-fetches so ranking and seed exclusion
	// still leave a full result set
	twinFetchMultiplier = 3
)

// Matcher finds twin entries: entries sharing at least one tag with a
// seed and sitting within a level tolerance window
type Matcher struct {
	store store.Store
	limit int
}

// NewMatcher creates a twin matcher
func NewMatcher(s store.Store, limit int) *Matcher {
	if limit <= 0 {
		limit = DefaultTwinLimit
	}
	return &Matcher{store: s, limit: limit}
}

// FindTwins returns up to the configured number of twins for a seed,
// ranked by level proximity then recency. The seed entry itself is
// always excluded by id, even when its tags and level trivially match.
// An empty tag set yields an empty result, not an error.
func (m *Matcher) FindTwins(ctx context.Context, seedID string, seedTags []string, seedLevel int) ([]models.Entry, error) {
	if len(seedTags) == 0 {
		return []models.Entry{}, nil
	}
	if seedLevel < models.LevelMin || seedLevel > models.LevelMax {
		return nil, store.NewFetchError(store.KindBackendRejected,
			fmt.Errorf("seed level %d outside %d..%d", seedLevel, models.LevelMin, models.LevelMax))
	}

	lo := seedLevel - twinLevelTolerance
	if lo < models.LevelMin {
		lo = models.LevelMin
	}
	hi := seedLevel + twinLevelTolerance
	if hi > models.LevelMax {
		hi = models.LevelMax
	}

	levels := &LevelRange{Min: lo, Max: hi}
	filter := FeedFilter{Levels: levels, Tags: seedTags, Sort: SortCreatedDesc}
	q := BuildQuery(filter, time.Now(), m.limit*twinFetchMultiplier)

	candidates, err := m.store.QueryEntries(ctx, q)
	if err != nil {
		return nil, err
	}

	twins := make([]models.Entry, 0, len(candidates))
	for i := range candidates {
		if candidates[i].ID == seedID {
			continue
		}
		twins = append(twins, candidates[i])
	}

	sort.SliceStable(twins, func(i, j int) bool {
		di := absInt(twins[i].Level - seedLevel)
		dj := absInt(twins[j].Level - seedLevel)
		if di != dj {
			return di < dj
		}
		return twins[i].CreatedAt.After(twins[j].CreatedAt)
	})

	if len(twins) > m.limit {
		twins = twins[:m.limit]
	}
	return twins, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
