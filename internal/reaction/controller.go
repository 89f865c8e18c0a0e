package reaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quietharbor/harbormind/internal/models"
	"github.com/quietharbor/harbormind/internal/store"
	"github.com/quietharbor/harbormind/pkg/logging"
	"github.com/quietharbor/harbormind/pkg/telemetry"
)

// Outcome is the terminal result of a reaction transition
type Outcome string

const (
	OutcomeApplied                  Outcome = "applied"
	OutcomeChanged                  Outcome = "changed"
	OutcomeRemovalNeedsConfirmation Outcome = "removal_needs_confirmation"
	OutcomeRemoved                  Outcome = "removed"
	OutcomeFailed                   Outcome = "failed"
)

var (
	// ErrInFlight rejects actions while a transition is unresolved
	ErrInFlight = errors.New("reaction transition already in flight")
	// ErrNoRemovalPending rejects a confirmation with nothing to confirm
	ErrNoRemovalPending = errors.New("no reaction removal awaiting confirmation")
)

// pairKey identifies one user's reaction slot on one entry
type pairKey struct {
	entryID string
	userID  string
}

// pairState is the client-local reaction state for one pair. current is
// empty for NoReaction; inFlight marks the Pending states.
type pairState struct {
	current         models.ReactionType
	inFlight        bool
	awaitingConfirm bool
}

// Controller owns the toggle/change/remove state machine. It mutates
// the displayed reaction count optimistically, writes the reaction
// record and the counter adjustment as one atomic batch, and rolls the
// optimistic mutation back exactly when the write fails. Every call
// leaves the pair in a terminal (non-pending) state.
type Controller struct {
	store  store.Store
	logger *zap.Logger

	mu     sync.Mutex
	pairs  map[pairKey]*pairState
	counts map[string]int64
}

// NewController creates a reaction controller
func NewController(s store.Store) *Controller {
	return &Controller{
		store:  s,
		logger: logging.WithComponent("reaction-controller"),
		pairs:  make(map[pairKey]*pairState),
		counts: make(map[string]int64),
	}
}

// Load seeds the local state for a pair from the backend: the entry's
// current reaction count and the user's existing reaction, if any.
// Called on first display of an entry; idempotent.
func (c *Controller) Load(ctx context.Context, entryID, userID string) error {
	_, err := c.ensurePair(ctx, entryID, userID)
	return err
}

// Forget discards the local state for an entry once it leaves memory
func (c *Controller) Forget(entryID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.pairs {
		if key.entryID == entryID {
			delete(c.pairs, key)
		}
	}
	delete(c.counts, entryID)
}

// DisplayCount returns the optimistically maintained reaction count
func (c *Controller) DisplayCount(entryID string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[entryID]
}

// CurrentType returns the user's active reaction, empty for none
func (c *Controller) CurrentType(entryID, userID string) models.ReactionType {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.pairs[pairKey{entryID, userID}]; ok {
		return st.current
	}
	return ""
}

// Give applies a reaction action. From NoReaction it creates; from a
// different active type it changes; re-selecting the active type asks
// for removal confirmation instead of writing, since "remove" was not
// unambiguously requested.
func (c *Controller) Give(ctx context.Context, entryID, userID string, rt models.ReactionType) (Outcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "reaction.give")
	defer span.End()

	if userID == "" {
		return OutcomeFailed, store.SignInRequired()
	}
	if !rt.Valid() {
		return OutcomeFailed, store.NewFetchError(store.KindBackendRejected,
			fmt.Errorf("unknown reaction type: %q", rt))
	}

	st, err := c.ensurePair(ctx, entryID, userID)
	if err != nil {
		return OutcomeFailed, err
	}

	c.mu.Lock()
	if st.inFlight {
		c.mu.Unlock()
		return OutcomeFailed, ErrInFlight
	}

	switch {
	case st.current == "":
		// NoReaction -> Pending(rt, nil): optimistic +1, then create.
		st.inFlight = true
		st.awaitingConfirm = false
		c.counts[entryID]++
		c.mu.Unlock()

		batch := store.NewBatch().
			CreateReaction(&models.Reaction{
				ID:        uuid.NewString(),
				EntryID:   entryID,
				UserID:    userID,
				Type:      rt,
				CreatedAt: time.Now().UTC(),
			}).
			IncrementEntry(entryID, "reaction_count", 1)
		err := c.store.Apply(ctx, batch)

		c.mu.Lock()
		st.inFlight = false
		if err != nil {
			c.counts[entryID]--
			c.mu.Unlock()
			c.logger.Warn("reaction create failed, rolled back",
				zap.String("entry_id", entryID), zap.Error(err))
			return OutcomeFailed, err
		}
		st.current = rt
		c.mu.Unlock()
		return OutcomeApplied, nil

	case st.current == rt:
		// Same-type re-click reads as "remove my reaction"; that needs
		// explicit confirmation before anything is written.
		st.awaitingConfirm = true
		c.mu.Unlock()
		return OutcomeRemovalNeedsConfirmation, nil

	default:
		// Reacted(prev) -> Pending(rt, prev): optimistic type swap,
		// count unchanged.
		prev := st.current
		st.inFlight = true
		st.awaitingConfirm = false
		st.current = rt
		c.mu.Unlock()

		batch := store.NewBatch().
			UpdateReaction(&models.Reaction{EntryID: entryID, UserID: userID, Type: rt})
		err := c.store.Apply(ctx, batch)

		c.mu.Lock()
		st.inFlight = false
		if err != nil {
			st.current = prev
			c.mu.Unlock()
			c.logger.Warn("reaction change failed, rolled back",
				zap.String("entry_id", entryID), zap.Error(err))
			return OutcomeFailed, err
		}
		c.mu.Unlock()
		return OutcomeChanged, nil
	}
}

// ConfirmRemoval completes a removal the user has explicitly confirmed:
// optimistic -1, then delete + decrement as one batch.
func (c *Controller) ConfirmRemoval(ctx context.Context, entryID, userID string) (Outcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "reaction.confirm_removal")
	defer span.End()

	if userID == "" {
		return OutcomeFailed, store.SignInRequired()
	}

	key := pairKey{entryID, userID}
	c.mu.Lock()
	st, ok := c.pairs[key]
	if !ok || st.current == "" || !st.awaitingConfirm {
		c.mu.Unlock()
		return OutcomeFailed, ErrNoRemovalPending
	}
	if st.inFlight {
		c.mu.Unlock()
		return OutcomeFailed, ErrInFlight
	}

	prev := st.current
	st.inFlight = true
	st.awaitingConfirm = false
	st.current = ""
	c.counts[entryID]--
	c.mu.Unlock()

	batch := store.NewBatch().
		DeleteReaction(entryID, userID).
		IncrementEntry(entryID, "reaction_count", -1)
	err := c.store.Apply(ctx, batch)

	c.mu.Lock()
	st.inFlight = false
	if err != nil {
		st.current = prev
		c.counts[entryID]++
		c.mu.Unlock()
		c.logger.Warn("reaction removal failed, rolled back",
			zap.String("entry_id", entryID), zap.Error(err))
		return OutcomeFailed, err
	}
	c.mu.Unlock()
	return OutcomeRemoved, nil
}

// ensurePair returns the state for a pair, loading it from the backend
// on first touch. The backend reads happen outside the controller lock
// so unrelated pairs stay independent.
func (c *Controller) ensurePair(ctx context.Context, entryID, userID string) (*pairState, error) {
	key := pairKey{entryID, userID}

	c.mu.Lock()
	if st, ok := c.pairs[key]; ok {
		c.mu.Unlock()
		return st, nil
	}
	_, seeded := c.counts[entryID]
	c.mu.Unlock()

	var count int64
	if !seeded {
		entry, err := c.store.GetEntry(ctx, entryID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, store.NewFetchError(store.KindNotFound,
				fmt.Errorf("entry %s not found", entryID))
		}
		count = entry.ReactionCount
	}

	var current models.ReactionType
	existing, err := c.store.GetReaction(ctx, entryID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		current = existing.Type
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.pairs[key]; ok {
		// Lost the race to another loader; keep its state.
		return st, nil
	}
	if _, ok := c.counts[entryID]; !ok {
		c.counts[entryID] = count
	}
	st := &pairState{current: current}
	c.pairs[key] = st
	return st, nil
}
