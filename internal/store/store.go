package store

import (
	"context"

	"github.com/quietharbor/harbormind/internal/models"
)

// Op identifies a query constraint operator
type Op int

const (
	// OpEq matches a field by equality
	OpEq Op = iota
	// OpGte matches a field greater than or equal to a value
	OpGte
	// OpLte matches a field less than or equal to a value
	OpLte
	// OpTagsAny matches entries whose tag set intersects the given tags
	OpTagsAny
)

// Constraint is a single field constraint within a query
type Constraint struct {
	Field string
	Op    Op
	Value interface{}
}

// Ordering describes one order-by clause
type Ordering struct {
	Field string
	Desc  bool
}

// Query is an ordered range query against the entry collection.
// Constraint order is significant: the backend applies them in sequence
// and may degrade broad combinations to a capped fetch window.
type Query struct {
	Constraints []Constraint
	Order       []Ordering
	Limit       int
}

// Store is the document-store boundary the feed core runs against.
// Any backend offering ordered range queries, point reads and atomic
// batched writes with numeric increments can sit behind it.
type Store interface {
	// QueryEntries runs an ordered range query and returns at most q.Limit entries
	QueryEntries(ctx context.Context, q Query) ([]models.Entry, error)
	// GetEntry returns the entry with the given id, or nil if absent
	GetEntry(ctx context.Context, id string) (*models.Entry, error)
	// GetReaction returns the user's reaction on an entry, or nil if absent
	GetReaction(ctx context.Context, entryID, userID string) (*models.Reaction, error)
	// Apply executes a batch of writes as one atomic unit
	Apply(ctx context.Context, b *Batch) error
}
