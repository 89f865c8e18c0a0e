package store

import (
	"github.com/quietharbor/harbormind/internal/models"
)

// batchOpKind identifies a single operation inside a batch
type batchOpKind int

const (
	opCreateReaction batchOpKind = iota
	opUpdateReaction
	opDeleteReaction
	opIncrementEntry
)

type batchOp struct {
	kind     batchOpKind
	reaction *models.Reaction
	entryID  string
	userID   string
	field    string
	delta    int64
}

// Batch collects writes that must commit or fail as one unit, so a
// reaction record and its entry counter never diverge.
type Batch struct {
	ops []batchOp
}

// NewBatch creates an empty batch
func NewBatch() *Batch {
	return &Batch{}
}

// CreateReaction adds a reaction-record insert to the batch
func (b *Batch) CreateReaction(r *models.Reaction) *Batch {
	b.ops = append(b.ops, batchOp{kind: opCreateReaction, reaction: r})
	return b
}

// UpdateReaction adds a reaction-type update to the batch
func (b *Batch) UpdateReaction(r *models.Reaction) *Batch {
	b.ops = append(b.ops, batchOp{kind: opUpdateReaction, reaction: r})
	return b
}

// DeleteReaction adds a reaction-record delete to the batch
func (b *Batch) DeleteReaction(entryID, userID string) *Batch {
	b.ops = append(b.ops, batchOp{kind: opDeleteReaction, entryID: entryID, userID: userID})
	return b
}

// IncrementEntry adds an atomic numeric adjustment of an entry field
func (b *Batch) IncrementEntry(entryID, field string, delta int64) *Batch {
	b.ops = append(b.ops, batchOp{kind: opIncrementEntry, entryID: entryID, field: field, delta: delta})
	return b
}

// Len returns the number of operations in the batch
func (b *Batch) Len() int {
	return len(b.ops)
}
