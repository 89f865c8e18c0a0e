package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/quietharbor/harbormind/internal/models"
)

// Columns queryable through constraints and orderings. Anything else is
// rejected before it reaches the database.
var queryColumns = map[string]string{
	"created_at":     "harbor_entries.created_at",
	"level":          "harbor_entries.level",
	"reaction_count": "harbor_entries.reaction_count",
	"is_hidden":      "harbor_entries.is_hidden",
}

var incrementColumns = map[string]bool{
	"reaction_count": true,
	"twin_count":     true,
}

// SQL implements Store on top of GORM
type SQL struct {
	db *gorm.DB
}

// NewSQL creates a SQL-backed store
func NewSQL(db *gorm.DB) *SQL {
	return &SQL{db: db}
}

// QueryEntries runs an ordered range query over harbor_entries
func (s *SQL) QueryEntries(ctx context.Context, q Query) ([]models.Entry, error) {
	tx := s.db.WithContext(ctx).Model(&models.Entry{})

	joined := false
	for _, c := range q.Constraints {
		switch c.Op {
		case OpEq, OpGte, OpLte:
			col, ok := queryColumns[c.Field]
			if !ok {
				return nil, NewFetchError(KindBackendRejected, fmt.Errorf("unqueryable field: %s", c.Field))
			}
			tx = tx.Where(fmt.Sprintf("%s %s ?", col, opSQL(c.Op)), c.Value)
		case OpTagsAny:
			tags, ok := c.Value.([]string)
			if !ok || len(tags) == 0 {
				return nil, NewFetchError(KindBackendRejected, fmt.Errorf("tags-any constraint needs a non-empty tag list"))
			}
			if !joined {
				tx = tx.Joins("INNER JOIN harbor_entry_tags ON harbor_entries.id = harbor_entry_tags.entry_id").
					Distinct("harbor_entries.*")
				joined = true
			}
			tx = tx.Where("harbor_entry_tags.tag IN ?", tags)
		default:
			return nil, NewFetchError(KindBackendRejected, fmt.Errorf("unsupported constraint op: %d", c.Op))
		}
	}

	for _, o := range q.Order {
		col, ok := queryColumns[o.Field]
		if !ok {
			return nil, NewFetchError(KindBackendRejected, fmt.Errorf("unorderable field: %s", o.Field))
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		tx = tx.Order(fmt.Sprintf("%s %s", col, dir))
	}

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var entries []models.Entry
	if err := tx.Find(&entries).Error; err != nil {
		return nil, classify(err)
	}

	for i := range entries {
		DecodePayload(&entries[i])
	}
	return entries, nil
}

// GetEntry returns the entry with the given id, nil if absent
func (s *SQL) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	var entry models.Entry
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, classify(err)
	}
	DecodePayload(&entry)
	return &entry, nil
}

// GetReaction returns the user's reaction on an entry, nil if absent
func (s *SQL) GetReaction(ctx context.Context, entryID, userID string) (*models.Reaction, error) {
	var reaction models.Reaction
	if err := s.db.WithContext(ctx).
		Where("entry_id = ? AND user_id = ?", entryID, userID).
		First(&reaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return &reaction, nil
}

// Apply runs the batch inside a single transaction
func (s *SQL) Apply(ctx context.Context, b *Batch) error {
	if b == nil || b.Len() == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range b.ops {
			switch op.kind {
			case opCreateReaction:
				if err := tx.Create(op.reaction).Error; err != nil {
					return err
				}
			case opUpdateReaction:
				res := tx.Model(&models.Reaction{}).
					Where("entry_id = ? AND user_id = ?", op.reaction.EntryID, op.reaction.UserID).
					Update("type", op.reaction.Type)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return NewFetchError(KindNotFound, fmt.Errorf("reaction %s/%s not found", op.reaction.EntryID, op.reaction.UserID))
				}
			case opDeleteReaction:
				res := tx.Where("entry_id = ? AND user_id = ?", op.entryID, op.userID).
					Delete(&models.Reaction{})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return NewFetchError(KindNotFound, fmt.Errorf("reaction %s/%s not found", op.entryID, op.userID))
				}
			case opIncrementEntry:
				if !incrementColumns[op.field] {
					return NewFetchError(KindBackendRejected, fmt.Errorf("field %s is not incrementable", op.field))
				}
				res := tx.Model(&models.Entry{}).
					Where("id = ?", op.entryID).
					UpdateColumn(op.field, gorm.Expr(op.field+" + ?", op.delta))
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return NewFetchError(KindNotFound, fmt.Errorf("entry %s not found", op.entryID))
				}
			}
		}
		return nil
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// CreateEntry persists a new entry together with its tag mirror rows.
// Used by fixtures and maintenance tooling, not by the read path.
func (s *SQL) CreateEntry(ctx context.Context, entry *models.Entry) error {
	payload, err := EncodePayload(entry.Tags, entry.Wins)
	if err != nil {
		return classify(err)
	}
	entry.Payload = payload

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		for _, tag := range entry.Tags {
			if err := tx.Create(&models.EntryTag{EntryID: entry.ID, Tag: tag}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// ForEachEntry walks all entries in batches, oldest first. Used by
// maintenance tooling; the feed read path never scans the collection.
func (s *SQL) ForEachEntry(ctx context.Context, batchSize int, fn func(*models.Entry) error) error {
	var batch []models.Entry
	res := s.db.WithContext(ctx).
		Order("created_at ASC").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				DecodePayload(&batch[i])
				if err := fn(&batch[i]); err != nil {
					return err
				}
			}
			return nil
		})
	if res.Error != nil {
		return classify(res.Error)
	}
	return nil
}

// CountReactions counts the reaction records attached to an entry
func (s *SQL) CountReactions(ctx context.Context, entryID string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Reaction{}).
		Where("entry_id = ?", entryID).
		Count(&count).Error; err != nil {
		return 0, classify(err)
	}
	return count, nil
}

// SetEntryCounts overwrites the denormalized counters of an entry
func (s *SQL) SetEntryCounts(ctx context.Context, entryID string, reactionCount, twinCount int64) error {
	res := s.db.WithContext(ctx).Model(&models.Entry{}).
		Where("id = ?", entryID).
		UpdateColumns(map[string]interface{}{
			"reaction_count": reactionCount,
			"twin_count":     twinCount,
		})
	if res.Error != nil {
		return classify(res.Error)
	}
	return nil
}

func opSQL(op Op) string {
	switch op {
	case OpEq:
		return "="
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	}
	return "="
}
