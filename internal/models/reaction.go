package models

import (
	"fmt"
	"time"
)

// ReactionType is a closed enumeration of support reactions
type ReactionType string

const (
	ReactionHeart    ReactionType = "heart"
	ReactionHug      ReactionType = "hug"
	ReactionStrength ReactionType = "strength"
	ReactionHope     ReactionType = "hope"
)

// Valid reports whether t is a known reaction type
func (t ReactionType) Valid() bool {
	switch t {
	case ReactionHeart, ReactionHug, ReactionStrength, ReactionHope:
		return true
	}
	return false
}

// ParseReactionType parses a reaction type from its wire name
func ParseReactionType(s string) (ReactionType, error) {
	t := ReactionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown reaction type: %q", s)
	}
	return t, nil
}

// Reaction represents one user's support reaction on one entry.
// A user holds at most one reaction per entry, enforced by the
// composite primary key.
type Reaction struct {
	ID        string       `gorm:"type:varchar(36);not null;column:id"`
	EntryID   string       `gorm:"type:varchar(36);primaryKey;column:entry_id"`
	UserID    string       `gorm:"type:varchar(36);primaryKey;column:user_id"`
	Type      ReactionType `gorm:"type:varchar(16);not null;column:type"`
	CreatedAt time.Time    `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Reaction
func (Reaction) TableName() string {
	return "harbor_reactions"
}
