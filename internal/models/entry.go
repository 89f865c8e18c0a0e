package models

import (
	"time"
)

// Entry represents a single community-visible submission
type Entry struct {
	ID            string    `gorm:"type:varchar(36);primaryKey;column:id"`
	AuthorID      string    `gorm:"type:varchar(36);not null;column:author_id"`
	Title         string    `gorm:"type:varchar(255);not null;column:title"`
	Body          string    `gorm:"type:text;column:body"`
	Level         int       `gorm:"not null;column:level"`
	Payload       string    `gorm:"type:text;column:payload"`
	CreatedAt     time.Time `gorm:"not null;column:created_at"`
	ReactionCount int64     `gorm:"not null;default:0;column:reaction_count"`
	TwinCount     int64     `gorm:"not null;default:0;column:twin_count"`
	IsHidden      bool      `gorm:"not null;default:false;column:is_hidden"`
	IsFlagged     bool      `gorm:"not null;default:false;column:is_flagged"`

	// Decoded from Payload at the store boundary, never persisted directly
	Tags []string `gorm:"-"`
	Wins []string `gorm:"-"`
}

// TableName specifies the table name for Entry
func (Entry) TableName() string {
	return "harbor_entries"
}

// LevelMin and LevelMax bound the intensity level of an entry.
const (
	LevelMin = 1
	LevelMax = 10
)

// EntryTag represents an entry-to-tag mapping, mirrored from the entry
// payload so tag membership is queryable
type EntryTag struct {
	EntryID string `gorm:"type:varchar(36);primaryKey;column:entry_id"`
	Tag     string `gorm:"type:varchar(32);primaryKey;column:tag"`
}

// TableName specifies the table name for EntryTag
func (EntryTag) TableName() string {
	return "harbor_entry_tags"
}
