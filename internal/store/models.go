package store

import (
	"time"

	"gorm.io/gorm"
)

// Widget pins one location to the user's dashboard. LocationKey holds
// the lower-cased, trimmed form of Location and backs the
// case-insensitive uniqueness constraint.
type Widget struct {
	ID          string    `json:"id" gorm:"primaryKey;size:24"`
	Location    string    `json:"location" gorm:"not null"`
	LocationKey string    `json:"-" gorm:"uniqueIndex;not null;size:100"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Widget) TableName() string { return "widgets" }

// BeforeCreate GORM hook: ensure the id is set.
func (w *Widget) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = NewID()
	}
	return nil
}
