package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel holds the uuid primary key and creation time shared by every
// table.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// BeforeCreate generates a UUID if not already set.
func (b *BaseModel) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Transcript is one stretch of recognized speech.
type Transcript struct {
	BaseModel
	Text string `gorm:"not null"`
}

// Summary is the image prompt condensed from transcripts.
type Summary struct {
	BaseModel
	Text   string  `gorm:"not null"`
	Images []Image `gorm:"constraint:OnDelete:CASCADE"`
}

// Image is a saved image file of a summary.
type Image struct {
	BaseModel
	SummaryID string `gorm:"size:36;not null;index"`
	Filename  string `gorm:"not null;uniqueIndex"`
	// Favorite images stay on the frame after newer summaries arrive.
	Favorite bool   `gorm:"not null;default:false;index"`
	Meta     []Meta `gorm:"constraint:OnDelete:CASCADE"`
}

// Meta is one key/value attribute of an image, e.g. ai=openai.
type Meta struct {
	BaseModel
	ImageID string `gorm:"size:36;not null;index"`
	Key     string `gorm:"not null"`
	Value   string `gorm:"not null"`
}

// TableName returns "meta", which has no plural.
func (Meta) TableName() string { return "meta" }

// Models returns the models in dependency order.
func Models() []interface{} {
	return []interface{}{&Transcript{}, &Summary{}, &Image{}, &Meta{}}
}
