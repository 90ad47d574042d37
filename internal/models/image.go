package models

import (
	"time"

	"gorm.io/gorm"
)

// Image is blob store metadata for one uploaded file, keyed by content hash.
// The hash doubles as the opaque ref that item records carry; identical
// uploads dedupe onto a single row.
type Image struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Hash           string         `gorm:"size:64;not null;uniqueIndex" json:"hash"`
	UserID         uint           `gorm:"not null;index" json:"user_id"`
	ItemID         *uint          `gorm:"index" json:"item_id,omitempty"`
	Filename       string         `json:"filename"`
	ContentType    string         `gorm:"size:100" json:"content_type"`
	SizeBytes      int64          `json:"size_bytes"`
	Status         string         `gorm:"type:varchar(20);not null;default:'queued';index" json:"status"`
	Error          string         `gorm:"type:text" json:"-"`
	LastAccessedAt *time.Time     `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Variants []ImageVariant `gorm:"foreignKey:ImageID" json:"variants,omitempty"`
}

// TableName specifies the table name for GORM
func (Image) TableName() string {
	return "images"
}

// ImageVariant is one rendition of an image (size bucket x format) on disk.
type ImageVariant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ImageID   uint      `gorm:"not null;uniqueIndex:idx_image_variants_key" json:"image_id"`
	Width     int       `gorm:"not null;uniqueIndex:idx_image_variants_key" json:"width"`
	Format    string    `gorm:"size:10;not null;uniqueIndex:idx_image_variants_key" json:"format"`
	Path      string    `gorm:"not null" json:"-"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (ImageVariant) TableName() string {
	return "image_variants"
}
