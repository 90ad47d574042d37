package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ItemStatus represents the availability of an item in the exchange.
type ItemStatus string

const (
	// ItemStatusAvailable indicates an item that can be offered or targeted in a swap.
	ItemStatusAvailable ItemStatus = "available"
	// ItemStatusPendingSwap indicates an item locked by a pending swap proposal.
	ItemStatusPendingSwap ItemStatus = "pending_swap"
	// ItemStatusSwapped indicates an item whose swap was accepted.
	ItemStatusSwapped ItemStatus = "swapped"
)

// ImageRefKind tags how an image reference should be resolved.
type ImageRefKind string

const (
	// ImageRefBlob references content stored in the blob store by hash.
	ImageRefBlob ImageRefKind = "blob"
	// ImageRefInline carries a literal URL from legacy records.
	ImageRefInline ImageRefKind = "inline"
)

// ImageRef is a tagged reference to one item image. Records imported from the
// legacy store carry inline URLs; everything new goes through the blob store.
// The catalog normalizes both shapes before anything downstream sees them.
type ImageRef struct {
	Kind ImageRefKind `json:"kind"`
	Ref  string       `json:"ref"`
	URL  string       `json:"url,omitempty"`
}

// ImageRefList stores image references as a JSON column.
type ImageRefList []ImageRef

// Value implements driver.Valuer.
func (l ImageRefList) Value() (driver.Value, error) {
	if l == nil {
		l = ImageRefList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *ImageRefList) Scan(value interface{}) error {
	if value == nil {
		*l = ImageRefList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported image ref column type %T", value)
	}
}

// StringList stores a set of free-form tags as a JSON column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported tag column type %T", value)
	}
}

// Item represents a listed garment. Status transitions other than
// creation and owner delete are driven exclusively by the swap workflow.
type Item struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	UserID      uint         `gorm:"not null;index" json:"user_id"`
	User        User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Category    string       `gorm:"index" json:"category"`
	Size        string       `json:"size"`
	Condition   string       `json:"condition"`
	Brand       string       `json:"brand"`
	Tags        StringList   `gorm:"type:text" json:"tags"`
	Images      ImageRefList `gorm:"type:text" json:"images"`
	Status      ItemStatus   `gorm:"type:varchar(20);not null;default:'available';index:idx_items_status" json:"status"`
	Likes       int          `gorm:"not null;default:0" json:"likes"`
	Rating      float64      `gorm:"not null;default:0" json:"rating"`
	TotalRatings int         `gorm:"not null;default:0" json:"total_ratings"`
	Views       int          `gorm:"not null;default:0" json:"views"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Liked indicates whether the requesting user liked this item (computed)
	Liked bool `gorm:"-" json:"liked"`
}

// TableName specifies the table name for GORM
func (Item) TableName() string {
	return "items"
}

// ItemLike records that a user liked an item. The composite unique index is
// what enforces the at-most-once invariant under concurrent toggles.
type ItemLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ItemID    uint      `gorm:"not null;uniqueIndex:idx_item_likes_item_user" json:"item_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_item_likes_item_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (ItemLike) TableName() string {
	return "item_likes"
}

// ItemFilter narrows catalog listings. Zero values mean "no constraint".
type ItemFilter struct {
	Category  string
	Size      string
	Condition string
	Status    ItemStatus
	UserID    uint
	Limit     int
}
