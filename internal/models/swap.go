package models

import (
	"time"
)

// SwapStatus represents the state of a swap in its lifecycle.
type SwapStatus string

const (
	// SwapStatusPending indicates a proposal awaiting the target owner's decision.
	SwapStatusPending SwapStatus = "pending"
	// SwapStatusAccepted indicates the target owner accepted; items are swapped.
	SwapStatusAccepted SwapStatus = "accepted"
	// SwapStatusRejected indicates the target owner declined the proposal.
	SwapStatusRejected SwapStatus = "rejected"
	// SwapStatusCancelled indicates the initiator withdrew the proposal.
	SwapStatusCancelled SwapStatus = "cancelled"
	// SwapStatusCompleted indicates both parties confirmed the exchange.
	SwapStatusCompleted SwapStatus = "completed"
)

// Terminal reports whether no further transition is permitted from s.
func (s SwapStatus) Terminal() bool {
	switch s {
	case SwapStatusRejected, SwapStatusCancelled, SwapStatusCompleted:
		return true
	}
	return false
}

// SwapRewardPoints is credited to each participant when a swap is accepted.
// Completion is a confirmation marker only and never awards a second time.
const SwapRewardPoints = 50

// Swap is the relation entity for a two-party item exchange. It references
// two items and two users by ID and never owns them; swap records are kept
// forever as an audit trail.
type Swap struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	InitiatorID   uint       `gorm:"not null;index" json:"initiator_id"`
	TargetUserID  uint       `gorm:"not null;index" json:"target_user_id"`
	TargetItemID  uint       `gorm:"not null;index" json:"target_item_id"`
	OfferedItemID uint       `gorm:"not null;index" json:"offered_item_id"`
	Message       string     `gorm:"type:text" json:"message"`
	Status        SwapStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_swaps_status" json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	AcceptedAt    *time.Time `json:"accepted_at,omitempty"`
	RejectedAt    *time.Time `json:"rejected_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	// Item snapshots joined at read time; nil when the lookup failed.
	TargetItem  *Item `gorm:"-" json:"target_item,omitempty"`
	OfferedItem *Item `gorm:"-" json:"offered_item,omitempty"`
}

// TableName specifies the table name for GORM
func (Swap) TableName() string {
	return "swaps"
}

// HasParticipant reports whether the user is the initiator or the target.
func (s *Swap) HasParticipant(userID uint) bool {
	return s.InitiatorID == userID || s.TargetUserID == userID
}

// References reports whether the swap involves the given item.
func (s *Swap) References(itemID uint) bool {
	return s.TargetItemID == itemID || s.OfferedItemID == itemID
}

// SwapStats is a per-user count of swaps by status.
type SwapStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Accepted  int `json:"accepted"`
	Completed int `json:"completed"`
	Rejected  int `json:"rejected"`
	Cancelled int `json:"cancelled"`
}
