package repository

import (
	"context"
	"errors"
	"time"

	"threadswap/internal/models"

	"gorm.io/gorm"
)

// SwapRepository defines the interface for swap record storage. Swap records
// are append-and-transition only; there is no delete.
type SwapRepository interface {
	Create(ctx context.Context, swap *models.Swap) error
	GetByID(ctx context.Context, id uint) (*models.Swap, error)
	ListByParticipant(ctx context.Context, userID uint) ([]models.Swap, error)
	// UpdateStatus transitions a swap only when it is currently in the
	// expected state, stamping the matching timestamp column. Returns false
	// when the swap was not in the expected state.
	UpdateStatus(ctx context.Context, id uint, expected, next models.SwapStatus) (bool, error)
	// HasActiveForItem reports whether any pending or accepted swap
	// references the item as target or offered.
	HasActiveForItem(ctx context.Context, itemID uint) (bool, error)
}

// swapRepository implements SwapRepository
type swapRepository struct {
	db *gorm.DB
}

// NewSwapRepository creates a new swap repository
func NewSwapRepository(db *gorm.DB) SwapRepository {
	return &swapRepository{db: db}
}

func (r *swapRepository) Create(ctx context.Context, swap *models.Swap) error {
	if err := r.db.WithContext(ctx).Create(swap).Error; err != nil {
		return models.NewStoreError(err)
	}
	return nil
}

func (r *swapRepository) GetByID(ctx context.Context, id uint) (*models.Swap, error) {
	var swap models.Swap
	if err := r.db.WithContext(ctx).First(&swap, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Swap", id)
		}
		return nil, models.NewStoreError(err)
	}
	return &swap, nil
}

func (r *swapRepository) ListByParticipant(ctx context.Context, userID uint) ([]models.Swap, error) {
	var swaps []models.Swap
	if err := r.db.WithContext(ctx).
		Where("initiator_id = ? OR target_user_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&swaps).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return swaps, nil
}

// statusTimestampColumn names the column stamped when a swap enters a status.
func statusTimestampColumn(status models.SwapStatus) string {
	switch status {
	case models.SwapStatusAccepted:
		return "accepted_at"
	case models.SwapStatusRejected:
		return "rejected_at"
	case models.SwapStatusCancelled:
		return "cancelled_at"
	case models.SwapStatusCompleted:
		return "completed_at"
	}
	return ""
}

func (r *swapRepository) UpdateStatus(ctx context.Context, id uint, expected, next models.SwapStatus) (bool, error) {
	fields := map[string]interface{}{"status": next}
	if col := statusTimestampColumn(next); col != "" {
		fields[col] = time.Now().UTC()
	}

	res := r.db.WithContext(ctx).
		Model(&models.Swap{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	if res.Error != nil {
		return false, models.NewStoreError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *swapRepository) HasActiveForItem(ctx context.Context, itemID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Swap{}).
		Where("(target_item_id = ? OR offered_item_id = ?) AND status IN ?",
			itemID, itemID,
			[]models.SwapStatus{models.SwapStatusPending, models.SwapStatusAccepted}).
		Count(&count).Error; err != nil {
		return false, models.NewStoreError(err)
	}
	return count > 0, nil
}
