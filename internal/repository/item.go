package repository

import (
	"context"
	"errors"
	"strings"

	"threadswap/internal/models"

	"gorm.io/gorm"
)

// ItemRepository defines the interface for item catalog storage.
type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id uint) (*models.Item, error)
	List(ctx context.Context, filter models.ItemFilter) ([]models.Item, error)
	ListByStatus(ctx context.Context, status models.ItemStatus) ([]models.Item, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, term string) ([]models.Item, error)
	Featured(ctx context.Context, limit int) ([]models.Item, error)
	// UpdateStatus transitions the item's availability only when it is
	// currently in the expected state. Returns false when another writer won.
	UpdateStatus(ctx context.Context, id uint, expected, next models.ItemStatus) (bool, error)
	IncrementViews(ctx context.Context, id uint) error
	GetLike(ctx context.Context, itemID, userID uint) (*models.ItemLike, error)
	CreateLike(ctx context.Context, like *models.ItemLike) error
	DeleteLike(ctx context.Context, itemID, userID uint) error
}

// itemRepository implements ItemRepository
type itemRepository struct {
	db *gorm.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(ctx context.Context, item *models.Item) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return models.NewStoreError(err)
	}
	return nil
}

func (r *itemRepository) GetByID(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Preload("User").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Item", id)
		}
		return nil, models.NewStoreError(err)
	}
	return &item, nil
}

func (r *itemRepository) List(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	q := r.db.WithContext(ctx).Model(&models.Item{})

	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Size != "" {
		q = q.Where("size = ?", filter.Size)
	}
	if filter.Condition != "" {
		q = q.Where("condition = ?", filter.Condition)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}

	q = q.Order("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var items []models.Item
	if err := q.Find(&items).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return items, nil
}

func (r *itemRepository) ListByStatus(ctx context.Context, status models.ItemStatus) ([]models.Item, error) {
	var items []models.Item
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Find(&items).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return items, nil
}

func (r *itemRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return models.NewStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Item", id)
	}
	return nil
}

func (r *itemRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Item{}, id)
	if res.Error != nil {
		return models.NewStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Item", id)
	}
	return nil
}

func (r *itemRepository) Search(ctx context.Context, term string) ([]models.Item, error) {
	// Tags are a JSON-encoded column, so a LIKE over the raw text is the
	// portable equality we can offer across postgres and sqlite.
	pattern := "%" + strings.ToLower(term) + "%"
	var items []models.Item
	if err := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(tags) LIKE ?",
			pattern, pattern, pattern).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return items, nil
}

func (r *itemRepository) Featured(ctx context.Context, limit int) ([]models.Item, error) {
	var items []models.Item
	if err := r.db.WithContext(ctx).
		Where("status = ?", models.ItemStatusAvailable).
		Order("likes DESC, created_at DESC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return items, nil
}

func (r *itemRepository) UpdateStatus(ctx context.Context, id uint, expected, next models.ItemStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", next)
	if res.Error != nil {
		return false, models.NewStoreError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *itemRepository) IncrementViews(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		Update("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return models.NewStoreError(res.Error)
	}
	return nil
}

func (r *itemRepository) GetLike(ctx context.Context, itemID, userID uint) (*models.ItemLike, error) {
	var like models.ItemLike
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND user_id = ?", itemID, userID).
		First(&like).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // user has not liked this item
		}
		return nil, models.NewStoreError(err)
	}
	return &like, nil
}

func (r *itemRepository) CreateLike(ctx context.Context, like *models.ItemLike) error {
	if err := r.db.WithContext(ctx).Create(like).Error; err != nil {
		return models.NewStoreError(err)
	}
	return nil
}

func (r *itemRepository) DeleteLike(ctx context.Context, itemID, userID uint) error {
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND user_id = ?", itemID, userID).
		Delete(&models.ItemLike{}).Error; err != nil {
		return models.NewStoreError(err)
	}
	return nil
}
