package repository

import (
	"context"
	"errors"
	"time"

	"threadswap/internal/models"

	"gorm.io/gorm"
)

const (
	// ImageStatusQueued is an upload awaiting variant processing.
	ImageStatusQueued = "queued"
	// ImageStatusProcessing is an upload claimed by a worker.
	ImageStatusProcessing = "processing"
	// ImageStatusReady is an upload with all variants materialized.
	ImageStatusReady = "ready"
	// ImageStatusFailed is an upload whose processing gave up.
	ImageStatusFailed = "failed"
)

// ImageRepository defines storage operations for blob store metadata.
type ImageRepository interface {
	Create(ctx context.Context, image *models.Image) error
	GetByHash(ctx context.Context, hash string) (*models.Image, error)
	GetByHashWithVariants(ctx context.Context, hash string) (*models.Image, error)
	UpdateLastAccessed(ctx context.Context, id uint) error
	UpsertVariant(ctx context.Context, v *models.ImageVariant) error
	// ClaimNextQueued atomically moves the oldest queued image to
	// processing and returns it, or nil when the queue is empty.
	ClaimNextQueued(ctx context.Context) (*models.Image, error)
	MarkReady(ctx context.Context, imageID uint) error
	MarkFailed(ctx context.Context, imageID uint, errMsg string) error
	Delete(ctx context.Context, imageID uint) error
}

// imageRepository implements ImageRepository
type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new image metadata repository
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, image *models.Image) error {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return models.NewStoreError(err)
	}
	return nil
}

func (r *imageRepository) GetByHash(ctx context.Context, hash string) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).Where("hash = ?", hash).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Image", hash)
		}
		return nil, models.NewStoreError(err)
	}
	return &image, nil
}

func (r *imageRepository) GetByHashWithVariants(ctx context.Context, hash string) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("hash = ?", hash).
		First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Image", hash)
		}
		return nil, models.NewStoreError(err)
	}
	return &image, nil
}

func (r *imageRepository) UpdateLastAccessed(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	if err := r.db.WithContext(ctx).
		Model(&models.Image{}).
		Where("id = ?", id).
		Update("last_accessed_at", now).Error; err != nil {
		return models.NewStoreError(err)
	}
	return nil
}

func (r *imageRepository) UpsertVariant(ctx context.Context, v *models.ImageVariant) error {
	var existing models.ImageVariant
	err := r.db.WithContext(ctx).
		Where("image_id = ? AND width = ? AND format = ?", v.ImageID, v.Width, v.Format).
		First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
			return models.NewStoreError(err)
		}
		return nil
	case err != nil:
		return models.NewStoreError(err)
	default:
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
		if err := r.db.WithContext(ctx).Save(v).Error; err != nil {
			return models.NewStoreError(err)
		}
		return nil
	}
}

func (r *imageRepository) ClaimNextQueued(ctx context.Context) (*models.Image, error) {
	// The conditional update inside the transaction is what keeps two
	// workers from claiming the same image.
	var claimed models.Image
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ?", ImageStatusQueued).Order("id ASC").First(&claimed).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Image{}).
			Where("id = ? AND status = ?", claimed.ID, ImageStatusQueued).
			Updates(map[string]interface{}{
				"status": ImageStatusProcessing,
				"error":  "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&claimed, claimed.ID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // nothing queued
	}
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	return &claimed, nil
}

func (r *imageRepository) MarkReady(ctx context.Context, imageID uint) error {
	if err := r.db.WithContext(ctx).Model(&models.Image{}).
		Where("id = ?", imageID).
		Updates(map[string]interface{}{
			"status": ImageStatusReady,
			"error":  "",
		}).Error; err != nil {
		return models.NewStoreError(err)
	}
	return nil
}

func (r *imageRepository) MarkFailed(ctx context.Context, imageID uint, errMsg string) error {
	if len(errMsg) > 4000 {
		errMsg = errMsg[:4000]
	}
	if err := r.db.WithContext(ctx).Model(&models.Image{}).
		Where("id = ?", imageID).
		Updates(map[string]interface{}{
			"status": ImageStatusFailed,
			"error":  errMsg,
		}).Error; err != nil {
		return models.NewStoreError(err)
	}
	return nil
}

func (r *imageRepository) Delete(ctx context.Context, imageID uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Image{}, imageID).Error; err != nil {
		return models.NewStoreError(err)
	}
	return nil
}
