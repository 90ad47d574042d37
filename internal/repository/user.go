// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"threadswap/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user profile and points ledger storage.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Leaderboard(ctx context.Context, limit int) ([]models.User, error)
	AddPoints(ctx context.Context, userID uint, amount int) error
	// DeductPoints atomically subtracts amount where the balance covers it.
	// Returns false (and leaves the balance untouched) when it does not.
	DeductPoints(ctx context.Context, userID uint, amount int) (bool, error)
	IncrementItemCount(ctx context.Context, userID uint, delta int) error
	IncrementCompletedSwaps(ctx context.Context, userID uint, delta int) error
}

// userRepository implements UserRepository
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return models.NewStoreError(err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewStoreError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // no user with this email
		}
		return nil, models.NewStoreError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewStoreError(err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return models.NewStoreError(err)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return users, nil
}

func (r *userRepository) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("points > 0").
		Order("points DESC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return users, nil
}

func (r *userRepository) AddPoints(ctx context.Context, userID uint, amount int) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("points", gorm.Expr("points + ?", amount))
	if res.Error != nil {
		return models.NewStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", userID)
	}
	return nil
}

func (r *userRepository) DeductPoints(ctx context.Context, userID uint, amount int) (bool, error) {
	// Conditional single-row write: the WHERE clause is what keeps the
	// balance non-negative under concurrent deductions.
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND points >= ?", userID, amount).
		Update("points", gorm.Expr("points - ?", amount))
	if res.Error != nil {
		return false, models.NewStoreError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) IncrementItemCount(ctx context.Context, userID uint, delta int) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("item_count", gorm.Expr("CASE WHEN item_count + ? < 0 THEN 0 ELSE item_count + ? END", delta, delta))
	if res.Error != nil {
		return models.NewStoreError(res.Error)
	}
	return nil
}

func (r *userRepository) IncrementCompletedSwaps(ctx context.Context, userID uint, delta int) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("completed_swaps", gorm.Expr("completed_swaps + ?", delta))
	if res.Error != nil {
		return models.NewStoreError(res.Error)
	}
	return nil
}
