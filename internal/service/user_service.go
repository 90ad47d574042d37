package service

import (
	"context"
	"errors"

	"threadswap/internal/models"
	"threadswap/internal/repository"
)

// UserService owns profile CRUD and the points ledger.
type UserService struct {
	userRepo repository.UserRepository
	swapRepo repository.SwapRepository
}

// UpdateProfileInput carries the editable profile fields. Empty strings
// leave the current value untouched.
type UpdateProfileInput struct {
	UserID   uint
	Username string
	Bio      string
	Avatar   string
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository, swapRepo repository.SwapRepository) *UserService {
	return &UserService{userRepo: userRepo, swapRepo: swapRepo}
}

// GetOrCreate returns the profile for id, creating it with the starting
// balance and zeroed counters when absent. An existing profile is returned
// unmodified; lazy creation never resets counters.
func (s *UserService) GetOrCreate(ctx context.Context, id uint, defaults models.User) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err == nil {
		return user, nil
	}
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code != "NOT_FOUND" {
		return nil, err
	}

	created := &models.User{
		ID:       id,
		Username: defaults.Username,
		Email:    defaults.Email,
		Avatar:   defaults.Avatar,
		Points:   models.StartingPoints,
	}
	if err := s.userRepo.Create(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// GetUserByID returns one profile.
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ListUsers returns a page of profiles.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

// UpdateProfile applies a partial profile edit.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	const maxBioLen = 500
	const maxUsernameLen = 30

	if in.Username != "" {
		if len(in.Username) > maxUsernameLen {
			return nil, models.NewValidationError("Username too long (max 30 characters)")
		}
		user.Username = in.Username
	}
	if in.Bio != "" {
		if len(in.Bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = in.Bio
	}
	if in.Avatar != "" {
		user.Avatar = in.Avatar
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AddPoints credits the balance and returns the new balance.
func (s *UserService) AddPoints(ctx context.Context, userID uint, amount int) (int, error) {
	if amount <= 0 {
		return 0, models.NewValidationError("Amount must be positive")
	}
	if err := s.userRepo.AddPoints(ctx, userID, amount); err != nil {
		return 0, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Points, nil
}

// DeductPoints debits the balance and returns the new balance. The debit is
// a single conditional write; a balance that cannot cover the amount fails
// with a conflict and stays unchanged.
func (s *UserService) DeductPoints(ctx context.Context, userID uint, amount int) (int, error) {
	if amount <= 0 {
		return 0, models.NewValidationError("Amount must be positive")
	}
	ok, err := s.userRepo.DeductPoints(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	if !ok {
		// Covers both a missing user and a short balance; disambiguate.
		if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
			return 0, err
		}
		return 0, models.NewConflictError("insufficient points")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Points, nil
}

// IncrementSwapCount adjusts the completed-swap counter.
func (s *UserService) IncrementSwapCount(ctx context.Context, userID uint, delta int) error {
	return s.userRepo.IncrementCompletedSwaps(ctx, userID, delta)
}

// GetStats aggregates the user's exchange activity.
func (s *UserService) GetStats(ctx context.Context, userID uint) (*models.UserStats, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	swaps, err := s.swapRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &models.UserStats{
		ItemCount:      user.ItemCount,
		CompletedSwaps: user.CompletedSwaps,
		TotalSwaps:     len(swaps),
		Points:         user.Points,
	}
	for i := range swaps {
		if swaps[i].Status == models.SwapStatusPending {
			stats.PendingSwaps++
		}
	}
	return stats, nil
}

// Leaderboard returns the top point earners.
func (s *UserService) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.userRepo.Leaderboard(ctx, limit)
}
