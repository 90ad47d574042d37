package seed

import (
	"fmt"
	"time"

	"threadswap/internal/middleware"
	"threadswap/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers     int
	ItemsPerUser int
	MaxDays      int
	ShouldClean  bool
	SkipBcrypt   bool
	// RandSeed fixes the generator for reproducible runs; 0 means time-based.
	RandSeed int64
}

// Run populates the database with a demo exchange: members, listings, likes,
// and swaps in every lifecycle state. Item statuses and points balances are
// written to match what the workflow engine would have produced.
func Run(db *gorm.DB, opts Options) error {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 12
	}
	if opts.ItemsPerUser <= 0 {
		opts.ItemsPerUser = 4
	}

	if opts.ShouldClean {
		if err := Clean(db); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
	}

	f := NewFactory(db, opts)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}

	items := make([]*models.Item, 0, opts.NumUsers*opts.ItemsPerUser)
	for _, user := range users {
		for j := 0; j < opts.ItemsPerUser; j++ {
			item, err := f.CreateItem(user)
			if err != nil {
				return fmt.Errorf("create item: %w", err)
			}
			items = append(items, item)
		}
	}

	if err := f.seedLikes(users, items); err != nil {
		return fmt.Errorf("seed likes: %w", err)
	}

	if err := f.seedSwaps(users); err != nil {
		return fmt.Errorf("seed swaps: %w", err)
	}

	middleware.Logger.Info("seed complete",
		"users", len(users), "items", len(items))
	return nil
}

// Clean removes all seeded exchange data. Destructive; development only.
func Clean(db *gorm.DB) error {
	for _, table := range []string{"item_likes", "swaps", "items", "image_variants", "images", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func (f *Factory) seedLikes(users []*models.User, items []*models.Item) error {
	for _, item := range items {
		likes := 0
		for _, user := range users {
			if user.ID == item.UserID || f.rng.Intn(4) != 0 {
				continue
			}
			like := models.ItemLike{ItemID: item.ID, UserID: user.ID}
			if err := f.db.Create(&like).Error; err != nil {
				return err
			}
			likes++
		}
		if likes > 0 {
			if err := f.db.Model(&models.Item{}).
				Where("id = ?", item.ID).
				Update("likes", likes).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// seedSwaps creates one swap per lifecycle state between consecutive user
// pairs, with item statuses and rewards consistent with each state.
func (f *Factory) seedSwaps(users []*models.User) error {
	states := []models.SwapStatus{
		models.SwapStatusPending,
		models.SwapStatusAccepted,
		models.SwapStatusRejected,
		models.SwapStatusCancelled,
		models.SwapStatusCompleted,
	}

	for i, status := range states {
		if 2*i+1 >= len(users) {
			break
		}
		initiator := users[2*i]
		target := users[2*i+1]

		offered, err := f.CreateItem(initiator)
		if err != nil {
			return err
		}
		targetItem, err := f.CreateItem(target)
		if err != nil {
			return err
		}

		now := time.Now()
		swap := models.Swap{
			InitiatorID:   initiator.ID,
			TargetUserID:  target.ID,
			TargetItemID:  targetItem.ID,
			OfferedItemID: offered.ID,
			Message:       "Would you trade?",
			Status:        status,
		}

		itemStatus := models.ItemStatusAvailable
		switch status {
		case models.SwapStatusPending:
			itemStatus = models.ItemStatusPendingSwap
		case models.SwapStatusAccepted:
			itemStatus = models.ItemStatusSwapped
			swap.AcceptedAt = &now
		case models.SwapStatusCompleted:
			itemStatus = models.ItemStatusSwapped
			swap.AcceptedAt = &now
			swap.CompletedAt = &now
		case models.SwapStatusRejected:
			swap.RejectedAt = &now
		case models.SwapStatusCancelled:
			swap.CancelledAt = &now
		}

		if err := f.db.Create(&swap).Error; err != nil {
			return err
		}

		if itemStatus != models.ItemStatusAvailable {
			if err := f.db.Model(&models.Item{}).
				Where("id IN ?", []uint{offered.ID, targetItem.ID}).
				Update("status", itemStatus).Error; err != nil {
				return err
			}
		}

		// Accepted and completed swaps already paid out
		if status == models.SwapStatusAccepted || status == models.SwapStatusCompleted {
			if err := f.db.Model(&models.User{}).
				Where("id IN ?", []uint{initiator.ID, target.ID}).
				Updates(map[string]interface{}{
					"points":          gorm.Expr("points + ?", models.SwapRewardPoints),
					"completed_swaps": gorm.Expr("completed_swaps + 1"),
				}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
