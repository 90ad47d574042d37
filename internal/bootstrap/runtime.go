// Package bootstrap wires up runtime dependencies shared by the cmd binaries.
package bootstrap

import (
	"errors"
	"fmt"
	"strings"

	"threadswap/internal/cache"
	"threadswap/internal/config"
	"threadswap/internal/database"
	"threadswap/internal/middleware"
	"threadswap/internal/models"
	"threadswap/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	Migrate  bool
	SeedDemo bool
}

// InitRuntime connects to DB and Redis and optionally migrates and seeds.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis may come back nil when unreachable; the API runs degraded
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.Migrate {
		if err := database.Migrate(db); err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	if err := ensureDevAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	if opts.SeedDemo {
		if err := seed.Run(db, seed.Options{}); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// ensureDevAdmin guarantees user ID 1 exists with admin rights in the
// development environment so the repair endpoint is reachable out of the box.
func ensureDevAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin-dev-only"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var admin models.User
		findErr := tx.First(&admin, 1).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			admin = models.User{
				ID:       1,
				Username: "threadswap_admin",
				Email:    "admin@threadswap.local",
				Password: string(hashedPassword),
				IsAdmin:  true,
				Points:   models.StartingPoints,
			}
			if err := tx.Create(&admin).Error; err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		default:
			if err := tx.Model(&models.User{}).
				Where("id = ?", 1).
				Update("is_admin", true).Error; err != nil {
				return err
			}
		}

		// Keep the ID sequence ahead of the explicit insert. PostgreSQL only.
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec(`
				SELECT setval(
					pg_get_serial_sequence('users', 'id'),
					GREATEST((SELECT COALESCE(MAX(id), 1) FROM users), 1),
					true
				)
			`).Error; err != nil {
				return fmt.Errorf("failed to reset users sequence: %w", err)
			}
		}

		middleware.Logger.Info("development admin ensured", "user_id", 1)
		return nil
	})
}
