package cache

import (
	"context"
	"fmt"
	"time"
)

// keyPrefix namespaces every cache key so a shared Redis never collides
// with a co-tenant's keys.
const keyPrefix = "threadswap:"

const (
	UserKeyPrefix      = keyPrefix + "user:%d"
	ItemKeyPrefix      = keyPrefix + "item:%d"
	LeaderboardKey     = keyPrefix + "leaderboard"
	UserStatsKeyPrefix = keyPrefix + "user:%d:stats"
)

const (
	UserTTL        = 5 * time.Minute
	ItemTTL        = 10 * time.Minute
	LeaderboardTTL = 1 * time.Minute
	UserStatsTTL   = 1 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func ItemKey(itemID uint) string {
	return fmt.Sprintf(ItemKeyPrefix, itemID)
}

func UserStatsKey(userID uint) string {
	return fmt.Sprintf(UserStatsKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
	Invalidate(ctx, UserStatsKey(userID))
	Invalidate(ctx, LeaderboardKey)
}

func InvalidateItem(ctx context.Context, itemID uint) {
	Invalidate(ctx, ItemKey(itemID))
}
