// Package notifications delivers swap lifecycle events to connected users
// over WebSocket, fanned out through Redis pub/sub so every instance sees
// every event.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"

	"threadswap/internal/middleware"
	"threadswap/internal/models"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes notification payloads into Redis channels. A nil Redis
// client turns every publish into a no-op so the workflow runs without Redis.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishSwapEvent publishes a swap lifecycle event to one participant.
// Fire-and-forget: a failure is logged, never surfaced into the workflow.
func (n *Notifier) PublishSwapEvent(ctx context.Context, userID uint, event string, swap *models.Swap) {
	payload, err := json.Marshal(map[string]interface{}{
		"type": event,
		"payload": map[string]interface{}{
			"swap_id":         swap.ID,
			"status":          swap.Status,
			"initiator_id":    swap.InitiatorID,
			"target_user_id":  swap.TargetUserID,
			"target_item_id":  swap.TargetItemID,
			"offered_item_id": swap.OfferedItemID,
		},
	})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "swap event marshal failed", "event", event, "error", err)
		return
	}
	if err := n.PublishUser(ctx, userID, string(payload)); err != nil {
		middleware.Logger.WarnContext(ctx, "swap event publish failed",
			"event", event, "user_id", userID, "error", err)
	}
}

// StartPatternSubscriber subscribes to `notifications:user:*` and calls
// onMessage for each incoming message.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}
