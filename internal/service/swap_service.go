// Package service contains the business logic for the exchange.
package service

import (
	"context"

	"threadswap/internal/middleware"
	"threadswap/internal/models"
	"threadswap/internal/observability"
	"threadswap/internal/repository"
)

// Swap lifecycle events published to participants.
const (
	EventSwapProposed  = "swap_proposed"
	EventSwapAccepted  = "swap_accepted"
	EventSwapRejected  = "swap_rejected"
	EventSwapCancelled = "swap_cancelled"
	EventSwapCompleted = "swap_completed"
)

// Notifier delivers swap lifecycle events to a user. Delivery is
// fire-and-forget; implementations must never block the workflow.
type Notifier interface {
	PublishSwapEvent(ctx context.Context, userID uint, event string, swap *models.Swap)
}

// SwapService is the workflow engine for two-party item swaps. It owns every
// status transition of swaps and of the items they reference; the catalog
// never moves an item out of available on its own.
//
// The multi-step effect sequences are not transactional. Preconditions are
// checked before the first write; after that, a failed step surfaces its
// error and leaves prior steps applied. RepairOrphanedPendingItems is the
// reconciliation pass for items stranded by such a partial sequence.
type SwapService struct {
	swapRepo repository.SwapRepository
	itemRepo repository.ItemRepository
	userRepo repository.UserRepository
	notifier Notifier
}

// NewSwapService returns a new SwapService. notifier may be nil.
func NewSwapService(swapRepo repository.SwapRepository, itemRepo repository.ItemRepository, userRepo repository.UserRepository, notifier Notifier) *SwapService {
	return &SwapService{
		swapRepo: swapRepo,
		itemRepo: itemRepo,
		userRepo: userRepo,
		notifier: notifier,
	}
}

func (s *SwapService) notify(ctx context.Context, userID uint, event string, swap *models.Swap) {
	if s.notifier == nil {
		return
	}
	s.notifier.PublishSwapEvent(ctx, userID, event, swap)
}

// Propose creates a pending swap offering the initiator's item for the
// target item and locks both items in pending_swap.
func (s *SwapService) Propose(ctx context.Context, initiatorID, targetItemID, offeredItemID uint, message string) (*models.Swap, error) {
	targetItem, err := s.itemRepo.GetByID(ctx, targetItemID)
	if err != nil {
		return nil, err
	}
	offeredItem, err := s.itemRepo.GetByID(ctx, offeredItemID)
	if err != nil {
		return nil, err
	}

	if targetItem.UserID == initiatorID {
		observability.SwapTransitions.WithLabelValues("propose", "conflict").Inc()
		return nil, models.NewConflictError("Cannot propose a swap for your own item")
	}
	if offeredItem.UserID != initiatorID {
		observability.SwapTransitions.WithLabelValues("propose", "forbidden").Inc()
		return nil, models.NewForbiddenError("You can only offer items you own")
	}
	if targetItem.Status != models.ItemStatusAvailable {
		observability.SwapTransitions.WithLabelValues("propose", "conflict").Inc()
		return nil, models.NewConflictError("Target item is not available for swapping")
	}
	if offeredItem.Status != models.ItemStatusAvailable {
		observability.SwapTransitions.WithLabelValues("propose", "conflict").Inc()
		return nil, models.NewConflictError("Offered item is not available for swapping")
	}

	swap := &models.Swap{
		InitiatorID:   initiatorID,
		TargetUserID:  targetItem.UserID,
		TargetItemID:  targetItemID,
		OfferedItemID: offeredItemID,
		Message:       message,
		Status:        models.SwapStatusPending,
	}
	if err := s.swapRepo.Create(ctx, swap); err != nil {
		observability.SwapTransitions.WithLabelValues("propose", "error").Inc()
		return nil, err
	}

	// Conditional writes are the double-booking guard: a concurrent proposal
	// that won the race leaves the status changed and this update a no-op.
	// A lost claim cancels the just-created swap so no pending record
	// outlives the failed proposal.
	ok, err := s.itemRepo.UpdateStatus(ctx, targetItemID, models.ItemStatusAvailable, models.ItemStatusPendingSwap)
	if err != nil {
		observability.SwapTransitions.WithLabelValues("propose", "error").Inc()
		return nil, err
	}
	if !ok {
		s.abortProposal(ctx, swap.ID, 0)
		observability.SwapTransitions.WithLabelValues("propose", "conflict").Inc()
		return nil, models.NewConflictError("Target item was claimed by another swap")
	}
	ok, err = s.itemRepo.UpdateStatus(ctx, offeredItemID, models.ItemStatusAvailable, models.ItemStatusPendingSwap)
	if err != nil {
		observability.SwapTransitions.WithLabelValues("propose", "error").Inc()
		return nil, err
	}
	if !ok {
		s.abortProposal(ctx, swap.ID, targetItemID)
		observability.SwapTransitions.WithLabelValues("propose", "conflict").Inc()
		return nil, models.NewConflictError("Offered item was claimed by another swap")
	}

	observability.SwapTransitions.WithLabelValues("propose", "ok").Inc()
	s.notify(ctx, swap.TargetUserID, EventSwapProposed, swap)

	return s.swapRepo.GetByID(ctx, swap.ID)
}

// Accept transitions a pending swap to accepted. Only the target item's
// owner may accept. Both items become swapped and both participants are
// credited the reward, in that order.
func (s *SwapService) Accept(ctx context.Context, actingUserID, swapID uint) (*models.Swap, error) {
	swap, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if swap.TargetUserID != actingUserID {
		observability.SwapTransitions.WithLabelValues("accept", "forbidden").Inc()
		return nil, models.NewForbiddenError("Only the target item's owner can accept this swap")
	}
	if swap.Status != models.SwapStatusPending {
		observability.SwapTransitions.WithLabelValues("accept", "conflict").Inc()
		return nil, models.NewConflictError("Swap is not pending")
	}

	// Item state is re-read at transition time, never trusted from proposal.
	if _, err := s.itemRepo.GetByID(ctx, swap.TargetItemID); err != nil {
		return nil, err
	}
	if _, err := s.itemRepo.GetByID(ctx, swap.OfferedItemID); err != nil {
		return nil, err
	}

	ok, err := s.swapRepo.UpdateStatus(ctx, swapID, models.SwapStatusPending, models.SwapStatusAccepted)
	if err != nil {
		observability.SwapTransitions.WithLabelValues("accept", "error").Inc()
		return nil, err
	}
	if !ok {
		observability.SwapTransitions.WithLabelValues("accept", "conflict").Inc()
		return nil, models.NewConflictError("Swap is not pending")
	}

	// Item claims are strict here: a lost condition means the item is not
	// actually held by this swap, so the acceptance is unwound instead of
	// completing against someone else's lock.
	ok, err = s.itemRepo.UpdateStatus(ctx, swap.TargetItemID, models.ItemStatusPendingSwap, models.ItemStatusSwapped)
	if err != nil {
		observability.SwapTransitions.WithLabelValues("accept", "error").Inc()
		return nil, err
	}
	if !ok {
		s.revertAccept(ctx, swapID, 0)
		observability.SwapTransitions.WithLabelValues("accept", "conflict").Inc()
		return nil, models.NewConflictError("Target item is not locked for this swap")
	}
	ok, err = s.itemRepo.UpdateStatus(ctx, swap.OfferedItemID, models.ItemStatusPendingSwap, models.ItemStatusSwapped)
	if err != nil {
		observability.SwapTransitions.WithLabelValues("accept", "error").Inc()
		return nil, err
	}
	if !ok {
		s.revertAccept(ctx, swapID, swap.TargetItemID)
		observability.SwapTransitions.WithLabelValues("accept", "conflict").Inc()
		return nil, models.NewConflictError("Offered item is not locked for this swap")
	}

	for _, userID := range []uint{swap.InitiatorID, swap.TargetUserID} {
		if err := s.userRepo.AddPoints(ctx, userID, models.SwapRewardPoints); err != nil {
			observability.SwapTransitions.WithLabelValues("accept", "error").Inc()
			return nil, err
		}
		observability.PointsAwarded.Add(models.SwapRewardPoints)
	}
	for _, userID := range []uint{swap.InitiatorID, swap.TargetUserID} {
		if err := s.userRepo.IncrementCompletedSwaps(ctx, userID, 1); err != nil {
			observability.SwapTransitions.WithLabelValues("accept", "error").Inc()
			return nil, err
		}
	}

	observability.SwapTransitions.WithLabelValues("accept", "ok").Inc()
	s.notify(ctx, swap.InitiatorID, EventSwapAccepted, swap)
	s.notify(ctx, swap.TargetUserID, EventSwapAccepted, swap)

	return s.swapRepo.GetByID(ctx, swapID)
}

// Reject transitions a pending swap to rejected and releases both items.
// Only the target item's owner may reject.
func (s *SwapService) Reject(ctx context.Context, actingUserID, swapID uint) (*models.Swap, error) {
	swap, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if swap.TargetUserID != actingUserID {
		observability.SwapTransitions.WithLabelValues("reject", "forbidden").Inc()
		return nil, models.NewForbiddenError("Only the target item's owner can reject this swap")
	}
	if swap.Status != models.SwapStatusPending {
		observability.SwapTransitions.WithLabelValues("reject", "conflict").Inc()
		return nil, models.NewConflictError("Swap is not pending")
	}

	if _, err := s.itemRepo.GetByID(ctx, swap.TargetItemID); err != nil {
		return nil, err
	}
	if _, err := s.itemRepo.GetByID(ctx, swap.OfferedItemID); err != nil {
		return nil, err
	}

	ok, err := s.swapRepo.UpdateStatus(ctx, swapID, models.SwapStatusPending, models.SwapStatusRejected)
	if err != nil {
		observability.SwapTransitions.WithLabelValues("reject", "error").Inc()
		return nil, err
	}
	if !ok {
		observability.SwapTransitions.WithLabelValues("reject", "conflict").Inc()
		return nil, models.NewConflictError("Swap is not pending")
	}

	if err := s.releaseItems(ctx, swap); err != nil {
		observability.SwapTransitions.WithLabelValues("reject", "error").Inc()
		return nil, err
	}

	observability.SwapTransitions.WithLabelValues("reject", "ok").Inc()
	s.notify(ctx, swap.InitiatorID, EventSwapRejected, swap)

	return s.swapRepo.GetByID(ctx, swapID)
}

// Cancel withdraws a pending swap and releases both items. Only the
// initiator may cancel; declining is the target's move, withdrawing is the
// initiator's.
func (s *SwapService) Cancel(ctx context.Context, actingUserID, swapID uint) (*models.Swap, error) {
	swap, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if swap.InitiatorID != actingUserID {
		observability.SwapTransitions.WithLabelValues("cancel", "forbidden").Inc()
		return nil, models.NewForbiddenError("Only the initiator can cancel this swap")
	}
	if swap.Status != models.SwapStatusPending {
		observability.SwapTransitions.WithLabelValues("cancel", "conflict").Inc()
		return nil, models.NewConflictError("Swap is not pending")
	}

	if _, err := s.itemRepo.GetByID(ctx, swap.TargetItemID); err != nil {
		return nil, err
	}
	if _, err := s.itemRepo.GetByID(ctx, swap.OfferedItemID); err != nil {
		return nil, err
	}

	ok, err := s.swapRepo.UpdateStatus(ctx, swapID, models.SwapStatusPending, models.SwapStatusCancelled)
	if err != nil {
		observability.SwapTransitions.WithLabelValues("cancel", "error").Inc()
		return nil, err
	}
	if !ok {
		observability.SwapTransitions.WithLabelValues("cancel", "conflict").Inc()
		return nil, models.NewConflictError("Swap is not pending")
	}

	if err := s.releaseItems(ctx, swap); err != nil {
		observability.SwapTransitions.WithLabelValues("cancel", "error").Inc()
		return nil, err
	}

	observability.SwapTransitions.WithLabelValues("cancel", "ok").Inc()
	s.notify(ctx, swap.TargetUserID, EventSwapCancelled, swap)

	return s.swapRepo.GetByID(ctx, swapID)
}

// Complete marks an accepted swap as completed. Either participant may
// confirm. The reward was already credited at accept time; this is a
// terminal marker only.
func (s *SwapService) Complete(ctx context.Context, actingUserID, swapID uint) (*models.Swap, error) {
	swap, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if !swap.HasParticipant(actingUserID) {
		observability.SwapTransitions.WithLabelValues("complete", "forbidden").Inc()
		return nil, models.NewForbiddenError("Only a participant can complete this swap")
	}
	if swap.Status != models.SwapStatusAccepted {
		observability.SwapTransitions.WithLabelValues("complete", "conflict").Inc()
		return nil, models.NewConflictError("Swap is not accepted")
	}

	ok, err := s.swapRepo.UpdateStatus(ctx, swapID, models.SwapStatusAccepted, models.SwapStatusCompleted)
	if err != nil {
		observability.SwapTransitions.WithLabelValues("complete", "error").Inc()
		return nil, err
	}
	if !ok {
		observability.SwapTransitions.WithLabelValues("complete", "conflict").Inc()
		return nil, models.NewConflictError("Swap is not accepted")
	}

	observability.SwapTransitions.WithLabelValues("complete", "ok").Inc()
	other := swap.InitiatorID
	if actingUserID == swap.InitiatorID {
		other = swap.TargetUserID
	}
	s.notify(ctx, other, EventSwapCompleted, swap)

	return s.swapRepo.GetByID(ctx, swapID)
}

// abortProposal compensates a proposal that lost an item claim: the lock
// already taken, if any, is released and the just-created swap is cancelled.
// Compensation is best-effort; a failed step is logged and left to the
// reconciliation pass.
func (s *SwapService) abortProposal(ctx context.Context, swapID, lockedItemID uint) {
	if lockedItemID != 0 {
		if _, err := s.itemRepo.UpdateStatus(ctx, lockedItemID, models.ItemStatusPendingSwap, models.ItemStatusAvailable); err != nil {
			middleware.Logger.ErrorContext(ctx, "failed to release item after lost proposal",
				"swap_id", swapID, "item_id", lockedItemID, "error", err)
		}
	}
	if ok, err := s.swapRepo.UpdateStatus(ctx, swapID, models.SwapStatusPending, models.SwapStatusCancelled); err != nil || !ok {
		middleware.Logger.ErrorContext(ctx, "failed to cancel swap after lost proposal",
			"swap_id", swapID, "updated", ok, "error", err)
	}
}

// revertAccept restores the pre-accept state after a lost item claim: an
// item already marked swapped, if any, goes back to pending_swap and the
// swap returns to pending.
func (s *SwapService) revertAccept(ctx context.Context, swapID, claimedItemID uint) {
	if claimedItemID != 0 {
		if _, err := s.itemRepo.UpdateStatus(ctx, claimedItemID, models.ItemStatusSwapped, models.ItemStatusPendingSwap); err != nil {
			middleware.Logger.ErrorContext(ctx, "failed to revert item claim after lost accept",
				"swap_id", swapID, "item_id", claimedItemID, "error", err)
		}
	}
	if ok, err := s.swapRepo.UpdateStatus(ctx, swapID, models.SwapStatusAccepted, models.SwapStatusPending); err != nil || !ok {
		middleware.Logger.ErrorContext(ctx, "failed to revert swap status after lost accept",
			"swap_id", swapID, "updated", ok, "error", err)
	}
}

// releaseItems returns a swap's items to available. A lost condition is
// logged, not fatal: the item drifted from the expected state and the
// reconciliation pass owns drift.
func (s *SwapService) releaseItems(ctx context.Context, swap *models.Swap) error {
	for _, itemID := range []uint{swap.TargetItemID, swap.OfferedItemID} {
		ok, err := s.itemRepo.UpdateStatus(ctx, itemID, models.ItemStatusPendingSwap, models.ItemStatusAvailable)
		if err != nil {
			return err
		}
		if !ok {
			middleware.Logger.WarnContext(ctx, "item status drifted during swap release",
				"swap_id", swap.ID, "item_id", itemID)
		}
	}
	return nil
}

// GetSwap returns one swap with item snapshots. Participants only.
func (s *SwapService) GetSwap(ctx context.Context, userID, swapID uint) (*models.Swap, error) {
	swap, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if !swap.HasParticipant(userID) {
		return nil, models.NewForbiddenError("You are not a participant in this swap")
	}
	s.attachItems(ctx, swap)
	return swap, nil
}

// GetUserSwaps returns every swap the user participates in, newest first,
// each joined with its item snapshots. A failed item lookup is logged and
// the swap is still returned with that field unset.
func (s *SwapService) GetUserSwaps(ctx context.Context, userID uint) ([]models.Swap, error) {
	swaps, err := s.swapRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range swaps {
		s.attachItems(ctx, &swaps[i])
	}
	return swaps, nil
}

// GetPendingSwaps returns the user's swaps still awaiting a decision.
func (s *SwapService) GetPendingSwaps(ctx context.Context, userID uint) ([]models.Swap, error) {
	return s.filterSwaps(ctx, userID, models.SwapStatusPending)
}

// GetCompletedSwaps returns the user's completed swaps.
func (s *SwapService) GetCompletedSwaps(ctx context.Context, userID uint) ([]models.Swap, error) {
	return s.filterSwaps(ctx, userID, models.SwapStatusCompleted)
}

func (s *SwapService) filterSwaps(ctx context.Context, userID uint, status models.SwapStatus) ([]models.Swap, error) {
	swaps, err := s.swapRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	filtered := make([]models.Swap, 0, len(swaps))
	for i := range swaps {
		if swaps[i].Status != status {
			continue
		}
		s.attachItems(ctx, &swaps[i])
		filtered = append(filtered, swaps[i])
	}
	return filtered, nil
}

// GetSwapStats counts the user's swaps by status.
func (s *SwapService) GetSwapStats(ctx context.Context, userID uint) (*models.SwapStats, error) {
	swaps, err := s.swapRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := &models.SwapStats{Total: len(swaps)}
	for i := range swaps {
		switch swaps[i].Status {
		case models.SwapStatusPending:
			stats.Pending++
		case models.SwapStatusAccepted:
			stats.Accepted++
		case models.SwapStatusCompleted:
			stats.Completed++
		case models.SwapStatusRejected:
			stats.Rejected++
		case models.SwapStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (s *SwapService) attachItems(ctx context.Context, swap *models.Swap) {
	if item, err := s.itemRepo.GetByID(ctx, swap.TargetItemID); err == nil {
		swap.TargetItem = item
	} else {
		middleware.Logger.WarnContext(ctx, "swap item lookup failed",
			"swap_id", swap.ID, "item_id", swap.TargetItemID, "error", err)
	}
	if item, err := s.itemRepo.GetByID(ctx, swap.OfferedItemID); err == nil {
		swap.OfferedItem = item
	} else {
		middleware.Logger.WarnContext(ctx, "swap item lookup failed",
			"swap_id", swap.ID, "item_id", swap.OfferedItemID, "error", err)
	}
}

// RepairOrphanedPendingItems resets items stuck in pending_swap with no
// pending or accepted swap referencing them. Returns how many were reset.
func (s *SwapService) RepairOrphanedPendingItems(ctx context.Context) (int, error) {
	items, err := s.itemRepo.ListByStatus(ctx, models.ItemStatusPendingSwap)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for i := range items {
		active, err := s.swapRepo.HasActiveForItem(ctx, items[i].ID)
		if err != nil {
			return repaired, err
		}
		if active {
			continue
		}
		ok, err := s.itemRepo.UpdateStatus(ctx, items[i].ID, models.ItemStatusPendingSwap, models.ItemStatusAvailable)
		if err != nil {
			return repaired, err
		}
		if ok {
			repaired++
			observability.OrphanedItemsRepaired.Inc()
			middleware.Logger.InfoContext(ctx, "repaired orphaned pending item", "item_id", items[i].ID)
		}
	}
	return repaired, nil
}
