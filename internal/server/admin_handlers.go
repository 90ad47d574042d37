package server

import (
	"threadswap/internal/models"

	"github.com/gofiber/fiber/v2"
)

// RepairPendingItems handles POST /api/admin/repair-pending-items.
// It resets items stuck in pending_swap with no live swap referencing them,
// the drift a crashed transition sequence can leave behind.
func (s *Server) RepairPendingItems(c *fiber.Ctx) error {
	repaired, err := s.swapService.RepairOrphanedPendingItems(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"repaired": repaired,
	})
}
