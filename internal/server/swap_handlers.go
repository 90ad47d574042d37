package server

import (
	"threadswap/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateSwap handles POST /api/swaps
// @Summary Propose a swap
// @Description Offer one of your items for someone else's item
// @Tags swaps
// @Accept json
// @Produce json
// @Param request body object{target_item_id=int,offered_item_id=int,message=string} true "Swap proposal"
// @Success 201 {object} models.Swap
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /swaps [post]
func (s *Server) CreateSwap(c *fiber.Ctx) error {
	var req struct {
		TargetItemID  uint   `json:"target_item_id"`
		OfferedItemID uint   `json:"offered_item_id"`
		Message       string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.TargetItemID == 0 || req.OfferedItemID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Target and offered item IDs are required"))
	}

	swap, err := s.swapService.Propose(c.UserContext(), currentUserID(c),
		req.TargetItemID, req.OfferedItemID, req.Message)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(swap)
}

// GetSwaps handles GET /api/swaps, optionally filtered by ?status=.
// @Summary List the caller's swaps
// @Tags swaps
// @Produce json
// @Param status query string false "pending or completed"
// @Success 200 {array} models.Swap
// @Router /swaps [get]
func (s *Server) GetSwaps(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var (
		swaps []models.Swap
		err   error
	)
	switch c.Query("status") {
	case "":
		swaps, err = s.swapService.GetUserSwaps(c.UserContext(), userID)
	case string(models.SwapStatusPending):
		swaps, err = s.swapService.GetPendingSwaps(c.UserContext(), userID)
	case string(models.SwapStatusCompleted):
		swaps, err = s.swapService.GetCompletedSwaps(c.UserContext(), userID)
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unsupported status filter"))
	}
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(swaps)
}

// GetSwapStats handles GET /api/swaps/stats
func (s *Server) GetSwapStats(c *fiber.Ctx) error {
	stats, err := s.swapService.GetSwapStats(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(stats)
}

// GetSwap handles GET /api/swaps/:id
func (s *Server) GetSwap(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	swap, err := s.swapService.GetSwap(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(swap)
}

// AcceptSwap handles POST /api/swaps/:id/accept
// @Summary Accept a pending swap
// @Description Only the target owner may accept; items trade hands and both parties earn points
// @Tags swaps
// @Produce json
// @Success 200 {object} models.Swap
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /swaps/{id}/accept [post]
func (s *Server) AcceptSwap(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	swap, err := s.swapService.Accept(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(swap)
}

// RejectSwap handles POST /api/swaps/:id/reject
func (s *Server) RejectSwap(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	swap, err := s.swapService.Reject(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(swap)
}

// CancelSwap handles POST /api/swaps/:id/cancel
func (s *Server) CancelSwap(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	swap, err := s.swapService.Cancel(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(swap)
}

// CompleteSwap handles POST /api/swaps/:id/complete
func (s *Server) CompleteSwap(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	swap, err := s.swapService.Complete(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(swap)
}
