package server

import (
	"threadswap/internal/models"
	"threadswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
// @Summary Get the authenticated profile
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Bio      string `json:"bio"`
		Avatar   string `json:"avatar"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:   currentUserID(c),
		Username: req.Username,
		Bio:      req.Bio,
		Avatar:   req.Avatar,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(user)
}

// GetMyStats handles GET /api/users/me/stats
// @Summary Exchange activity dashboard for the authenticated user
// @Tags users
// @Produce json
// @Success 200 {object} models.UserStats
// @Router /users/me/stats [get]
func (s *Server) GetMyStats(c *fiber.Ctx) error {
	stats, err := s.userService.GetStats(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(stats)
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUserByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(user)
}

// GetAllUsers handles GET /api/users
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	pagination := parsePagination(c, 50)

	users, err := s.userService.ListUsers(c.UserContext(), pagination.Limit, pagination.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(users)
}

// GetLeaderboard handles GET /api/users/leaderboard
// @Summary Top point earners
// @Tags users
// @Produce json
// @Param limit query int false "Number of entries, max 100"
// @Success 200 {array} models.User
// @Router /users/leaderboard [get]
func (s *Server) GetLeaderboard(c *fiber.Ctx) error {
	users, err := s.userService.Leaderboard(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(users)
}
