package server

import (
	"threadswap/internal/models"
	"threadswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// itemRequest is the JSON body shared by create and update.
type itemRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Size        string            `json:"size"`
	Condition   string            `json:"condition"`
	Brand       string            `json:"brand"`
	Tags        []string          `json:"tags"`
	Images      []models.ImageRef `json:"images"`
}

// CreateItem handles POST /api/items
// @Summary List a garment
// @Tags items
// @Accept json
// @Produce json
// @Success 201 {object} models.Item
// @Failure 400 {object} models.ErrorResponse
// @Router /items [post]
func (s *Server) CreateItem(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req itemRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	item, err := s.itemService.CreateItem(c.UserContext(), userID, service.CreateItemInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Size:        req.Size,
		Condition:   req.Condition,
		Brand:       req.Brand,
		Tags:        req.Tags,
		Images:      req.Images,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

// GetItems handles GET /api/items
// @Summary Browse the catalog
// @Tags items
// @Produce json
// @Param category query string false "Category filter"
// @Param size query string false "Size filter"
// @Param condition query string false "Condition filter"
// @Param status query string false "Status filter"
// @Param user_id query int false "Owner filter"
// @Success 200 {array} models.Item
// @Router /items [get]
func (s *Server) GetItems(c *fiber.Ctx) error {
	pagination := parsePagination(c, 20)

	filter := models.ItemFilter{
		Category:  c.Query("category"),
		Size:      c.Query("size"),
		Condition: c.Query("condition"),
		Status:    models.ItemStatus(c.Query("status")),
		Limit:     pagination.Limit,
	}
	if uid := c.QueryInt("user_id", 0); uid > 0 {
		filter.UserID = uint(uid)
	}

	items, err := s.itemService.ListItems(c.UserContext(), filter)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(items)
}

// SearchItems handles GET /api/items/search
// @Summary Search the catalog
// @Tags items
// @Produce json
// @Param q query string true "Search term"
// @Success 200 {array} models.Item
// @Failure 400 {object} models.ErrorResponse
// @Router /items/search [get]
func (s *Server) SearchItems(c *fiber.Ctx) error {
	items, err := s.itemService.SearchItems(c.UserContext(), c.Query("q"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(items)
}

// GetFeaturedItems handles GET /api/items/featured
func (s *Server) GetFeaturedItems(c *fiber.Ctx) error {
	items, err := s.itemService.FeaturedItems(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(items)
}

// GetItem handles GET /api/items/:id
// @Summary Get a single listing
// @Tags items
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} models.Item
// @Failure 404 {object} models.ErrorResponse
// @Router /items/{id} [get]
func (s *Server) GetItem(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	item, err := s.itemService.GetItem(c.UserContext(), id, optionalUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(item)
}

// UpdateItem handles PUT /api/items/:id
func (s *Server) UpdateItem(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)

	var req itemRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	item, err := s.itemService.UpdateItem(c.UserContext(), userID, id, service.UpdateItemInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Size:        req.Size,
		Condition:   req.Condition,
		Brand:       req.Brand,
		Tags:        req.Tags,
		Images:      req.Images,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(item)
}

// DeleteItem handles DELETE /api/items/:id
func (s *Server) DeleteItem(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.itemService.DeleteItem(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Item deleted"})
}

// LikeItem handles POST /api/items/:id/like and toggles the caller's like.
func (s *Server) LikeItem(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	likes, liked, err := s.itemService.ToggleLike(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"likes": likes,
		"liked": liked,
	})
}

// RateItem handles POST /api/items/:id/rate
func (s *Server) RateItem(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Rating float64 `json:"rating"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	rating, total, err := s.itemService.RateItem(c.UserContext(), id, currentUserID(c), req.Rating)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"rating":        rating,
		"total_ratings": total,
	})
}
