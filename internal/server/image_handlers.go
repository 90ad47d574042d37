package server

import (
	"io"
	"mime/multipart"
	"strings"

	"threadswap/internal/models"
	"threadswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadImages handles POST /api/images (multipart form, field "images").
// @Summary Upload item photos
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} object{refs=[]string}
// @Failure 400 {object} models.ErrorResponse
// @Router /images [post]
func (s *Server) UploadImages(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Multipart form required"))
	}

	headers := form.File["images"]
	if len(headers) == 0 {
		// Single-file clients use the "image" field
		headers = form.File["image"]
	}
	if len(headers) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No files uploaded"))
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, h := range headers {
		content, err := readUpload(h)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unable to read uploaded file"))
		}
		files = append(files, service.UploadFile{
			Filename:    h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Content:     content,
		})
	}

	refs, err := s.imageService.Store(c.UserContext(), currentUserID(c), files)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"refs": refs,
	})
}

// ServeImage handles GET /api/images/:hash. Optional ?w= selects the
// smallest variant at least that wide; ?format= prefers webp or jpg.
func (s *Server) ServeImage(c *fiber.Ctx) error {
	hash := strings.TrimSpace(c.Params("hash"))

	width := c.QueryInt("w", 0)
	format := c.Query("format")

	img, path, err := s.imageService.ResolveForServing(c.UserContext(), hash, width, format)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.imageService.UpdateLastAccessed(c.UserContext(), img.ID)

	// Content hashes never change, so the blob is immutable
	c.Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.SendFile(path)
}

func readUpload(h *multipart.FileHeader) ([]byte, error) {
	src, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	return io.ReadAll(src)
}
