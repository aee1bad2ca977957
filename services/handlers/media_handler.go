package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mathpal-app/mathpal_api/shared"
)

type MediaHandler struct {
	mediaSvc MediaServiceInterface
}

func NewMediaHandler(mediaSvc MediaServiceInterface) *MediaHandler {
	return &MediaHandler{mediaSvc: mediaSvc}
}

// @Summary Upload Problem Image
// @Description Uploads a photographed problem; the returned URL becomes a message's image payload.
// @Tags media
// @Accept  multipart/form-data
// @Produce json
// @Param image formData file true "Problem image (JPG, PNG, WEBP)"
// @Success 200 {object} shared.Response{data=dto.MediaUploadResponse}
// @Router /api/v1/media/image [post]
func (h *MediaHandler) UploadProblemImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return shared.NewBadRequestError(err, "Missing image file")
	}

	response, err := h.mediaSvc.UploadProblemImage(file)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, response)
}
