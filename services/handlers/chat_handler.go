package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mathpal-app/mathpal_api/dto"
	"github.com/mathpal-app/mathpal_api/shared"
)

type ChatHandler struct {
	chatSvc      ChatServiceInterface
	admissionSvc AdmissionServiceInterface
}

func NewChatHandler(chatSvc ChatServiceInterface, admissionSvc AdmissionServiceInterface) *ChatHandler {
	return &ChatHandler{
		chatSvc:      chatSvc,
		admissionSvc: admissionSvc,
	}
}

// @Summary Send Chat Message
// @Description Sends a student message and returns the tutor reply. Subject to burst and daily quota admission.
// @Tags chat
// @Accept  json
// @Produce json
// @Param sendMessageRequest body dto.SendMessageRequest true "Message to send"
// @Success 200 {object} shared.Response{data=dto.SendMessageResponse}
// @Failure 429 {object} shared.Response
// @Router /api/v1/chat [post]
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	admission, _ := c.Locals(shared.AdmissionResultKey).(dto.AdmissionResult)

	response, err := h.chatSvc.SendMessage(c.Context(), req, admission)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, response)
}

// @Summary Get Quota Status
// @Description Read-only daily quota snapshot for the calling client; never consumes quota.
// @Tags chat
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=dto.QuotaStatus}
// @Router /api/v1/quota [get]
func (h *ChatHandler) GetQuotaStatus(c *fiber.Ctx) error {
	status := h.admissionSvc.PeekQuotaStatus(c.Context(), shared.ClientIP(c))
	return shared.ResponseOK(c, status)
}
