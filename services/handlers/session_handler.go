package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mathpal-app/mathpal_api/dto"
	"github.com/mathpal-app/mathpal_api/model"
	"github.com/mathpal-app/mathpal_api/shared"
)

type SessionHandler struct {
	storeSvc SessionStoreInterface
}

func NewSessionHandler(storeSvc SessionStoreInterface) *SessionHandler {
	return &SessionHandler{storeSvc: storeSvc}
}

// @Summary List Sessions
// @Description Lists stored conversations, most recently updated first.
// @Tags sessions
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=dto.SessionListResponse}
// @Router /api/v1/sessions [get]
func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	sessions := h.storeSvc.ListSessions()

	summaries := make([]dto.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, dto.SessionSummary{
			ID:           session.ID,
			Title:        session.Title,
			Mode:         session.Mode,
			MessageCount: len(session.Messages),
			UpdatedAt:    session.UpdatedAt.Unix(),
		})
	}

	return shared.ResponseOK(c, dto.SessionListResponse{Sessions: summaries})
}

// @Summary Save Session
// @Description Upserts a conversation. Capacity ceilings apply; the response notes when older data was pruned.
// @Tags sessions
// @Accept  json
// @Produce json
// @Param saveSessionRequest body dto.SaveSessionRequest true "Session to save"
// @Success 200 {object} shared.Response{data=model.ChatSession}
// @Router /api/v1/sessions [post]
func (h *SessionHandler) SaveSession(c *fiber.Ctx) error {
	var req dto.SaveSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	session := model.ChatSession{
		ID:       req.ID,
		Title:    req.Title,
		Mode:     req.Mode,
		Messages: req.Messages,
	}

	evicted, err := h.storeSvc.SaveSession(&session)
	if err != nil {
		return err
	}

	message := "Success"
	if evicted {
		message = "Saved; older conversation data was pruned to fit storage"
	}
	return shared.ResponseJSON(c, fiber.StatusOK, message, session)
}

// @Summary Get Current Session
// @Description Resolves the active conversation via settings, falling back to the most recent one.
// @Tags sessions
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=model.ChatSession}
// @Router /api/v1/sessions/current [get]
func (h *SessionHandler) GetCurrentSession(c *fiber.Ctx) error {
	session := h.storeSvc.CurrentSession()
	if session == nil {
		return shared.NewNotFoundError("No sessions stored")
	}
	return shared.ResponseOK(c, session)
}

// @Summary Get Session
// @Description Fetches one conversation with its messages.
// @Tags sessions
// @Accept  json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} shared.Response{data=model.ChatSession}
// @Router /api/v1/sessions/{sessionId} [get]
func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	session := h.storeSvc.GetSession(c.Params("sessionId"))
	if session == nil {
		return shared.NewNotFoundError("Session not found")
	}
	return shared.ResponseOK(c, session)
}

// @Summary Delete Session
// @Description Removes one conversation from the store.
// @Tags sessions
// @Accept  json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} shared.Response
// @Router /api/v1/sessions/{sessionId} [delete]
func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	found, err := h.storeSvc.DeleteSession(c.Params("sessionId"))
	if err != nil {
		return err
	}
	if !found {
		return shared.NewNotFoundError("Session not found")
	}
	return shared.ResponseOK(c, nil)
}

// @Summary Get Settings
// @Description Returns the client settings singleton, defaults on first access.
// @Tags settings
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=model.Settings}
// @Router /api/v1/settings [get]
func (h *SessionHandler) GetSettings(c *fiber.Ctx) error {
	return shared.ResponseOK(c, h.storeSvc.GetSettings())
}

// @Summary Update Settings
// @Description Merges the supplied fields into stored settings; omitted fields are untouched.
// @Tags settings
// @Accept  json
// @Produce json
// @Param updateSettingsRequest body dto.UpdateSettingsRequest true "Fields to update"
// @Success 200 {object} shared.Response{data=model.Settings}
// @Router /api/v1/settings [patch]
func (h *SessionHandler) UpdateSettings(c *fiber.Ctx) error {
	var req dto.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	settings, err := h.storeSvc.UpdateSettings(req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, settings)
}
