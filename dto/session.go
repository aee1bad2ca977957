package dto

import "github.com/mathpal-app/mathpal_api/model"

type SaveSessionRequest struct {
	ID       string              `json:"id" validate:"omitempty,uuid4"`
	Title    string              `json:"title" validate:"required,min=1,max=200"`
	Mode     string              `json:"mode" validate:"omitempty,oneof=tutor quiz"`
	Messages []model.ChatMessage `json:"messages" validate:"omitempty,dive"`
}

func (c SaveSessionRequest) Validate() error {
	return GetValidator().Struct(c)
}

type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// SessionSummary omits message bodies for list views.
type SessionSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Mode         string `json:"mode"`
	MessageCount int    `json:"message_count"`
	UpdatedAt    int64  `json:"updated_at"`
}

type UpdateSettingsRequest struct {
	Theme             *string `json:"theme" validate:"omitempty,oneof=light dark"`
	DefaultMode       *string `json:"default_mode" validate:"omitempty,oneof=tutor quiz"`
	SidebarOpen       *bool   `json:"sidebar_open"`
	DisplayName       *string `json:"display_name" validate:"omitempty,max=60"`
	LastActiveSession *string `json:"last_active_session" validate:"omitempty,uuid4"`
}

func (c UpdateSettingsRequest) Validate() error {
	return GetValidator().Struct(c)
}
