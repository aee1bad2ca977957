package handlers

import (
	"context"
	"mime/multipart"

	"github.com/mathpal-app/mathpal_api/dto"
	"github.com/mathpal-app/mathpal_api/model"
)

type ChatServiceInterface interface {
	SendMessage(ctx context.Context, req dto.SendMessageRequest, admission dto.AdmissionResult) (*dto.SendMessageResponse, error)
}

type AdmissionServiceInterface interface {
	PeekQuotaStatus(ctx context.Context, identifier string) dto.QuotaStatus
}

type SessionStoreInterface interface {
	SaveSession(session *model.ChatSession) (bool, error)
	GetSession(id string) *model.ChatSession
	ListSessions() []model.ChatSession
	CurrentSession() *model.ChatSession
	DeleteSession(id string) (bool, error)
	GetSettings() model.Settings
	UpdateSettings(req dto.UpdateSettingsRequest) (model.Settings, error)
}

type MediaServiceInterface interface {
	UploadProblemImage(file *multipart.FileHeader) (*dto.MediaUploadResponse, error)
}
