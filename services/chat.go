package services

import (
	"context"

	appContext "github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/mathpal-app/mathpal_api/dto"
	"github.com/mathpal-app/mathpal_api/model"
	"github.com/mathpal-app/mathpal_api/shared"
)

// TutorClient produces the assistant reply for a session transcript.
type TutorClient interface {
	Complete(ctx context.Context, session *model.ChatSession) (string, error)
}

// ChatService drives one admitted chat exchange: persist the student
// message, fetch the tutor reply, persist it, and keep the settings pointer
// at the active session.
type ChatService struct {
	appContext.DefaultService

	storeSvc *SessionStoreService
	tutor    TutorClient
}

const CHAT_SVC = "chat_svc"

func (svc ChatService) Id() string {
	return CHAT_SVC
}

func (svc *ChatService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *ChatService) Start() error {
	svc.storeSvc = svc.Service(SESSION_STORE_SVC).(*SessionStoreService)
	svc.tutor = svc.Service(TUTOR_SVC).(*TutorService)
	return nil
}

const storagePrunedWarning = "Storage was full; older conversation data may have been pruned."

func (svc *ChatService) SendMessage(ctx context.Context, req dto.SendMessageRequest, admission dto.AdmissionResult) (*dto.SendMessageResponse, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	userMessage := model.ChatMessage{
		Role:    shared.MessageRoleUser,
		Content: req.Content,
		Image:   req.Image,
	}

	session, evictedOnUser, err := svc.storeSvc.AppendMessage(sessionID, req.Mode, userMessage)
	if err != nil {
		return nil, err
	}

	reply, err := svc.tutor.Complete(ctx, session)
	if err != nil {
		return nil, err
	}

	assistantMessage := model.ChatMessage{
		Role:    shared.MessageRoleAssistant,
		Content: reply,
	}

	_, evictedOnReply, err := svc.storeSvc.AppendMessage(sessionID, session.Mode, assistantMessage)
	if err != nil {
		return nil, err
	}

	if err := svc.storeSvc.SetLastActiveSession(sessionID); err != nil {
		log.WithError(err).Warn("Failed to update last active session")
	}

	response := &dto.SendMessageResponse{
		SessionID:      sessionID,
		Reply:          reply,
		Remaining:      admission.Remaining,
		DailyRemaining: admission.DailyRemaining,
	}
	if evictedOnUser || evictedOnReply {
		response.StorageWarning = storagePrunedWarning
	}

	return response, nil
}
