package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	appContext "github.com/alphabatem/common/context"

	"github.com/mathpal-app/mathpal_api/model"
	"github.com/mathpal-app/mathpal_api/shared"
)

// TutorService is the thin client for the external chat/completion backend.
// The backend itself is a collaborator outside this service's scope; only
// the request/response shape is fixed here.
type TutorService struct {
	appContext.DefaultService

	httpClient *http.Client
	backendURL string
}

const TUTOR_SVC = "tutor_svc"

type tutorCompletionRequest struct {
	Mode     string         `json:"mode"`
	Messages []tutorMessage `json:"messages"`
}

type tutorMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

type tutorCompletionResponse struct {
	Reply string `json:"reply"`
}

func (svc TutorService) Id() string {
	return TUTOR_SVC
}

func (svc *TutorService) Configure(ctx *appContext.Context) error {
	svc.httpClient = &http.Client{
		Timeout: 60 * time.Second,
	}
	svc.backendURL = os.Getenv("CHAT_BACKEND_URL")
	return svc.DefaultService.Configure(ctx)
}

func (svc *TutorService) Start() error {
	return nil
}

// Complete sends the session transcript to the tutoring backend and returns
// the assistant reply.
func (svc *TutorService) Complete(ctx context.Context, session *model.ChatSession) (string, error) {
	if svc.backendURL == "" {
		return "", shared.NewAppError(http.StatusServiceUnavailable, nil, "Chat backend not configured")
	}

	payload := tutorCompletionRequest{
		Mode:     session.Mode,
		Messages: make([]tutorMessage, 0, len(session.Messages)),
	}
	for _, message := range session.Messages {
		payload.Messages = append(payload.Messages, tutorMessage{
			Role:    message.Role,
			Content: message.Content,
			Image:   message.Image,
		})
	}

	body, err := shared.JSONMarshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.backendURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat backend returned status %d", resp.StatusCode)
	}

	var completion tutorCompletionResponse
	if err := shared.JSONUnmarshal(readAll(resp), &completion); err != nil {
		return "", fmt.Errorf("chat backend response malformed: %w", err)
	}

	return completion.Reply, nil
}

func readAll(resp *http.Response) []byte {
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	return buf.Bytes()
}
