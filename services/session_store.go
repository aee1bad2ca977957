package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/mathpal-app/mathpal_api/dto"
	"github.com/mathpal-app/mathpal_api/model"
	"github.com/mathpal-app/mathpal_api/shared"
)

// BlobStore is the capacity-bounded persistence medium backing the session
// store. PutBlob fails with shared.ErrStorageCapacityExceeded when a write
// would exceed the byte budget.
type BlobStore interface {
	GetBlob(key string) ([]byte, bool, error)
	PutBlob(key string, value []byte) error
	DeleteBlob(key string) error
	ProbeBlob() error
}

// SessionStoreService keeps the conversation history inside hard capacity
// ceilings: at most MaxSessions sessions, at most MaxMessagesPerSession
// messages each, and a byte budget on the medium itself. Writes that hit
// the byte budget trigger eviction and exactly one retry; a still-failing
// retry surfaces the error instead of silently losing the write.
//
// The store is single-writer by contract; a mutex scopes each logical
// storage operation, including its eviction-then-retry sequence.
type SessionStoreService struct {
	context.DefaultService

	blobs BlobStore
	mutex sync.Mutex
}

const SESSION_STORE_SVC = "session_store_svc"

func (svc SessionStoreService) Id() string {
	return SESSION_STORE_SVC
}

func (svc *SessionStoreService) Configure(ctx *context.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *SessionStoreService) Start() error {
	svc.blobs = svc.Service(SQLITE_SVC).(*SqliteService)
	return nil
}

// ==================== SESSIONS ====================

// SaveSession upserts a session at the front of the collection. Reports
// whether eviction pruned stored data to make the write fit.
func (svc *SessionStoreService) SaveSession(session *model.ChatSession) (bool, error) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	now := time.Now()
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	if overflow := len(session.Messages) - shared.MaxMessagesPerSession; overflow > 0 {
		session.Messages = session.Messages[overflow:]
	}

	sessions := svc.loadSessions()

	kept := sessions[:0]
	for _, existing := range sessions {
		if existing.ID != session.ID {
			kept = append(kept, existing)
		}
	}

	sessions = append([]model.ChatSession{*session}, kept...)
	if len(sessions) > shared.MaxSessions {
		sessions = sessions[:shared.MaxSessions]
	}

	return svc.persistSessions(sessions)
}

func (svc *SessionStoreService) GetSession(id string) *model.ChatSession {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	return findSession(svc.loadSessions(), id)
}

func (svc *SessionStoreService) ListSessions() []model.ChatSession {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	return svc.loadSessions()
}

// CurrentSession resolves through Settings.LastActiveSession and falls back
// to the most recently updated session.
func (svc *SessionStoreService) CurrentSession() *model.ChatSession {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	sessions := svc.loadSessions()
	settings := svc.loadSettings()

	if settings.LastActiveSession != "" {
		if session := findSession(sessions, settings.LastActiveSession); session != nil {
			return session
		}
	}

	if len(sessions) > 0 {
		session := sessions[0]
		return &session
	}
	return nil
}

func (svc *SessionStoreService) DeleteSession(id string) (bool, error) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	sessions := svc.loadSessions()
	kept := sessions[:0]
	found := false
	for _, session := range sessions {
		if session.ID == id {
			found = true
			continue
		}
		kept = append(kept, session)
	}

	if !found {
		return false, nil
	}

	_, err := svc.persistSessions(kept)
	return true, err
}

// AppendMessage adds one message to a session (creating it when absent),
// enforcing the per-session message cap and moving the session to the
// front. The eviction-then-retry sequence completes inside the same
// critical section as the append.
func (svc *SessionStoreService) AppendMessage(sessionID, mode string, message model.ChatMessage) (*model.ChatSession, bool, error) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	now := time.Now()
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = now
	}

	sessions := svc.loadSessions()

	var session model.ChatSession
	kept := sessions[:0]
	found := false
	for _, existing := range sessions {
		if existing.ID == sessionID {
			session = existing
			found = true
			continue
		}
		kept = append(kept, existing)
	}

	if !found {
		if mode == "" {
			mode = svc.loadSettings().DefaultMode
		}
		session = model.ChatSession{
			ID:        sessionID,
			Title:     sessionTitle(message.Content),
			Mode:      mode,
			CreatedAt: now,
		}
	}

	session.Messages = append(session.Messages, message)
	if overflow := len(session.Messages) - shared.MaxMessagesPerSession; overflow > 0 {
		session.Messages = session.Messages[overflow:]
	}
	session.UpdatedAt = now

	sessions = append([]model.ChatSession{session}, kept...)
	if len(sessions) > shared.MaxSessions {
		sessions = sessions[:shared.MaxSessions]
	}

	evicted, err := svc.persistSessions(sessions)
	if err != nil {
		return nil, evicted, err
	}
	return &session, evicted, nil
}

// ==================== SETTINGS ====================

func (svc *SessionStoreService) GetSettings() model.Settings {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	return svc.loadSettings()
}

// UpdateSettings merges the supplied fields into the stored singleton.
func (svc *SessionStoreService) UpdateSettings(req dto.UpdateSettingsRequest) (model.Settings, error) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	settings := svc.loadSettings()

	if req.Theme != nil {
		settings.Theme = *req.Theme
	}
	if req.DefaultMode != nil {
		settings.DefaultMode = *req.DefaultMode
	}
	if req.SidebarOpen != nil {
		settings.SidebarOpen = *req.SidebarOpen
	}
	if req.DisplayName != nil {
		settings.DisplayName = *req.DisplayName
	}
	if req.LastActiveSession != nil {
		settings.LastActiveSession = *req.LastActiveSession
	}

	return settings, svc.persistSettings(settings)
}

func (svc *SessionStoreService) SetLastActiveSession(id string) error {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	settings := svc.loadSettings()
	settings.LastActiveSession = id
	return svc.persistSettings(settings)
}

// ==================== PERSISTENCE ====================

func (svc *SessionStoreService) loadSessions() []model.ChatSession {
	data, found, err := svc.blobs.GetBlob(shared.BlobKeySessions)
	if err != nil {
		log.WithError(err).Error("Session blob read failed")
		return nil
	}
	if !found {
		return nil
	}

	var sessions []model.ChatSession
	if err := shared.JSONUnmarshal(data, &sessions); err != nil {
		// Corrupt local state must never block startup; reset to empty.
		log.WithError(err).Warn("Session blob corrupt, resetting to empty collection")
		return nil
	}
	return sessions
}

// persistSessions writes the collection, running the eviction policy and a
// single bounded retry when the medium rejects the write for capacity.
func (svc *SessionStoreService) persistSessions(sessions []model.ChatSession) (bool, error) {
	evicted := false

	if err := svc.blobs.ProbeBlob(); errors.Is(err, shared.ErrStorageCapacityExceeded) {
		sessions = evict(sessions)
		evicted = true
	}

	err := svc.putSessions(sessions)
	if errors.Is(err, shared.ErrStorageCapacityExceeded) && !evicted {
		sessions = evict(sessions)
		evicted = true
		err = svc.putSessions(sessions)
	}

	if err != nil {
		if errors.Is(err, shared.ErrStorageCapacityExceeded) {
			storageWriteFailuresTotal.Inc()
		}
		return evicted, fmt.Errorf("session store write failed: %w", err)
	}
	return evicted, nil
}

func (svc *SessionStoreService) putSessions(sessions []model.ChatSession) error {
	data, err := shared.JSONMarshal(sessions)
	if err != nil {
		return err
	}
	return svc.blobs.PutBlob(shared.BlobKeySessions, data)
}

func (svc *SessionStoreService) loadSettings() model.Settings {
	settings := model.DefaultSettings()

	data, found, err := svc.blobs.GetBlob(shared.BlobKeySettings)
	if err != nil {
		log.WithError(err).Error("Settings blob read failed")
		return settings
	}
	if !found {
		return settings
	}

	if err := shared.JSONUnmarshal(data, &settings); err != nil {
		log.WithError(err).Warn("Settings blob corrupt, using defaults")
		return model.DefaultSettings()
	}
	return settings
}

func (svc *SessionStoreService) persistSettings(settings model.Settings) error {
	data, err := shared.JSONMarshal(settings)
	if err != nil {
		return err
	}
	return svc.blobs.PutBlob(shared.BlobKeySettings, data)
}

// ==================== HELPERS ====================

func findSession(sessions []model.ChatSession, id string) *model.ChatSession {
	for i := range sessions {
		if sessions[i].ID == id {
			session := sessions[i]
			return &session
		}
	}
	return nil
}

func sessionTitle(content string) string {
	const maxTitle = 40

	// Truncate on runes so multi-byte content keeps a valid title.
	runes := []rune(content)
	if len(runes) > maxTitle {
		runes = runes[:maxTitle]
	}
	title := string(runes)
	if title == "" {
		title = "New conversation"
	}
	return title
}
