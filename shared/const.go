package shared

import "time"

const (
	// Burst control: per-identifier sliding window.
	BurstWindowSize  = 60 * time.Second
	BurstMaxRequests = 20

	// Daily quota enforced through the ledger.
	DailyMessageLimit = 50

	// Capacity ceilings for the persisted conversation store.
	MaxSessions           = 50
	MaxMessagesPerSession = 100

	// Eviction policy: image payloads survive only on the most recent
	// messages of a session; a degraded store keeps at most this many
	// sessions.
	EvictionRecentImageWindow = 10
	EvictionMaxSessions       = 20

	// Storage medium default budget (overridable via STORAGE_CAPACITY_BYTES).
	DefaultStorageCapacityBytes = 5 * 1024 * 1024

	// Blob keys for the persisted collections.
	BlobKeySessions = "chat_sessions"
	BlobKeySettings = "app_settings"

	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"

	ChatModeTutor = "tutor"
	ChatModeQuiz  = "quiz"

	// fiber.Ctx locals key carrying the admission result into handlers.
	AdmissionResultKey = "admission_result"
)
