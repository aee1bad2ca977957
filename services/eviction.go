package services

import (
	log "github.com/sirupsen/logrus"

	"github.com/mathpal-app/mathpal_api/model"
	"github.com/mathpal-app/mathpal_api/shared"
)

// Eviction degrades the stored conversations in a fixed, cheapest-first
// order when the storage medium runs out of budget:
//
//	phase 1: drop image payloads everywhere except each session's most
//	         recent messages (text survives)
//	phase 2: if the collection still holds more than the degraded cap,
//	         keep only the most recently updated sessions
//
// Both phases are deterministic and idempotent.

// stripOldImages removes image payloads from all but the last
// EvictionRecentImageWindow messages of every session.
func stripOldImages(sessions []model.ChatSession) int {
	stripped := 0
	for i := range sessions {
		messages := sessions[i].Messages
		cutoff := len(messages) - shared.EvictionRecentImageWindow
		for j := 0; j < cutoff; j++ {
			if messages[j].Image != "" {
				messages[j].Image = ""
				stripped++
			}
		}
	}
	return stripped
}

// truncateSessions keeps the first max sessions. The collection is kept in
// most-recently-updated order, so truncation discards the stalest entries.
func truncateSessions(sessions []model.ChatSession, max int) []model.ChatSession {
	if len(sessions) <= max {
		return sessions
	}
	return sessions[:max]
}

// evict applies both phases and reports what happened.
func evict(sessions []model.ChatSession) []model.ChatSession {
	stripped := stripOldImages(sessions)
	evictionRunsTotal.WithLabelValues("image_strip").Inc()

	dropped := 0
	if len(sessions) > shared.EvictionMaxSessions {
		dropped = len(sessions) - shared.EvictionMaxSessions
		sessions = truncateSessions(sessions, shared.EvictionMaxSessions)
		evictionRunsTotal.WithLabelValues("session_truncate").Inc()
	}

	log.WithFields(log.Fields{
		"images_stripped":  stripped,
		"sessions_dropped": dropped,
	}).Warn("Storage eviction ran")

	return sessions
}
