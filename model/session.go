package model

import "time"

// ChatSession is one persisted conversation. The collection of sessions is
// stored as a single JSON document ordered most-recently-updated first; that
// order is canonical and no consumer re-sorts it.
type ChatSession struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Mode      string        `json:"mode"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ChatMessage is immutable after creation except for eviction-driven
// removal of its image payload.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Settings is the per-client singleton, merged (never replaced) on partial
// update.
type Settings struct {
	Theme             string `json:"theme"`
	DefaultMode       string `json:"default_mode"`
	SidebarOpen       bool   `json:"sidebar_open"`
	DisplayName       string `json:"display_name,omitempty"`
	LastActiveSession string `json:"last_active_session,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		Theme:       "light",
		DefaultMode: "tutor",
		SidebarOpen: true,
	}
}
