package dto

import "time"

// WindowDecision is the sliding-window limiter's answer for one request.
type WindowDecision struct {
	Allowed           bool `json:"allowed"`
	Remaining         int  `json:"remaining"`
	RetryAfterSeconds int  `json:"retry_after_seconds,omitempty"`
}

// QuotaStatus is the read-only daily quota snapshot surfaced to the UI.
type QuotaStatus struct {
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetsAt  time.Time `json:"resets_at"`
}

// AdmissionResult is the combined check-and-commit decision. Exactly one of
// RetryAfterSeconds (burst rejection) or QuotaStatus (daily rejection) is
// populated on failure; DailyRemaining is advisory and anticipates the
// increment just performed.
type AdmissionResult struct {
	Success           bool         `json:"success"`
	Remaining         int          `json:"remaining"`
	DailyRemaining    *int         `json:"daily_remaining,omitempty"`
	RetryAfterSeconds *int         `json:"retry_after_seconds,omitempty"`
	QuotaStatus       *QuotaStatus `json:"quota_status,omitempty"`
}
