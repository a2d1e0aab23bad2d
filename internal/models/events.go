package models

import (
	"github.com/google/uuid"
)

// WebSocket message types
const (
	EventSection   = "section"
	EventStats     = "stats"
	EventCompleted = "completed"
	EventError     = "error"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// SectionUpdate carries the rendered fragment for one screen section.
type SectionUpdate struct {
	ScreenID uuid.UUID `json:"screen_id"`
	Section  string    `json:"section"`
	Status   string    `json:"status"` // "ready" | "failed"
	HTML     string    `json:"html"`
}

type StatsUpdate struct {
	ScreenID uuid.UUID    `json:"screen_id"`
	Stats    SummaryStats `json:"stats"`
	Trend    ScoreTrend   `json:"trend"`
	HTML     string       `json:"html"`
}

type CompletedEvent struct {
	ScreenID uuid.UUID `json:"screen_id"`
	State    string    `json:"state"`
}

type ErrorEvent struct {
	ScreenID     uuid.UUID `json:"screen_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
	HTML         string    `json:"html,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
