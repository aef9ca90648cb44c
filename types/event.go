package types

import "time"

// Event types pushed to WebSocket clients.
const (
	EventReceived = "received"
	EventStatus   = "status"
	EventConflict = "conflict"
	EventSummary  = "summary"
)

// EventMessage is one WebSocket push. Fields beyond Type and Timestamp are
// populated per event kind and omitted otherwise.
type EventMessage struct {
	Type      string        `json:"type"` // "received", "status", "conflict", "summary"
	FileID    string        `json:"fileId,omitempty"`
	Name      string        `json:"name,omitempty"`
	Status    FileStatus    `json:"status,omitempty"`
	Mime      string        `json:"mime,omitempty"`
	SizeBytes int64         `json:"sizeBytes,omitempty"`
	Message   string        `json:"message,omitempty"`
	Existing  *SongRef      `json:"existing,omitempty"`
	Summary   *BatchSummary `json:"summary,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
