package types

import "time"

// FileStatus tracks a received file through the import state machine.
type FileStatus string

const (
	StatusReceived         FileStatus = "received"
	StatusChecking         FileStatus = "checking"
	StatusAwaitingDecision FileStatus = "awaiting_decision"
	StatusImporting        FileStatus = "importing"
	StatusImported         FileStatus = "imported"
	StatusSkipped          FileStatus = "skipped"
	StatusFailed           FileStatus = "failed"
)

// ReceivedFile is one accepted upload, staged on disk and waiting on the
// import sequencer. The listener creates records; the sequencer owns every
// later status transition and the eventual deletion of the staged bytes.
type ReceivedFile struct {
	ID          string     `json:"id"`
	StagedPath  string     `json:"stagedPath"`
	DisplayName string     `json:"displayName"`
	SizeBytes   int64      `json:"sizeBytes"`
	ReceivedAt  time.Time  `json:"receivedAt"`
	Status      FileStatus `json:"status"`
	Selected    bool       `json:"selected"`
	Error       string     `json:"error,omitempty"`
}
