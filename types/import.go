package types

// Decision resolves a pending duplicate conflict.
type Decision string

const (
	DecisionForce Decision = "force"
	DecisionSkip  Decision = "skip"
)

// ImportOutcome records one attempted file in a batch. Append-only, never
// mutated after creation; skipped duplicates are deliberately absent.
type ImportOutcome struct {
	Filename string `json:"filename"`
	Success  bool   `json:"success"`
}

// DuplicateConflict is surfaced when the duplicate check matches an
// existing library song. Exactly one user decision consumes it.
type DuplicateConflict struct {
	Candidate ReceivedFile `json:"candidate"`
	Existing  SongRef      `json:"existing"`
}

// BatchSummary aggregates one sequencer run. Skipped files count toward
// Processed but toward neither Succeeded nor Failed, and they carry no
// outcome entry.
type BatchSummary struct {
	Processed int             `json:"processed"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Outcomes  []ImportOutcome `json:"outcomes"`
}
