package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"songdrop/format"
	"songdrop/library"
	"songdrop/types"
	"songdrop/websocket"
)

// DecisionFunc resolves a duplicate conflict. It blocks the queue until a
// decision arrives; the context cancels the wait when the batch is
// abandoned.
type DecisionFunc func(ctx context.Context, conflict types.DuplicateConflict) (types.Decision, error)

// Sequencer walks a batch of received files strictly one at a time:
// duplicate check, optional user decision, import, and a bounded recovery
// chain when the container is rejected. The summary is emitted only after
// every file reaches a terminal status.
type Sequencer interface {
	Run(ctx context.Context, files []*types.ReceivedFile, decide DecisionFunc) (*types.BatchSummary, error)
}

// sequencer implements the Sequencer interface
type sequencer struct {
	lib   library.Library
	inbox Inbox
	hub   websocket.Hub
}

// NewSequencer creates a sequencer over the given library and inbox. The
// hub may be nil; CLI mode runs without event subscribers.
func NewSequencer(lib library.Library, inbox Inbox, hub websocket.Hub) Sequencer {
	return &sequencer{
		lib:   lib,
		inbox: inbox,
		hub:   hub,
	}
}

// Run processes the batch in queue order. An empty selection returns the
// zero summary immediately without touching the duplicate detector or the
// library. Cancellation is honored between files, never mid-file, so a
// partially processed batch still leaves every touched file in a terminal
// or untouched state.
func (s *sequencer) Run(ctx context.Context, files []*types.ReceivedFile, decide DecisionFunc) (*types.BatchSummary, error) {
	summary := &types.BatchSummary{Outcomes: []types.ImportOutcome{}}
	if len(files) == 0 {
		s.broadcastSummary(summary)
		return summary, nil
	}

	var imported []string
	var runErr error

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if s.processFile(ctx, f, decide, summary) {
			imported = append(imported, f.ID)
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
	}

	// Staged bytes of imported files are only released once the whole
	// batch is done; a mid-batch crash leaves everything replayable.
	for _, id := range imported {
		if err := s.inbox.DeleteStaged(id); err != nil {
			log.Printf("Warning: could not release staged bytes for %s: %v", id, err)
		}
	}

	if summary.Succeeded > 0 {
		// RefreshFromDisk is idempotent and returns only once the rebuilt
		// view is visible, so one call after the last write is enough.
		if err := s.lib.RefreshFromDisk(); err != nil {
			log.Printf("Warning: library refresh after batch failed: %v", err)
		}
	}

	s.broadcastSummary(summary)
	return summary, runErr
}

// processFile drives one file to a terminal status and reports whether its
// staged bytes should be released after the batch.
func (s *sequencer) processFile(ctx context.Context, f *types.ReceivedFile, decide DecisionFunc, summary *types.BatchSummary) bool {
	s.transition(f, types.StatusChecking, "")

	force := false
	if exists, match := s.lib.CheckExists(f.StagedPath); exists {
		decision, err := s.awaitDecision(ctx, f, match, decide)
		if err != nil {
			// Abandoned while waiting; the file never started importing.
			s.transition(f, types.StatusReceived, "")
			return false
		}
		if decision == types.DecisionSkip {
			s.transition(f, types.StatusSkipped, "")
			summary.Processed++
			summary.Skipped++
			return false
		}
		force = true
	}

	s.transition(f, types.StatusImporting, "")

	_, err := s.importWithRecovery(f, force)

	// The library's own guard can still report a duplicate the pre-check
	// missed (it may normalize differently after a refresh), and so can a
	// retry against recovered bytes. Route it to the same decision point
	// instead of failing the file; a forced decision carries through the
	// whole retry chain.
	if ie, ok := library.AsImportError(err); ok && ie.Kind == library.DuplicateFound && !force {
		decision, derr := s.awaitDecision(ctx, f, ie.Existing, decide)
		if derr != nil {
			s.transition(f, types.StatusReceived, "")
			return false
		}
		if decision == types.DecisionSkip {
			s.transition(f, types.StatusSkipped, "")
			summary.Processed++
			summary.Skipped++
			return false
		}
		force = true
		s.transition(f, types.StatusImporting, "")
		_, err = s.importWithRecovery(f, force)
	}

	summary.Processed++
	if err != nil {
		s.transition(f, types.StatusFailed, err.Error())
		summary.Failed++
		summary.Outcomes = append(summary.Outcomes, types.ImportOutcome{Filename: f.DisplayName, Success: false})
		return false
	}

	s.transition(f, types.StatusImported, "")
	summary.Succeeded++
	summary.Outcomes = append(summary.Outcomes, types.ImportOutcome{Filename: f.DisplayName, Success: true})
	return true
}

// awaitDecision surfaces the conflict and suspends the queue cursor until
// the user answers.
func (s *sequencer) awaitDecision(ctx context.Context, f *types.ReceivedFile, existing *types.SongRef, decide DecisionFunc) (types.Decision, error) {
	s.transition(f, types.StatusAwaitingDecision, "")

	conflict := types.DuplicateConflict{Candidate: *f}
	if existing != nil {
		conflict.Existing = *existing
	}
	s.broadcast(types.EventMessage{
		Type:      types.EventConflict,
		FileID:    f.ID,
		Name:      f.DisplayName,
		Status:    types.StatusAwaitingDecision,
		Existing:  existing,
		Timestamp: time.Now(),
	})

	return decide(ctx, conflict)
}

// importWithRecovery runs one import attempt plus the bounded repair
// chain. A duplicate report passes through untouched at every stage; it is
// a branch point for the caller, not a container defect the chain could
// mend.
func (s *sequencer) importWithRecovery(f *types.ReceivedFile, force bool) (*types.SongRef, error) {
	ref, err := s.lib.ImportFile(f.StagedPath, force)
	if err == nil || isDuplicate(err) {
		return ref, err
	}
	return s.recoverAndRetry(f, force, err)
}

func isDuplicate(err error) bool {
	ie, ok := library.AsImportError(err)
	return ok && ie.Kind == library.DuplicateFound
}

// recoverAndRetry is the bounded repair chain after a rejected import: one
// container-level recovery attempt, then one frame-sync salvage, each
// followed by a single retry against a corrected temp file. Linear on
// purpose; failure propagation stays readable.
func (s *sequencer) recoverAndRetry(f *types.ReceivedFile, force bool, importErr error) (*types.SongRef, error) {
	raw, err := os.ReadFile(f.StagedPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read staged bytes: %w", err)
	}

	kind := format.DetectForRecovery(raw)
	if trimmed, rerr := format.Recover(kind, raw); rerr == nil {
		ref, err := s.retryImport(f, trimmed, kind, force)
		if err == nil || isDuplicate(err) {
			return ref, err
		}
	}

	salvaged, serr := format.SalvageFrameSync(raw)
	if serr != nil {
		return nil, fmt.Errorf("container unrecoverable (%v): %w", serr, importErr)
	}
	ref, err := s.retryImport(f, salvaged, format.MP3, force)
	if err != nil {
		if isDuplicate(err) {
			return nil, err
		}
		return nil, fmt.Errorf("recovery retries exhausted: %w", importErr)
	}
	return ref, nil
}

// retryImport writes the repaired bytes to a temp file named after the
// original with the corrected extension, retries the import once, and
// cleans up regardless of the result (a successful import has already
// copied the bytes into the library).
func (s *sequencer) retryImport(f *types.ReceivedFile, data []byte, kind format.Kind, force bool) (*types.SongRef, error) {
	dir := filepath.Join(s.inbox.StagingDir(), uuid.New().String()+"-recovered")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create recovery slot: %w", err)
	}
	defer os.RemoveAll(dir)

	base := strings.TrimSuffix(f.DisplayName, filepath.Ext(f.DisplayName))
	path := filepath.Join(dir, base+format.Extension(kind))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("cannot write recovered bytes: %w", err)
	}

	return s.lib.ImportFile(path, force)
}

// transition updates the shared record and pushes a status event.
func (s *sequencer) transition(f *types.ReceivedFile, status types.FileStatus, errMsg string) {
	f.Status = status
	s.inbox.SetStatus(f.ID, status, errMsg)
	s.broadcast(types.EventMessage{
		Type:      types.EventStatus,
		FileID:    f.ID,
		Name:      f.DisplayName,
		Status:    status,
		Message:   errMsg,
		Timestamp: time.Now(),
	})
}

func (s *sequencer) broadcastSummary(summary *types.BatchSummary) {
	s.broadcast(types.EventMessage{
		Type:      types.EventSummary,
		Summary:   summary,
		Timestamp: time.Now(),
	})
}

func (s *sequencer) broadcast(msg types.EventMessage) {
	if s.hub != nil {
		s.hub.Broadcast(msg)
	}
}
