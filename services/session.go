package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"songdrop/library"
	"songdrop/types"
	"songdrop/websocket"
)

// ErrImportActive is returned when a batch is started while another one is
// still running; the pipeline allows a single active import by design.
var ErrImportActive = errors.New("an import batch is already running")

// ErrNoPendingConflict is returned when a decision arrives with nothing
// awaiting one.
var ErrNoPendingConflict = errors.New("no duplicate conflict is awaiting a decision")

// Session owns one app run's ingestion pipeline: the inbox, the upload
// listener, and the sequencer. It exists so nothing in the system is a
// process-wide singleton; the UI layer holds a handle to the session and
// nothing else.
type Session struct {
	Library  library.Library
	Inbox    Inbox
	Hub      websocket.Hub
	Listener Listener

	sequencer Sequencer

	mu        sync.Mutex
	active    bool
	cancel    context.CancelFunc
	decisions chan types.Decision
	conflict  *types.DuplicateConflict
	summary   *types.BatchSummary
}

// NewSession wires a session; the listener is attached afterwards because
// it needs the fully routed handler.
func NewSession(lib library.Library, inbox Inbox, hub websocket.Hub) *Session {
	return &Session{
		Library:   lib,
		Inbox:     inbox,
		Hub:       hub,
		sequencer: NewSequencer(lib, inbox, hub),
	}
}

// StartImport launches a batch over the given received-file ids in inbox
// order, or over the current selection when ids is empty. It returns once
// the batch goroutine is running; progress flows through the hub and the
// status endpoints.
func (s *Session) StartImport(ids []string) error {
	files, err := s.resolve(ids)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrImportActive
	}
	s.active = true
	s.summary = nil
	s.conflict = nil
	s.decisions = make(chan types.Decision, 1)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		summary, err := s.sequencer.Run(ctx, files, s.awaitDecision)
		if err != nil {
			log.Printf("Import batch ended early: %v", err)
		}

		s.mu.Lock()
		s.summary = summary
		s.active = false
		s.conflict = nil
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	return nil
}

// resolve maps ids to inbox records, preserving inbox arrival order for
// explicit selections too.
func (s *Session) resolve(ids []string) ([]*types.ReceivedFile, error) {
	if len(ids) == 0 {
		return s.Inbox.Selected(), nil
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.Inbox.Get(id); !ok {
			return nil, fmt.Errorf("no received file with id %s", id)
		}
		wanted[id] = true
	}

	var files []*types.ReceivedFile
	for _, f := range s.Inbox.List() {
		if wanted[f.ID] {
			files = append(files, f)
		}
	}
	return files, nil
}

// awaitDecision is the sequencer's DecisionFunc in server mode: park the
// conflict where the status endpoint can see it and wait for Decide or
// cancellation.
func (s *Session) awaitDecision(ctx context.Context, conflict types.DuplicateConflict) (types.Decision, error) {
	s.mu.Lock()
	c := conflict
	s.conflict = &c
	ch := s.decisions
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conflict = nil
		s.mu.Unlock()
	}()

	select {
	case decision := <-ch:
		return decision, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Decide resolves the pending duplicate conflict. Exactly one decision
// consumes a conflict.
func (s *Session) Decide(decision types.Decision) error {
	if decision != types.DecisionForce && decision != types.DecisionSkip {
		return fmt.Errorf("unknown decision %q", decision)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflict == nil {
		return ErrNoPendingConflict
	}
	s.conflict = nil

	select {
	case s.decisions <- decision:
		return nil
	default:
		return ErrNoPendingConflict
	}
}

// CancelImport abandons the running batch at the next file boundary.
// Already-imported files stay imported.
func (s *Session) CancelImport() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

// Status reports whether a batch is running, any conflict awaiting a
// decision, and the last completed summary.
func (s *Session) Status() (bool, *types.DuplicateConflict, *types.BatchSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var conflict *types.DuplicateConflict
	if s.conflict != nil {
		c := *s.conflict
		conflict = &c
	}
	return s.active, conflict, s.summary
}

// Close stops the listener and abandons any running batch. Staged files
// stay on disk.
func (s *Session) Close() {
	s.CancelImport()
	if s.Listener != nil {
		if err := s.Listener.Stop(); err != nil {
			log.Printf("Warning: listener stop: %v", err)
		}
	}
}
