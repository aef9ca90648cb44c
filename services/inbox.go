package services

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"songdrop/types"
)

// Inbox is the received-files list plus its staging directory. The upload
// listener creates entries, the import sequencer reads, transitions and
// deletes them; that single ownership rule is what keeps the two sides
// from racing over staged bytes.
type Inbox interface {
	Add(rawName string, r io.Reader) (*types.ReceivedFile, error)
	List() []*types.ReceivedFile
	Get(id string) (*types.ReceivedFile, bool)
	SetSelected(id string, selected bool) bool
	Selected() []*types.ReceivedFile
	SetStatus(id string, status types.FileStatus, errMsg string)
	Remove(id string) error
	DeleteStaged(id string) error
	StagingDir() string
}

// inbox implements the Inbox interface
type inbox struct {
	dir       string
	nameLimit int

	mu     sync.RWMutex
	files  map[string]*types.ReceivedFile
	order  []string          // insertion order of ids
	byName map[string]string // sanitized display name -> id
}

// NewInbox creates an inbox staging into dir, creating it if needed.
func NewInbox(dir string, nameLimit int) (Inbox, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create staging directory: %w", err)
	}
	return &inbox{
		dir:       dir,
		nameLimit: nameLimit,
		files:     make(map[string]*types.ReceivedFile),
		byName:    make(map[string]string),
	}, nil
}

func (in *inbox) StagingDir() string {
	return in.dir
}

// Add sanitizes the supplied name, stages the body under a uuid-scoped
// subdirectory, and registers the record. Each upload gets its own staged
// path, so concurrent uploads never write to the same file; only the
// registration below is a critical section. A second upload with the same
// sanitized name replaces the earlier record and its staged bytes rather
// than growing the list, which guards against flaky-network retries.
func (in *inbox) Add(rawName string, r io.Reader) (*types.ReceivedFile, error) {
	name := SanitizeFileName(rawName, in.nameLimit)

	id := uuid.New().String()
	fileDir := filepath.Join(in.dir, id)
	if err := os.MkdirAll(fileDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create staging slot: %w", err)
	}

	stagedPath := filepath.Join(fileDir, name)
	size, err := writeStaged(stagedPath, r)
	if err != nil {
		os.RemoveAll(fileDir)
		return nil, fmt.Errorf("cannot stage upload %q: %w", name, err)
	}

	file := &types.ReceivedFile{
		ID:          id,
		StagedPath:  stagedPath,
		DisplayName: name,
		SizeBytes:   size,
		ReceivedAt:  time.Now(),
		Status:      types.StatusReceived,
	}

	in.mu.Lock()
	if oldID, ok := in.byName[name]; ok {
		in.dropLocked(oldID)
	}
	in.files[id] = file
	in.order = append(in.order, id)
	in.byName[name] = id
	in.mu.Unlock()

	return snapshot(file), nil
}

// List returns the received files in arrival order.
func (in *inbox) List() []*types.ReceivedFile {
	in.mu.RLock()
	defer in.mu.RUnlock()

	files := make([]*types.ReceivedFile, 0, len(in.order))
	for _, id := range in.order {
		if f, ok := in.files[id]; ok {
			files = append(files, snapshot(f))
		}
	}
	return files
}

func (in *inbox) Get(id string) (*types.ReceivedFile, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()

	f, ok := in.files[id]
	if !ok {
		return nil, false
	}
	return snapshot(f), true
}

// SetSelected marks or unmarks a file for the next import batch.
func (in *inbox) SetSelected(id string, selected bool) bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	f, ok := in.files[id]
	if !ok {
		return false
	}
	f.Selected = selected
	return true
}

// Selected returns the files queued for import, in arrival order.
func (in *inbox) Selected() []*types.ReceivedFile {
	in.mu.RLock()
	defer in.mu.RUnlock()

	var files []*types.ReceivedFile
	for _, id := range in.order {
		if f, ok := in.files[id]; ok && f.Selected {
			files = append(files, snapshot(f))
		}
	}
	return files
}

// SetStatus transitions a file's import status. Only the sequencer calls
// this once a batch is running.
func (in *inbox) SetStatus(id string, status types.FileStatus, errMsg string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if f, ok := in.files[id]; ok {
		f.Status = status
		f.Error = errMsg
	}
}

// Remove drops the record and deletes its staged bytes.
func (in *inbox) Remove(id string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if _, ok := in.files[id]; !ok {
		return fmt.Errorf("no received file with id %s", id)
	}
	in.dropLocked(id)
	return nil
}

// DeleteStaged removes the staged bytes for an imported file but keeps the
// record, so the UI can still show the terminal status.
func (in *inbox) DeleteStaged(id string) error {
	in.mu.Lock()
	f, ok := in.files[id]
	var dir string
	if ok && f.StagedPath != "" {
		dir = filepath.Dir(f.StagedPath)
		f.StagedPath = ""
	}
	in.mu.Unlock()

	if !ok {
		return fmt.Errorf("no received file with id %s", id)
	}
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}

// dropLocked removes a record and its staged bytes. Caller holds the lock.
func (in *inbox) dropLocked(id string) {
	f, ok := in.files[id]
	if !ok {
		return
	}

	if f.StagedPath != "" {
		if err := os.RemoveAll(filepath.Dir(f.StagedPath)); err != nil {
			log.Printf("Warning: could not delete staged bytes for %s: %v", f.DisplayName, err)
		}
	}

	delete(in.files, id)
	if in.byName[f.DisplayName] == id {
		delete(in.byName, f.DisplayName)
	}
	for i, oid := range in.order {
		if oid == id {
			in.order = append(in.order[:i], in.order[i+1:]...)
			break
		}
	}
}

// snapshot copies a record so callers never share mutable state with the
// inbox.
func snapshot(f *types.ReceivedFile) *types.ReceivedFile {
	c := *f
	return &c
}

func writeStaged(path string, r io.Reader) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return n, nil
}
