package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"songdrop/config"
	"songdrop/library"
	"songdrop/services"
	"songdrop/types"
	"songdrop/websocket"
)

// RunImport pushes local files through the same sequencer the LAN listener
// feeds: stage, duplicate-check, import, recover. force bypasses the
// duplicate guard; without it duplicates are skipped (no prompt on a
// non-interactive run).
func RunImport(paths []string, force bool) {
	lib, err := library.NewDiskLibrary(config.GetLibraryLocation())
	if err != nil {
		log.Fatalf("Failed to open library: %v", err)
	}

	staging, err := os.MkdirTemp("", "songdrop-import-*")
	if err != nil {
		log.Fatalf("Failed to create staging directory: %v", err)
	}
	defer os.RemoveAll(staging)

	inbox, err := services.NewInbox(staging, config.GetNameLimit())
	if err != nil {
		log.Fatalf("Failed to open staging directory: %v", err)
	}

	// Stage the inputs concurrently; the import itself stays serial.
	g := new(errgroup.Group)
	g.SetLimit(4)
	for _, path := range paths {
		g.Go(func() error {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("cannot read %s: %w", path, err)
			}
			defer f.Close()

			rec, err := inbox.Add(filepath.Base(path), f)
			if err != nil {
				return err
			}
			inbox.SetSelected(rec.ID, true)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("Staging failed: %v", err)
	}

	files := inbox.Selected()
	bar := progressbar.Default(int64(len(files)), "importing")

	decide := func(ctx context.Context, conflict types.DuplicateConflict) (types.Decision, error) {
		if force {
			return types.DecisionForce, nil
		}
		return types.DecisionSkip, nil
	}

	sequencer := services.NewSequencer(lib, inbox, &progressHub{bar: bar})
	summary, err := sequencer.Run(context.Background(), files, decide)
	if err != nil {
		log.Printf("Import ended early: %v", err)
	}

	fmt.Printf("\nProcessed %d: %d imported, %d failed, %d skipped\n",
		summary.Processed, summary.Succeeded, summary.Failed, summary.Skipped)
	for _, outcome := range summary.Outcomes {
		if !outcome.Success {
			fmt.Printf("  failed: %s\n", outcome.Filename)
		}
	}

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

// progressHub adapts the sequencer's event stream to a terminal progress
// bar: one tick per file reaching a terminal status.
type progressHub struct {
	bar *progressbar.ProgressBar
}

func (p *progressHub) Run() {}

func (p *progressHub) Broadcast(msg types.EventMessage) {
	if msg.Type != types.EventStatus {
		return
	}
	switch msg.Status {
	case types.StatusImported, types.StatusSkipped, types.StatusFailed:
		p.bar.Add(1)
	}
}

func (p *progressHub) RegisterClient(*websocket.Client)   {}
func (p *progressHub) UnregisterClient(*websocket.Client) {}
