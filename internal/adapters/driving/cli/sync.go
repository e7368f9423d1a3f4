package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

var syncFollow bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replicate with the remote database",
	Long: `Starts a replication session for the authenticated user.
An empty local store is bootstrapped first; the session then pulls and
pushes changes until the feeds converge. With --follow the session
keeps running and live-syncing until interrupted.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncFollow, "follow", "f", false, "keep the session running after convergence")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if replicator == nil || credentials == nil {
		return errors.New("sync service not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	userEmail, err := credentials.UserEmail(ctx)
	if err != nil {
		return fmt.Errorf("resolving user: %w", err)
	}

	cmd.Printf("Syncing as %s...\n", userEmail)
	if err := replicator.Start(ctx, userEmail); err != nil {
		return fmt.Errorf("starting sync: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			replicator.Cancel()
			cmd.Println("\nSync cancelled.")
			return nil
		case ev, ok := <-replicator.Events():
			if !ok {
				return nil
			}
			if done, err := renderSyncEvent(cmd, ev); done {
				replicator.Cancel()
				return err
			}
		}
	}
}

// renderSyncEvent prints one session event. It reports done once the
// session converges, unless --follow keeps it alive.
func renderSyncEvent(cmd *cobra.Command, ev domain.SyncEvent) (bool, error) {
	switch ev.Kind {
	case domain.EventProgress:
		cmd.Printf("\rBootstrapping... %d%%", ev.Progress)
		if ev.Progress >= 100 {
			cmd.Println()
		}
	case domain.EventStateChanged:
		switch ev.State {
		case domain.SyncBootstrapping:
			cmd.Println("Local store is empty, bootstrapping from remote.")
		case domain.SyncReplicating:
			cmd.Println("Replicating...")
		case domain.SyncPaused:
			cmd.Println("Up to date.")
			if !syncFollow {
				return true, nil
			}
		case domain.SyncCancelled:
			return true, nil
		}
	case domain.EventIndexReady:
		cmd.Println("Search index rebuilt.")
	case domain.EventSyncError:
		cmd.PrintErrf("Sync error (%s), retrying...\n", ev.ErrKind)
	}
	return false, nil
}
