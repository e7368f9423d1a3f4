package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local store and replication status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if seedStore == nil || checkpoints == nil {
		return errors.New("stores not configured")
	}

	ctx := context.Background()

	count, err := seedStore.Count(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Seeds in local store: %d\n", count)

	for _, name := range []string{domain.CheckpointPull, domain.CheckpointPush} {
		cp, err := checkpoints.Get(ctx, name)
		if errors.Is(err, domain.ErrNotFound) {
			cmd.Printf("Checkpoint %s: never synced\n", name)
			continue
		}
		if err != nil {
			return err
		}
		cmd.Printf("Checkpoint %s: seq %d (%s)\n", name, cp.Seq, cp.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	if replicator != nil {
		cmd.Printf("Session state: %s\n", replicator.State())
	}
	if configStore != nil {
		cmd.Printf("Config: %s\n", configStore.Path())
	}
	return nil
}
