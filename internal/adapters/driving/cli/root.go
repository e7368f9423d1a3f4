// Package cli implements the command-line surface of seedsync.
// Commands are thin: they parse flags, call the driving ports and
// render the results. Service wiring happens in Initialize, called by
// main before Execute.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/apidae-tourisme/seedsync/internal/core/ports/driven"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driving"
	"github.com/apidae-tourisme/seedsync/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired by Initialize. Commands check for nil so the CLI
// degrades to a helpful error instead of a panic when run unwired.
var (
	seedService   driving.SeedService
	searchService driving.SearchService
	replicator    driving.Replicator
	credentials   driven.CredentialsProvider
	seedStore     driven.SeedStore
	checkpoints   driven.CheckpointStore
	configStore   driven.ConfigStore
)

var (
	verboseFlag bool
	configFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "seedsync",
	Short: "Local-first replication for the seeds graph",
	Long: `seedsync keeps a local copy of the seeds connection graph in sync
with the shared remote database. It bootstraps an empty local store,
then replicates continuously in both directions, rebuilding the
full-text index whenever the feeds converge.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging to stderr")
	// Wiring in main runs before cobra parses flags, so main pre-scans
	// os.Args for --config; registering it here keeps it in help and
	// accepted by every command.
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config directory (default ~/.seedsync)")
}

// Deps carries the wired services from main into the command tree.
type Deps struct {
	SeedService   driving.SeedService
	SearchService driving.SearchService
	Replicator    driving.Replicator
	Credentials   driven.CredentialsProvider
	SeedStore     driven.SeedStore
	Checkpoints   driven.CheckpointStore
	ConfigStore   driven.ConfigStore
	Version       string
}

// Initialize wires the services into the command tree.
func Initialize(deps Deps) {
	seedService = deps.SeedService
	searchService = deps.SearchService
	replicator = deps.Replicator
	credentials = deps.Credentials
	seedStore = deps.SeedStore
	checkpoints = deps.Checkpoints
	configStore = deps.ConfigStore
	if deps.Version != "" {
		version = deps.Version
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
