package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/apidae-tourisme/seedsync/internal/adapters/driven/auth"
	configfile "github.com/apidae-tourisme/seedsync/internal/adapters/driven/config/file"
	indexmem "github.com/apidae-tourisme/seedsync/internal/adapters/driven/index/memory"
	"github.com/apidae-tourisme/seedsync/internal/adapters/driven/remote/couch"
	"github.com/apidae-tourisme/seedsync/internal/adapters/driven/storage/sqlite"
	"github.com/apidae-tourisme/seedsync/internal/adapters/driving/cli"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driven"
	"github.com/apidae-tourisme/seedsync/internal/core/services"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seedsync: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := configfile.NewConfigStore(configDirArg(os.Args[1:]))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewStore(config.GetString(configfile.KeyDataDir))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	seedStore := store.SeedStore()
	checkpointStore := store.CheckpointStore()

	remoteURL := config.GetString(configfile.KeyRemoteURL)
	if remoteURL == "" {
		remoteURL = "http://localhost:5984"
	}
	database := config.GetString(configfile.KeyRemoteDatabase)
	if database == "" {
		database = "seeds"
	}
	remote := couch.NewRemote(remoteURL, database)

	var credentials driven.CredentialsProvider
	if token := config.GetString(configfile.KeyAccessToken); token != "" {
		source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		credentials = auth.NewOAuthProvider(source, config.GetString(configfile.KeyUserInfoURL))
	} else {
		credentials = &auth.StaticProvider{Email: config.GetString(configfile.KeyUserEmail)}
	}

	engine := indexmem.NewIndex()

	reindexInterval := time.Duration(config.GetInt(configfile.KeyReindexInterval)) * time.Second
	if reindexInterval <= 0 {
		reindexInterval = services.MinRebuildInterval
	}
	// The indexer resolves the session user through the same provider
	// as the sync command, keeping the corpus filter and the pull
	// filter on one identity.
	indexer := services.NewIndexer(seedStore, engine, credentials, reindexInterval)

	batchSize := config.GetInt(configfile.KeySyncBatchSize)
	bootstrap := services.NewBootstrapLoader(seedStore, remote, batchSize)
	replicator := services.NewReplicator(seedStore, remote, checkpointStore, bootstrap, indexer, batchSize, 0)

	cli.Initialize(cli.Deps{
		SeedService:   services.NewSeedService(seedStore),
		SearchService: services.NewSearchService(seedStore, engine),
		Replicator:    replicator,
		Credentials:   credentials,
		SeedStore:     seedStore,
		Checkpoints:   checkpointStore,
		ConfigStore:   config,
		Version:       version,
	})

	return cli.Execute()
}

// configDirArg pre-scans the arguments for --config. Wiring needs the
// config before cobra parses flags.
func configDirArg(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}
