package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/apidae-tourisme/seedsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/apidae-tourisme/seedsync/internal/core/domain"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driven"
)

// Store is a SQLite-backed storage providing the seed and checkpoint
// store interfaces through wrapper types sharing one connection.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store in the given data directory.
// If dataDir is empty, defaults to ~/.seedsync/data/seeds.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".seedsync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "seeds.db")

	// WAL mode for better concurrency between the replication loops
	// and user-facing reads.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SeedStore returns a SeedStore interface backed by this store.
func (s *Store) SeedStore() driven.SeedStore {
	return &seedStore{store: s}
}

// CheckpointStore returns a CheckpointStore interface backed by this
// store.
func (s *Store) CheckpointStore() driven.CheckpointStore {
	return &checkpointStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Seed Store ====================

// seedStore implements driven.SeedStore.
type seedStore struct {
	store *Store
}

var _ driven.SeedStore = (*seedStore)(nil)

const seedColumns = `id, revision, name, description, address, category, scope,
	author, archived, connections, picture, urls, start_date, end_date`

// Get retrieves a Seed by id.
func (s *seedStore) Get(ctx context.Context, id string) (*domain.Seed, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+seedColumns+" FROM seeds WHERE id = ?", id)
	seed, err := scanSeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning seed: %w", err)
	}
	return seed, nil
}

// GetMany retrieves Seeds by id, preserving input order and skipping
// missing ids.
func (s *seedStore) GetMany(ctx context.Context, ids []string) ([]domain.Seed, error) {
	result := make([]domain.Seed, 0, len(ids))
	for _, id := range ids {
		seed, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, *seed)
	}
	return result, nil
}

// Put performs a revision-checked write, allocating the id on first
// write and a new revision on every write.
func (s *seedStore) Put(ctx context.Context, seed domain.Seed) (*domain.Seed, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := putTx(ctx, tx, &seed); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}
	return &seed, nil
}

// BulkPut writes a batch. See driven.SeedStore for the
// preserveRevisions contract.
func (s *seedStore) BulkPut(ctx context.Context, seeds []domain.Seed, preserveRevisions bool) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var failed []string
	conflicted := false
	for i := range seeds {
		seed := seeds[i]
		if preserveRevisions {
			if err := upsertReplicaTx(ctx, tx, &seed); err != nil {
				return fmt.Errorf("applying replica %s: %w", seed.ID, err)
			}
			continue
		}
		if err := putTx(ctx, tx, &seed); err != nil {
			failed = append(failed, seed.ID)
			if errors.Is(err, domain.ErrRevisionConflict) {
				conflicted = true
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return bulkPartialError(failed, conflicted)
}

// bulkPartialError builds the partial-failure error for a bulk write.
// Conflicting documents keep their conflict identity so callers can
// recheck instead of degrading.
func bulkPartialError(failed []string, conflicted bool) error {
	if len(failed) == 0 {
		return nil
	}
	if conflicted {
		return fmt.Errorf("%w: %w: %s", domain.ErrBulkWritePartial, domain.ErrRevisionConflict, strings.Join(failed, ", "))
	}
	return fmt.Errorf("%w: %s", domain.ErrBulkWritePartial, strings.Join(failed, ", "))
}

// AllIDs returns every stored document id.
func (s *seedStore) AllIDs(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT id FROM seeds ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ids: %w", err)
	}
	return ids, nil
}

// Count returns the number of stored documents.
func (s *seedStore) Count(ctx context.Context) (int, error) {
	var count int
	row := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM seeds")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting seeds: %w", err)
	}
	return count, nil
}

// FindByAuthor returns the Seed authored by the given email, via the
// author secondary index.
func (s *seedStore) FindByAuthor(ctx context.Context, email string) (*domain.Seed, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+seedColumns+" FROM seeds WHERE author = ? LIMIT 1", email)
	seed, err := scanSeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning seed: %w", err)
	}
	return seed, nil
}

// Changes returns local edits after the since sequence, in sequence
// order.
func (s *seedStore) Changes(ctx context.Context, since int64, limit int) ([]domain.Change, int64, error) {
	query := "SELECT " + seedColumns + ", local_seq FROM seeds WHERE local_seq > ? ORDER BY local_seq"
	args := []any{since}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying changes: %w", err)
	}
	defer rows.Close()

	var changes []domain.Change
	lastSeq := since
	for rows.Next() {
		seed, seq, err := scanSeedWithSeq(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning change: %w", err)
		}
		changes = append(changes, domain.Change{Seed: *seed, Seq: seq})
		lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating changes: %w", err)
	}
	return changes, lastSeq, nil
}

// putTx performs a revision-checked write inside a transaction and
// stamps the row with the next local sequence.
func putTx(ctx context.Context, tx *sql.Tx, seed *domain.Seed) error {
	if seed.ID == "" {
		seed.ID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	var stored string
	err := tx.QueryRowContext(ctx, "SELECT revision FROM seeds WHERE id = ?", seed.ID).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if !seed.IsNew() {
			return domain.ErrNotFound
		}
	case err != nil:
		return fmt.Errorf("reading revision: %w", err)
	case stored != seed.Revision:
		return domain.ErrRevisionConflict
	}

	seed.Revision = nextRevision(seed.Revision)

	var seq int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(local_seq), 0) + 1 FROM seeds").Scan(&seq); err != nil {
		return fmt.Errorf("allocating sequence: %w", err)
	}
	return writeSeedTx(ctx, tx, seed, seq)
}

// upsertReplicaTx applies a replica copy verbatim: revision preserved,
// local sequence zeroed so the row never enters the push feed.
func upsertReplicaTx(ctx context.Context, tx *sql.Tx, seed *domain.Seed) error {
	return writeSeedTx(ctx, tx, seed, 0)
}

// writeSeedTx upserts one row.
func writeSeedTx(ctx context.Context, tx *sql.Tx, seed *domain.Seed, localSeq int64) error {
	connectionsJSON, err := json.Marshal(seed.Connections)
	if err != nil {
		return fmt.Errorf("marshalling connections: %w", err)
	}
	urlsJSON, err := json.Marshal(seed.URLs)
	if err != nil {
		return fmt.Errorf("marshalling urls: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO seeds (id, revision, name, description, address, category, scope,
			author, archived, connections, picture, urls, start_date, end_date, local_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			revision = excluded.revision,
			name = excluded.name,
			description = excluded.description,
			address = excluded.address,
			category = excluded.category,
			scope = excluded.scope,
			author = excluded.author,
			archived = excluded.archived,
			connections = excluded.connections,
			picture = excluded.picture,
			urls = excluded.urls,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			local_seq = excluded.local_seq
	`, seed.ID, seed.Revision, seed.Name, seed.Description, seed.Address,
		string(seed.Category), string(seed.Scope), seed.Author, seed.Archived,
		string(connectionsJSON), seed.Picture, string(urlsJSON),
		nullTime(seed.StartDate), nullTime(seed.EndDate), localSeq)
	if err != nil {
		return fmt.Errorf("writing seed: %w", err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for seed scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanSeed(sc scanner) (*domain.Seed, error) {
	var (
		seed             domain.Seed
		category, scope  string
		connections      string
		urls             string
		startAt, endAt   sql.NullTime
	)
	if err := sc.Scan(&seed.ID, &seed.Revision, &seed.Name, &seed.Description,
		&seed.Address, &category, &scope, &seed.Author, &seed.Archived,
		&connections, &seed.Picture, &urls, &startAt, &endAt); err != nil {
		return nil, err
	}
	return finishSeed(&seed, category, scope, connections, urls, startAt, endAt)
}

func scanSeedWithSeq(sc scanner) (*domain.Seed, int64, error) {
	var (
		seed             domain.Seed
		category, scope  string
		connections      string
		urls             string
		startAt, endAt   sql.NullTime
		seq              int64
	)
	if err := sc.Scan(&seed.ID, &seed.Revision, &seed.Name, &seed.Description,
		&seed.Address, &category, &scope, &seed.Author, &seed.Archived,
		&connections, &seed.Picture, &urls, &startAt, &endAt, &seq); err != nil {
		return nil, 0, err
	}
	finished, err := finishSeed(&seed, category, scope, connections, urls, startAt, endAt)
	if err != nil {
		return nil, 0, err
	}
	return finished, seq, nil
}

func finishSeed(seed *domain.Seed, category, scope, connections, urls string, startAt, endAt sql.NullTime) (*domain.Seed, error) {
	seed.Category = domain.Category(category)
	seed.Scope = domain.Scope(scope)
	if err := json.Unmarshal([]byte(connections), &seed.Connections); err != nil {
		return nil, fmt.Errorf("unmarshaling connections: %w", err)
	}
	if err := json.Unmarshal([]byte(urls), &seed.URLs); err != nil {
		return nil, fmt.Errorf("unmarshaling urls: %w", err)
	}
	if startAt.Valid {
		t := startAt.Time
		seed.StartDate = &t
	}
	if endAt.Valid {
		t := endAt.Time
		seed.EndDate = &t
	}
	return seed, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// nextRevision bumps an "<n>-<hash>" revision token.
func nextRevision(current string) string {
	n := 0
	if current != "" {
		if idx := strings.IndexByte(current, '-'); idx > 0 {
			n, _ = strconv.Atoi(current[:idx])
		}
	}
	return fmt.Sprintf("%d-%s", n+1, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// ==================== Checkpoint Store ====================

// checkpointStore implements driven.CheckpointStore.
type checkpointStore struct {
	store *Store
}

var _ driven.CheckpointStore = (*checkpointStore)(nil)

// Save stores or updates a checkpoint.
func (s *checkpointStore) Save(ctx context.Context, cp domain.Checkpoint) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO checkpoints (name, seq, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			seq = excluded.seq,
			updated_at = excluded.updated_at
	`, cp.Name, cp.Seq, cp.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// Get retrieves a checkpoint by name.
func (s *checkpointStore) Get(ctx context.Context, name string) (*domain.Checkpoint, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT name, seq, updated_at FROM checkpoints WHERE name = ?", name)

	var cp domain.Checkpoint
	if err := row.Scan(&cp.Name, &cp.Seq, &cp.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning checkpoint: %w", err)
	}
	return &cp, nil
}

// Delete removes a checkpoint.
func (s *checkpointStore) Delete(ctx context.Context, name string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}
