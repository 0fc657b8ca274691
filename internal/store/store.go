package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/franz/crate/internal/util"
)

const (
	currentSchemaVersion = 5

	// FileSuffix is appended to a collection id to name its database file
	FileSuffix = "_collection.db"
)

// MarkerSource supplies the "last updated" marker an older store kept outside
// the database. Migration uses it to backfill the revision log.
type MarkerSource interface {
	LastCollectionUpdate(collectionID string) (int64, error)
}

// Store is the persistent state of one collection.
// Every public method holds mu for its whole duration.
type Store struct {
	mu           sync.Mutex
	db           *sqlx.DB
	path         string
	collectionID string
	now          func() time.Time
}

// OpenOptions holds options for opening a collection database
type OpenOptions struct {
	CollectionID     string
	Markers          MarkerSource     // consulted once when upgrading from version < 5
	Now              func() time.Time // clock for revision timestamps
	NetworkOptimized bool             // apply pragmas suited to network filesystems
}

// Open opens or creates a collection database at the given path with default options
func Open(path string) (*Store, error) {
	return OpenWithOptions(path, nil)
}

// OpenWithOptions opens or creates a collection database with custom options
func OpenWithOptions(path string, opts *OpenOptions) (*Store, error) {
	if opts == nil {
		opts = &OpenOptions{}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:           db,
		path:         path,
		collectionID: opts.CollectionID,
		now:          opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	if opts.NetworkOptimized {
		if err := s.applyNetworkPragmas(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply network pragmas: %w", err)
		}
	}

	if err := s.migrate(opts.Markers); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

// applyNetworkPragmas trades some durability for fewer round-trips on network shares
func (s *Store) applyNetworkPragmas() error {
	pragmas := []string{
		// NORMAL is safe with WAL: fsync at checkpoints only
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		// Negative value = KB (~64 MB)
		"PRAGMA cache_size = -64000",
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// CollectionID returns the id of the collection this store belongs to
func (s *Store) CollectionID() string {
	return s.collectionID
}

// SQLiteVersion returns the SQLite version string
func SQLiteVersion() string {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return ""
	}
	defer db.Close()

	var version string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return ""
	}
	return version
}

// CheckIntegrity runs PRAGMA integrity_check on the database
func (s *Store) CheckIntegrity() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result string
	if err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("%w: integrity check failed: %s", util.ErrCorrupt, result)
	}

	return nil
}

// migrate brings the schema to currentSchemaVersion inside one transaction
func (s *Store) migrate(markers MarkerSource) error {
	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}

	if version >= currentSchemaVersion {
		return nil
	}

	return s.transaction(func(tx *sqlx.Tx) error {
		if version == 0 {
			if _, err := tx.Exec(schemaVersionTable); err != nil {
				return fmt.Errorf("failed to create schema_version: %w", err)
			}
			for _, ddl := range contentTables {
				if _, err := tx.Exec(ddl.create); err != nil {
					return fmt.Errorf("failed to create %s: %w", ddl.name, err)
				}
			}
			if err := ensureRevisionHistory(tx); err != nil {
				return err
			}
			return s.setSchemaVersion(tx, currentSchemaVersion)
		}

		// Stores older than 4 predate the current content layout
		if version < 4 {
			if err := ensureRevisionHistory(tx); err != nil {
				return err
			}
			if _, err := s.wipeTx(tx); err != nil {
				return fmt.Errorf("failed to wipe legacy store: %w", err)
			}
			if err := s.setSchemaVersion(tx, 4); err != nil {
				return fmt.Errorf("failed to set schema version: %w", err)
			}
		}

		if version < 5 {
			if err := ensureRevisionHistory(tx); err != nil {
				return err
			}
			if err := s.backfillRevision(tx, markers); err != nil {
				return err
			}
			if err := s.setSchemaVersion(tx, 5); err != nil {
				return fmt.Errorf("failed to set schema version: %w", err)
			}
		}

		return nil
	})
}

func ensureRevisionHistory(tx *sqlx.Tx) error {
	if _, err := tx.Exec(createRevisionHistory); err != nil {
		return fmt.Errorf("failed to create revisionHistory: %w", err)
	}
	if _, err := tx.Exec(createRevisionIndex); err != nil {
		return fmt.Errorf("failed to create revisionHistory index: %w", err)
	}
	return nil
}

// backfillRevision gives an upgraded store one ADD_TRACKS entry carrying the
// external marker, so it gains a revision retroactively
func (s *Store) backfillRevision(tx *sqlx.Tx, markers MarkerSource) error {
	if markers == nil || s.collectionID == "" {
		return nil
	}

	marker, err := markers.LastCollectionUpdate(s.collectionID)
	if err != nil {
		return fmt.Errorf("failed to read last update marker: %w", err)
	}
	if marker <= 0 {
		return nil
	}

	if _, err := s.recordRevisionTx(tx, fmt.Sprintf("%d", marker), ActionAddTracks); err != nil {
		return fmt.Errorf("failed to backfill revision: %w", err)
	}
	return nil
}

// getSchemaVersion returns the current schema version
func (s *Store) getSchemaVersion() (int, error) {
	var exists int
	err := s.db.Get(&exists, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`)
	if err != nil {
		return 0, err
	}

	if exists == 0 {
		return 0, nil
	}

	var version int
	if err := s.db.Get(&version, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion records a schema version in a transaction
func (s *Store) setSchemaVersion(tx *sqlx.Tx, version int) error {
	_, err := tx.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (?)", version)
	return err
}

// transaction executes fn within a transaction. Callers hold mu.
func (s *Store) transaction(fn func(*sqlx.Tx) error) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}
