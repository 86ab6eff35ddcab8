// Package sqlite implements a cache store on a SQLite database, for
// workstations that index many datasets and want one shared cache.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/mwantia/bids/cache"
	"github.com/mwantia/bids/data"
)

// SQLiteStore keeps one snapshot row per dataset root plus one record
// row per indexed file. Record payloads are stored as JSON text; the
// snapshot row carries version and fingerprint columns so a miss is
// decided without touching the record rows.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) a snapshot database.
// The dbPath can be ":memory:" for an in-memory database or a file path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (st *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bids_snapshots (
		root TEXT PRIMARY KEY,
		snapshot_id TEXT NOT NULL,
		format_version INTEGER NOT NULL,
		schema_version TEXT NOT NULL,
		saved_at INTEGER NOT NULL,
		file_count INTEGER NOT NULL,
		total_size INTEGER NOT NULL,
		latest_mod INTEGER NOT NULL,
		description TEXT,
		report TEXT
	);

	CREATE TABLE IF NOT EXISTS bids_records (
		root TEXT NOT NULL,
		rel_path TEXT NOT NULL,
		record TEXT NOT NULL,
		sidecar_values TEXT,
		PRIMARY KEY (root, rel_path),
		FOREIGN KEY (root) REFERENCES bids_snapshots(root) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_bids_records_root ON bids_records(root);
	`

	_, err := st.db.Exec(schema)
	return err
}

// Returns the identifier name defined for this store
func (*SQLiteStore) Name() string {
	return "sqlite"
}

func (st *SQLiteStore) Save(ctx context.Context, snap *cache.Snapshot) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.db == nil {
		return data.ErrCacheClosed
	}

	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM bids_records WHERE root = ?", snap.Root); err != nil {
		return err
	}

	var description []byte
	if snap.Description != nil {
		if description, err = json.Marshal(snap.Description); err != nil {
			return err
		}
	}

	var report []byte
	if snap.Report != nil {
		if report, err = json.Marshal(snap.Report); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bids_snapshots
			(root, snapshot_id, format_version, schema_version, saved_at,
			 file_count, total_size, latest_mod, description, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(root) DO UPDATE SET
			snapshot_id = excluded.snapshot_id,
			format_version = excluded.format_version,
			schema_version = excluded.schema_version,
			saved_at = excluded.saved_at,
			file_count = excluded.file_count,
			total_size = excluded.total_size,
			latest_mod = excluded.latest_mod,
			description = excluded.description,
			report = excluded.report`,
		snap.Root, snap.SnapshotID, snap.FormatVersion, snap.SchemaVersion,
		snap.SavedAt.UnixNano(), snap.Fingerprint.FileCount,
		snap.Fingerprint.TotalSize, snap.Fingerprint.LatestMod,
		nullable(description), nullable(report)); err != nil {
		return err
	}

	sidecars := make(map[string]data.Dict, len(snap.Sidecars))
	for _, sidecar := range snap.Sidecars {
		sidecars[sidecar.Record.RelPath] = sidecar.Values
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO bids_records (root, rel_path, record, sidecar_values)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	for _, file := range snap.Files {
		record, err := json.Marshal(file)
		if err != nil {
			return err
		}

		var values []byte
		if dict, exists := sidecars[file.RelPath]; exists {
			if values, err = json.Marshal(dict); err != nil {
				return err
			}
		}

		if _, err := insert.ExecContext(ctx,
			snap.Root, file.RelPath, record, nullable(values)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (st *SQLiteStore) Load(ctx context.Context, root string) (*cache.Snapshot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.db == nil {
		return nil, data.ErrCacheClosed
	}

	snap := &cache.Snapshot{Root: root}

	var savedAt int64
	var description, report sql.NullString
	err := st.db.QueryRowContext(ctx, `
		SELECT snapshot_id, format_version, schema_version, saved_at,
		       file_count, total_size, latest_mod, description, report
		FROM bids_snapshots WHERE root = ?`, root).Scan(
		&snap.SnapshotID, &snap.FormatVersion, &snap.SchemaVersion, &savedAt,
		&snap.Fingerprint.FileCount, &snap.Fingerprint.TotalSize,
		&snap.Fingerprint.LatestMod, &description, &report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no snapshot for %s", data.ErrCacheMiss, root)
	}
	if err != nil {
		return nil, err
	}

	snap.SavedAt = time.Unix(0, savedAt)
	if description.Valid {
		if err := json.Unmarshal([]byte(description.String), &snap.Description); err != nil {
			return nil, fmt.Errorf("%w: corrupt description row", data.ErrCacheMiss)
		}
	}
	if report.Valid {
		if err := json.Unmarshal([]byte(report.String), &snap.Report); err != nil {
			return nil, fmt.Errorf("%w: corrupt report row", data.ErrCacheMiss)
		}
	}

	rows, err := st.db.QueryContext(ctx, `
		SELECT record, sidecar_values FROM bids_records
		WHERE root = ? ORDER BY rel_path`, root)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var record string
		var values sql.NullString
		if err := rows.Scan(&record, &values); err != nil {
			return nil, err
		}

		file := &data.File{}
		if err := json.Unmarshal([]byte(record), file); err != nil {
			return nil, fmt.Errorf("%w: corrupt record row", data.ErrCacheMiss)
		}
		snap.Files = append(snap.Files, file)

		if values.Valid {
			dict := data.Dict{}
			if err := json.Unmarshal([]byte(values.String), &dict); err != nil {
				return nil, fmt.Errorf("%w: corrupt sidecar row", data.ErrCacheMiss)
			}
			snap.Sidecars = append(snap.Sidecars, &data.SidecarFile{
				Record: file,
				Values: dict,
			})
		}
	}

	return snap, rows.Err()
}

func (st *SQLiteStore) Close(ctx context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.db == nil {
		return nil
	}

	err := st.db.Close()
	st.db = nil
	return err
}

func nullable(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
