package production

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/comalice/mvix"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS snapshots (
	feature_id TEXT PRIMARY KEY,
	state      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLitePersister stores snapshots of many features in one SQLite database.
// States are encoded as JSON.
type SQLitePersister[S any] struct {
	db *sql.DB
}

// OpenSQLitePersister opens (or creates) the database at path.
func OpenSQLitePersister[S any](path string) (*SQLitePersister[S], error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLitePersister[S]{db: db}, nil
}

// Close releases the SQLite connection.
func (p *SQLitePersister[S]) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *SQLitePersister[S]) Save(ctx context.Context, snapshot mvix.Snapshot[S]) error {
	if snapshot.FeatureID == "" {
		return fmt.Errorf("feature id is required")
	}
	state, err := json.Marshal(snapshot.State)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	ts := snapshot.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err = p.db.ExecContext(ctx, `
INSERT INTO snapshots (feature_id, state, updated_at) VALUES (?, ?, ?)
ON CONFLICT(feature_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		snapshot.FeatureID, state, ts.UnixNano())
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", snapshot.FeatureID, err)
	}
	return nil
}

func (p *SQLitePersister[S]) Load(ctx context.Context, featureID string) (mvix.Snapshot[S], error) {
	var (
		state     []byte
		updatedAt int64
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT state, updated_at FROM snapshots WHERE feature_id = ?`, featureID,
	).Scan(&state, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return mvix.Snapshot[S]{}, fmt.Errorf("feature %q: %w", featureID, os.ErrNotExist)
	}
	if err != nil {
		return mvix.Snapshot[S]{}, fmt.Errorf("load snapshot %q: %w", featureID, err)
	}

	snapshot := mvix.Snapshot[S]{
		FeatureID: featureID,
		Timestamp: time.Unix(0, updatedAt).UTC(),
	}
	if err := json.Unmarshal(state, &snapshot.State); err != nil {
		return mvix.Snapshot[S]{}, fmt.Errorf("json unmarshal: %w", err)
	}
	return snapshot, nil
}

// Delete forgets the snapshot of featureID.
func (p *SQLitePersister[S]) Delete(ctx context.Context, featureID string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM snapshots WHERE feature_id = ?`, featureID); err != nil {
		return fmt.Errorf("delete snapshot %q: %w", featureID, err)
	}
	return nil
}
