// Package sqlite provides a SQLite-backed agent snapshot store using the
// pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/aretw0/seltree/pkg/domain"
)

// DefaultPath is used when NewStore is given an empty path.
const DefaultPath = ".seltree/agents.db"

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	agent_id   TEXT PRIMARY KEY,
	template   TEXT NOT NULL,
	payload    BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store implements ports.SnapshotStore on a single SQLite table holding one
// JSON payload per agent.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore opens (creating if needed) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Save upserts the snapshot.
func (s *Store) Save(ctx context.Context, agentID string, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO snapshots (agent_id, template, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			template = excluded.template,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		agentID, snap.Template, data, s.now().Unix())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", agentID, err)
	}
	return nil
}

// Load retrieves the snapshot.
func (s *Store) Load(ctx context.Context, agentID string) (*domain.Snapshot, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE agent_id = ?`, agentID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", agentID, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", agentID, err)
	}
	if snap.Variables == nil {
		snap.Variables = make(map[domain.VariableID]bool)
	}
	return &snap, nil
}

// Delete removes the snapshot. Deleting a missing agent is not an error.
func (s *Store) Delete(ctx context.Context, agentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE agent_id = ?`, agentID); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", agentID, err)
	}
	return nil
}

// List returns every stored agent ID, sorted.
func (s *Store) List(ctx context.Context) (ids []string, retErr error) {
	rows, err := s.db.QueryContext(ctx, `SELECT agent_id FROM snapshots ORDER BY agent_id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}()
	ids = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByTemplate returns the IDs of agents instantiated from template, sorted.
func (s *Store) ListByTemplate(ctx context.Context, template string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT agent_id FROM snapshots WHERE template = ? ORDER BY agent_id`, template)
	if err != nil {
		return nil, fmt.Errorf("list snapshots of %s: %w", template, err)
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
