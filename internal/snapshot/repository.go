package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for snapshot persistence.
type Repository interface {
	// Create persists a new snapshot with a server-assigned ID and
	// creation timestamp, returning the metadata.
	Create(ctx context.Context, name, description string, data Data) (*Snapshot, error)

	// Get returns one snapshot's metadata and captured payload.
	// Returns ErrNotFound if the ID does not exist.
	Get(ctx context.Context, id string) (*Snapshot, *Data, error)

	// List returns snapshot metadata only, newest first.
	List(ctx context.Context) ([]Snapshot, error)

	// Delete removes a snapshot by ID.
	// Returns ErrNotFound if the ID does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed snapshot repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create persists a new snapshot.
func (r *SQLiteRepository) Create(ctx context.Context, name, description string, data Data) (*Snapshot, error) {
	blob, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshalling snapshot data: %w", err)
	}

	snap := &Snapshot{
		ID:          newSnapshotID(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO config_snapshots (id, name, description, data, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.Name, snap.Description, string(blob),
		snap.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("inserting snapshot: %w", err)
	}
	return snap, nil
}

// Get returns one snapshot's metadata and captured payload.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Snapshot, *Data, error) {
	var (
		snap      Snapshot
		blob      string
		createdAt string
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, data, created_at
		FROM config_snapshots WHERE id = ?`, id).
		Scan(&snap.ID, &snap.Name, &snap.Description, &blob, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("querying snapshot: %w", err)
	}

	if snap.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, nil, fmt.Errorf("parsing created_at: %w", err)
	}

	var data Data
	if err := json.Unmarshal([]byte(blob), &data); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling snapshot data: %w", err)
	}
	return &snap, &data, nil
}

// List returns snapshot metadata only, newest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, created_at
		FROM config_snapshots ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var (
			snap      Snapshot
			createdAt string
		)
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if snap.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot rows: %w", err)
	}
	return snapshots, nil
}

// Delete removes a snapshot by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM config_snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// newSnapshotID returns a short, URL-safe snapshot identifier.
func newSnapshotID() string {
	return "snap-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
