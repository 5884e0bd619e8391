package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"agrovision/internal/dto"
	"agrovision/internal/model"
	"agrovision/internal/repository"
)

// SightingRepository implements repository.SightingRepository for PostgreSQL.
// The pool tolerates concurrent use, so no extra locking is done here.
type SightingRepository struct {
	db *DB
}

var _ repository.SightingRepository = (*SightingRepository)(nil)

// NewSightingRepository creates a new PostgreSQL sighting repository.
func NewSightingRepository(db *DB) *SightingRepository {
	return &SightingRepository{db: db}
}

func dollar(n int) string { return "$" + strconv.Itoa(n) }

// Insert writes one sighting inside its own transaction.
func (r *SightingRepository) Insert(ctx context.Context, s *model.Sighting) (int64, error) {
	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sightings (run_id, marker_id, detected_at, snapshot, snapshot_size)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, s.RunID, s.MarkerID, s.DetectedAt.UTC(), s.Snapshot, int64(len(s.Snapshot))).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sighting: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sighting: %w", err)
	}

	s.ID = id
	s.SnapshotSize = int64(len(s.Snapshot))
	return id, nil
}

// GetByID retrieves a sighting including its snapshot, or nil when absent.
func (r *SightingRepository) GetByID(ctx context.Context, id int64) (*model.Sighting, error) {
	var s model.Sighting
	err := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, run_id, marker_id, detected_at, snapshot, snapshot_size
		FROM sightings WHERE id = $1
	`, id).Scan(&s.ID, &s.RunID, &s.MarkerID, &s.DetectedAt, &s.Snapshot, &s.SnapshotSize)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sighting: %w", err)
	}
	return &s, nil
}

// GetAll retrieves sightings matching the filter, newest first, without
// snapshot bytes.
func (r *SightingRepository) GetAll(ctx context.Context, filter *dto.SightingFilters) ([]model.Sighting, error) {
	where, args := repository.SightingConditions(filter, dollar)
	paging, args := repository.Paging(filter, dollar, args)

	query := `SELECT id, run_id, marker_id, detected_at, snapshot_size FROM sightings` +
		where + ` ORDER BY detected_at DESC, id DESC` + paging

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	var sightings []model.Sighting
	for rows.Next() {
		var s model.Sighting
		if err := rows.Scan(&s.ID, &s.RunID, &s.MarkerID, &s.DetectedAt, &s.SnapshotSize); err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}
		sightings = append(sightings, s)
	}

	return sightings, rows.Err()
}

// GetTotalCount returns the number of sightings matching the filter.
func (r *SightingRepository) GetTotalCount(ctx context.Context, filter *dto.SightingFilters) (int, error) {
	where, args := repository.SightingConditions(filter, dollar)

	var count int
	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM sightings`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sightings: %w", err)
	}
	return count, nil
}

// Close closes the pool.
func (r *SightingRepository) Close() error {
	return r.db.Close()
}
