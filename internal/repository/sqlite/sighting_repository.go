package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agrovision/internal/dto"
	"agrovision/internal/model"
	"agrovision/internal/repository"
)

// SightingRepository implements repository.SightingRepository for SQLite.
type SightingRepository struct {
	db *DB
}

var _ repository.SightingRepository = (*SightingRepository)(nil)

// NewSightingRepository creates a new SQLite sighting repository.
func NewSightingRepository(db *DB) *SightingRepository {
	return &SightingRepository{db: db}
}

// Insert writes one sighting inside its own transaction.
func (r *SightingRepository) Insert(ctx context.Context, s *model.Sighting) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO sightings (run_id, marker_id, detected_at, snapshot, snapshot_size)
		VALUES (?, ?, ?, ?, ?)
	`, s.RunID, s.MarkerID, s.DetectedAt.UTC(), s.Snapshot, int64(len(s.Snapshot)))
	if err != nil {
		return 0, fmt.Errorf("failed to insert sighting: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sighting: %w", err)
	}

	s.ID = id
	s.SnapshotSize = int64(len(s.Snapshot))
	return id, nil
}

// GetByID retrieves a sighting including its snapshot. It returns nil when
// no sighting has the given id.
func (r *SightingRepository) GetByID(ctx context.Context, id int64) (*model.Sighting, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var s model.Sighting
	err := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, run_id, marker_id, detected_at, snapshot, snapshot_size
		FROM sightings WHERE id = ?
	`, id).Scan(&s.ID, &s.RunID, &s.MarkerID, &s.DetectedAt, &s.Snapshot, &s.SnapshotSize)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sighting: %w", err)
	}
	return &s, nil
}

// GetAll retrieves sightings matching the filter, newest first. Snapshots
// are not loaded.
func (r *SightingRepository) GetAll(ctx context.Context, filter *dto.SightingFilters) ([]model.Sighting, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := repository.SightingConditions(filter, repository.QuestionMark)
	paging, args := repository.Paging(filter, repository.QuestionMark, args)

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

// GetTotalCount returns the number of sightings matching the filter,
// ignoring paging.
func (r *SightingRepository) GetTotalCount(ctx context.Context, filter *dto.SightingFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := repository.SightingConditions(filter, repository.QuestionMark)

	var count int
	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM sightings`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sightings: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (r *SightingRepository) Close() error {
	return r.db.Close()
}
