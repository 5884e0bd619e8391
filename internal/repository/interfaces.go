package repository

import (
	"context"

	"agrovision/internal/dto"
	"agrovision/internal/model"
)

// SightingRepository defines the interface for sighting data operations.
// Sightings are append-only: there is no update or delete path.
type SightingRepository interface {
	// Create operations
	Insert(ctx context.Context, s *model.Sighting) (int64, error)

	// Read operations
	GetByID(ctx context.Context, id int64) (*model.Sighting, error)
	GetAll(ctx context.Context, filter *dto.SightingFilters) ([]model.Sighting, error)
	GetTotalCount(ctx context.Context, filter *dto.SightingFilters) (int, error)

	Close() error
}
