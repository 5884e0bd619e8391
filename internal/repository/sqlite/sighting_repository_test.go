package sqlite

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"agrovision/internal/dto"
	"agrovision/internal/model"
)

func newTestRepository(t *testing.T) *SightingRepository {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "data", "sightings.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	repo := NewSightingRepository(db)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestDatabase_CreatesFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestSightingRepository_InsertAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	detectedAt := time.Date(2025, 6, 15, 14, 30, 5, 0, time.UTC)
	snapshot := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}

	s := &model.Sighting{RunID: "run-a", MarkerID: 3, DetectedAt: detectedAt, Snapshot: snapshot}
	id, err := repo.Insert(ctx, s)
	if err != nil {
		t.Fatalf("Failed to insert sighting: %v", err)
	}
	if id <= 0 || s.ID != id {
		t.Fatalf("Expected positive id stored on the record, got %d / %d", id, s.ID)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get sighting: %v", err)
	}
	if got == nil {
		t.Fatal("Expected sighting, got nil")
	}
	if got.MarkerID != 3 || got.RunID != "run-a" {
		t.Errorf("Unexpected sighting %+v", got)
	}
	if !got.DetectedAt.Equal(detectedAt) {
		t.Errorf("Expected detected_at %v, got %v", detectedAt, got.DetectedAt)
	}
	if !bytes.Equal(got.Snapshot, snapshot) || got.SnapshotSize != int64(len(snapshot)) {
		t.Errorf("Snapshot did not round-trip: %v (%d bytes)", got.Snapshot, got.SnapshotSize)
	}
}

func TestSightingRepository_GetByIDMissing(t *testing.T) {
	repo := newTestRepository(t)

	got, err := repo.GetByID(context.Background(), 404)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing sighting, got %+v", got)
	}
}

func TestSightingRepository_GetAllWithFilters(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

	for i, marker := range []int{1, 2, 1, 3, 1} {
		_, err := repo.Insert(ctx, &model.Sighting{
			RunID:      "run-a",
			MarkerID:   marker,
			DetectedAt: base.Add(time.Duration(i) * time.Hour),
			Snapshot:   []byte{byte(i)},
		})
		if err != nil {
			t.Fatalf("Failed to insert sighting %d: %v", i, err)
		}
	}

	all, err := repo.GetAll(ctx, &dto.SightingFilters{})
	if err != nil {
		t.Fatalf("Failed to list sightings: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("Expected 5 sightings, got %d", len(all))
	}
	if !all[0].DetectedAt.After(all[4].DetectedAt) {
		t.Error("Expected newest sighting first")
	}
	if all[0].Snapshot != nil {
		t.Error("Expected list results without snapshot bytes")
	}

	marker := 1
	byMarker, err := repo.GetAll(ctx, &dto.SightingFilters{MarkerID: &marker})
	if err != nil {
		t.Fatalf("Failed to filter by marker: %v", err)
	}
	if len(byMarker) != 3 {
		t.Errorf("Expected 3 sightings of marker 1, got %d", len(byMarker))
	}

	window := &dto.SightingFilters{Since: base.Add(time.Hour), Until: base.Add(3 * time.Hour)}
	inWindow, err := repo.GetAll(ctx, window)
	if err != nil {
		t.Fatalf("Failed to filter by time: %v", err)
	}
	if len(inWindow) != 3 {
		t.Errorf("Expected 3 sightings in window, got %d", len(inWindow))
	}

	count, err := repo.GetTotalCount(ctx, &dto.SightingFilters{MarkerID: &marker, Limit: 1})
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected count 3 ignoring paging, got %d", count)
	}

	page, err := repo.GetAll(ctx, &dto.SightingFilters{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("Failed to page: %v", err)
	}
	if len(page) != 2 || page[0].MarkerID != 1 || page[1].MarkerID != 2 {
		t.Errorf("Unexpected second page %+v", page)
	}
}

func TestSightingRepository_InsertCanceledContext(t *testing.T) {
	repo := newTestRepository(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Insert(ctx, &model.Sighting{RunID: "run-a", MarkerID: 1, DetectedAt: time.Now()})
	if err == nil {
		t.Fatal("Expected error for canceled context")
	}

	count, err := repo.GetTotalCount(context.Background(), nil)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no rows after failed insert, got %d", count)
	}
}
