package repository

import (
	"fmt"

	"gorm.io/gorm"

	"resume-ragger/internal/model"
)

type IngestRunRepository struct {
	db *gorm.DB
}

func NewIngestRunRepository(db *gorm.DB) *IngestRunRepository {
	return &IngestRunRepository{db: db}
}

func (r *IngestRunRepository) Create(run *model.IngestRun) error {
	if err := r.db.Create(run).Error; err != nil {
		return fmt.Errorf("create ingest run failed: %w", err)
	}
	return nil
}

// ListRecent returns the newest runs first, optionally restricted to one collection.
func (r *IngestRunRepository) ListRecent(collection string, limit int) ([]model.IngestRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	q := r.db.Order("created_at DESC").Order("id DESC").Limit(limit)
	if collection != "" {
		q = q.Where("collection = ?", collection)
	}
	var runs []model.IngestRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list ingest runs failed: %w", err)
	}
	return runs, nil
}
