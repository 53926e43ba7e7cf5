package model

import "time"

// IngestRun records one completed resume ingestion.
type IngestRun struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RunID      string    `gorm:"size:36;not null;uniqueIndex" json:"run_id"`
	Collection string    `gorm:"size:128;not null;index" json:"collection"`
	Source     string    `gorm:"size:64;not null" json:"source"`
	Document   string    `gorm:"size:512" json:"document"`
	ChunkCount int       `gorm:"not null" json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}
