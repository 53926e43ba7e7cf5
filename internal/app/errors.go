package app

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrSetup        = errors.New("collection setup failed")
	ErrExtraction   = errors.New("text extraction failed")
	ErrEmbedding    = errors.New("embedding failed")
	ErrStorage      = errors.New("vector store failed")
	ErrIngestBusy   = errors.New("another ingest is running")
)
