package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"resume-ragger/internal/chunker"
	"resume-ragger/internal/model"
	"resume-ragger/internal/pkg/pdfextract"
)

// RunPublisher receives a record of every completed ingestion.
type RunPublisher interface {
	Publish(ctx context.Context, run model.IngestRun) error
}

// IngestLock coordinates ingestion into one collection across processes.
type IngestLock interface {
	TryLock(ctx context.Context, collection string) (unlock func(context.Context) error, acquired bool, err error)
}

type IngestResult struct {
	RunID      string `json:"run_id"`
	Collection string `json:"collection"`
	Document   string `json:"document"`
	ChunkCount int    `json:"chunk_count"`
}

// IngestService runs the whole pipeline: collection setup, extraction,
// chunking and indexing.
type IngestService struct {
	index     *ResumeIndex
	publisher RunPublisher
	lock      IngestLock
	now       func() time.Time
}

// NewIngestService wires the pipeline. publisher and lock may be nil.
func NewIngestService(index *ResumeIndex, publisher RunPublisher, lock IngestLock) *IngestService {
	return &IngestService{
		index:     index,
		publisher: publisher,
		lock:      lock,
		now:       time.Now,
	}
}

// IngestFile extracts the PDF at path and indexes its chunks.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	return s.run(ctx, filepath.Base(path), func() (string, error) {
		return pdfextract.ExtractFile(path)
	})
}

// IngestReader indexes a PDF read from r; name is recorded as the document label.
func (s *IngestService) IngestReader(ctx context.Context, name string, r io.Reader) (*IngestResult, error) {
	return s.run(ctx, name, func() (string, error) {
		return pdfextract.ExtractText(r)
	})
}

// IngestText indexes already extracted text.
func (s *IngestService) IngestText(ctx context.Context, name, text string) (*IngestResult, error) {
	return s.run(ctx, name, func() (string, error) {
		return text, nil
	})
}

func (s *IngestService) run(ctx context.Context, document string, extract func() (string, error)) (*IngestResult, error) {
	collection := s.index.Collection()
	if s.lock != nil {
		unlock, acquired, err := s.lock.TryLock(ctx, collection)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, fmt.Errorf("%w: %s", ErrIngestBusy, collection)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				log.Printf("release ingest lock failed: %v", err)
			}
		}()
	}

	if err := s.index.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	text, err := extract()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	chunks := chunker.Split(text)
	n, err := s.index.Ingest(ctx, chunks)
	if err != nil {
		return nil, err
	}

	run := model.IngestRun{
		RunID:      uuid.NewString(),
		Collection: collection,
		Source:     s.index.source,
		Document:   document,
		ChunkCount: n,
		CreatedAt:  s.now(),
	}
	// Points are already stored at this point; publish errors are only logged.
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, run); err != nil {
			log.Printf("publish ingest run %s failed: %v", run.RunID, err)
		}
	}

	return &IngestResult{
		RunID:      run.RunID,
		Collection: collection,
		Document:   document,
		ChunkCount: n,
	}, nil
}
