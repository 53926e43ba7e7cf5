package worker

import (
	"errors"
	"testing"

	"resume-ragger/internal/model"
)

type memoryRunStore struct {
	runs []model.IngestRun
	err  error
}

func (s *memoryRunStore) Create(run *model.IngestRun) error {
	if s.err != nil {
		return s.err
	}
	s.runs = append(s.runs, *run)
	return nil
}

func TestHandleStoresRun(t *testing.T) {
	store := &memoryRunStore{}
	w := NewIngestRunPersistWorker(nil, store, "resume.ingest.run")

	body := []byte(`{"id":9,"run_id":"3f1c","collection":"resume_collection","source":"resume","document":"cv.pdf","chunk_count":4}`)
	if err := w.handle(body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(store.runs) != 1 {
		t.Fatalf("expected 1 stored run, got %d", len(store.runs))
	}
	got := store.runs[0]
	if got.ID != 0 || got.RunID != "3f1c" || got.ChunkCount != 4 || got.Collection != "resume_collection" {
		t.Fatalf("unexpected run %+v", got)
	}
}

func TestHandleRejectsBadPayload(t *testing.T) {
	store := &memoryRunStore{}
	w := NewIngestRunPersistWorker(nil, store, "q")

	for _, body := range []string{`not json`, `{"collection":"c"}`} {
		if err := w.handle([]byte(body)); err == nil {
			t.Errorf("expected error for %q", body)
		}
	}
	if len(store.runs) != 0 {
		t.Fatalf("nothing should be stored, got %d", len(store.runs))
	}
}

func TestHandlePropagatesStoreError(t *testing.T) {
	boom := errors.New("db down")
	w := NewIngestRunPersistWorker(nil, &memoryRunStore{err: boom}, "q")
	if err := w.handle([]byte(`{"run_id":"x"}`)); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
