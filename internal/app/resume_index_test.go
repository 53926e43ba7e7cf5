package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/philippgille/chromem-go"

	"resume-ragger/internal/vectorstore"
)

func newTestIndex(store VectorStore) (*ResumeIndex, *keywordEmbedder) {
	emb := newKeywordEmbedder(DefaultDimension)
	return NewResumeIndex(emb, store, ResumeIndexConfig{Collection: "resume_collection"}), emb
}

func TestEnsureCollection(t *testing.T) {
	store := newRecordingStore()
	idx, _ := newTestIndex(store)

	if err := idx.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(store.created) != 1 || store.created[0][0] != 384 || store.created[0][1] != vectorstore.Cosine {
		t.Fatalf("unexpected create calls %v", store.created)
	}
}

func TestEnsureCollectionSwallowsOnlyExists(t *testing.T) {
	store := newRecordingStore()
	idx, _ := newTestIndex(store)

	store.createErr = fmt.Errorf("wrapped: %w", vectorstore.ErrCollectionExists)
	if err := idx.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("existing collection must not fail, got %v", err)
	}

	store.createErr = &vectorstore.StatusError{Op: "qdrant create collection", Status: 500, Body: "boom"}
	err := idx.EnsureCollection(context.Background())
	if !errors.Is(err, ErrSetup) {
		t.Fatalf("expected ErrSetup, got %v", err)
	}
	var se *vectorstore.StatusError
	if !errors.As(err, &se) || se.Status != 500 {
		t.Fatalf("cause must stay reachable, got %v", err)
	}
}

func TestEnsureCollectionIdempotentChromem(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(vectorstore.NewChromemStore(chromem.NewDB()))

	for i := 0; i < 2; i++ {
		if err := idx.EnsureCollection(ctx); err != nil {
			t.Fatalf("ensure #%d: %v", i+1, err)
		}
	}
	if _, err := idx.Ingest(ctx, []string{"Experienced backend engineer."}); err != nil {
		t.Fatalf("dimension must be unchanged after repeated ensure: %v", err)
	}
}

func TestIngestAssignsPositionalIDs(t *testing.T) {
	store := newRecordingStore()
	idx, emb := newTestIndex(store)
	chunks := []string{"Experienced backend engineer.", "Skilled in distributed systems."}

	n, err := idx.Ingest(context.Background(), chunks)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 points, got %d", n)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected one batched upsert, got %d", len(store.upserts))
	}
	if len(emb.calls) != 2 || emb.calls[0] != chunks[0] || emb.calls[1] != chunks[1] {
		t.Fatalf("chunks must be embedded in order, got %q", emb.calls)
	}
	for i, p := range store.upserts[0] {
		if p.ID != uint64(i) {
			t.Errorf("point %d has id %d", i, p.ID)
		}
		if p.Payload["text"] != chunks[i] || p.Payload["source"] != "resume" {
			t.Errorf("point %d has payload %v", i, p.Payload)
		}
		if len(p.Vector) != DefaultDimension {
			t.Errorf("point %d has %d values", i, len(p.Vector))
		}
	}
}

func TestIngestEmptyMakesNoUpsert(t *testing.T) {
	store := newRecordingStore()
	idx, emb := newTestIndex(store)

	n, err := idx.Ingest(context.Background(), nil)
	if err != nil || n != 0 {
		t.Fatalf("expected 0 points and no error, got %d, %v", n, err)
	}
	if len(store.upserts) != 0 || len(emb.calls) != 0 {
		t.Fatalf("expected no embedding or upsert calls, got %d and %d", len(emb.calls), len(store.upserts))
	}
}

func TestIngestEmbeddingErrorAbortsBatch(t *testing.T) {
	store := newRecordingStore()
	idx, emb := newTestIndex(store)
	emb.fail = map[string]error{"second": errBoom}

	_, err := idx.Ingest(context.Background(), []string{"first", "second", "third"})
	if !errors.Is(err, ErrEmbedding) || !errors.Is(err, errBoom) {
		t.Fatalf("expected embedding error wrapping cause, got %v", err)
	}
	if len(store.upserts) != 0 {
		t.Fatalf("nothing may be upserted after an embedding failure")
	}
	if len(emb.calls) != 2 {
		t.Fatalf("remaining chunks must not be embedded, got %d calls", len(emb.calls))
	}
}

func TestIngestRejectsWrongDimension(t *testing.T) {
	store := newRecordingStore()
	idx := NewResumeIndex(newKeywordEmbedder(8), store, ResumeIndexConfig{})

	if _, err := idx.Ingest(context.Background(), []string{"backend"}); !errors.Is(err, ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
}

func TestIngestRejectsBlankChunk(t *testing.T) {
	store := newRecordingStore()
	idx, emb := newTestIndex(store)

	if _, err := idx.Ingest(context.Background(), []string{"ok", "  \n "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(emb.calls) != 0 {
		t.Fatalf("validation must happen before embedding")
	}
}

func TestIngestStorageError(t *testing.T) {
	store := newRecordingStore()
	store.upsertErr = errBoom
	idx, _ := newTestIndex(store)

	if _, err := idx.Ingest(context.Background(), []string{"a"}); !errors.Is(err, ErrStorage) || !errors.Is(err, errBoom) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestReingestOverwrites(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(vectorstore.NewChromemStore(chromem.NewDB()))
	chunks := []string{"Experienced backend engineer.", "Skilled in distributed systems.", "Education"}

	if err := idx.EnsureCollection(ctx); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := idx.Ingest(ctx, chunks); err != nil {
			t.Fatalf("ingest #%d: %v", i+1, err)
		}
	}
	n, err := idx.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != len(chunks) {
		t.Fatalf("expected %d points after re-ingest, got %d", len(chunks), n)
	}
}

func TestSearchBackendEngineerScenario(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(vectorstore.NewChromemStore(chromem.NewDB()))
	if err := idx.EnsureCollection(ctx); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := idx.Ingest(ctx, []string{"Experienced backend engineer.", "Skilled in distributed systems."}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	got, err := idx.Search(ctx, "backend engineering experience", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0] != "Experienced backend engineer." {
		t.Fatalf("expected the backend chunk, got %q", got)
	}

	hits, err := idx.Hits(ctx, "distributed systems", 1)
	if err != nil {
		t.Fatalf("hits: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != 1 {
		t.Fatalf("expected id 1, got %+v", hits)
	}
}

func TestSearchResultsBoundedAndVerbatim(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(vectorstore.NewChromemStore(chromem.NewDB()))
	_ = idx.EnsureCollection(ctx)
	chunks := []string{"  Backend  engineer\nwith Go  ", "Systems thinking", "Distributed tracing", "Hobbies: chess"}
	if _, err := idx.Ingest(ctx, chunks); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	stored := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		stored[c] = true
	}
	for _, limit := range []int{1, 2, 4, 10} {
		got, err := idx.Search(ctx, "backend systems", limit)
		if err != nil {
			t.Fatalf("search limit %d: %v", limit, err)
		}
		want := min(limit, len(chunks))
		if len(got) != want {
			t.Fatalf("limit %d: expected %d results, got %d", limit, want, len(got))
		}
		for _, text := range got {
			if !stored[text] {
				t.Fatalf("limit %d: result %q was never ingested", limit, text)
			}
		}
	}
}

func TestSearchEmptyCollection(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(vectorstore.NewChromemStore(chromem.NewDB()))
	_ = idx.EnsureCollection(ctx)

	for _, limit := range []int{1, 3, 100} {
		got, err := idx.Search(ctx, "anything", limit)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty result, got %#v", got)
		}
	}
}

func TestSearchValidation(t *testing.T) {
	idx, emb := newTestIndex(newRecordingStore())

	if _, err := idx.Search(context.Background(), "go", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for limit 0, got %v", err)
	}
	if _, err := idx.Search(context.Background(), "   ", 3); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank query, got %v", err)
	}
	if len(emb.calls) != 0 {
		t.Fatalf("invalid searches must not embed")
	}
}

func TestSearchTruncatesOversizedStoreAnswer(t *testing.T) {
	store := newRecordingStore()
	store.hits = []vectorstore.Hit{
		{ID: 0, Payload: map[string]any{"text": "a"}},
		{ID: 1, Payload: map[string]any{"text": "b"}},
	}
	idx, _ := newTestIndex(store)

	got, err := idx.Search(context.Background(), "query", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected [a], got %q", got)
	}
}

func TestSearchStorageError(t *testing.T) {
	store := newRecordingStore()
	store.searchErr = errBoom
	idx, _ := newTestIndex(store)

	if _, err := idx.Search(context.Background(), "query", 3); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

// sizedEmbedder reports its own vector length.
type sizedEmbedder struct {
	*keywordEmbedder
}

func (e sizedEmbedder) Dimension() int { return e.dim }

func TestNewResumeIndexTakesEmbedderDimension(t *testing.T) {
	store := newRecordingStore()
	idx := NewResumeIndex(sizedEmbedder{newKeywordEmbedder(8)}, store, ResumeIndexConfig{})

	if err := idx.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(store.created) != 1 || store.created[0][0] != 8 {
		t.Fatalf("expected collection of 8 values, got %v", store.created)
	}

	idx = NewResumeIndex(sizedEmbedder{newKeywordEmbedder(8)}, newRecordingStore(), ResumeIndexConfig{Dimension: 4})
	if idx.dimension != 4 {
		t.Fatalf("configured dimension must win, got %d", idx.dimension)
	}
}
