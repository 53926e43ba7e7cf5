package app

import (
	"context"
	"errors"
	"strings"

	"resume-ragger/internal/vectorstore"
)

var testKeywords = []string{"backend", "engineer", "distributed", "systems"}

// keywordEmbedder maps text onto keyword-count dimensions plus a constant bias
// so no vector is zero.
type keywordEmbedder struct {
	dim   int
	calls []string
	fail  map[string]error
}

func newKeywordEmbedder(dim int) *keywordEmbedder {
	return &keywordEmbedder{dim: dim}
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls = append(e.calls, text)
	if err, ok := e.fail[text]; ok {
		return nil, err
	}
	vec := make([]float32, e.dim)
	lower := strings.ToLower(text)
	for i, kw := range testKeywords {
		if i >= e.dim-1 {
			break
		}
		vec[i] = float32(strings.Count(lower, kw[:len(kw)-1]))
	}
	vec[e.dim-1] = 0.1
	return vec, nil
}

type recordingStore struct {
	createErr error
	upsertErr error
	searchErr error

	created [][2]any
	upserts [][]vectorstore.Point
	points  map[uint64]vectorstore.Point
	hits    []vectorstore.Hit
}

func newRecordingStore() *recordingStore {
	return &recordingStore{points: make(map[uint64]vectorstore.Point)}
}

func (s *recordingStore) CreateCollection(_ context.Context, name string, dimension int, distance vectorstore.Distance) error {
	s.created = append(s.created, [2]any{dimension, distance})
	return s.createErr
}

func (s *recordingStore) Upsert(_ context.Context, _ string, points []vectorstore.Point) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts = append(s.upserts, points)
	for _, p := range points {
		s.points[p.ID] = p
	}
	return nil
}

func (s *recordingStore) Search(_ context.Context, _ string, _ []float32, limit int) ([]vectorstore.Hit, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if s.hits != nil {
		return s.hits, nil
	}
	var hits []vectorstore.Hit
	for id := uint64(0); len(hits) < limit && id < uint64(len(s.points)); id++ {
		if p, ok := s.points[id]; ok {
			hits = append(hits, vectorstore.Hit{ID: p.ID, Payload: p.Payload})
		}
	}
	return hits, nil
}

func (s *recordingStore) Count(context.Context, string) (int, error) {
	return len(s.points), nil
}

var errBoom = errors.New("boom")
