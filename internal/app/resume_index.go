package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-ragger/internal/vectorstore"
)

const (
	DefaultCollection = "resume_collection"
	DefaultSource     = "resume"
	DefaultDimension  = 384
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	CreateCollection(ctx context.Context, name string, dimension int, distance vectorstore.Distance) error
	Upsert(ctx context.Context, collection string, points []vectorstore.Point) error
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]vectorstore.Hit, error)
	Count(ctx context.Context, collection string) (int, error)
}

type ResumeIndexConfig struct {
	Collection string
	Source     string
	Dimension  int
}

// ResumeIndex turns resume chunks into stored points and answers similarity queries.
// It holds no state besides its collaborators; concurrent Ingest calls on the same
// collection overwrite each other's positional ids.
type ResumeIndex struct {
	embedder   Embedder
	store      VectorStore
	collection string
	source     string
	dimension  int
}

func NewResumeIndex(embedder Embedder, store VectorStore, cfg ResumeIndexConfig) *ResumeIndex {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
		if d, ok := embedder.(interface{ Dimension() int }); ok && d.Dimension() > 0 {
			cfg.Dimension = d.Dimension()
		}
	}
	return &ResumeIndex{
		embedder:   embedder,
		store:      store,
		collection: cfg.Collection,
		source:     cfg.Source,
		dimension:  cfg.Dimension,
	}
}

func (r *ResumeIndex) Collection() string {
	return r.collection
}

// EnsureCollection creates the collection with cosine distance. An existing
// collection is not an error; anything else is returned as ErrSetup.
func (r *ResumeIndex) EnsureCollection(ctx context.Context) error {
	err := r.store.CreateCollection(ctx, r.collection, r.dimension, vectorstore.Cosine)
	if err == nil || errors.Is(err, vectorstore.ErrCollectionExists) {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrSetup, err)
}

// Ingest embeds chunks in order and writes them in a single upsert, using each
// chunk's position as its id. It returns the number of points written.
func (r *ResumeIndex) Ingest(ctx context.Context, chunks []string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			return 0, fmt.Errorf("%w: chunk %d is blank", ErrInvalidInput, i)
		}
	}

	points := make([]vectorstore.Point, 0, len(chunks))
	for i, c := range chunks {
		vec, err := r.embed(ctx, c)
		if err != nil {
			return 0, fmt.Errorf("chunk %d: %w", i, err)
		}
		points = append(points, vectorstore.Point{
			ID:     uint64(i),
			Vector: vec,
			Payload: map[string]any{
				"text":   c,
				"source": r.source,
			},
		})
	}

	if err := r.store.Upsert(ctx, r.collection, points); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return len(points), nil
}

// Search returns the payload text of the limit nearest chunks, closest first.
func (r *ResumeIndex) Search(ctx context.Context, query string, limit int) ([]string, error) {
	hits, err := r.Hits(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(hits))
	for _, h := range hits {
		texts = append(texts, h.Text())
	}
	return texts, nil
}

// Hits is Search keeping ids and scores.
func (r *ResumeIndex) Hits(ctx context.Context, query string, limit int) ([]vectorstore.Hit, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1", ErrInvalidInput)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidInput)
	}
	vec, err := r.embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := r.store.Search(ctx, r.collection, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []vectorstore.Hit{}
	}
	return hits, nil
}

func (r *ResumeIndex) Count(ctx context.Context) (int, error) {
	n, err := r.store.Count(ctx, r.collection)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return n, nil
}

func (r *ResumeIndex) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vec) != r.dimension {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrEmbedding, len(vec), r.dimension)
	}
	return vec, nil
}
