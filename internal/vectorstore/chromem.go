package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
)

var errNoEmbeddingFunc = errors.New("chromem collection stores precomputed vectors only")

// ChromemStore keeps collections in an embedded chromem-go database.
// chromem-go only ranks by cosine similarity.
type ChromemStore struct {
	db *chromem.DB

	mu   sync.RWMutex
	dims map[string]int
}

// NewChromemStore wraps an existing chromem database (in-memory or persistent).
func NewChromemStore(db *chromem.DB) *ChromemStore {
	return &ChromemStore{db: db, dims: make(map[string]int)}
}

// OpenChromemStore opens or creates a persistent database under path.
func OpenChromemStore(path string, compress bool) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("open chromem db failed: %w", err)
	}
	return NewChromemStore(db), nil
}

// CreateCollection creates name, or returns ErrCollectionExists when it is
// already there with the same vector length. A stored length that differs
// from dimension is ErrDimension.
func (s *ChromemStore) CreateCollection(ctx context.Context, name string, dimension int, distance Distance) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", ErrDimension, dimension)
	}
	if distance != Cosine {
		return fmt.Errorf("%w: %s", ErrDistance, distance)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.db.GetCollection(name, noEmbedding); c != nil {
		stored := s.dims[name]
		if stored == 0 {
			stored = storedDimension(ctx, c)
		}
		if stored > 0 && stored != dimension {
			return fmt.Errorf("%w: collection %s holds %d values per vector, want %d", ErrDimension, name, stored, dimension)
		}
		s.dims[name] = dimension
		return fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	metadata := map[string]string{
		"dimension": strconv.Itoa(dimension),
		"distance":  string(distance),
	}
	if _, err := s.db.CreateCollection(name, metadata, noEmbedding); err != nil {
		return fmt.Errorf("create chromem collection failed: %w", err)
	}
	s.dims[name] = dimension
	return nil
}

// Upsert stores every point; documents are keyed by id so a repeated id overwrites.
func (s *ChromemStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	c, dim, err := s.collection(ctx, collection)
	if err != nil {
		return err
	}
	docs := make([]chromem.Document, len(points))
	for i, p := range points {
		if dim > 0 && len(p.Vector) != dim {
			return fmt.Errorf("%w: point %d has %d values, want %d", ErrDimension, p.ID, len(p.Vector), dim)
		}
		text, _ := p.Payload["text"].(string)
		docs[i] = chromem.Document{
			ID:        strconv.FormatUint(p.ID, 10),
			Metadata:  payloadMetadata(p.Payload),
			Embedding: append([]float32(nil), p.Vector...),
			Content:   text,
		}
	}
	if err := c.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add chromem documents failed: %w", err)
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, collection string, vector []float32, limit int) ([]Hit, error) {
	c, dim, err := s.collection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if dim > 0 && len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d values, want %d", ErrDimension, len(vector), dim)
	}
	// chromem rejects nResults above the document count.
	n := c.Count()
	if limit > n {
		limit = n
	}
	if limit <= 0 {
		return []Hit{}, nil
	}
	results, err := c.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query chromem collection failed: %w", err)
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		id, err := strconv.ParseUint(r.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse chromem document id %q failed: %w", r.ID, err)
		}
		payload := make(map[string]any, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			payload[k] = v
		}
		payload["text"] = r.Content
		hits = append(hits, Hit{ID: id, Score: r.Similarity, Payload: payload})
	}
	return hits, nil
}

func (s *ChromemStore) Count(ctx context.Context, collection string) (int, error) {
	c, _, err := s.collection(ctx, collection)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// Ping always succeeds; the database lives in-process.
func (s *ChromemStore) Ping(context.Context) error { return nil }

// collection resolves name and its vector length. A reopened persistent
// database starts with no recorded lengths, so they are read back from disk.
func (s *ChromemStore) collection(ctx context.Context, name string) (*chromem.Collection, int, error) {
	s.mu.RLock()
	c := s.db.GetCollection(name, noEmbedding)
	dim := s.dims[name]
	s.mu.RUnlock()
	if c == nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrCollectionMissing, name)
	}
	if dim == 0 {
		if dim = storedDimension(ctx, c); dim > 0 {
			s.mu.Lock()
			s.dims[name] = dim
			s.mu.Unlock()
		}
	}
	return c, dim, nil
}

// storedDimension reads the vector length of point 0, or returns 0 when the
// collection is empty. Ids are positions, so point 0 exists in any non-empty
// collection written by this store.
func storedDimension(ctx context.Context, c *chromem.Collection) int {
	if c.Count() == 0 {
		return 0
	}
	doc, err := c.GetByID(ctx, "0")
	if err != nil {
		return 0
	}
	return len(doc.Embedding)
}

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// chromem metadata is string-only; "text" travels as document content instead.
func payloadMetadata(payload map[string]any) map[string]string {
	meta := make(map[string]string, len(payload))
	for k, v := range payload {
		if k == "text" {
			continue
		}
		meta[k] = fmt.Sprint(v)
	}
	return meta
}
