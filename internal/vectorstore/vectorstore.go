package vectorstore

import (
	"errors"
	"fmt"
)

// Distance is the similarity metric of a collection.
type Distance string

const (
	Cosine Distance = "Cosine"
)

var (
	// ErrCollectionExists is returned by CreateCollection when the collection is already present.
	ErrCollectionExists  = errors.New("collection already exists")
	ErrCollectionMissing = errors.New("collection not found")
	ErrDimension         = errors.New("vector dimension mismatch")
	ErrDistance          = errors.New("unsupported distance")
)

// Point is one stored (id, vector, payload) triple.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]any
}

// Hit is one nearest-neighbour result, closest first.
type Hit struct {
	ID      uint64         `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Text returns the "text" payload field, or "" when absent.
func (h Hit) Text() string {
	s, _ := h.Payload["text"].(string)
	return s
}

// StatusError is a non-2xx answer from a remote vector store.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
}
