package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// QdrantConfig contains connection details for a Qdrant server (REST port).
type QdrantConfig struct {
	Host    string
	Port    int
	HTTPS   bool
	APIKey  string
	Timeout time.Duration
}

// QdrantStore is a minimal REST client to Qdrant.
type QdrantStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewQdrantStore(cfg QdrantConfig) *QdrantStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 6333
	}
	scheme := "http"
	if cfg.HTTPS {
		scheme = "https"
	}
	return &QdrantStore{
		baseURL:    fmt.Sprintf("%s://%s:%d", scheme, host, port),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewQdrantStoreWithURL points the client at an explicit base URL.
func NewQdrantStoreWithURL(baseURL, apiKey string, client *http.Client) *QdrantStore {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &QdrantStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: client,
	}
}

// CreateCollection creates the collection. Qdrant refuses to recreate an existing
// collection; that answer is reported as ErrCollectionExists.
func (s *QdrantStore) CreateCollection(ctx context.Context, name string, dimension int, distance Distance) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", ErrDimension, dimension)
	}
	if distance != Cosine {
		return fmt.Errorf("%w: %s", ErrDistance, distance)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": string(distance),
		},
	}
	err := s.do(ctx, "create collection", http.MethodPut, s.collectionURL(name), body, nil)
	if err == nil {
		return nil
	}
	var se *StatusError
	if errors.As(err, &se) && isAlreadyExists(se) {
		return fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	return err
}

// Upsert writes all points in one batch and waits until they are applied.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	wire := make([]qdrantPoint, len(points))
	for i, p := range points {
		wire[i] = qdrantPoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	body := map[string]any{"points": wire}
	return s.mapMissing(s.do(ctx, "upsert points", http.MethodPut, s.collectionURL(collection)+"/points?wait=true", body, nil))
}

// Search returns up to limit points nearest to vector, closest first.
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, limit int) ([]Hit, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      json.RawMessage `json:"id"`
			Score   float32         `json:"score"`
			Payload map[string]any  `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, "search points", http.MethodPost, s.collectionURL(collection)+"/points/search", body, &resp); err != nil {
		return nil, s.mapMissing(err)
	}
	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		id, err := strconv.ParseUint(string(r.ID), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("search points: unexpected point id %s: %w", r.ID, err)
		}
		hits = append(hits, Hit{ID: id, Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	body := map[string]any{"exact": true}
	if err := s.do(ctx, "count points", http.MethodPost, s.collectionURL(collection)+"/points/count", body, &resp); err != nil {
		return 0, s.mapMissing(err)
	}
	return resp.Result.Count, nil
}

// Ping checks that the server answers its health endpoint.
func (s *QdrantStore) Ping(ctx context.Context) error {
	return s.do(ctx, "ping", http.MethodGet, s.baseURL+"/healthz", nil, nil)
}

type qdrantPoint struct {
	ID      uint64         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (s *QdrantStore) collectionURL(name string) string {
	return s.baseURL + "/collections/" + url.PathEscape(name)
}

func (s *QdrantStore) do(ctx context.Context, op, method, target string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant %s marshal failed: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("qdrant %s build request failed: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("qdrant %s read response failed: %w", op, err)
	}
	if resp.StatusCode >= 300 {
		return &StatusError{Op: "qdrant " + op, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("qdrant %s parse response failed: %w", op, err)
		}
	}
	return nil
}

func (s *QdrantStore) mapMissing(err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrCollectionMissing, se)
	}
	return err
}

// Qdrant answers 409 on recent versions and 400 "Wrong input: Collection `x` already exists!" on older ones.
func isAlreadyExists(se *StatusError) bool {
	if se.Status == http.StatusConflict {
		return true
	}
	return se.Status == http.StatusBadRequest && strings.Contains(strings.ToLower(se.Body), "already exists")
}
