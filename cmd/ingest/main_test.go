package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/philippgille/chromem-go"

	"resume-ragger/internal/app"
	"resume-ragger/internal/vectorstore"
)

// constEmbedder returns the same unit vector for any text.
type constEmbedder struct{}

func (constEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func newTestService() *app.IngestService {
	store := vectorstore.NewChromemStore(chromem.NewDB())
	idx := app.NewResumeIndex(constEmbedder{}, store, app.ResumeIndexConfig{Dimension: 3})
	return app.NewIngestService(idx, nil, nil)
}

func TestIngestPrintsSummary(t *testing.T) {
	var out bytes.Buffer
	path := filepath.Join("..", "..", "internal", "pkg", "pdfextract", "testdata", "two_pages.pdf")

	if err := ingest(context.Background(), newTestService(), path, &out); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if got := out.String(); got != "Added 1 resume chunks to resume_collection\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestIngestMissingFile(t *testing.T) {
	var out bytes.Buffer
	err := ingest(context.Background(), newTestService(), filepath.Join(t.TempDir(), "missing.pdf"), &out)
	if !errors.Is(err, app.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("nothing may be printed on failure, got %q", out.String())
	}
}

func TestRunMissingFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	content := `
[embedder]
provider = "openai"

[vector_store]
provider = "chromem"

[vector_store.chromem]
path = ""
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := run(context.Background(), cfgPath, filepath.Join(dir, "missing.pdf"), &out)
	if !errors.Is(err, app.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("nothing may be printed on failure, got %q", out.String())
	}
}
