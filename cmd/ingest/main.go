// Command ingest indexes one resume PDF into the configured collection.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"resume-ragger/internal/app"
	"resume-ragger/internal/bootstrap"
	"resume-ragger/internal/config"
)

type fileIngester interface {
	IngestFile(ctx context.Context, path string) (*app.IngestResult, error)
}

func main() {
	configPath := flag.String("config", "", "config file (default $CONFIG_FILE or configs/config.toml)")
	file := flag.String("file", "", "resume PDF to ingest (overrides resume.path)")
	flag.Parse()

	_ = godotenv.Load()
	if err := run(context.Background(), *configPath, *file, os.Stdout); err != nil {
		log.Printf("ingest failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, file string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	if file != "" {
		cfg.Resume.Path = file
	}

	a, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("close resources failed: %v", err)
		}
	}()

	return ingest(ctx, a.Ingest, cfg.Resume.Path, out)
}

func ingest(ctx context.Context, svc fileIngester, path string, out io.Writer) error {
	result, err := svc.IngestFile(ctx, path)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Added %d resume chunks to %s\n", result.ChunkCount, result.Collection)
	return err
}
