package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"resume-ragger/internal/bootstrap"
	"resume-ragger/internal/config"
	httptransport "resume-ragger/internal/transport/http"
)

func main() {
	configPath := flag.String("config", "", "config file (default $CONFIG_FILE or configs/config.toml)")
	flag.Parse()

	_ = godotenv.Load()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{StartRunWorker: true})
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("close resources failed: %v", err)
		}
	}()

	if err := app.Index.EnsureCollection(ctx); err != nil {
		log.Printf("ensure collection %s failed: %v", app.Index.Collection(), err)
	}

	router := httptransport.NewRouter(app)
	server := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("server starting on %s (collection %s, %s/%s)",
			server.Addr, app.Index.Collection(), cfg.Embedder.Provider, cfg.VectorStore.Provider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	waitForShutdown(server)
}

func waitForShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown failed: %v", err)
	}
}
