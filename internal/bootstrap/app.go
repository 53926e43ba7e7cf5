package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/philippgille/chromem-go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resume-ragger/internal/ai"
	"resume-ragger/internal/app"
	"resume-ragger/internal/config"
	"resume-ragger/internal/lock"
	"resume-ragger/internal/model"
	mysqlClient "resume-ragger/internal/platform/mysql"
	rabbitmqClient "resume-ragger/internal/platform/rabbitmq"
	redisClient "resume-ragger/internal/platform/redis"
	"resume-ragger/internal/repository"
	"resume-ragger/internal/vectorstore"
	"resume-ragger/internal/worker"
)

// VectorStore is what the app needs from a backend plus a health probe.
type VectorStore interface {
	app.VectorStore
	Ping(ctx context.Context) error
}

type Options struct {
	// StartRunWorker consumes ingest run events into MySQL (server only).
	StartRunWorker bool
}

type App struct {
	Config   *config.Config
	Store    VectorStore
	Embedder app.Embedder
	Index    *app.ResumeIndex
	Ingest   *app.IngestService

	MySQL     *gorm.DB
	Redis     *redis.Client
	MQConn    *amqp.Connection
	Runs      *repository.IngestRunRepository
	RunWorker *worker.IngestRunPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg, StartedAt: time.Now()}
	if err := a.init(ctx, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, opts Options) error {
	cfg := a.Config

	store, err := NewVectorStore(cfg.VectorStore)
	if err != nil {
		return err
	}
	a.Store = store
	a.Embedder = NewEmbedder(cfg.Embedder)
	a.Index = app.NewResumeIndex(a.Embedder, a.Store, app.ResumeIndexConfig{
		Collection: cfg.Resume.Collection,
		Source:     cfg.Resume.Source,
	})

	if cfg.MySQL.Enabled {
		db, err := mysqlClient.New(ctx, cfg.MySQLDSN(), &model.IngestRun{})
		if err != nil {
			return err
		}
		a.MySQL = db
		a.Runs = repository.NewIngestRunRepository(db)
	}

	var ingestLock app.IngestLock
	if cfg.Redis.Enabled {
		client, err := redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		a.Redis = client
		ingestLock = lock.NewIngestLock(client, time.Duration(cfg.Redis.IngestLockSeconds)*time.Second)
	}

	var publisher app.RunPublisher
	if cfg.RabbitMQ.Enabled {
		conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.IngestEventQueue)
		if err != nil {
			return err
		}
		a.MQConn = conn
		publisher = rabbitmqClient.NewRunPublisher(conn, cfg.RabbitMQ.IngestEventQueue)

		if opts.StartRunWorker && a.Runs != nil {
			a.RunWorker = worker.NewIngestRunPersistWorker(conn, a.Runs, cfg.RabbitMQ.IngestEventQueue)
			if err := a.RunWorker.Start(ctx); err != nil {
				return fmt.Errorf("start ingest run worker failed: %w", err)
			}
		}
	} else if a.Runs != nil {
		publisher = directRunPublisher{repo: a.Runs}
	}

	a.Ingest = app.NewIngestService(a.Index, publisher, ingestLock)
	return nil
}

// NewEmbedder builds the configured embedder. Models load lazily on first use.
func NewEmbedder(cfg config.EmbedderConfig) app.Embedder {
	if cfg.Provider == "openai" {
		return ai.NewOpenAIEmbedder(ai.OpenAIConfig{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKey:     cfg.OpenAI.APIKey,
			Model:      cfg.OpenAI.Model,
			Dimensions: cfg.Dimension,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
		})
	}
	return ai.NewONNXEmbedder(ai.ONNXConfig{
		ModelPath:   cfg.ONNX.ModelPath,
		VocabPath:   cfg.ONNX.VocabPath,
		LibraryPath: cfg.ONNX.ONNXSharedLibPath,
		MaxTokens:   cfg.ONNX.MaxTokens,
		Dimension:   cfg.Dimension,
	})
}

func NewVectorStore(cfg config.VectorStoreConfig) (VectorStore, error) {
	switch cfg.Provider {
	case "chromem":
		if cfg.Chromem.Path == "" {
			return vectorstore.NewChromemStore(chromem.NewDB()), nil
		}
		return vectorstore.OpenChromemStore(cfg.Chromem.Path, cfg.Chromem.Compress)
	case "qdrant":
		return vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			Host:    cfg.Qdrant.Host,
			Port:    cfg.Qdrant.Port,
			HTTPS:   cfg.Qdrant.HTTPS,
			APIKey:  cfg.Qdrant.APIKey,
			Timeout: time.Duration(cfg.Qdrant.TimeoutSeconds) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store provider %q", cfg.Provider)
	}
}

// HealthChecks lists a probe per configured dependency.
func (a *App) HealthChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"vector_store": a.Store.Ping,
	}
	if a.MySQL != nil {
		checks["mysql"] = func(ctx context.Context) error { return mysqlClient.Ping(ctx, a.MySQL) }
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx, a.Redis) }
	}
	if a.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error { return rabbitmqClient.Ping(a.MQConn) }
	}
	return checks
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.RunWorker != nil {
		a.RunWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if c, ok := a.Embedder.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}

type directRunPublisher struct {
	repo *repository.IngestRunRepository
}

func (p directRunPublisher) Publish(_ context.Context, run model.IngestRun) error {
	if err := p.repo.Create(&run); err != nil {
		return err
	}
	log.Printf("ingest run %s stored (%d chunks)", run.RunID, run.ChunkCount)
	return nil
}
