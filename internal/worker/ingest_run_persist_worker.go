package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"resume-ragger/internal/model"
)

type RunStore interface {
	Create(run *model.IngestRun) error
}

// IngestRunPersistWorker consumes ingest run events and stores them.
type IngestRunPersistWorker struct {
	conn      *amqp.Connection
	store     RunStore
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestRunPersistWorker(conn *amqp.Connection, store RunStore, queueName string) *IngestRunPersistWorker {
	return &IngestRunPersistWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
	}
}

func (w *IngestRunPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(d.Body); err != nil {
					log.Printf("worker %v", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *IngestRunPersistWorker) handle(body []byte) error {
	var run model.IngestRun
	if err := json.Unmarshal(body, &run); err != nil {
		return fmt.Errorf("decode ingest run failed: %w", err)
	}
	if run.RunID == "" {
		return fmt.Errorf("decode ingest run failed: missing run_id")
	}
	// ids are assigned by the database
	run.ID = 0
	if err := w.store.Create(&run); err != nil {
		return fmt.Errorf("persist ingest run %s failed: %w", run.RunID, err)
	}
	return nil
}

func (w *IngestRunPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
