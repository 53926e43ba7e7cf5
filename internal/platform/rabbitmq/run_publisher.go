package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"resume-ragger/internal/model"
)

// RunPublisher sends completed ingest runs to a durable queue.
type RunPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewRunPublisher(conn *amqp.Connection, queueName string) *RunPublisher {
	return &RunPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *RunPublisher) Publish(ctx context.Context, run model.IngestRun) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := declareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal ingest run failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    run.RunID,
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish ingest run failed: %w", err)
	}
	return nil
}
