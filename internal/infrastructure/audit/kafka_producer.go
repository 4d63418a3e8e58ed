// Package audit publishes token lifecycle events to Kafka.
package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/envseal/envseal/internal/config"
	"github.com/envseal/envseal/internal/domain/models"
	"github.com/envseal/envseal/internal/domain/service"
	"github.com/envseal/envseal/pkg/logger"
)

// KafkaProducer is a Kafka-backed AuditService. Events are batched by the
// underlying writer; a failed write is logged and dropped, never surfaced to
// the token path.
type KafkaProducer struct {
	writer *kafka.Writer
	log    logger.Logger
}

var _ service.AuditService = (*KafkaProducer)(nil)

// NewKafkaProducer creates a producer for the configured audit topic.
func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.AuditTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		Async:        true,
	}
	return &KafkaProducer{
		writer: writer,
		log:    log.WithComponent("KafkaProducer"),
	}
}

// LogEvent sends an audit event to the audit topic, keyed by app id so
// events for one application stay ordered within a partition.
func (p *KafkaProducer) LogEvent(ctx context.Context, event models.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error(ctx, "failed to marshal audit event", err)
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AppID),
		Value: payload,
	})
	if err != nil {
		p.log.Error(ctx, "failed to publish audit event", err,
			logger.String("type", string(event.Type)))
	}
	return err
}

// Close flushes and closes the underlying writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
