package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/config"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

var _ service.AuditService = (*KafkaProducer)(nil)

const defaultAuditTopic = "pokedex.auth.audit"

// messageWriter is the subset of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes audit events as JSON messages keyed by subject id.
type KafkaProducer struct {
	writer messageWriter
	logger logger.Logger
}

// NewKafkaProducer creates a producer for cfg.KafkaBrokers.
func NewKafkaProducer(cfg *config.AuditConfig, log logger.Logger) (*KafkaProducer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("audit.kafka_brokers is required for the kafka audit driver")
	}
	topic := cfg.KafkaTopic
	if topic == "" {
		topic = defaultAuditTopic
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
	return newKafkaProducer(writer, log), nil
}

func newKafkaProducer(w messageWriter, log logger.Logger) *KafkaProducer {
	return &KafkaProducer{
		writer: w,
		logger: log.WithFields(logger.Fields{"component": "KafkaProducer"}),
	}
}

// LogEvent sends an audit event to the Kafka topic.
func (p *KafkaProducer) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	bytes, err := json.Marshal(toPayload(event))
	if err != nil {
		p.logger.Error(ctx, "failed to marshal audit event", err)
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.SubjectID, 10)),
		Value: bytes,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	})
	if err != nil {
		p.logger.Error(ctx, "failed to write message to Kafka", err, logger.Fields{"event_id": event.EventID.String()})
	}
	return err
}

// Close closes the underlying Kafka writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
