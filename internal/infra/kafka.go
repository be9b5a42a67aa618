package infra

import (
	"fmt"
	"time"

	"esca/queue-gateway/internal/config"
	"esca/queue-gateway/internal/constant"

	"github.com/segmentio/kafka-go"
)

func brokerAddr(cfg config.Kafka) string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// NewKafkaWriter returns a synchronous writer for topic; callers retry.
func NewKafkaWriter(cfg config.Kafka, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokerAddr(cfg)),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: constant.KafkaProducerAcks,
		Async:        false,
		WriteTimeout: constant.KafkaWriteTimeout,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    1024,
	}
}

// NewKafkaReader joins cfg.ConsumerGroup on topic. Commits are synchronous:
// ReadMessage commits on read, FetchMessage callers commit when done.
func NewKafkaReader(cfg config.Kafka, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{brokerAddr(cfg)},
		GroupID:        cfg.ConsumerGroup,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
}
