package event

import (
	"context"
	"sync"
	"time"

	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// publisher forwards committed queue events to Kafka. Serving events go to
// the called topic for the notifier, audit records to the audit topic. Kafka
// trouble never reaches the queue: failed writes end up in the DLQ table.
type publisher struct {
	dlqRepository dlqRepository
	logger        *logrus.Logger
	calledWriter  messageWriter
	auditWriter   messageWriter
	calledTopic   string
	auditTopic    string
	kafkaWorkChan chan domain.KafkaMessage
	retries       int
	backoff       time.Duration
	wg            sync.WaitGroup
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type dlqRepository interface {
	InsertDLQ(ctx context.Context, km domain.KafkaMessage) error
}

func NewPublisher(
	dlqRepo dlqRepository,
	logger *logrus.Logger,
	calledWriter messageWriter,
	auditWriter messageWriter,
	calledTopic string,
	auditTopic string,
) *publisher {
	return &publisher{
		dlqRepository: dlqRepo,
		logger:        logger,
		calledWriter:  calledWriter,
		auditWriter:   auditWriter,
		calledTopic:   calledTopic,
		auditTopic:    auditTopic,
		kafkaWorkChan: make(chan domain.KafkaMessage, constant.KafkaWorkerBufSize),
		retries:       constant.KafkaWriteRetries,
		backoff:       constant.KafkaRetryBackoff,
	}
}
