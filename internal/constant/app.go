package constant

import (
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	KafkaProducerAcks  = kafka.RequireAll
	KafkaWriteTimeout  = 5 * time.Second
	KafkaWorkerCount   = 4
	KafkaWorkerBufSize = 10000 // capacity of in-memory channel; tune by memory and expected bursts
	KafkaWriteRetries  = 3
	KafkaRetryBackoff  = 500 * time.Millisecond
	DBTxTimeout        = 2 * time.Second // keep transactions short

	RedisWaitingKey        = "queue:waiting"
	RedisEventsChannel     = "queue:events"
	RedisIdempotencyPrefix = "queue:idempotency:"
	IdempotencyTTL         = 24 * time.Hour

	AuditBatchSize     = 100
	AuditFlushInterval = time.Second

	UserIdKey         = "user_id"
	IdempotencyHeader = "Idempotency-Key"
	SystemActor       = "system"
)
