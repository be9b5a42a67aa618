package audit

import (
	"context"
	"encoding/json"
	"time"

	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type auditRepository interface {
	InsertAuditRecords(ctx context.Context, records []domain.AuditRecord) error
}

type committer interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// sink batches audit messages into ClickHouse and commits their offsets only
// after the batch is stored, so a failed insert is redelivered instead of
// lost. A batch is written when it is full, when the flush interval passes,
// and once more when the input closes.
type sink struct {
	repository    auditRepository
	committer     committer
	logger        *logrus.Logger
	batchSize     int
	flushInterval time.Duration
	writeTimeout  time.Duration
}

type batch struct {
	records []domain.AuditRecord
	msgs    []kafka.Message
}

func NewAuditSink(repository auditRepository, committer committer, logger *logrus.Logger) *sink {
	return &sink{
		repository:    repository,
		committer:     committer,
		logger:        logger,
		batchSize:     constant.AuditBatchSize,
		flushInterval: constant.AuditFlushInterval,
		writeTimeout:  5 * time.Second,
	}
}

// Run consumes messages until the channel is closed and every buffered
// message is flushed. While ClickHouse rejects a full batch it stops reading
// and retries on every interval; cancelling ctx then gives up, leaving the
// uncommitted messages for the next consumer.
func (s *sink) Run(ctx context.Context, messages <-chan kafka.Message) {
	b := &batch{}
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		in := messages
		var stalled <-chan struct{}
		if len(b.msgs) >= s.batchSize {
			in = nil
			stalled = ctx.Done()
		}

		select {
		case m, ok := <-in:
			if !ok {
				s.flush(ctx, b)
				return
			}
			s.add(ctx, b, m)
			if len(b.msgs) >= s.batchSize {
				s.flush(ctx, b)
			}
		case <-ticker.C:
			s.flush(ctx, b)
		case <-stalled:
			s.flush(ctx, b)
			return
		}
	}
}

func (s *sink) add(ctx context.Context, b *batch, m kafka.Message) {
	// malformed payloads are committed with the batch, retrying cannot fix them
	b.msgs = append(b.msgs, m)

	var rec domain.AuditRecord
	if err := json.Unmarshal(m.Value, &rec); err != nil {
		s.logger.WithContext(ctx).Errorf("audit sink: failed to unmarshal message: %v, raw: %s", err, string(m.Value))
		return
	}
	b.records = append(b.records, rec)
}

// flush stores and commits b, keeping it for a retry when the insert fails.
func (s *sink) flush(ctx context.Context, b *batch) bool {
	if len(b.msgs) == 0 {
		return true
	}

	// the final flush runs after ctx is cancelled
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	if len(b.records) > 0 {
		if err := s.repository.InsertAuditRecords(writeCtx, b.records); err != nil {
			s.logger.WithContext(ctx).Errorf("audit sink: failed to insert %d audit records, will retry: %v", len(b.records), err)
			return false
		}
	}

	if err := s.committer.CommitMessages(writeCtx, b.msgs...); err != nil {
		// stored already; redelivery only duplicates rows
		s.logger.WithContext(ctx).Warnf("audit sink: failed to commit %d messages: %v", len(b.msgs), err)
	}

	s.logger.WithContext(ctx).Debugf("audit sink: flushed %d audit records to ClickHouse", len(b.records))
	b.records = b.records[:0]
	b.msgs = b.msgs[:0]
	return true
}
