package event

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/domain"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// Run starts the producer workers and feeds them from events until the
// channel is closed. Cancelling ctx does not stop it: transitions committed
// during shutdown still reach Kafka or the DLQ once the queue closes the
// channel. It returns after every accepted message was written or sent to
// the DLQ.
func (p *publisher) Run(ctx context.Context, events <-chan domain.Event, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.ProduceMessages(i)
	}
	p.logger.WithContext(ctx).Infof("started %d kafka producer workers", workers)

	defer func() {
		close(p.kafkaWorkChan)
		p.wg.Wait()
		p.logger.WithContext(ctx).Info("kafka producer workers stopped")
	}()

	for ev := range events {
		p.Publish(ctx, ev)
	}
}

// Publish converts ev to kafka messages and hands them to the workers.
func (p *publisher) Publish(ctx context.Context, ev domain.Event) {
	msgs, err := p.messagesFor(ev)
	if err != nil {
		p.logger.WithContext(ctx).Error(errors.Wrap(err, "publisher : failed to build messages"))
		return
	}

	for _, km := range msgs {
		// Non-blocking enqueue. If the workers are saturated, park the message in the DLQ.
		select {
		case p.kafkaWorkChan <- km:
		default:
			km.LastError = "producer queue full"
			if err := p.dlqRepository.InsertDLQ(context.WithoutCancel(ctx), km); err != nil {
				p.logger.WithContext(ctx).Error(errors.Wrap(err, "CRITICAL: dlq insert failed"))
			}
		}
	}
}

func (p *publisher) messagesFor(ev domain.Event) ([]domain.KafkaMessage, error) {
	var msgs []domain.KafkaMessage

	if ev.Serving != nil {
		b, err := json.Marshal(ev.Serving)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal serving event")
		}
		msgs = append(msgs, domain.KafkaMessage{
			Key:     strconv.FormatInt(ev.Serving.TicketID, 10),
			Payload: b,
			Topic:   p.calledTopic,
		})
	}

	for _, rec := range ev.Audit {
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal audit record")
		}
		msgs = append(msgs, domain.KafkaMessage{
			Key:     strconv.FormatInt(rec.TicketID, 10),
			Payload: b,
			Topic:   p.auditTopic,
		})
	}

	return msgs, nil
}

func (p *publisher) ProduceMessages(workerID int) {
	defer p.wg.Done()

	for km := range p.kafkaWorkChan {
		writer := p.writerFor(km.Topic)

		var lastErr error
		for attempt := 0; attempt < p.retries; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), constant.KafkaWriteTimeout)
			lastErr = writer.WriteMessages(ctx, kafka.Message{
				Key:   []byte(km.Key),
				Value: km.Payload,
				Time:  time.Now(),
			})
			cancel()
			if lastErr == nil {
				break
			}
			p.logger.Warnf("kafka worker %d: write attempt %d to %s failed: %v", workerID, attempt+1, km.Topic, lastErr)
			time.Sleep(p.backoff * time.Duration(attempt+1))
		}

		if lastErr != nil {
			km.Attempts += p.retries
			km.LastError = lastErr.Error()
			if err := p.dlqRepository.InsertDLQ(context.Background(), km); err != nil {
				p.logger.Errorf("kafka worker %d: failed to insert dlq: %v", workerID, err)
			}
		}
	}
}

func (p *publisher) writerFor(topic string) messageWriter {
	if topic == p.calledTopic {
		return p.calledWriter
	}
	return p.auditWriter
}
