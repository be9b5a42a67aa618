package event

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"esca/queue-gateway/internal/domain"
	"esca/queue-gateway/internal/queue"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

type fakeDlq struct {
	mu   sync.Mutex
	msgs []domain.KafkaMessage
}

func (d *fakeDlq) InsertDLQ(_ context.Context, km domain.KafkaMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, km)
	return nil
}

func newTestPublisher(called, audit *fakeWriter, dlq *fakeDlq) *publisher {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	p := NewPublisher(dlq, logger, called, audit, "queue.ticket.called", "queue.audit")
	p.backoff = time.Millisecond
	return p
}

func calledEvent() domain.Event {
	servedAt := time.Date(2026, 3, 2, 9, 10, 0, 0, time.UTC)
	return domain.Event{
		Type: domain.EventCalled,
		Serving: &domain.ServingEvent{
			TicketID:     7,
			DisplayToken: "T-007",
			Counter:      "JA",
			ServedAt:     servedAt,
		},
		Audit: []domain.AuditRecord{{
			ID:             "a1",
			TicketID:       7,
			PreviousStatus: domain.StatusWaiting,
			NewStatus:      domain.StatusServing,
			Action:         domain.ActionCallNext,
			Actor:          "staff-1",
			Timestamp:      servedAt,
		}},
	}
}

func runUntilDrained(p *publisher, evs ...domain.Event) {
	events := make(chan domain.Event, len(evs))
	for _, ev := range evs {
		events <- ev
	}
	close(events)
	p.Run(context.Background(), events, 2)
}

func TestPublisherRoutesEventsByTopic(t *testing.T) {
	called, audit, dlq := &fakeWriter{}, &fakeWriter{}, &fakeDlq{}
	p := newTestPublisher(called, audit, dlq)

	runUntilDrained(p, calledEvent(), domain.Event{Type: domain.EventWaitAccrued})

	require.Len(t, called.written(), 1)
	msg := called.written()[0]
	assert.Equal(t, "7", string(msg.Key))

	var serving domain.ServingEvent
	require.NoError(t, json.Unmarshal(msg.Value, &serving))
	assert.Equal(t, "T-007", serving.DisplayToken)
	assert.Equal(t, "JA", serving.Counter)

	require.Len(t, audit.written(), 1)
	var rec domain.AuditRecord
	require.NoError(t, json.Unmarshal(audit.written()[0].Value, &rec))
	assert.Equal(t, domain.ActionCallNext, rec.Action)
	assert.Equal(t, "staff-1", rec.Actor)

	assert.Empty(t, dlq.msgs)
}

func TestPublisherFallsBackToDLQ(t *testing.T) {
	called := &fakeWriter{err: errors.New("broker unavailable")}
	audit, dlq := &fakeWriter{}, &fakeDlq{}
	p := newTestPublisher(called, audit, dlq)

	runUntilDrained(p, calledEvent())

	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "queue.ticket.called", dlq.msgs[0].Topic)
	assert.Equal(t, p.retries, dlq.msgs[0].Attempts)
	assert.Contains(t, dlq.msgs[0].LastError, "broker unavailable")

	assert.Len(t, audit.written(), 1)
}

func TestPublisherDrainsTransitionsCommittedDuringShutdown(t *testing.T) {
	called, audit, dlq := &fakeWriter{}, &fakeWriter{}, &fakeDlq{}
	p := newTestPublisher(called, audit, dlq)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := queue.NewManager(queue.WithLogger(logger))
	events, _ := m.Subscribe(0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, events, 1)
		close(done)
	}()

	// the server is shutting down but still finishing in-flight requests
	cancel()
	_, err := m.Register(context.Background(), queue.RegisterRequest{Name: "Ana", Contact: "09170000000"})
	require.NoError(t, err)
	served, err := m.CallNext(context.Background(), "JA", "staff-1")
	require.NoError(t, err)
	m.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher did not stop after the queue closed")
	}

	require.Len(t, called.written(), 1)
	var serving domain.ServingEvent
	require.NoError(t, json.Unmarshal(called.written()[0].Value, &serving))
	assert.Equal(t, served.DisplayToken, serving.DisplayToken)

	var actions []domain.AuditAction
	for _, msg := range audit.written() {
		var rec domain.AuditRecord
		require.NoError(t, json.Unmarshal(msg.Value, &rec))
		actions = append(actions, rec.Action)
	}
	assert.Equal(t, []domain.AuditAction{domain.ActionRegister, domain.ActionCallNext}, actions)
	assert.Empty(t, dlq.msgs)
}
