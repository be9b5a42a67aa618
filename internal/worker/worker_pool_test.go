package worker

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"esca/queue-gateway/internal/domain"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int
	sent     []string
}

func (r *recordingProvider) Send(_ context.Context, job domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls[job.ID]++
	if r.failures[job.ID] > 0 {
		r.failures[job.ID]--
		return errors.New("gateway timeout")
	}
	r.sent = append(r.sent, job.ID)
	return nil
}

func (r *recordingProvider) snapshot() ([]string, map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := make(map[string]int, len(r.calls))
	for k, v := range r.calls {
		calls[k] = v
	}
	return append([]string(nil), r.sent...), calls
}

func newTestPool(prov *recordingProvider, workers, attempts int) *WorkerPool {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	p := NewWorkerPool(prov, logger, workers, attempts)
	p.backoff = time.Millisecond
	return p
}

func TestWorkerPoolDeliversAndRetries(t *testing.T) {
	prov := &recordingProvider{
		failures: map[string]int{"flaky": 2, "dead": 10},
		calls:    map[string]int{},
	}
	pool := newTestPool(prov, 3, 3)
	pool.Start()
	defer pool.Stop()

	for _, id := range []string{"ok-1", "flaky", "dead", "ok-2"} {
		require.NoError(t, pool.Submit(context.Background(), domain.Job{ID: id, DisplayToken: "T-001"}))
	}

	require.Eventually(t, func() bool {
		sent, calls := prov.snapshot()
		return len(sent) == 3 && calls["dead"] == 3
	}, 2*time.Second, 5*time.Millisecond)

	sent, calls := prov.snapshot()
	assert.ElementsMatch(t, []string{"ok-1", "flaky", "ok-2"}, sent)
	assert.Equal(t, 3, calls["flaky"])
	assert.Equal(t, 3, calls["dead"])
}

func TestWorkerPoolRejectsAfterStop(t *testing.T) {
	pool := newTestPool(&recordingProvider{failures: map[string]int{}, calls: map[string]int{}}, 1, 1)
	pool.Start()
	pool.Stop()

	err := pool.Submit(context.Background(), domain.Job{ID: "late"})
	assert.ErrorIs(t, err, ErrPoolStopped)
}
