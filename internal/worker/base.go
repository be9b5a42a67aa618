package worker

import (
	"context"
	"sync"
	"time"

	"esca/queue-gateway/internal/domain"
	"esca/queue-gateway/internal/provider"

	"github.com/sirupsen/logrus"
)

// WorkerPool delivers notification jobs with a fixed number of workers.
type WorkerPool struct {
	provider    provider.Notifier
	logger      *logrus.Logger
	numWorkers  int
	maxAttempts int
	backoff     time.Duration
	jobs        chan domain.Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerPool constructs a pool that sends every job through prov.
func NewWorkerPool(prov provider.Notifier, logger *logrus.Logger, numWorkers, maxAttempts int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		provider:    prov,
		logger:      logger,
		numWorkers:  numWorkers,
		maxAttempts: maxAttempts,
		backoff:     time.Second,
		jobs:        make(chan domain.Job, numWorkers*2),
		ctx:         ctx,
		cancel:      cancel,
	}
}
