package worker

import (
	"context"

	"github.com/pkg/errors"

	"esca/queue-gateway/internal/domain"
)

var ErrPoolStopped = errors.New("worker pool stopped")

func (p *WorkerPool) Start() {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(p.ctx, i)
	}
	p.logger.Infof("worker pool: started %d workers", p.numWorkers)
}

// Submit hands job to a worker, waiting while all of them are busy.
func (p *WorkerPool) Submit(ctx context.Context, job domain.Job) error {
	select {
	case <-p.ctx.Done():
		return ErrPoolStopped
	default:
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

// Stop gracefully stops all workers and waits.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool: all workers stopped")
}
