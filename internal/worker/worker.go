package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"esca/queue-gateway/internal/domain"
)

// worker executes in its own goroutine and delivers one job at a time.
func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debugf("worker %d: context cancelled, exiting", id)
			return
		case job := <-p.jobs:
			p.processJob(ctx, id, job)
		}
	}
}

// processJob retries the provider with a linear backoff. A job that keeps
// failing is logged and dropped; ticket state never depends on delivery.
func (p *WorkerPool) processJob(ctx context.Context, id int, job domain.Job) {
	log := p.logger.WithContext(ctx).WithFields(logrus.Fields{
		"worker": id,
		"job":    job.ID,
		"ticket": job.DisplayToken,
	})

	for job.Attempts < p.maxAttempts {
		job.Attempts++
		err := p.provider.Send(ctx, job)
		if err == nil {
			log.Debug("notification sent")
			return
		}
		log.WithError(err).Warnf("attempt %d of %d failed", job.Attempts, p.maxAttempts)

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.backoff * time.Duration(job.Attempts)):
		}
	}

	log.Error("notification dropped after max attempts")
}
