package queue

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Accrual drives wait-time accrual on a fixed interval, independent of any
// client being connected.
type Accrual struct {
	manager  *Manager
	cron     *cron.Cron
	interval time.Duration
	logger   *logrus.Logger

	mu      sync.Mutex
	entry   cron.EntryID
	running bool
}

// NewAccrual schedules ticks on c, or on a private cron when c is nil.
func NewAccrual(manager *Manager, interval time.Duration, c *cron.Cron, logger *logrus.Logger) *Accrual {
	if c == nil {
		c = cron.New()
	}
	if logger == nil {
		logger = manager.logger
	}

	return &Accrual{
		manager:  manager,
		cron:     c,
		interval: interval,
		logger:   logger,
	}
}

// Tick runs one accrual step.
func (a *Accrual) Tick(ctx context.Context) (int, error) {
	n, err := a.manager.AccrueWaitTime(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "accrual : tick failed")
	}
	return n, nil
}

func (a *Accrual) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return nil
	}
	if a.interval <= 0 {
		return errors.Errorf("accrual : invalid interval %s", a.interval)
	}

	a.entry = a.cron.Schedule(cron.Every(a.interval), cron.FuncJob(func() {
		n, err := a.Tick(context.Background())
		if err != nil {
			a.logger.WithError(err).Error("wait time accrual failed")
			return
		}
		a.logger.WithField("tickets", n).Debug("wait time accrued")
	}))
	a.cron.Start()
	a.running = true

	a.logger.WithField("interval", a.interval.String()).Info("wait time accrual started")
	return nil
}

// Stop removes the schedule and waits for a running tick to finish.
func (a *Accrual) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}
	a.cron.Remove(a.entry)
	<-a.cron.Stop().Done()
	a.running = false
}
