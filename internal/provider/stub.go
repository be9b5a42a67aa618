package provider

import (
	"context"

	"esca/queue-gateway/internal/domain"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Send only logs the message. A real SMS gateway plugs in behind Notifier.
func (s *StubProvider) Send(ctx context.Context, job domain.Job) error {
	if job.Contact == "" {
		return errors.Errorf("provider: ticket %s has no contact", job.DisplayToken)
	}

	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"job":     job.ID,
		"ticket":  job.DisplayToken,
		"contact": job.Contact,
	}).Info(job.Message)
	return nil
}
