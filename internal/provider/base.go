package provider

import (
	"context"

	"esca/queue-gateway/internal/domain"

	"github.com/sirupsen/logrus"
)

// Notifier delivers a rendered message to a customer.
type Notifier interface {
	Send(ctx context.Context, job domain.Job) error
}

type StubProvider struct {
	logger *logrus.Logger
}

func NewStubProvider(logger *logrus.Logger) Notifier {
	return &StubProvider{logger: logger}
}
