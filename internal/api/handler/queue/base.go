package queue

import (
	"context"
	"time"

	"esca/queue-gateway/internal/domain"
)

type QueueHandler struct {
	queueService queueService
	now          func() time.Time
}

type queueService interface {
	ListWaiting() []domain.Ticket
	CallNext(ctx context.Context, counter, actor string) (domain.Ticket, error)
	Stats(now time.Time) domain.QueueStats
	Counters() []domain.CounterStatus
	ResetSession(ctx context.Context, actor string) error
}

func New(queueService queueService) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
		now:          time.Now,
	}
}
