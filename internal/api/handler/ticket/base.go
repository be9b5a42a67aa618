package ticket

import (
	"context"

	"esca/queue-gateway/internal/domain"
	"esca/queue-gateway/internal/queue"
)

type TicketHandler struct {
	queueService queueService
}

type queueService interface {
	Register(ctx context.Context, req queue.RegisterRequest) (domain.Ticket, error)
	Get(id int64) (domain.Ticket, error)
	ListAll() []domain.Ticket
	CompleteService(ctx context.Context, id int64, actor string) (domain.Ticket, error)
	MoveUp(ctx context.Context, id int64, actor string) (domain.Ticket, error)
	MoveDown(ctx context.Context, id int64, actor string) (domain.Ticket, error)
}

func New(queueService queueService) *TicketHandler {
	return &TicketHandler{
		queueService: queueService,
	}
}
