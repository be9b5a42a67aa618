package repository

import (
	"context"

	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/domain"
	"esca/queue-gateway/internal/repository/entity"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ticketRepository is the write-through record store behind the queue. Every
// update is guarded by the version the queue saw, so two processes sharing a
// database cannot silently overwrite each other.
type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *ticketRepository {
	return &ticketRepository{
		db: db,
	}
}

func (tr *ticketRepository) SaveTickets(ctx context.Context, tickets []domain.Ticket) error {
	ctx, cancel := context.WithTimeout(ctx, constant.DBTxTimeout)
	defer cancel()

	err := tr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tickets {
			row := entity.TicketFromDomain(t)

			if t.Version == 1 {
				if err := gorm.G[entity.Ticket](tx).Create(ctx, &row); err != nil {
					return errors.Wrapf(err, "failed to insert ticket %d", t.ID)
				}
				continue
			}

			res := tx.Model(&entity.Ticket{}).
				Where("id = ? AND version = ?", t.ID, t.Version-1).
				Updates(row.Columns())
			if res.Error != nil {
				return errors.Wrapf(res.Error, "failed to update ticket %d", t.ID)
			}
			if res.RowsAffected == 0 {
				return errors.Wrapf(constant.ErrConcurrentModification, "ticket %d at version %d", t.ID, t.Version-1)
			}
		}

		return nil
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return constant.ErrConcurrentModification
		}

		return err
	}

	return nil
}

// LoadTickets returns every stored ticket in id order.
func (tr *ticketRepository) LoadTickets(ctx context.Context) ([]domain.Ticket, error) {
	rows, err := gorm.G[entity.Ticket](tr.db).Order("id ASC").Find(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tickets")
	}

	tickets := make([]domain.Ticket, 0, len(rows))
	for _, row := range rows {
		tickets = append(tickets, row.ToDomain())
	}

	return tickets, nil
}

// LoadTicket returns the stored copy of one ticket.
func (tr *ticketRepository) LoadTicket(ctx context.Context, id int64) (domain.Ticket, error) {
	row, err := gorm.G[entity.Ticket](tr.db).Where("id = ?", id).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Ticket{}, errors.Wrapf(constant.ErrTicketNotFound, "ticket %d", id)
		}
		return domain.Ticket{}, errors.Wrapf(err, "failed to load ticket %d", id)
	}

	return row.ToDomain(), nil
}
