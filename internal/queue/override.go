package queue

import (
	"context"
	"fmt"

	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/domain"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MoveUp swaps the ticket with its predecessor in the waiting order. Moving
// the head is a no-op.
func (m *Manager) MoveUp(ctx context.Context, id int64, actor string) (domain.Ticket, error) {
	return m.move(ctx, id, actor, domain.ActionMoveUp, -1)
}

// MoveDown swaps the ticket with its successor in the waiting order. Moving
// the tail is a no-op.
func (m *Manager) MoveDown(ctx context.Context, id int64, actor string) (domain.Ticket, error) {
	return m.move(ctx, id, actor, domain.ActionMoveDown, 1)
}

func (m *Manager) move(ctx context.Context, id int64, actor string, action domain.AuditAction, delta int) (domain.Ticket, error) {
	if m.closed.Load() {
		return domain.Ticket{}, constant.ErrManagerClosed
	}

	var (
		moved    domain.Ticket
		swapWith string
	)
	err := m.store.Update(ctx, func(tx *Tx) error {
		t, ok := tx.Get(id)
		if !ok {
			return errors.Wrapf(constant.ErrTicketNotFound, "ticket %d", id)
		}
		if !ValidTransition(action, t.Status) {
			return &TransitionError{TicketID: id, Action: action, From: t.Status}
		}

		order := Order(tx.Tickets())
		i := indexOf(order, id)
		j := i + delta
		if i < 0 || j < 0 || j >= len(order) {
			moved = t
			return nil
		}

		ranks := exchangeRanks(order, i, j)
		for _, o := range order {
			r, ok := ranks[o.ID]
			if !ok || (o.ManualRank != nil && *o.ManualRank == r) {
				continue
			}
			o.ManualRank = &r
			tx.Put(o)
		}
		moved, _ = tx.Get(id)
		swapWith = order[j].DisplayToken

		detail := fmt.Sprintf("position %d -> %d, swapped with %s", i+1, j+1, swapWith)
		tx.Emit(domain.Event{
			Type:    domain.EventReordered,
			Tickets: tx.changed(),
			Audit: []domain.AuditRecord{
				newAuditRecord(moved, moved.Status, action, actor, detail, tx.Now()),
			},
		})
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	if swapWith == "" {
		return moved, nil
	}

	m.logger.WithContext(ctx).WithFields(logrus.Fields{
		"ticket": moved.DisplayToken,
		"with":   swapWith,
	}).Infof("ticket %s", action)
	m.committed(action)

	return moved, nil
}

func indexOf(order []domain.Ticket, id int64) int {
	for i, t := range order {
		if t.ID == id {
			return i
		}
	}
	return -1
}
