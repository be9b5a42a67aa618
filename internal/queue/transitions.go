package queue

import (
	"fmt"
	"time"

	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/domain"
)

type edge struct {
	from domain.TicketStatus
	to   domain.TicketStatus
}

// transitionMap lists the only legal status changes. Moves are not status
// changes but are still restricted to waiting tickets.
var transitionMap = map[domain.AuditAction]edge{
	domain.ActionCallNext: {from: domain.StatusWaiting, to: domain.StatusServing},
	domain.ActionComplete: {from: domain.StatusServing, to: domain.StatusCompleted},
	domain.ActionMoveUp:   {from: domain.StatusWaiting, to: domain.StatusWaiting},
	domain.ActionMoveDown: {from: domain.StatusWaiting, to: domain.StatusWaiting},
}

func ValidTransition(action domain.AuditAction, from domain.TicketStatus) bool {
	e, ok := transitionMap[action]
	return ok && e.from == from
}

// TransitionError reports a rejected action. The ticket is left unmodified.
type TransitionError struct {
	TicketID int64
	Action   domain.AuditAction
	From     domain.TicketStatus
}

func (e *TransitionError) Error() string {
	want := "?"
	if edge, ok := transitionMap[e.Action]; ok {
		want = string(edge.from)
	}
	return fmt.Sprintf("%s: ticket %d cannot %s (current status: %s, required: %s)",
		constant.InvalidTransitionErrMsg, e.TicketID, e.Action, e.From, want)
}

func (e *TransitionError) Is(target error) bool {
	return target == constant.ErrInvalidTransition
}

// startServing applies waiting -> serving. The wait time is frozen by the
// status change itself; the manual rank is dropped because it only orders
// waiting tickets.
func startServing(t *domain.Ticket, counter string, now time.Time) error {
	if !ValidTransition(domain.ActionCallNext, t.Status) {
		return &TransitionError{TicketID: t.ID, Action: domain.ActionCallNext, From: t.Status}
	}

	servedAt := now
	t.Status = domain.StatusServing
	t.AssignedCounter = counter
	t.ServedAt = &servedAt
	t.ManualRank = nil

	return nil
}

func completeService(t *domain.Ticket, now time.Time) error {
	if !ValidTransition(domain.ActionComplete, t.Status) {
		return &TransitionError{TicketID: t.ID, Action: domain.ActionComplete, From: t.Status}
	}

	completedAt := now
	t.Status = domain.StatusCompleted
	t.CompletedAt = &completedAt

	return nil
}
