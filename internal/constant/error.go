package constant

import "github.com/pkg/errors"

const (
	InvalidTransitionErrMsg      = "invalid transition"
	TicketNotFoundErrMsg         = "ticket not found"
	NoWaitingTicketErrMsg        = "no waiting ticket"
	ConcurrentModificationErrMsg = "concurrent modification conflict"
)

var (
	ErrInvalidTransition      = errors.New(InvalidTransitionErrMsg)
	ErrTicketNotFound         = errors.New(TicketNotFoundErrMsg)
	ErrConcurrentModification = errors.New(ConcurrentModificationErrMsg)

	// ErrNoWaitingTicket signals an empty queue on call-next. It is an
	// expected outcome, not a failure.
	ErrNoWaitingTicket = errors.New(NoWaitingTicketErrMsg)

	ErrInvalidRegistration  = errors.New("customer name is required")
	ErrInvalidPriorityClass = errors.New("unknown priority class")
	ErrUnknownCounter       = errors.New("unknown counter")
	ErrCounterRequired      = errors.New("counter is required")
	ErrSessionActive        = errors.New("queue session still has waiting or serving tickets")
	ErrManagerClosed        = errors.New("queue manager is closed")
)
