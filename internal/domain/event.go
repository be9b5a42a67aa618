package domain

import "time"

type EventType string

const (
	EventRegistered  EventType = "registered"
	EventCalled      EventType = "called"
	EventCompleted   EventType = "completed"
	EventReordered   EventType = "reordered"
	EventWaitAccrued EventType = "wait_accrued"
	EventReset       EventType = "session_reset"
)

// Event is published after every committed store mutation.
type Event struct {
	Type    EventType     `json:"type"`
	At      time.Time     `json:"at"`
	Tickets []Ticket      `json:"tickets,omitempty"`
	Audit   []AuditRecord `json:"audit,omitempty"`
	Serving *ServingEvent `json:"serving,omitempty"`
}

// ServingEvent is emitted on every waiting -> serving transition so the
// customer can be told which counter to go to.
type ServingEvent struct {
	TicketID        int64     `json:"ticket_id"`
	DisplayToken    string    `json:"display_token"`
	Counter         string    `json:"counter"`
	CustomerName    string    `json:"customer_name"`
	Contact         string    `json:"contact"`
	WaitTimeMinutes int       `json:"wait_time_minutes"`
	ServedAt        time.Time `json:"served_at"`
}

type AuditAction string

const (
	ActionRegister AuditAction = "register"
	ActionCallNext AuditAction = "call_next"
	ActionComplete AuditAction = "complete"
	ActionMoveUp   AuditAction = "move_up"
	ActionMoveDown AuditAction = "move_down"
)

// AuditRecord is append-only; nothing in the core mutates one after it is
// created.
type AuditRecord struct {
	ID             string       `json:"id"`
	TicketID       int64        `json:"ticket_id"`
	DisplayToken   string       `json:"display_token"`
	Timestamp      time.Time    `json:"timestamp"`
	PreviousStatus TicketStatus `json:"previous_status"`
	NewStatus      TicketStatus `json:"new_status"`
	Action         AuditAction  `json:"action"`
	Actor          string       `json:"actor"`
	Counter        string       `json:"counter,omitempty"`
	Detail         string       `json:"detail,omitempty"`
}
