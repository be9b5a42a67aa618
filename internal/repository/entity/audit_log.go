package entity

import (
	"time"

	"esca/queue-gateway/internal/domain"
)

// AuditLog is a row of the ClickHouse audit table. Rows are only ever
// inserted.
type AuditLog struct {
	Id             string
	TicketId       int64
	DisplayToken   string
	Action         string
	PreviousStatus string
	NewStatus      string
	Actor          string
	Counter        string
	Detail         string
	Timestamp      time.Time
}

func (AuditLog) TableName() string {
	return "ticket_audit_logs"
}

func AuditLogFromDomain(r domain.AuditRecord) AuditLog {
	return AuditLog{
		Id:             r.ID,
		TicketId:       r.TicketID,
		DisplayToken:   r.DisplayToken,
		Action:         string(r.Action),
		PreviousStatus: string(r.PreviousStatus),
		NewStatus:      string(r.NewStatus),
		Actor:          r.Actor,
		Counter:        r.Counter,
		Detail:         r.Detail,
		Timestamp:      r.Timestamp,
	}
}

func (a AuditLog) ToDomain() domain.AuditRecord {
	return domain.AuditRecord{
		ID:             a.Id,
		TicketID:       a.TicketId,
		DisplayToken:   a.DisplayToken,
		Timestamp:      a.Timestamp,
		PreviousStatus: domain.TicketStatus(a.PreviousStatus),
		NewStatus:      domain.TicketStatus(a.NewStatus),
		Action:         domain.AuditAction(a.Action),
		Actor:          a.Actor,
		Counter:        a.Counter,
		Detail:         a.Detail,
	}
}
