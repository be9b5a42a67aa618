package entity

import (
	"time"

	"esca/queue-gateway/internal/domain"
)

type Ticket struct {
	Id               int64 `gorm:"primaryKey;autoIncrement:false"`
	DisplayToken     string
	CustomerName     string
	Contact          string
	PriorityClass    string
	RegistrationTime time.Time
	WaitTimeMinutes  int
	Status           string
	ManualRank       *int
	AssignedCounter  string
	OrNumber         string
	ServedAt         *time.Time
	CompletedAt      *time.Time
	Version          int64
	UpdatedAt        time.Time
}

func (Ticket) TableName() string {
	return "tickets"
}

func TicketFromDomain(t domain.Ticket) Ticket {
	c := t.Clone()
	return Ticket{
		Id:               c.ID,
		DisplayToken:     c.DisplayToken,
		CustomerName:     c.CustomerName,
		Contact:          c.Contact,
		PriorityClass:    string(c.PriorityClass),
		RegistrationTime: c.RegistrationTime,
		WaitTimeMinutes:  c.WaitTimeMinutes,
		Status:           string(c.Status),
		ManualRank:       c.ManualRank,
		AssignedCounter:  c.AssignedCounter,
		OrNumber:         c.ORNumber,
		ServedAt:         c.ServedAt,
		CompletedAt:      c.CompletedAt,
		Version:          c.Version,
	}
}

func (t Ticket) ToDomain() domain.Ticket {
	return domain.Ticket{
		ID:               t.Id,
		DisplayToken:     t.DisplayToken,
		CustomerName:     t.CustomerName,
		Contact:          t.Contact,
		PriorityClass:    domain.PriorityClass(t.PriorityClass),
		RegistrationTime: t.RegistrationTime,
		WaitTimeMinutes:  t.WaitTimeMinutes,
		Status:           domain.TicketStatus(t.Status),
		ManualRank:       t.ManualRank,
		AssignedCounter:  t.AssignedCounter,
		ORNumber:         t.OrNumber,
		ServedAt:         t.ServedAt,
		CompletedAt:      t.CompletedAt,
		Version:          t.Version,
	}.Clone()
}

// Columns lists everything a version-checked update writes, nil pointers
// included.
func (t Ticket) Columns() map[string]any {
	return map[string]any{
		"display_token":     t.DisplayToken,
		"customer_name":     t.CustomerName,
		"contact":           t.Contact,
		"priority_class":    t.PriorityClass,
		"wait_time_minutes": t.WaitTimeMinutes,
		"status":            t.Status,
		"manual_rank":       t.ManualRank,
		"assigned_counter":  t.AssignedCounter,
		"served_at":         t.ServedAt,
		"completed_at":      t.CompletedAt,
		"version":           t.Version,
	}
}
