package domain

import (
	"strings"
	"time"
)

type PriorityClass string

const (
	PriorityNone          PriorityClass = "none"
	PrioritySeniorCitizen PriorityClass = "senior_citizen"
	PriorityPregnant      PriorityClass = "pregnant"
	PriorityPWD           PriorityClass = "pwd"
)

// priorityPrecedence decides the class of a customer that qualifies for
// more than one. Order follows the registration form.
var priorityPrecedence = []PriorityClass{
	PrioritySeniorCitizen,
	PriorityPregnant,
	PriorityPWD,
}

// ResolvePriorityClass maps the registration flags to a single class.
func ResolvePriorityClass(seniorCitizen, pregnant, pwd bool) PriorityClass {
	flags := map[PriorityClass]bool{
		PrioritySeniorCitizen: seniorCitizen,
		PriorityPregnant:      pregnant,
		PriorityPWD:           pwd,
	}

	for _, class := range priorityPrecedence {
		if flags[class] {
			return class
		}
	}

	return PriorityNone
}

// ParsePriorityClass accepts the canonical names plus an empty string for none.
func ParsePriorityClass(s string) (PriorityClass, bool) {
	switch PriorityClass(strings.ToLower(strings.TrimSpace(s))) {
	case "", PriorityNone:
		return PriorityNone, true
	case PrioritySeniorCitizen, "senior":
		return PrioritySeniorCitizen, true
	case PriorityPregnant:
		return PriorityPregnant, true
	case PriorityPWD:
		return PriorityPWD, true
	default:
		return "", false
	}
}

func (p PriorityClass) IsPrioritized() bool {
	return p != PriorityNone && p != ""
}

type TicketStatus string

const (
	StatusWaiting   TicketStatus = "waiting"
	StatusServing   TicketStatus = "serving"
	StatusCompleted TicketStatus = "completed"
)

type Ticket struct {
	ID               int64         `json:"id"`
	DisplayToken     string        `json:"display_token"`
	CustomerName     string        `json:"customer_name"`
	Contact          string        `json:"contact"`
	PriorityClass    PriorityClass `json:"priority_class"`
	RegistrationTime time.Time     `json:"registration_time"`
	WaitTimeMinutes  int           `json:"wait_time_minutes"`
	Status           TicketStatus  `json:"status"`
	ManualRank       *int          `json:"manual_rank,omitempty"`
	AssignedCounter  string        `json:"assigned_counter,omitempty"`
	ORNumber         string        `json:"or_number"`
	ServedAt         *time.Time    `json:"served_at,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	Version          int64         `json:"version"` // optimistic locking
}

// Clone returns a copy that shares no pointers with t.
func (t Ticket) Clone() Ticket {
	c := t
	if t.ManualRank != nil {
		r := *t.ManualRank
		c.ManualRank = &r
	}
	if t.ServedAt != nil {
		s := *t.ServedAt
		c.ServedAt = &s
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	return c
}
