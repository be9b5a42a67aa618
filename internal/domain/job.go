package domain

import "time"

// Job is one notification to deliver to a customer.
type Job struct {
	ID           string
	TicketID     int64
	DisplayToken string
	CustomerName string
	Contact      string
	Counter      string
	WaitMinutes  int
	Message      string
	Attempts     int
	CreatedAt    time.Time
}
