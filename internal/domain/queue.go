package domain

// QueueStats summarises the live queue for staff dashboards.
type QueueStats struct {
	Waiting            int     `json:"waiting"`
	Serving            int     `json:"serving"`
	PriorityWaiting    int     `json:"priority_waiting"`
	CompletedToday     int     `json:"completed_today"`
	AverageWaitMinutes float64 `json:"average_wait_minutes"`
}

// CounterStatus is what a counter is currently doing. Ticket is nil when the
// counter is available.
type CounterStatus struct {
	Counter string  `json:"counter"`
	Ticket  *Ticket `json:"ticket,omitempty"`
}
