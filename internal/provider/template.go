package provider

import (
	"strconv"
	"strings"
	"time"

	"esca/queue-gateway/internal/domain"

	"github.com/google/uuid"
)

// Template is a notification text with {{customerName}}, {{token}},
// {{counter}} and {{waitTime}} placeholders. Unknown placeholders are left
// as they are.
type Template string

func (t Template) Render(job domain.Job) string {
	r := strings.NewReplacer(
		"{{customerName}}", job.CustomerName,
		"{{token}}", job.DisplayToken,
		"{{counter}}", job.Counter,
		"{{waitTime}}", strconv.Itoa(job.WaitMinutes),
	)
	return r.Replace(string(t))
}

// NewJob turns a called ticket into a notification job with the rendered
// message.
func (t Template) NewJob(ev domain.ServingEvent, now time.Time) domain.Job {
	job := domain.Job{
		ID:           uuid.NewString(),
		TicketID:     ev.TicketID,
		DisplayToken: ev.DisplayToken,
		CustomerName: ev.CustomerName,
		Contact:      ev.Contact,
		Counter:      ev.Counter,
		WaitMinutes:  ev.WaitTimeMinutes,
		CreatedAt:    now,
	}
	job.Message = t.Render(job)
	return job
}
