package entity

import (
	"testing"
	"time"

	"esca/queue-gateway/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestTicketColumnsKeepClearedOverride(t *testing.T) {
	served := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	row := TicketFromDomain(domain.Ticket{
		ID:              3,
		Status:          domain.StatusServing,
		AssignedCounter: "JA",
		ServedAt:        &served,
		Version:         4,
	})

	cols := row.Columns()

	// a nil rank must still be written so the stored override is cleared
	v, ok := cols["manual_rank"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, int64(4), cols["version"])
	assert.NotContains(t, cols, "id")
	assert.NotContains(t, cols, "registration_time")
}

func TestTicketToDomainCopiesPointers(t *testing.T) {
	rank := 1
	row := Ticket{Id: 1, ManualRank: &rank, Status: "waiting", PriorityClass: "pwd"}

	got := row.ToDomain()
	*got.ManualRank = 7

	assert.Equal(t, 1, rank)
	assert.Equal(t, domain.StatusWaiting, got.Status)
	assert.Equal(t, domain.PriorityPWD, got.PriorityClass)
}
