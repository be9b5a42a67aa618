package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolvePriorityClass(t *testing.T) {
	cases := []struct {
		senior, pregnant, pwd bool
		want                  PriorityClass
	}{
		{false, false, false, PriorityNone},
		{true, false, false, PrioritySeniorCitizen},
		{false, true, false, PriorityPregnant},
		{false, false, true, PriorityPWD},
		{true, false, true, PrioritySeniorCitizen},
		{false, true, true, PriorityPregnant},
		{true, true, true, PrioritySeniorCitizen},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolvePriorityClass(tc.senior, tc.pregnant, tc.pwd))
	}
}

func TestParsePriorityClass(t *testing.T) {
	for in, want := range map[string]PriorityClass{
		"":               PriorityNone,
		"none":           PriorityNone,
		" Senior ":       PrioritySeniorCitizen,
		"senior_citizen": PrioritySeniorCitizen,
		"PREGNANT":       PriorityPregnant,
		"pwd":            PriorityPWD,
	} {
		got, ok := ParsePriorityClass(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParsePriorityClass("vip")
	assert.False(t, ok)
}

func TestTicketCloneSharesNoPointers(t *testing.T) {
	rank := 2
	served := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	orig := Ticket{ID: 1, ManualRank: &rank, ServedAt: &served}

	c := orig.Clone()
	*c.ManualRank = 5
	*c.ServedAt = served.Add(time.Hour)

	assert.Equal(t, 2, *orig.ManualRank)
	assert.Equal(t, served, *orig.ServedAt)
	assert.Nil(t, c.CompletedAt)
}
