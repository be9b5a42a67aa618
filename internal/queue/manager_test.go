package queue

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/domain"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fakePersister struct {
	mu    sync.Mutex
	saved [][]domain.Ticket
	err   error
}

func (p *fakePersister) SaveTickets(_ context.Context, tickets []domain.Ticket) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.saved = append(p.saved, tickets)
	return nil
}

func (p *fakePersister) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *fakePersister) last() []domain.Ticket {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saved) == 0 {
		return nil
	}
	return p.saved[len(p.saved)-1]
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *testClock) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	clock := &testClock{now: at(9, 0)}

	base := []Option{WithLogger(logger), WithClock(clock.Now)}
	m := NewManager(append(base, opts...)...)
	t.Cleanup(m.Close)

	return m, clock
}

func register(t *testing.T, m *Manager, name string, class domain.PriorityClass) domain.Ticket {
	t.Helper()
	tk, err := m.Register(context.Background(), RegisterRequest{Name: name, Contact: "09170000000", PriorityClass: class})
	require.NoError(t, err)
	return tk
}

func tokens(tickets []domain.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.DisplayToken)
	}
	return out
}

func TestRegisterAssignsIdentity(t *testing.T) {
	m, clock := newTestManager(t)
	clock.Set(at(10, 30))

	tk := register(t, m, "  Maria  ", "")

	assert.Equal(t, int64(1), tk.ID)
	assert.Equal(t, "T-001", tk.DisplayToken)
	assert.Equal(t, "Maria", tk.CustomerName)
	assert.Equal(t, domain.PriorityNone, tk.PriorityClass)
	assert.Equal(t, domain.StatusWaiting, tk.Status)
	assert.Equal(t, at(10, 30), tk.RegistrationTime)
	assert.Zero(t, tk.WaitTimeMinutes)
	assert.Nil(t, tk.ManualRank)
	assert.Empty(t, tk.AssignedCounter)
	assert.Equal(t, "OR-1772447400000", tk.ORNumber)
	assert.Equal(t, int64(1), tk.Version)

	second := register(t, m, "Jose", domain.PriorityPWD)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, "T-002", second.DisplayToken)
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Register(ctx, RegisterRequest{Name: "   "})
	assert.ErrorIs(t, err, constant.ErrInvalidRegistration)

	_, err = m.Register(ctx, RegisterRequest{Name: "Ana", PriorityClass: "vip"})
	assert.ErrorIs(t, err, constant.ErrInvalidPriorityClass)

	assert.Empty(t, m.ListAll())
}

func TestCallNextFollowsPriorityOrder(t *testing.T) {
	m, clock := newTestManager(t)
	ctx := context.Background()

	clock.Set(at(9, 0))
	a := register(t, m, "A", domain.PriorityNone)
	clock.Set(at(9, 5))
	b := register(t, m, "B", domain.PriorityPWD)
	clock.Set(at(8, 55))
	c := register(t, m, "C", domain.PriorityNone)

	assert.Equal(t, []int64{b.ID, c.ID, a.ID}, ids(m.ListWaiting()))

	clock.Set(at(9, 10))
	first, err := m.CallNext(ctx, "JA", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, first.ID)
	assert.Equal(t, domain.StatusServing, first.Status)
	assert.Equal(t, "JA", first.AssignedCounter)
	require.NotNil(t, first.ServedAt)
	assert.Equal(t, at(9, 10), *first.ServedAt)

	got, err := m.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusServing, got.Status)

	second, err := m.CallNext(ctx, "Jil", "staff-2")
	require.NoError(t, err)
	assert.Equal(t, c.ID, second.ID)

	assert.Equal(t, []int64{a.ID}, ids(m.ListWaiting()))
}

func TestMoveDownSwapsWithNeighbour(t *testing.T) {
	m, clock := newTestManager(t)
	ctx := context.Background()

	clock.Set(at(9, 0))
	a := register(t, m, "A", domain.PriorityNone)
	clock.Set(at(9, 5))
	register(t, m, "B", domain.PriorityPWD)
	clock.Set(at(8, 55))
	c := register(t, m, "C", domain.PriorityNone)

	_, err := m.CallNext(ctx, "JA", "")
	require.NoError(t, err)
	require.Equal(t, []int64{c.ID, a.ID}, ids(m.ListWaiting()))

	moved, err := m.MoveDown(ctx, c.ID, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, moved.ID)
	assert.NotNil(t, moved.ManualRank)

	assert.Equal(t, []int64{a.ID, c.ID}, ids(m.ListWaiting()))

	next, err := m.CallNext(ctx, "JA", "")
	require.NoError(t, err)
	assert.Equal(t, a.ID, next.ID)
}

func TestMovesComposeAndNewArrivalsKeepNaturalPosition(t *testing.T) {
	m, clock := newTestManager(t)
	ctx := context.Background()

	var tks []domain.Ticket
	for i, name := range []string{"A", "B", "C", "D"} {
		clock.Set(at(9, i))
		tks = append(tks, register(t, m, name, domain.PriorityNone))
	}

	_, err := m.MoveUp(ctx, tks[3].ID, "")
	require.NoError(t, err)
	_, err = m.MoveUp(ctx, tks[3].ID, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"T-001", "T-004", "T-002", "T-003"}, tokens(m.ListWaiting()))

	_, err = m.MoveDown(ctx, tks[0].ID, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"T-004", "T-001", "T-002", "T-003"}, tokens(m.ListWaiting()))

	clock.Set(at(8, 0))
	register(t, m, "E", domain.PriorityNone)
	clock.Set(at(9, 30))
	register(t, m, "F", domain.PriorityPWD)

	assert.Equal(t,
		[]string{"T-006", "T-005", "T-004", "T-001", "T-002", "T-003"},
		tokens(m.ListWaiting()))
}

func TestMoveAtBoundaryIsNoOp(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first := register(t, m, "A", domain.PriorityNone)
	last := register(t, m, "B", domain.PriorityNone)
	ch, cancel := m.Subscribe(8)
	defer cancel()

	got, err := m.MoveUp(ctx, first.ID, "")
	require.NoError(t, err)
	assert.Equal(t, first.Version, got.Version)
	assert.Nil(t, got.ManualRank)

	got, err = m.MoveDown(ctx, last.ID, "")
	require.NoError(t, err)
	assert.Equal(t, last.Version, got.Version)

	assert.Equal(t, []int64{first.ID, last.ID}, ids(m.ListWaiting()))

	// the next event on the channel must come from the accrual, not a move
	_, err = m.AccrueWaitTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.EventWaitAccrued, receive(t, ch).Type)
}

func TestMoveRejectsUnknownAndNonWaiting(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.MoveUp(ctx, 42, "")
	assert.ErrorIs(t, err, constant.ErrTicketNotFound)

	tk := register(t, m, "A", domain.PriorityNone)
	register(t, m, "B", domain.PriorityNone)
	_, err = m.CallNext(ctx, "JA", "")
	require.NoError(t, err)

	_, err = m.MoveDown(ctx, tk.ID, "")
	require.ErrorIs(t, err, constant.ErrInvalidTransition)

	var terr *TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, tk.ID, terr.TicketID)
	assert.Equal(t, domain.ActionMoveDown, terr.Action)
	assert.Equal(t, domain.StatusServing, terr.From)
}

func TestOverrideDiscardedWhenTicketLeavesWaiting(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	a := register(t, m, "A", domain.PriorityNone)
	b := register(t, m, "B", domain.PriorityNone)
	c := register(t, m, "C", domain.PriorityNone)

	_, err := m.MoveUp(ctx, b.ID, "")
	require.NoError(t, err)
	require.Equal(t, []int64{b.ID, a.ID, c.ID}, ids(m.ListWaiting()))

	served, err := m.CallNext(ctx, "JA", "")
	require.NoError(t, err)
	assert.Equal(t, b.ID, served.ID)
	assert.Nil(t, served.ManualRank)

	done, err := m.CompleteService(ctx, b.ID, "")
	require.NoError(t, err)
	assert.Nil(t, done.ManualRank)

	assert.Equal(t, []int64{a.ID, c.ID}, ids(m.ListWaiting()))
}

func TestCallNextOnEmptyQueue(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.CallNext(context.Background(), "JA", "")
	assert.True(t, errors.Is(err, constant.ErrNoWaitingTicket))
	assert.False(t, errors.Is(err, constant.ErrInvalidTransition))
}

func TestCallNextValidatesCounter(t *testing.T) {
	m, _ := newTestManager(t, WithCounters("JA", "Jil"))
	register(t, m, "A", domain.PriorityNone)

	_, err := m.CallNext(context.Background(), " ", "")
	assert.ErrorIs(t, err, constant.ErrCounterRequired)

	_, err = m.CallNext(context.Background(), "Eric", "")
	assert.ErrorIs(t, err, constant.ErrUnknownCounter)

	assert.Len(t, m.ListWaiting(), 1)
}

func TestWaitTimeFreezesOnceServed(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	d := register(t, m, "D", domain.PriorityNone)
	for i := 0; i < 3; i++ {
		_, err := m.AccrueWaitTime(ctx)
		require.NoError(t, err)
	}

	got, err := m.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.WaitTimeMinutes)

	served, err := m.CallNext(ctx, "JA", "")
	require.NoError(t, err)
	assert.Equal(t, 3, served.WaitTimeMinutes)

	for i := 0; i < 5; i++ {
		n, err := m.AccrueWaitTime(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	got, err = m.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.WaitTimeMinutes)
}

func TestCompleteServiceTwice(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	d := register(t, m, "D", domain.PriorityNone)
	_, err := m.CallNext(ctx, "JA", "")
	require.NoError(t, err)

	done, err := m.CompleteService(ctx, d.ID, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	_, err = m.CompleteService(ctx, d.ID, "staff-1")
	require.ErrorIs(t, err, constant.ErrInvalidTransition)

	got, err := m.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, done.Version, got.Version)
}

func TestCompleteServiceRejectsWaitingTicket(t *testing.T) {
	m, _ := newTestManager(t)

	tk := register(t, m, "A", domain.PriorityNone)

	_, err := m.CompleteService(context.Background(), tk.ID, "")
	require.Error(t, err)

	var terr *TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, tk.ID, terr.TicketID)
	assert.Equal(t, domain.ActionComplete, terr.Action)
	assert.Equal(t, domain.StatusWaiting, terr.From)
	assert.Contains(t, err.Error(), "required: serving")

	got, err := m.Get(tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk, got)

	_, err = m.CompleteService(context.Background(), 999, "")
	assert.ErrorIs(t, err, constant.ErrTicketNotFound)
	assert.Contains(t, err.Error(), "999")
}

func TestConcurrentCallNextClaimsEachTicketOnce(t *testing.T) {
	m, _ := newTestManager(t)
	const waitingCount, callers = 10, 25

	for i := 0; i < waitingCount; i++ {
		register(t, m, "customer", domain.PriorityNone)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed = make(map[int64]int)
		empty   int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			tk, err := m.CallNext(context.Background(), "JA", "")
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, constant.ErrNoWaitingTicket) {
				empty++
				return
			}
			if assert.NoError(t, err) {
				claimed[tk.ID]++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Len(t, claimed, waitingCount)
	for id, n := range claimed {
		assert.Equal(t, 1, n, "ticket %d claimed more than once", id)
	}
	assert.Equal(t, callers-waitingCount, empty)
	assert.Empty(t, m.ListWaiting())
}

func TestConcurrentAccrualAndMovesLoseNothing(t *testing.T) {
	m, _ := newTestManager(t)
	const ticks = 30

	var tks []domain.Ticket
	for i := 0; i < 5; i++ {
		tks = append(tks, register(t, m, "customer", domain.PriorityNone))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < ticks; i++ {
			_, err := m.AccrueWaitTime(context.Background())
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < ticks; i++ {
			_, err := m.MoveUp(context.Background(), tks[i%len(tks)].ID, "")
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	waitingNow := m.ListWaiting()
	require.Len(t, waitingNow, len(tks))
	for _, tk := range waitingNow {
		assert.Equal(t, ticks, tk.WaitTimeMinutes)
	}
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	ch, cancel := m.Subscribe(0)
	defer cancel()

	tk := register(t, m, "A", domain.PriorityPregnant)
	_, err := m.CallNext(ctx, "Shella", "staff-9")
	require.NoError(t, err)
	_, err = m.CompleteService(ctx, tk.ID, "staff-9")
	require.NoError(t, err)

	ev := receive(t, ch)
	assert.Equal(t, domain.EventRegistered, ev.Type)
	require.Len(t, ev.Audit, 1)
	assert.Equal(t, domain.ActionRegister, ev.Audit[0].Action)
	assert.Equal(t, constant.SystemActor, ev.Audit[0].Actor)

	ev = receive(t, ch)
	assert.Equal(t, domain.EventCalled, ev.Type)
	require.NotNil(t, ev.Serving)
	assert.Equal(t, tk.ID, ev.Serving.TicketID)
	assert.Equal(t, "T-001", ev.Serving.DisplayToken)
	assert.Equal(t, "Shella", ev.Serving.Counter)
	require.Len(t, ev.Audit, 1)
	rec := ev.Audit[0]
	assert.Equal(t, domain.StatusWaiting, rec.PreviousStatus)
	assert.Equal(t, domain.StatusServing, rec.NewStatus)
	assert.Equal(t, "staff-9", rec.Actor)
	assert.Equal(t, "Shella", rec.Counter)
	assert.NotEmpty(t, rec.ID)

	ev = receive(t, ch)
	assert.Equal(t, domain.EventCompleted, ev.Type)
	require.Len(t, ev.Audit, 1)
	assert.Equal(t, domain.StatusServing, ev.Audit[0].PreviousStatus)
	assert.Equal(t, domain.StatusCompleted, ev.Audit[0].NewStatus)
}

func TestPersisterReceivesVersions(t *testing.T) {
	p := &fakePersister{}
	m, _ := newTestManager(t, WithPersister(p))

	tk := register(t, m, "A", domain.PriorityNone)
	require.Len(t, p.last(), 1)
	assert.Equal(t, int64(1), p.last()[0].Version)

	_, err := m.CallNext(context.Background(), "JA", "")
	require.NoError(t, err)
	require.Len(t, p.last(), 1)
	assert.Equal(t, tk.ID, p.last()[0].ID)
	assert.Equal(t, int64(2), p.last()[0].Version)
}

func TestPersisterFailureLeavesStateUntouched(t *testing.T) {
	p := &fakePersister{}
	m, _ := newTestManager(t, WithPersister(p))
	ctx := context.Background()

	tk := register(t, m, "A", domain.PriorityNone)

	p.fail(errors.New("connection refused"))
	_, err := m.Register(ctx, RegisterRequest{Name: "B"})
	require.Error(t, err)
	_, err = m.CallNext(ctx, "JA", "")
	require.Error(t, err)

	assert.Len(t, m.ListAll(), 1)
	got, err := m.Get(tk.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, got.Status)

	p.fail(nil)
	next := register(t, m, "B", domain.PriorityNone)
	assert.Equal(t, "T-002", next.DisplayToken)
	assert.Equal(t, int64(2), next.ID)
}

func TestPersisterConflictSurfaces(t *testing.T) {
	p := &fakePersister{}
	m, _ := newTestManager(t, WithPersister(p))

	register(t, m, "A", domain.PriorityNone)
	p.fail(errors.Wrap(constant.ErrConcurrentModification, "ticket 1"))

	_, err := m.CallNext(context.Background(), "JA", "")
	assert.ErrorIs(t, err, constant.ErrConcurrentModification)
	assert.Len(t, m.ListWaiting(), 1)
}

func TestStatsAndCounters(t *testing.T) {
	m, clock := newTestManager(t, WithCounters("JA", "Jil", "Shella", "Eric"))
	ctx := context.Background()

	a := register(t, m, "A", domain.PriorityPWD)
	register(t, m, "B", domain.PriorityNone)
	register(t, m, "C", domain.PrioritySeniorCitizen)
	register(t, m, "D", domain.PriorityNone)

	for i := 0; i < 4; i++ {
		_, err := m.AccrueWaitTime(ctx)
		require.NoError(t, err)
	}

	clock.Set(at(9, 30))
	_, err := m.CallNext(ctx, "Jil", "")
	require.NoError(t, err)
	_, err = m.CompleteService(ctx, a.ID, "")
	require.NoError(t, err)
	c, err := m.CallNext(ctx, "JA", "")
	require.NoError(t, err)

	stats := m.Stats(at(18, 0))
	assert.Equal(t, 2, stats.Waiting)
	assert.Equal(t, 1, stats.Serving)
	assert.Equal(t, 0, stats.PriorityWaiting)
	assert.Equal(t, 1, stats.CompletedToday)
	assert.InDelta(t, 4.0, stats.AverageWaitMinutes, 0.001)

	assert.Equal(t, 0, m.Stats(at(18, 0).Add(24*time.Hour)).CompletedToday)

	counters := m.Counters()
	require.Len(t, counters, 4)
	assert.Equal(t, "JA", counters[0].Counter)
	require.NotNil(t, counters[0].Ticket)
	assert.Equal(t, c.ID, counters[0].Ticket.ID)
	for _, cs := range counters[1:] {
		assert.Nil(t, cs.Ticket, cs.Counter)
	}
}

func TestResetSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	tk := register(t, m, "A", domain.PriorityNone)
	assert.ErrorIs(t, m.ResetSession(ctx, ""), constant.ErrSessionActive)

	_, err := m.CallNext(ctx, "JA", "")
	require.NoError(t, err)
	assert.ErrorIs(t, m.ResetSession(ctx, ""), constant.ErrSessionActive)

	_, err = m.CompleteService(ctx, tk.ID, "")
	require.NoError(t, err)
	require.NoError(t, m.ResetSession(ctx, "manager"))

	next := register(t, m, "B", domain.PriorityNone)
	assert.Equal(t, "T-001", next.DisplayToken)
	assert.Equal(t, int64(2), next.ID)
}

func TestRestoreContinuesNumbering(t *testing.T) {
	m, _ := newTestManager(t)
	rank := 1

	m.Restore([]domain.Ticket{
		{ID: 9, DisplayToken: "T-004", CustomerName: "X", PriorityClass: domain.PriorityNone, RegistrationTime: at(8, 0), Status: domain.StatusWaiting, ManualRank: &rank, Version: 3},
		{ID: 4, DisplayToken: "T-002", CustomerName: "Y", PriorityClass: domain.PriorityNone, RegistrationTime: at(8, 30), Status: domain.StatusCompleted, Version: 5},
	})

	assert.Equal(t, []int64{4, 9}, ids(m.ListAll()))

	tk := register(t, m, "Z", domain.PriorityNone)
	assert.Equal(t, int64(10), tk.ID)
	assert.Equal(t, "T-005", tk.DisplayToken)
}

func TestClosedManagerRejectsMutations(t *testing.T) {
	m, _ := newTestManager(t)
	m.Close()

	_, err := m.Register(context.Background(), RegisterRequest{Name: "A"})
	assert.ErrorIs(t, err, constant.ErrManagerClosed)
	_, err = m.CallNext(context.Background(), "JA", "")
	assert.ErrorIs(t, err, constant.ErrManagerClosed)
}
