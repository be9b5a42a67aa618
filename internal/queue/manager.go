package queue

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/domain"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Manager is the only mutating entry point into the queue. Registration,
// call-next, completion, manual moves and wait-time accrual all funnel
// through the store's single write path.
type Manager struct {
	store       *Store
	bus         *Bus
	logger      *logrus.Logger
	counters    []string
	tokenPrefix string
	now         func() time.Time
	metrics     *queueMetrics
	closed      atomic.Bool
}

type RegisterRequest struct {
	Name          string
	Contact       string
	PriorityClass domain.PriorityClass
	Actor         string
}

func NewManager(opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	bus := NewBus()

	return &Manager{
		store:       NewStore(o.Persister, bus, o.Clock),
		bus:         bus,
		logger:      o.Logger,
		counters:    o.Counters,
		tokenPrefix: o.TokenPrefix,
		now:         o.Clock,
		metrics:     globalQueueMetrics(),
	}
}

// Restore loads persisted tickets, typically once on start-up.
func (m *Manager) Restore(tickets []domain.Ticket) {
	m.store.Restore(tickets)
	m.metrics.observe(m.Stats(m.now()))
}

// Subscribe registers an observer for committed changes.
func (m *Manager) Subscribe(buffer int) (<-chan domain.Event, func()) {
	return m.bus.Subscribe(buffer)
}

// Close rejects further mutations and ends all subscriptions.
func (m *Manager) Close() {
	if m.closed.Swap(true) {
		return
	}
	m.bus.Close()
}

func (m *Manager) Register(ctx context.Context, req RegisterRequest) (domain.Ticket, error) {
	if m.closed.Load() {
		return domain.Ticket{}, constant.ErrManagerClosed
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Ticket{}, constant.ErrInvalidRegistration
	}
	class, ok := domain.ParsePriorityClass(string(req.PriorityClass))
	if !ok {
		return domain.Ticket{}, errors.Wrapf(constant.ErrInvalidPriorityClass, "priority class %q", req.PriorityClass)
	}

	var created domain.Ticket
	err := m.store.Update(ctx, func(tx *Tx) error {
		now := tx.Now()
		created = tx.Insert(domain.Ticket{
			CustomerName:     name,
			Contact:          strings.TrimSpace(req.Contact),
			PriorityClass:    class,
			RegistrationTime: now,
			Status:           domain.StatusWaiting,
			ORNumber:         fmt.Sprintf("OR-%d", now.UnixMilli()),
		}, m.tokenPrefix)

		tx.Emit(domain.Event{
			Type:    domain.EventRegistered,
			Tickets: []domain.Ticket{created},
			Audit: []domain.AuditRecord{
				newAuditRecord(created, "", domain.ActionRegister, req.Actor, "", now),
			},
		})
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	m.logger.WithContext(ctx).WithFields(logrus.Fields{
		"ticket":   created.DisplayToken,
		"priority": created.PriorityClass,
	}).Info("ticket registered")
	m.committed(domain.ActionRegister)

	return created, nil
}

// CallNext claims the head of the waiting order for counter. An empty queue
// yields constant.ErrNoWaitingTicket.
func (m *Manager) CallNext(ctx context.Context, counter, actor string) (domain.Ticket, error) {
	if m.closed.Load() {
		return domain.Ticket{}, constant.ErrManagerClosed
	}

	counter = strings.TrimSpace(counter)
	if counter == "" {
		return domain.Ticket{}, constant.ErrCounterRequired
	}
	if len(m.counters) > 0 && !slices.Contains(m.counters, counter) {
		return domain.Ticket{}, errors.Wrapf(constant.ErrUnknownCounter, "counter %q", counter)
	}

	var claimed domain.Ticket
	err := m.store.Update(ctx, func(tx *Tx) error {
		order := Order(tx.Tickets())
		if len(order) == 0 {
			return constant.ErrNoWaitingTicket
		}

		head := order[0]
		prev := head.Status
		if err := startServing(&head, counter, tx.Now()); err != nil {
			return err
		}
		tx.Put(head)
		claimed, _ = tx.Get(head.ID)

		rec := newAuditRecord(claimed, prev, domain.ActionCallNext, actor, "", tx.Now())
		rec.Counter = counter
		tx.Emit(domain.Event{
			Type:    domain.EventCalled,
			Tickets: []domain.Ticket{claimed},
			Audit:   []domain.AuditRecord{rec},
			Serving: &domain.ServingEvent{
				TicketID:        claimed.ID,
				DisplayToken:    claimed.DisplayToken,
				Counter:         counter,
				CustomerName:    claimed.CustomerName,
				Contact:         claimed.Contact,
				WaitTimeMinutes: claimed.WaitTimeMinutes,
				ServedAt:        *claimed.ServedAt,
			},
		})
		return nil
	})
	if errors.Is(err, constant.ErrNoWaitingTicket) {
		m.metrics.recordCall(nil)
		return domain.Ticket{}, err
	}
	if err != nil {
		return domain.Ticket{}, err
	}

	m.logger.WithContext(ctx).WithFields(logrus.Fields{
		"ticket":  claimed.DisplayToken,
		"counter": counter,
		"waited":  claimed.WaitTimeMinutes,
	}).Info("ticket called")
	m.metrics.recordCall(&claimed)
	m.committed(domain.ActionCallNext)

	return claimed, nil
}

func (m *Manager) CompleteService(ctx context.Context, id int64, actor string) (domain.Ticket, error) {
	if m.closed.Load() {
		return domain.Ticket{}, constant.ErrManagerClosed
	}

	var done domain.Ticket
	err := m.store.Update(ctx, func(tx *Tx) error {
		t, ok := tx.Get(id)
		if !ok {
			return errors.Wrapf(constant.ErrTicketNotFound, "ticket %d", id)
		}

		prev := t.Status
		if err := completeService(&t, tx.Now()); err != nil {
			return err
		}
		tx.Put(t)
		done, _ = tx.Get(id)

		rec := newAuditRecord(done, prev, domain.ActionComplete, actor, "", tx.Now())
		rec.Counter = done.AssignedCounter
		tx.Emit(domain.Event{
			Type:    domain.EventCompleted,
			Tickets: []domain.Ticket{done},
			Audit:   []domain.AuditRecord{rec},
		})
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	m.logger.WithContext(ctx).WithField("ticket", done.DisplayToken).Info("service completed")
	m.committed(domain.ActionComplete)

	return done, nil
}

// AccrueWaitTime adds one minute to every waiting ticket and returns how many
// were touched. When the batch hits a version conflict the tickets are
// retried one by one, so a single stale ticket only skips itself; that ticket
// is reloaded from the persister when it supports it.
func (m *Manager) AccrueWaitTime(ctx context.Context) (int, error) {
	if m.closed.Load() {
		return 0, constant.ErrManagerClosed
	}

	touched, err := m.accrue(ctx, func(int64) bool { return true })
	if errors.Is(err, constant.ErrConcurrentModification) {
		touched, err = m.accrueEach(ctx)
	}
	if err != nil {
		return 0, err
	}

	m.metrics.recordAccrual()
	return touched, nil
}

func (m *Manager) accrue(ctx context.Context, include func(id int64) bool) (int, error) {
	var touched int
	err := m.store.Update(ctx, func(tx *Tx) error {
		for _, t := range tx.Tickets() {
			if t.Status != domain.StatusWaiting || !include(t.ID) {
				continue
			}
			t.WaitTimeMinutes++
			tx.Put(t)
			touched++
		}
		if touched > 0 {
			tx.Emit(domain.Event{Type: domain.EventWaitAccrued, Tickets: tx.changed()})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return touched, nil
}

func (m *Manager) accrueEach(ctx context.Context) (int, error) {
	var touched int
	for _, t := range m.store.Snapshot() {
		if t.Status != domain.StatusWaiting {
			continue
		}

		id := t.ID
		n, err := m.accrue(ctx, func(candidate int64) bool { return candidate == id })
		switch {
		case err == nil:
			touched += n
		case errors.Is(err, constant.ErrConcurrentModification):
			m.resync(ctx, t)
		default:
			return touched, err
		}
	}
	return touched, nil
}

// resync replaces a ticket whose stored version differs from ours with the
// stored copy.
func (m *Manager) resync(ctx context.Context, t domain.Ticket) {
	log := m.logger.WithContext(ctx).WithFields(logrus.Fields{
		"ticket_id": t.ID,
		"ticket":    t.DisplayToken,
		"version":   t.Version,
	})

	reloader, ok := m.store.persister.(Reloader)
	if !ok {
		log.Warn("wait time accrual skipped ticket with stale version")
		return
	}

	stored, err := reloader.LoadTicket(ctx, t.ID)
	if err != nil {
		log.WithError(err).Error("failed to reload ticket with stale version")
		return
	}
	m.store.Replace(stored)
	log.WithField("stored_version", stored.Version).Warn("reloaded ticket with stale version")
}

// ResetSession restarts display token numbering for a new day. It is refused
// while any ticket is still waiting or being served.
func (m *Manager) ResetSession(ctx context.Context, actor string) error {
	if m.closed.Load() {
		return constant.ErrManagerClosed
	}

	err := m.store.Update(ctx, func(tx *Tx) error {
		for _, t := range tx.Tickets() {
			if t.Status == domain.StatusWaiting || t.Status == domain.StatusServing {
				return constant.ErrSessionActive
			}
		}
		tx.ResetTokens()
		tx.Emit(domain.Event{Type: domain.EventReset})
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.WithContext(ctx).WithField("actor", actorOrSystem(actor)).Info("queue session reset")
	return nil
}

func (m *Manager) Get(id int64) (domain.Ticket, error) {
	t, ok := m.store.Get(id)
	if !ok {
		return domain.Ticket{}, errors.Wrapf(constant.ErrTicketNotFound, "ticket %d", id)
	}
	return t, nil
}

// ListWaiting returns waiting tickets in serving order.
func (m *Manager) ListWaiting() []domain.Ticket {
	return Order(m.store.Snapshot())
}

// ListAll returns every ticket in registration order.
func (m *Manager) ListAll() []domain.Ticket {
	return m.store.Snapshot()
}

func (m *Manager) Stats(now time.Time) domain.QueueStats {
	var (
		stats     domain.QueueStats
		totalWait int
	)

	y, mo, d := now.Date()
	for _, t := range m.store.Snapshot() {
		switch t.Status {
		case domain.StatusWaiting:
			stats.Waiting++
			totalWait += t.WaitTimeMinutes
			if t.PriorityClass.IsPrioritized() {
				stats.PriorityWaiting++
			}
		case domain.StatusServing:
			stats.Serving++
		case domain.StatusCompleted:
			if t.CompletedAt == nil {
				continue
			}
			cy, cm, cd := t.CompletedAt.In(now.Location()).Date()
			if cy == y && cm == mo && cd == d {
				stats.CompletedToday++
			}
		}
	}
	if stats.Waiting > 0 {
		stats.AverageWaitMinutes = float64(totalWait) / float64(stats.Waiting)
	}

	return stats
}

// Counters reports what each counter is serving. Configured counters are
// always listed; counters seen only on tickets follow in name order.
func (m *Manager) Counters() []domain.CounterStatus {
	serving := make(map[string]domain.Ticket)
	for _, t := range m.store.Snapshot() {
		if t.Status != domain.StatusServing {
			continue
		}
		cur, ok := serving[t.AssignedCounter]
		if !ok || servedAfter(t, cur) {
			serving[t.AssignedCounter] = t
		}
	}

	names := append([]string(nil), m.counters...)
	var extra []string
	for name := range serving {
		if !slices.Contains(names, name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	names = append(names, extra...)

	out := make([]domain.CounterStatus, 0, len(names))
	for _, name := range names {
		cs := domain.CounterStatus{Counter: name}
		if t, ok := serving[name]; ok {
			cs.Ticket = &t
		}
		out = append(out, cs)
	}
	return out
}

func (m *Manager) committed(action domain.AuditAction) {
	m.metrics.recordAction(action)
	m.metrics.observe(m.Stats(m.now()))
}

func servedAfter(a, b domain.Ticket) bool {
	if a.ServedAt == nil || b.ServedAt == nil {
		return a.ID > b.ID
	}
	return a.ServedAt.After(*b.ServedAt)
}

func newAuditRecord(t domain.Ticket, prev domain.TicketStatus, action domain.AuditAction, actor, detail string, at time.Time) domain.AuditRecord {
	return domain.AuditRecord{
		ID:             uuid.NewString(),
		TicketID:       t.ID,
		DisplayToken:   t.DisplayToken,
		Timestamp:      at,
		PreviousStatus: prev,
		NewStatus:      t.Status,
		Action:         action,
		Actor:          actorOrSystem(actor),
		Detail:         detail,
	}
}

func actorOrSystem(actor string) string {
	if actor = strings.TrimSpace(actor); actor == "" {
		return constant.SystemActor
	}
	return actor
}
