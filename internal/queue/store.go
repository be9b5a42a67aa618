package queue

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"esca/queue-gateway/internal/domain"

	"github.com/pkg/errors"
)

// Persister is the external record store. SaveTickets receives every ticket
// touched by one mutation, already carrying its bumped Version; a ticket with
// Version 1 is new. Returning an error aborts the mutation.
type Persister interface {
	SaveTickets(ctx context.Context, tickets []domain.Ticket) error
}

// Reloader is implemented by persisters that can read one ticket back. The
// queue uses it to resync a ticket whose stored version moved on.
type Reloader interface {
	LoadTicket(ctx context.Context, id int64) (domain.Ticket, error)
}

// Store is the single owner of ticket state. Every write goes through Update,
// which runs under one mutex, so readers never observe a half-applied change.
type Store struct {
	mu       sync.Mutex
	tickets  map[int64]*domain.Ticket
	ids      []int64 // insertion order
	nextID   int64
	tokenSeq int

	persister Persister
	bus       *Bus
	now       func() time.Time
}

func NewStore(persister Persister, bus *Bus, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	if bus == nil {
		bus = NewBus()
	}

	return &Store{
		tickets:   make(map[int64]*domain.Ticket),
		nextID:    1,
		persister: persister,
		bus:       bus,
		now:       now,
	}
}

// Restore replaces the in-memory state with previously persisted tickets.
// Token numbering continues after the highest token seen.
func (s *Store) Restore(tickets []domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickets = make(map[int64]*domain.Ticket, len(tickets))
	s.ids = s.ids[:0]
	s.nextID = 1
	s.tokenSeq = 0

	for _, t := range tickets {
		c := t.Clone()
		s.tickets[c.ID] = &c
		s.ids = append(s.ids, c.ID)

		if c.ID >= s.nextID {
			s.nextID = c.ID + 1
		}
		if n := tokenNumber(c.DisplayToken); n > s.tokenSeq {
			s.tokenSeq = n
		}
	}

	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
}

// Replace overwrites a known ticket with its stored state, version included.
// It publishes nothing.
func (s *Store) Replace(t domain.Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[t.ID]; !ok {
		return false
	}
	c := t.Clone()
	s.tickets[t.ID] = &c
	return true
}

// Snapshot returns copies of all tickets in insertion order.
func (s *Store) Snapshot() []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Store) Get(id int64) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return domain.Ticket{}, false
	}
	return t.Clone(), true
}

// Update runs fn against a transaction. Changes staged by fn are persisted
// and committed only if fn and the persister both succeed; events staged by
// fn are published in commit order.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{
		store:    s,
		now:      s.now(),
		staged:   make(map[int64]*domain.Ticket),
		nextID:   s.nextID,
		tokenSeq: s.tokenSeq,
	}

	if err := fn(tx); err != nil {
		return err
	}

	changed := tx.changed()
	if len(changed) > 0 && s.persister != nil {
		if err := s.persister.SaveTickets(ctx, changed); err != nil {
			return errors.Wrap(err, "store : failed to persist tickets")
		}
	}

	for _, t := range changed {
		c := t
		if _, ok := s.tickets[c.ID]; !ok {
			s.ids = append(s.ids, c.ID)
		}
		s.tickets[c.ID] = &c
	}
	s.nextID = tx.nextID
	s.tokenSeq = tx.tokenSeq

	for _, ev := range tx.events {
		s.bus.publish(ev)
	}

	return nil
}

func (s *Store) snapshotLocked() []domain.Ticket {
	out := make([]domain.Ticket, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.tickets[id].Clone())
	}
	return out
}

// Tx is a pending mutation. It is only valid inside the Update callback.
type Tx struct {
	store    *Store
	now      time.Time
	staged   map[int64]*domain.Ticket
	order    []int64 // staged ids in staging order
	nextID   int64
	tokenSeq int
	events   []domain.Event
}

// Now is the commit timestamp shared by every change in the transaction.
func (tx *Tx) Now() time.Time {
	return tx.now
}

func (tx *Tx) Get(id int64) (domain.Ticket, bool) {
	if t, ok := tx.staged[id]; ok {
		return t.Clone(), true
	}
	t, ok := tx.store.tickets[id]
	if !ok {
		return domain.Ticket{}, false
	}
	return t.Clone(), true
}

// Tickets returns the transaction's view of all tickets in insertion order.
func (tx *Tx) Tickets() []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tx.store.ids)+len(tx.staged))
	for _, id := range tx.store.ids {
		t, _ := tx.Get(id)
		out = append(out, t)
	}
	for _, id := range tx.order {
		if _, committed := tx.store.tickets[id]; !committed {
			out = append(out, tx.staged[id].Clone())
		}
	}
	return out
}

// Put stages t as the new state of an existing ticket.
func (tx *Tx) Put(t domain.Ticket) {
	base, ok := tx.store.tickets[t.ID]
	if ok {
		t.Version = base.Version + 1
	} else {
		t.Version = 1
	}

	c := t.Clone()
	if _, seen := tx.staged[t.ID]; !seen {
		tx.order = append(tx.order, t.ID)
	}
	tx.staged[t.ID] = &c
}

// Insert assigns an id and display token to t and stages it.
func (tx *Tx) Insert(t domain.Ticket, tokenPrefix string) domain.Ticket {
	t.ID = tx.nextID
	tx.nextID++

	tx.tokenSeq++
	t.DisplayToken = formatToken(tokenPrefix, tx.tokenSeq)

	tx.Put(t)
	return tx.staged[t.ID].Clone()
}

func (tx *Tx) ResetTokens() {
	tx.tokenSeq = 0
}

func (tx *Tx) Emit(ev domain.Event) {
	if ev.At.IsZero() {
		ev.At = tx.now
	}
	tx.events = append(tx.events, ev)
}

func (tx *Tx) changed() []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tx.order))
	for _, id := range tx.order {
		out = append(out, tx.staged[id].Clone())
	}
	return out
}

func formatToken(prefix string, n int) string {
	if prefix == "" {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%s-%03d", prefix, n)
}

func tokenNumber(token string) int {
	if i := strings.LastIndexByte(token, '-'); i >= 0 {
		token = token[i+1:]
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0
	}
	return n
}
