package queue

import (
	"sync"

	"esca/queue-gateway/internal/domain"
)

// Bus fans committed events out to subscribers. Each subscriber owns an
// unbounded mailbox, so publishing never blocks the writer holding the store
// lock and a slow subscriber only delays itself.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]*mailbox
	nextID int
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]*mailbox)}
}

// Subscribe returns a channel receiving every event published after the call
// and a cancel func that stops delivery and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer < 0 {
		buffer = 0
	}

	m := &mailbox{
		signal: make(chan struct{}, 1),
		out:    make(chan domain.Event, buffer),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(m.out)
		return m.out, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = m
	b.mu.Unlock()

	go m.run()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		m.stop()
	}

	return m.out, cancel
}

// Close ends every subscription. Events already published are still
// delivered before a subscriber's channel closes.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[int]*mailbox)
	b.closed = true
	b.mu.Unlock()

	for _, m := range subs {
		m.finish()
	}
}

func (b *Bus) publish(ev domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, m := range b.subs {
		m.push(ev)
	}
}

type mailbox struct {
	mu      sync.Mutex
	pending []domain.Event
	closing bool
	signal  chan struct{}
	out     chan domain.Event
	done    chan struct{}
	once    sync.Once
}

func (m *mailbox) push(ev domain.Event) {
	m.mu.Lock()
	m.pending = append(m.pending, ev)
	m.mu.Unlock()
	m.wake()
}

func (m *mailbox) wake() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// finish closes the mailbox once pending events are delivered.
func (m *mailbox) finish() {
	m.mu.Lock()
	m.closing = true
	m.mu.Unlock()
	m.wake()
}

// stop closes the mailbox immediately, dropping pending events.
func (m *mailbox) stop() {
	m.once.Do(func() { close(m.done) })
}

func (m *mailbox) run() {
	defer close(m.out)

	for {
		select {
		case <-m.done:
			return
		case <-m.signal:
		}

		for {
			m.mu.Lock()
			if len(m.pending) == 0 {
				closing := m.closing
				m.mu.Unlock()
				if closing {
					return
				}
				break
			}
			ev := m.pending[0]
			m.pending[0] = domain.Event{}
			m.pending = m.pending[1:]
			m.mu.Unlock()

			select {
			case m.out <- ev:
			case <-m.done:
				return
			}
		}
	}
}
