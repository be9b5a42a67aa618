package display

import (
	"context"
	"encoding/json"
	"time"

	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/domain"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Board is what lobby monitors render: the waiting line in serving order and
// what each counter is doing.
type Board struct {
	Waiting   []Entry                `json:"waiting"`
	Counters  []domain.CounterStatus `json:"counters"`
	Stats     domain.QueueStats      `json:"stats"`
	UpdatedAt time.Time              `json:"updated_at"`
}

type Entry struct {
	Token       string               `json:"token"`
	Priority    domain.PriorityClass `json:"priority"`
	WaitMinutes int                  `json:"wait_minutes"`
}

type queueReader interface {
	ListWaiting() []domain.Ticket
	Counters() []domain.CounterStatus
	Stats(now time.Time) domain.QueueStats
}

type boardStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type displayService struct {
	queue  queueReader
	store  boardStore
	logger *logrus.Logger
	now    func() time.Time
}

func NewDisplayService(queue queueReader, store boardStore, logger *logrus.Logger) *displayService {
	return &displayService{
		queue:  queue,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Run refreshes the board once and then after every queue event until the
// channel closes or ctx is done.
func (ds *displayService) Run(ctx context.Context, events <-chan domain.Event) {
	if err := ds.Refresh(ctx); err != nil {
		ds.logger.WithContext(ctx).Warn(err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			// coalesce bursts, the board is a snapshot anyway
			drain(events)
			if err := ds.Refresh(ctx); err != nil {
				ds.logger.WithContext(ctx).Warn(err)
			}
		}
	}
}

// Refresh stores the current board and notifies subscribed monitors.
func (ds *displayService) Refresh(ctx context.Context) error {
	board := ds.Build()

	payload, err := json.Marshal(board)
	if err != nil {
		return errors.Wrap(err, "display : failed to marshal board")
	}

	if err := ds.store.Set(ctx, constant.RedisWaitingKey, payload, 0).Err(); err != nil {
		return errors.Wrap(err, "display : failed to store board")
	}
	if err := ds.store.Publish(ctx, constant.RedisEventsChannel, payload).Err(); err != nil {
		return errors.Wrap(err, "display : failed to publish board")
	}

	return nil
}

func (ds *displayService) Build() Board {
	now := ds.now()
	waiting := ds.queue.ListWaiting()

	entries := make([]Entry, 0, len(waiting))
	for _, t := range waiting {
		entries = append(entries, Entry{
			Token:       t.DisplayToken,
			Priority:    t.PriorityClass,
			WaitMinutes: t.WaitTimeMinutes,
		})
	}

	counters := ds.queue.Counters()
	for i, c := range counters {
		if c.Ticket == nil {
			continue
		}
		// monitors only show the token
		counters[i].Ticket = &domain.Ticket{
			ID:           c.Ticket.ID,
			DisplayToken: c.Ticket.DisplayToken,
			Status:       c.Ticket.Status,
		}
	}

	return Board{
		Waiting:   entries,
		Counters:  counters,
		Stats:     ds.queue.Stats(now),
		UpdatedAt: now,
	}
}

func drain(events <-chan domain.Event) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
