package command

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"esca/queue-gateway/internal/api"
	"esca/queue-gateway/internal/api/handler/audit"
	queueHandler "esca/queue-gateway/internal/api/handler/queue"
	"esca/queue-gateway/internal/api/handler/ticket"
	"esca/queue-gateway/internal/api/middleware"
	"esca/queue-gateway/internal/config"
	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/infra"
	"esca/queue-gateway/internal/queue"
	"esca/queue-gateway/internal/repository"
	"esca/queue-gateway/internal/service/display"
	"esca/queue-gateway/internal/service/event"
)

type Server struct {
	Logger *logrus.Logger
}

func (cmd Server) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "run queue gateway server",
		Run: func(_ *cobra.Command, _ []string) {
			cmd.main(cfg, ctx)
		},
	}
}

func (cmd Server) main(cfg *config.Config, ctx context.Context) {
	db, err := infra.NewPostgresClient(ctx, cfg.AppEnv, cfg.Database.Postgres, cmd.Logger)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "server : failed to connect to postgresql"))
		return
	}

	clickhouseDb, err := infra.NewClickHouseClient(cfg.AppEnv, cfg.Database.ClickHouse, cmd.Logger)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "server : failed to connect to clickhouse"))
		return
	}

	redisClient, err := infra.NewRedisClient(ctx, cfg.Database.Redis, cmd.Logger)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "server : failed to connect to redis"))
		return
	}

	defer func() {
		if err = redisClient.Close(); err != nil {
			cmd.Logger.WithContext(ctx).Error(errors.Wrap(err, "server : failed to close redis"))
		}
	}()

	calledWriter := infra.NewKafkaWriter(cfg.Kafka, cfg.Kafka.CalledTopic)
	auditWriter := infra.NewKafkaWriter(cfg.Kafka, cfg.Kafka.AuditTopic)
	defer func() {
		for _, w := range []interface{ Close() error }{calledWriter, auditWriter} {
			if err := w.Close(); err != nil {
				cmd.Logger.WithContext(ctx).Error(errors.Wrap(err, "server : failed to close kafka writer"))
			}
		}
	}()

	// create repositories
	ticketRepository := repository.NewTicketRepository(db.GetDb())
	dlqRepository := repository.NewDlqRepository(db.GetDb())
	auditRepository := repository.NewAuditRepository(clickhouseDb.GetDb())

	// the queue lives in memory, postgres is the write-through copy
	manager := queue.NewManager(
		queue.WithLogger(cmd.Logger),
		queue.WithPersister(ticketRepository),
		queue.WithCounters(cfg.Queue.Counters...),
		queue.WithTokenPrefix(cfg.Queue.TokenPrefix),
	)

	tickets, err := ticketRepository.LoadTickets(ctx)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "server : failed to load tickets"))
		return
	}
	manager.Restore(tickets)
	cmd.Logger.WithContext(ctx).Infof("restored %d tickets", len(tickets))

	accrual := queue.NewAccrual(manager, cfg.Queue.AccrualInterval, nil, cmd.Logger)
	if err := accrual.Start(); err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "server : failed to start wait time accrual"))
		return
	}

	// create services
	publisher := event.NewPublisher(
		dlqRepository,
		cmd.Logger,
		calledWriter,
		auditWriter,
		cfg.Kafka.CalledTopic,
		cfg.Kafka.AuditTopic,
	)
	displayService := display.NewDisplayService(manager, redisClient, cmd.Logger)

	publisherEvents, _ := manager.Subscribe(cfg.Queue.EventBuffer)
	displayEvents, stopDisplay := manager.Subscribe(cfg.Queue.EventBuffer)

	producers := cfg.WorkerCount
	if producers <= 0 {
		producers = constant.KafkaWorkerCount
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		// runs until manager.Close, so late transitions are still published
		publisher.Run(ctx, publisherEvents, producers)
	}()
	go func() {
		defer wg.Done()
		displayService.Run(ctx, displayEvents)
	}()

	// create handlers
	ticketHandler := ticket.New(manager)
	queueHandlerInstance := queueHandler.New(manager)
	auditHandler := audit.New(auditRepository)

	// create middlewares
	idempotencyMiddleware := middleware.NewIdempotencyMiddleware(redisClient, cmd.Logger)

	server := api.New(cfg.AppEnv, cmd.Logger)
	server.SetupAPIRoutes(
		ticketHandler,
		queueHandlerInstance,
		auditHandler,
		idempotencyMiddleware,
	)

	// graceful shutdown: stop the timer first so no tick races the close
	defer func() {
		cmd.Logger.Info("shutting down queue...")
		accrual.Stop()
		stopDisplay()
		manager.Close()
		wg.Wait()
		cmd.Logger.Info("queue stopped")
	}()

	// run the server
	if err := server.Serve(ctx, fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
		cmd.Logger.Error(err)
	}
}
