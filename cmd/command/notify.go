package command

import (
	"context"
	"encoding/json"
	"time"

	"esca/queue-gateway/internal/config"
	"esca/queue-gateway/internal/domain"
	"esca/queue-gateway/internal/infra"
	"esca/queue-gateway/internal/provider"
	"esca/queue-gateway/internal/worker"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type NotifyCommand struct {
	Logger *log.Logger
}

func (cmd NotifyCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "consume called tickets from Kafka and notify customers",
		Run: func(_ *cobra.Command, _ []string) {
			cmd.main(cfg, ctx)
		},
	}
}

func (cmd NotifyCommand) main(cfg *config.Config, ctx context.Context) {
	kafkaCfg := cfg.Kafka
	kafkaCfg.ConsumerGroup += "-notify"
	reader := infra.NewKafkaReader(kafkaCfg, cfg.Kafka.CalledTopic)

	template := provider.Template(cfg.Notification.Template)
	pool := worker.NewWorkerPool(
		provider.NewStubProvider(cmd.Logger),
		cmd.Logger,
		cfg.Notification.WorkerCount,
		cfg.Notification.MaxAttempts,
	)
	pool.Start()

	cmd.Logger.WithContext(ctx).Infof("notify consumer started on %s", cfg.Kafka.CalledTopic)

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			cmd.Logger.WithContext(ctx).Errorf("notify consumer: read error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		var called domain.ServingEvent
		if err := json.Unmarshal(m.Value, &called); err != nil {
			cmd.Logger.WithContext(ctx).Errorf("notify consumer: invalid payload: %v, raw: %s", err, string(m.Value))
		} else if called.Contact == "" {
			cmd.Logger.WithContext(ctx).Debugf("notify consumer: ticket %s has no contact", called.DisplayToken)
		} else if err := pool.Submit(ctx, template.NewJob(called, time.Now())); err != nil {
			// not committed, the message is redelivered after restart
			cmd.Logger.WithContext(ctx).Errorf("notify consumer: submit error: %v", err)
			break
		}

		if err := reader.CommitMessages(ctx, m); err != nil {
			cmd.Logger.WithContext(ctx).Warnf("notify consumer: commit error: %v", err)
		}
	}

	cmd.Logger.WithContext(ctx).Info("notify consumer: context done, shutting down...")
	if err := reader.Close(); err != nil {
		cmd.Logger.WithContext(ctx).Errorf("notify consumer: close error: %s", err.Error())
	}
	pool.Stop()
}
