package command

import (
	"context"
	"sync"
	"time"

	"esca/queue-gateway/internal/config"
	"esca/queue-gateway/internal/infra"
	"esca/queue-gateway/internal/repository"
	"esca/queue-gateway/internal/service/audit"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type AuditConsumerCommand struct {
	Logger *log.Logger
}

func (cmd AuditConsumerCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "consume-audit",
		Short: "consume queue audit records from Kafka and push to ClickHouse",
		Run: func(_ *cobra.Command, _ []string) {
			cmd.main(cfg, ctx)
		},
	}
}

func (cmd AuditConsumerCommand) main(cfg *config.Config, ctx context.Context) {
	clickhouseDb, err := infra.NewClickHouseClient(cfg.AppEnv, cfg.Database.ClickHouse, cmd.Logger)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatalf("failed to initialize ClickHouse client: %v", err)
	}

	kafkaCfg := cfg.Kafka
	kafkaCfg.ConsumerGroup += "-audit"
	reader := infra.NewKafkaReader(kafkaCfg, cfg.Kafka.AuditTopic)
	defer func() {
		if err := reader.Close(); err != nil {
			cmd.Logger.WithContext(ctx).Errorf("failed to close Kafka consumer: %v", err)
		}
	}()

	// offsets are committed by the sink once ClickHouse has the rows
	sink := audit.NewAuditSink(repository.NewAuditRepository(clickhouseDb.GetDb()), reader, cmd.Logger)

	msgChan := make(chan kafka.Message, 1000)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sink.Run(ctx, msgChan)
	}()

	cmd.Logger.WithContext(ctx).Infof("audit consumer started on %s", cfg.Kafka.AuditTopic)

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			cmd.Logger.WithContext(ctx).Errorf("audit consumer: read error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		select {
		case msgChan <- m:
		case <-ctx.Done():
			// uncommitted, redelivered to the next consumer
		}
	}

	cmd.Logger.WithContext(ctx).Info("audit consumer: shutting down gracefully...")
	close(msgChan)
	wg.Wait()
}
