package repository

import (
	"context"
	"time"

	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/domain"
	"esca/queue-gateway/internal/repository/entity"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type dlqRepository struct {
	db *gorm.DB
}

func NewDlqRepository(db *gorm.DB) *dlqRepository {
	return &dlqRepository{
		db: db,
	}
}

func (dr *dlqRepository) InsertDLQ(ctx context.Context, km domain.KafkaMessage) error {
	ctx, cancel := context.WithTimeout(ctx, constant.DBTxTimeout)
	defer cancel()

	err := gorm.G[entity.KafkaDlq](dr.db).Create(ctx, &entity.KafkaDlq{
		Topic:         km.Topic,
		Key:           km.Key,
		Payload:       km.Payload,
		AttemptCount:  km.Attempts,
		LastError:     km.LastError,
		LastAttemptAt: time.Now(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to insert dlq message")
	}

	return nil
}
