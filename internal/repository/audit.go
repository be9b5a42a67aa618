package repository

import (
	"context"

	"esca/queue-gateway/internal/domain"
	"esca/queue-gateway/internal/repository/entity"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type auditRepository struct {
	clickhouse *gorm.DB
}

func NewAuditRepository(clickhouse *gorm.DB) *auditRepository {
	return &auditRepository{
		clickhouse: clickhouse,
	}
}

func (ar *auditRepository) InsertAuditRecords(ctx context.Context, records []domain.AuditRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]entity.AuditLog, 0, len(records))
	for _, r := range records {
		rows = append(rows, entity.AuditLogFromDomain(r))
	}

	if err := gorm.G[entity.AuditLog](ar.clickhouse).CreateInBatches(ctx, &rows, len(rows)); err != nil {
		return errors.Wrap(err, "failed to insert audit records")
	}

	return nil
}

func (ar *auditRepository) GetAllAuditLogs(ctx context.Context, limit, offset int) ([]domain.AuditRecord, int64, error) {
	total, err := gorm.G[entity.AuditLog](ar.clickhouse).Count(ctx, "id")
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count audit logs")
	}

	logs, err := gorm.G[entity.AuditLog](ar.clickhouse).
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to get audit logs")
	}

	records := make([]domain.AuditRecord, 0, len(logs))
	for _, log := range logs {
		records = append(records, log.ToDomain())
	}

	return records, total, nil
}

// ViewTicketTimeline returns the audit trail of one ticket, oldest first.
func (ar *auditRepository) ViewTicketTimeline(ctx context.Context, ticketID int64) ([]domain.AuditRecord, error) {
	logs, err := gorm.G[entity.AuditLog](ar.clickhouse).
		Where("ticket_id = ?", ticketID).
		Order("timestamp ASC").
		Find(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get ticket timeline")
	}

	records := make([]domain.AuditRecord, 0, len(logs))
	for _, log := range logs {
		records = append(records, log.ToDomain())
	}

	return records, nil
}
