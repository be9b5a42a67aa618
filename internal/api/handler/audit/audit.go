package audit

import (
	"context"
	"net/http"

	"esca/queue-gateway/internal/api/handler/ticket"
	"esca/queue-gateway/internal/domain"
	"esca/queue-gateway/pkg/paginator"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditRepository auditRepository
}

type auditRepository interface {
	GetAllAuditLogs(ctx context.Context, limit, offset int) ([]domain.AuditRecord, int64, error)
	ViewTicketTimeline(ctx context.Context, ticketID int64) ([]domain.AuditRecord, error)
}

func New(auditRepository auditRepository) *AuditHandler {
	return &AuditHandler{
		auditRepository: auditRepository,
	}
}

// GetAll godoc
// @Summary      Audit log
// @Description  Every status change and manual reorder, newest first
// @Tags         Audit
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Number of items per page" default(10)
// @Success      200 {object} map[string]interface{} "Audit records with pagination metadata"
// @Router       /v1/audit [get]
// @Security     ApiKeyAuth
func (h *AuditHandler) GetAll(c *gin.Context) {
	pagination := paginator.New(c)

	all, count, err := h.auditRepository.GetAllAuditLogs(c, pagination.Size, pagination.From)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "success",
		"data":    all,
		"meta": gin.H{
			"page_size": pagination.Size,
			"page":      pagination.Page,
			"total":     count,
		},
	})
}

// ViewTimeline godoc
// @Summary      Ticket timeline
// @Description  The audit trail of one ticket, oldest first
// @Tags         Audit
// @Produce      json
// @Param        id path int true "Ticket ID"
// @Success      200 {object} map[string]interface{} "Timeline"
// @Router       /v1/tickets/{id}/timeline [get]
func (h *AuditHandler) ViewTimeline(c *gin.Context) {
	id, ok := ticket.ParseID(c)
	if !ok {
		return
	}

	timeline, err := h.auditRepository.ViewTicketTimeline(c, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "success",
		"data":    timeline,
	})
}
