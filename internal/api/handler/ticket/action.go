package ticket

import (
	"context"
	"net/http"

	"esca/queue-gateway/internal/api/response"
	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/domain"

	"github.com/gin-gonic/gin"
)

// Complete godoc
// @Summary      Complete service
// @Description  Move a serving ticket to completed
// @Tags         Tickets
// @Produce      json
// @Param        id path int true "Ticket ID"
// @Success      200 {object} map[string]interface{} "Completed ticket"
// @Failure      404 {object} map[string]interface{} "Ticket not found"
// @Failure      409 {object} map[string]interface{} "Ticket is not being served"
// @Router       /v1/tickets/{id}/complete [post]
// @Security     ApiKeyAuth
func (h *TicketHandler) Complete(c *gin.Context) {
	h.act(c, h.queueService.CompleteService)
}

// MoveUp godoc
// @Summary      Move a waiting ticket one place up
// @Tags         Tickets
// @Produce      json
// @Param        id path int true "Ticket ID"
// @Success      200 {object} map[string]interface{} "Ticket"
// @Failure      409 {object} map[string]interface{} "Ticket is not waiting"
// @Router       /v1/tickets/{id}/move-up [post]
// @Security     ApiKeyAuth
func (h *TicketHandler) MoveUp(c *gin.Context) {
	h.act(c, h.queueService.MoveUp)
}

// MoveDown godoc
// @Summary      Move a waiting ticket one place down
// @Tags         Tickets
// @Produce      json
// @Param        id path int true "Ticket ID"
// @Success      200 {object} map[string]interface{} "Ticket"
// @Failure      409 {object} map[string]interface{} "Ticket is not waiting"
// @Router       /v1/tickets/{id}/move-down [post]
// @Security     ApiKeyAuth
func (h *TicketHandler) MoveDown(c *gin.Context) {
	h.act(c, h.queueService.MoveDown)
}

func (h *TicketHandler) act(c *gin.Context, fn func(ctx context.Context, id int64, actor string) (domain.Ticket, error)) {
	id, ok := ParseID(c)
	if !ok {
		return
	}

	t, err := fn(c, id, c.GetString(constant.UserIdKey))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "success",
		"data":    t,
	})
}
