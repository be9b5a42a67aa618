package ticket

import (
	"net/http"
	"strconv"

	"esca/queue-gateway/internal/api/response"
	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/pkg/paginator"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// GetAll godoc
// @Summary      List tickets
// @Description  All tickets of the session in registration order, paginated
// @Tags         Tickets
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Number of items per page" default(10)
// @Success      200 {object} map[string]interface{} "Tickets with pagination metadata"
// @Router       /v1/tickets [get]
func (h *TicketHandler) GetAll(c *gin.Context) {
	pagination := paginator.New(c)

	all := h.queueService.ListAll()
	from, to := pagination.Bounds(len(all))

	c.JSON(http.StatusOK, gin.H{
		"message": "success",
		"data":    all[from:to],
		"meta": gin.H{
			"page_size": pagination.Size,
			"page":      pagination.Page,
			"total":     len(all),
		},
	})
}

// Get godoc
// @Summary      Get a ticket
// @Tags         Tickets
// @Produce      json
// @Param        id path int true "Ticket ID"
// @Success      200 {object} map[string]interface{} "Ticket"
// @Failure      404 {object} map[string]interface{} "Ticket not found"
// @Router       /v1/tickets/{id} [get]
func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := ParseID(c)
	if !ok {
		return
	}

	t, err := h.queueService.Get(id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "success",
		"data":    t,
	})
}

// ParseID reads the :id path parameter, answering 404 when it is not a
// ticket id.
func ParseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, errors.Wrapf(constant.ErrTicketNotFound, "ticket %q", c.Param("id")))
		return 0, false
	}
	return id, true
}
