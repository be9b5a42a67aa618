package ticket

import (
	"net/http"

	"esca/queue-gateway/internal/api/request"
	"esca/queue-gateway/internal/api/response"
	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/queue"

	"github.com/gin-gonic/gin"
)

// Register godoc
// @Summary      Register a customer
// @Description  Create a waiting ticket. Honors the Idempotency-Key header.
// @Tags         Tickets
// @Accept       json
// @Produce      json
// @Param        request body request.RegisterTicketRequest true "Registration"
// @Success      201 {object} map[string]interface{} "Created ticket"
// @Failure      400 {object} map[string]interface{} "Invalid request body"
// @Router       /v1/tickets [post]
func (h *TicketHandler) Register(c *gin.Context) {
	var req request.RegisterTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}

	class, err := req.Priority()
	if err != nil {
		response.Error(c, err)
		return
	}

	t, err := h.queueService.Register(c, queue.RegisterRequest{
		Name:          req.Name,
		Contact:       req.Contact,
		PriorityClass: class,
		Actor:         c.GetString(constant.UserIdKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "registered",
		"data":    t,
	})
}
