package queue

import (
	"net/http"

	"esca/queue-gateway/internal/api/request"
	"esca/queue-gateway/internal/api/response"
	"esca/queue-gateway/internal/constant"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// ListWaiting godoc
// @Summary      Waiting line
// @Description  Waiting tickets in serving order
// @Tags         Queue
// @Produce      json
// @Success      200 {object} map[string]interface{} "Waiting tickets"
// @Router       /v1/queue [get]
func (h *QueueHandler) ListWaiting(c *gin.Context) {
	waiting := h.queueService.ListWaiting()

	c.JSON(http.StatusOK, gin.H{
		"message": "success",
		"data":    waiting,
		"meta":    gin.H{"total": len(waiting)},
	})
}

// CallNext godoc
// @Summary      Call the next customer
// @Description  Claim the head of the waiting line for a counter
// @Tags         Queue
// @Accept       json
// @Produce      json
// @Param        request body request.CallNextRequest true "Counter"
// @Success      200 {object} map[string]interface{} "Called ticket, or queue empty"
// @Failure      400 {object} map[string]interface{} "Unknown counter"
// @Router       /v1/queue/call-next [post]
// @Security     ApiKeyAuth
func (h *QueueHandler) CallNext(c *gin.Context) {
	var req request.CallNextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}

	t, err := h.queueService.CallNext(c, req.Counter, c.GetString(constant.UserIdKey))
	if errors.Is(err, constant.ErrNoWaitingTicket) {
		c.JSON(http.StatusOK, gin.H{"message": "queue empty", "data": nil})
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "success",
		"data":    t,
	})
}

// Stats godoc
// @Summary      Queue statistics
// @Tags         Queue
// @Produce      json
// @Success      200 {object} map[string]interface{} "Statistics"
// @Router       /v1/queue/stats [get]
func (h *QueueHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "success",
		"data":    h.queueService.Stats(h.now()),
	})
}

// Counters godoc
// @Summary      Counter status
// @Description  What each counter is serving
// @Tags         Queue
// @Produce      json
// @Success      200 {object} map[string]interface{} "Counters"
// @Router       /v1/queue/counters [get]
func (h *QueueHandler) Counters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "success",
		"data":    h.queueService.Counters(),
	})
}

// Reset godoc
// @Summary      Reset the queue session
// @Description  Restart token numbering once nobody is waiting or being served
// @Tags         Queue
// @Produce      json
// @Success      200 {object} map[string]interface{} "Reset"
// @Failure      409 {object} map[string]interface{} "Session still active"
// @Router       /v1/queue/reset [post]
// @Security     ApiKeyAuth
func (h *QueueHandler) Reset(c *gin.Context) {
	if err := h.queueService.ResetSession(c, c.GetString(constant.UserIdKey)); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "queue reset"})
}
