package response

import (
	"net/http"

	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/queue"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// Error writes err with the status code its sentinel maps to. Rejected
// actions carry the ticket and the reason so staff tooling can show them.
func Error(c *gin.Context, err error) {
	code := StatusCode(err)
	body := gin.H{
		"code":    code,
		"message": err.Error(),
	}

	var terr *queue.TransitionError
	if errors.As(err, &terr) {
		body["ticket_id"] = terr.TicketID
		body["action"] = terr.Action
		body["current_status"] = terr.From
	}

	c.AbortWithStatusJSON(code, body)
}

func StatusCode(err error) int {
	switch {
	case errors.Is(err, constant.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, constant.ErrInvalidTransition),
		errors.Is(err, constant.ErrConcurrentModification),
		errors.Is(err, constant.ErrSessionActive):
		return http.StatusConflict
	case errors.Is(err, constant.ErrInvalidRegistration),
		errors.Is(err, constant.ErrInvalidPriorityClass),
		errors.Is(err, constant.ErrUnknownCounter),
		errors.Is(err, constant.ErrCounterRequired):
		return http.StatusBadRequest
	case errors.Is(err, constant.ErrManagerClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
