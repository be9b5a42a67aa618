package api

import (
	"esca/queue-gateway/internal/api/handler/audit"
	"esca/queue-gateway/internal/api/handler/queue"
	"esca/queue-gateway/internal/api/handler/ticket"
	"esca/queue-gateway/internal/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupAPIRoutes
// @title						Queue gateway Service
// @version         			1.0.0
// @description     			Service counter queue: registration, call-next and staff overrides
// @Host 						localhost:8080
// @BasePath  					/
// @Schemes 					https
func (s *Server) SetupAPIRoutes(
	ticketHandler *ticket.TicketHandler,
	queueHandler *queue.QueueHandler,
	auditHandler *audit.AuditHandler,
	idempotency *middleware.IdempotencyMiddleware,
) {
	r := s.engine

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("v1")
	{
		public := v1.Group("")
		public.Use(middleware.IdentifyUser())
		public.POST("/tickets", idempotency.Handle, ticketHandler.Register)
		public.GET("/tickets", ticketHandler.GetAll)
		public.GET("/tickets/:id", ticketHandler.Get)
		public.GET("/queue", queueHandler.ListWaiting)
		public.GET("/queue/stats", queueHandler.Stats)
		public.GET("/queue/counters", queueHandler.Counters)

		staff := v1.Group("")
		staff.Use(middleware.HandleAuth())
		staff.POST("/tickets/:id/complete", ticketHandler.Complete)
		staff.POST("/tickets/:id/move-up", ticketHandler.MoveUp)
		staff.POST("/tickets/:id/move-down", ticketHandler.MoveDown)
		staff.GET("/tickets/:id/timeline", auditHandler.ViewTimeline)
		staff.POST("/queue/call-next", queueHandler.CallNext)
		staff.POST("/queue/reset", queueHandler.Reset)
		staff.GET("/audit", auditHandler.GetAll)
	}
}
