package middleware

import (
	"net/http"
	"strings"

	"esca/queue-gateway/internal/constant"

	"github.com/gin-gonic/gin"
)

const authHeader = "X-Auth-User-Id"

// HandleAuth requires the staff id set by the API gateway in front of us and
// stores it as the audit actor.
func HandleAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := strings.TrimSpace(c.GetHeader(authHeader))
		if userId == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": http.StatusUnauthorized,
				"msg":  "user is not authorized",
			})
			return
		}

		c.Set(constant.UserIdKey, userId)
		c.Next()
	}
}

// IdentifyUser records the staff id when present. Kiosk registration runs
// without one.
func IdentifyUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userId := strings.TrimSpace(c.GetHeader(authHeader)); userId != "" {
			c.Set(constant.UserIdKey, userId)
		}
		c.Next()
	}
}
