package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/issuepulse/pkg/logger"
)

// AuditLog writes one audit line per state-changing request once the
// handler has run.
func AuditLog() gin.HandlerFunc {
	audit := logger.Component("audit")
	return func(c *gin.Context) {
		method := c.Request.Method
		if method == "GET" || method == "HEAD" || method == "OPTIONS" {
			c.Next()
			return
		}

		c.Next()

		event := audit.Info()
		if c.Writer.Status() >= 400 {
			event = audit.Warn()
		}
		event.
			Uint("user_id", GetUserID(c)).
			Str("username", GetUsername(c)).
			Str("role", GetRole(c)).
			Str("method", method).
			Str("route", c.FullPath()).
			Int("status", c.Writer.Status()).
			Str("ip", c.ClientIP()).
			Msg("write request")
	}
}
