// Package monitor logs HTTP requests.
package monitor

import (
	"time"

	"github.com/amoylab/cleanbill/internal/common/cnst"
	"github.com/amoylab/cleanbill/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// HeaderRequestID is echoed back on every response
const HeaderRequestID = "X-Request-ID"

// SlowRequestThreshold promotes the access log line to warn
const SlowRequestThreshold = 2 * time.Second

// AccessLog assigns a request id and writes one log line per request
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("access")
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()),
		}
		if v, ok := c.Get(cnst.CtxKeyCaller); ok {
			if caller, ok := v.(identity.Caller); ok {
				fields = append(fields, zap.String("tenant_id", caller.TenantID), zap.String("user_id", caller.UserID))
			}
		}

		if ce := logger.Check(level(status, duration), "request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func level(status int, duration time.Duration) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case duration > SlowRequestThreshold:
		return zapcore.WarnLevel
	case status >= 400:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
