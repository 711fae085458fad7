package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logger はリクエストごとにアクセスログを出力するGinミドルウェアを返す。
// gin.Logger()の代わりにzerologで構造化ログを出力する。
// 5xxはError、4xxはWarn、それ以外はInfoレベルで出力する。
func Logger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		default:
			event = logger.Info()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("request_id", GetRequestID(c)).
			Int("size", c.Writer.Size())
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			event.Str("error", errs)
		}
		event.Msg("request")
	}
}
