// pkg/middleware/logger.go

package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const LoggerKey = "logger"

// InjectLogger - мидлвэр для добавления логгера в контекст запроса.
// К логгеру привязывается X-Request-ID, если он уже выставлен RequestID-мидлвэром.
func InjectLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqLogger := logger
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				reqLogger = logger.With(zap.String("requestID", id))
			}
			c.Set(LoggerKey, reqLogger)
			return next(c)
		}
	}
}

// FromContext достаёт логгер запроса, либо возвращает fallback.
func FromContext(c echo.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := c.Get(LoggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return fallback
}

// RequestLogger пишет одну строку на запрос через zap.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("requestID", v.RequestID),
			}
			switch {
			case v.Status >= 500:
				logger.Error("HTTP запрос", append(fields, zap.Error(v.Error))...)
			case v.Status >= 400:
				logger.Warn("HTTP запрос", fields...)
			default:
				logger.Debug("HTTP запрос", fields...)
			}
			return nil
		},
	})
}
