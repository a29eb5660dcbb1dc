package middleware

import (
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
)

// RequestLogger logs every request with its id, status and latency. The id
// comes from X-Request-ID or is generated, and is echoed in the response.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
    if logger == nil {
        logger = zap.L()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            req := c.Request()
            requestID := strings.TrimSpace(req.Header.Get(echo.HeaderXRequestID))
            if requestID == "" {
                requestID = uuid.NewString()
            }
            c.Set("request_id", requestID)
            c.Response().Header().Set(echo.HeaderXRequestID, requestID)

            err := next(c)
            if err != nil {
                // let Echo write the response so the logged status is final
                c.Error(err)
            }

            status := c.Response().Status
            fields := []zap.Field{
                zap.String("request_id", requestID),
                zap.Int("status", status),
                zap.String("method", req.Method),
                zap.String("path", req.URL.RequestURI()),
                zap.Duration("latency", time.Since(start)),
                zap.String("client_ip", c.RealIP()),
            }
            if id := userID(c); id != 0 {
                fields = append(fields, zap.Uint64("user_id", id))
            }

            switch {
            case status >= 500:
                logger.Error("http_request", fields...)
            case status >= 400:
                logger.Warn("http_request", fields...)
            default:
                logger.Info("http_request", fields...)
            }
            return nil
        }
    }
}
