package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/user-management-api/internal/service"
)

// respondError writes the JSON error response for err. Anything not in
// the service taxonomy is a 500 whose detail only goes to the log.
func respondError(c echo.Context, log *zap.Logger, err error) error {
    var ve *ValidationError
    switch {
    case errors.As(err, &ve):
        return c.JSON(http.StatusBadRequest, ve)
    case errors.Is(err, service.ErrDuplicateEmail):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
    case errors.Is(err, service.ErrInvalidCredentials):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
    case errors.Is(err, service.ErrUnauthorized):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    case errors.Is(err, service.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, service.ErrUserNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
    case errors.Is(err, service.ErrInvalidOrExpiredToken):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired token"})
    }
    log.Error("request failed",
        zap.String("method", c.Request().Method),
        zap.String("path", c.Path()),
        zap.Error(err))
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

func badBody(c echo.Context) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
}
