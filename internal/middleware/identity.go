package middleware

// identity.go exposes the authenticated caller to handlers and to the
// request logger.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/user-management-api/internal/utils"
)

// Principal returns the claims stored by JWTAuth. ok is false on routes
// that are not behind JWTAuth.
func Principal(c echo.Context) (utils.Claims, bool) {
    cl, ok := c.Get(ctxClaims).(utils.Claims)
    return cl, ok
}

// userID returns the caller's id, or 0 for anonymous requests.
func userID(c echo.Context) uint64 {
    id, _ := c.Get(ctxUserID).(uint64)
    return id
}
