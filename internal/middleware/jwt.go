package middleware // middleware provides shared request processing for handlers

import (
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/user-management-api/internal/utils"
)

// Context keys set by JWTAuth.
const (
    ctxUserID = "user_id"
    ctxRole   = "role"
    ctxClaims = "claims"
)

// Authenticator verifies a raw session token. CredentialService satisfies it.
type Authenticator interface {
    Authenticate(ctx context.Context, bearer string) (utils.Claims, error)
}

// JWTAuth returns an Echo middleware that requires a valid
// "Authorization: Bearer <jwt>" header. On success the subject and role
// are stored in the context under "user_id" (uint64) and "role" (string),
// and the full claims are available through Principal.
func JWTAuth(auth Authenticator) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            header := c.Request().Header.Get(echo.HeaderAuthorization)
            scheme, raw, found := strings.Cut(header, " ")
            if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }

            claims, err := auth.Authenticate(c.Request().Context(), strings.TrimSpace(raw))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            c.Set(ctxUserID, claims.Subject)
            c.Set(ctxRole, claims.Role)
            c.Set(ctxClaims, claims)
            return next(c)
        }
    }
}
