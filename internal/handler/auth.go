package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/user-management-api/internal/middleware"
    "github.com/iliyamo/user-management-api/internal/service"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
    Creds *service.CredentialService
    Log   *zap.Logger
}

func NewAuthHandler(creds *service.CredentialService, log *zap.Logger) *AuthHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &AuthHandler{Creds: creds, Log: log}
}

// ----- DTOs -----

type registerReq struct {
    Email     string `json:"email" validate:"required,email,max=255"`
    Password  string `json:"password" validate:"required,min=6,maxbytes=72,strongpw"`
    FirstName string `json:"firstName" validate:"required,max=100"`
    LastName  string `json:"lastName" validate:"required,max=100"`
    Role      string `json:"role" validate:"omitempty,oneof=user admin"`
}

type loginReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required"`
}

type forgotReq struct {
    Email string `json:"email" validate:"required,email"`
}

type resetReq struct {
    Token       string `json:"token" validate:"required"`
    NewPassword string `json:"newPassword" validate:"required,min=6,maxbytes=72,strongpw"`
}

type forgotResp struct {
    Message   string    `json:"message"`
    Token     string    `json:"token"`
    ExpiresAt time.Time `json:"expiresAt"`
}

// Register: validate, create the user and sign them in.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return badBody(c)
    }
    req.Email = strings.TrimSpace(req.Email)
    req.FirstName = strings.TrimSpace(req.FirstName)
    req.LastName = strings.TrimSpace(req.LastName)
    req.Role = strings.ToLower(strings.TrimSpace(req.Role))

    if err := c.Validate(&req); err != nil {
        return respondError(c, h.Log, err)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    res, err := h.Creds.Register(ctx, service.RegisterInput{
        Email:     req.Email,
        Password:  req.Password,
        FirstName: req.FirstName,
        LastName:  req.LastName,
        Role:      req.Role,
    })
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, res)
}

// Login: verify credentials and return a session token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return badBody(c)
    }
    req.Email = strings.TrimSpace(req.Email)

    if err := c.Validate(&req); err != nil {
        return respondError(c, h.Log, err)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    res, err := h.Creds.Login(ctx, req.Email, req.Password)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, res)
}

// ForgotPassword: issue a reset token. The token is returned in the body;
// the mailer receives it as well when notifications are enabled.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
    var req forgotReq
    if err := c.Bind(&req); err != nil {
        return badBody(c)
    }
    req.Email = strings.TrimSpace(req.Email)

    if err := c.Validate(&req); err != nil {
        return respondError(c, h.Log, err)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    grant, err := h.Creds.ForgotPassword(ctx, req.Email)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, forgotResp{
        Message:   "password reset token generated",
        Token:     grant.Token,
        ExpiresAt: grant.ExpiresAt,
    })
}

// ResetPassword: redeem a reset token and set the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
    var req resetReq
    if err := c.Bind(&req); err != nil {
        return badBody(c)
    }
    req.Token = strings.TrimSpace(req.Token)

    if err := c.Validate(&req); err != nil {
        return respondError(c, h.Log, err)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Creds.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "password has been reset"})
}

// Me returns the identity carried by the caller's session token.
func (h *AuthHandler) Me(c echo.Context) error {
    p, ok := middleware.Principal(c)
    if !ok {
        return respondError(c, h.Log, service.ErrUnauthorized)
    }
    return c.JSON(http.StatusOK, echo.Map{"id": p.Subject, "role": p.Role})
}
