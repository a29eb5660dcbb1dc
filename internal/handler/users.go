package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/user-management-api/internal/middleware"
    "github.com/iliyamo/user-management-api/internal/service"
)

// UserHandler serves the /users endpoints. Every route sits behind JWTAuth.
type UserHandler struct {
    Users *service.UserService
    Log   *zap.Logger
}

func NewUserHandler(users *service.UserService, log *zap.Logger) *UserHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &UserHandler{Users: users, Log: log}
}

type updateUserReq struct {
    Email     string `json:"email" validate:"omitempty,email,max=255"`
    Password  string `json:"password" validate:"omitempty,min=6,maxbytes=72,strongpw"`
    FirstName string `json:"firstName" validate:"omitempty,max=100"`
    LastName  string `json:"lastName" validate:"omitempty,max=100"`
    Role      string `json:"role" validate:"omitempty,oneof=user admin"`
}

// List: GET /users (admin).
func (h *UserHandler) List(c echo.Context) error {
    actor, ok := middleware.Principal(c)
    if !ok {
        return respondError(c, h.Log, service.ErrUnauthorized)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    users, err := h.Users.List(ctx, actor)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, users)
}

// Get: GET /users/:id (admin or self).
func (h *UserHandler) Get(c echo.Context) error {
    actor, ok := middleware.Principal(c)
    if !ok {
        return respondError(c, h.Log, service.ErrUnauthorized)
    }
    id, err := parseID(c)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Users.Get(ctx, actor, id)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, u)
}

// Update: PUT /users/:id (admin or self). Omitted fields stay unchanged.
func (h *UserHandler) Update(c echo.Context) error {
    actor, ok := middleware.Principal(c)
    if !ok {
        return respondError(c, h.Log, service.ErrUnauthorized)
    }
    id, err := parseID(c)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    var req updateUserReq
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

    u, err := h.Users.Update(ctx, actor, id, service.UpdateInput{
        Email:     req.Email,
        Password:  req.Password,
        FirstName: req.FirstName,
        LastName:  req.LastName,
        Role:      req.Role,
    })
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "user updated", "user": u})
}

// Delete: DELETE /users/:id (admin).
func (h *UserHandler) Delete(c echo.Context) error {
    actor, ok := middleware.Principal(c)
    if !ok {
        return respondError(c, h.Log, service.ErrUnauthorized)
    }
    id, err := parseID(c)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Users.Delete(ctx, actor, id); err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}

// parseID reads the :id path parameter.
func parseID(c echo.Context) (uint64, error) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, &ValidationError{Fields: []FieldError{{Field: "id", Message: "must be a positive integer"}}}
    }
    return id, nil
}
