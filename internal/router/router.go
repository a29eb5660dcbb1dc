package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/user-management-api/internal/handler"
	"github.com/iliyamo/user-management-api/internal/middleware"
	"github.com/iliyamo/user-management-api/internal/model"
)

// Options configures New.
type Options struct {
	Logger           *zap.Logger
	CORSAllowOrigins []string
}

// New builds the Echo instance with the shared middleware stack and every
// route registered.
func New(opts Options, auth *handler.AuthHandler, users *handler.UserHandler, authn middleware.Authenticator) *echo.Echo {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.CORSAllowOrigins) == 0 {
		opts.CORSAllowOrigins = []string{"*"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(opts.Logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: opts.CORSAllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.BodyLimit("1M"))

	RegisterRoutes(e)
	RegisterAuth(e, auth, authn)
	RegisterUsers(e, users, authn)
	return e
}

// RegisterRoutes registers routes that do not require authentication:
// the welcome message and the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Welcome)
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the /auth group. Everything but /auth/me is public.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authn middleware.Authenticator) {
	g := e.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)
	g.GET("/me", a.Me, middleware.JWTAuth(authn))
}

// RegisterUsers registers the /users resource. Listing and deleting are
// admin only; reading and updating are also open to the user themselves,
// which the service decides per id.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, authn middleware.Authenticator) {
	g := e.Group("/users", middleware.JWTAuth(authn))
	g.GET("", u.List, middleware.RequireRole(model.RoleAdmin))
	g.GET("/:id", u.Get)
	g.PUT("/:id", u.Update)
	g.DELETE("/:id", u.Delete, middleware.RequireRole(model.RoleAdmin))
}
