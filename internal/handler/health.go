package handler // declare the package name; contains HTTP handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health is the liveness probe used by load balancers. It returns a plain
// text "ok" with 200.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Welcome answers the root path.
func Welcome(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"message": "Welcome to the user management API"})
}
