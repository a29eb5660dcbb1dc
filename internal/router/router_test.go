package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/user-management-api/internal/handler"
	"github.com/iliyamo/user-management-api/internal/model"
	"github.com/iliyamo/user-management-api/internal/repository/memory"
	"github.com/iliyamo/user-management-api/internal/service"
	"github.com/iliyamo/user-management-api/internal/utils"
)

type app struct {
	e     *echo.Echo
	creds *service.CredentialService
}

func newApp(t *testing.T) *app {
	t.Helper()
	hasher, err := utils.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	signer, err := utils.NewSigner("router-secret")
	require.NoError(t, err)

	store := memory.New()
	resets := service.NewResetTokens(store, hasher, nil)
	creds := service.NewCredentialService(store, resets, hasher, signer, nil, nil)
	e := New(Options{},
		handler.NewAuthHandler(creds, nil),
		handler.NewUserHandler(service.NewUserService(store, hasher, nil), nil),
		creds)
	return &app{e: e, creds: creds}
}

func (a *app) send(t *testing.T, method, path string, body any, bearer string) (int, map[string]any) {
	t.Helper()
	var rdr *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = strings.NewReader(string(b))
	} else {
		rdr = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec.Code, out
}

func TestPasswordRecoveryScenario(t *testing.T) {
	a := newApp(t)
	creds := map[string]string{"email": "a@x.com", "password": "Test123!"}

	code, body := a.send(t, http.MethodPost, "/auth/register", map[string]string{
		"email": "a@x.com", "password": "Test123!", "firstName": "A", "lastName": "B",
	}, "")
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["token"])

	code, body = a.send(t, http.MethodPost, "/auth/login", creds, "")
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "a@x.com", body["user"].(map[string]any)["email"])

	code, _ = a.send(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "Wrong123!"}, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = a.send(t, http.MethodPost, "/auth/forgot-password", map[string]string{"email": "a@x.com"}, "")
	require.Equal(t, http.StatusOK, code)
	t1, _ := body["token"].(string)
	require.NotEmpty(t, t1)
	expiresAt, err := time.Parse(time.RFC3339, body["expiresAt"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	code, _ = a.send(t, http.MethodPost, "/auth/reset-password", map[string]string{"token": t1, "newPassword": "New123!"}, "")
	require.Equal(t, http.StatusOK, code)

	code, body = a.send(t, http.MethodPost, "/auth/reset-password", map[string]string{"token": t1, "newPassword": "Another1!"}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid or expired token", body["error"])

	code, _ = a.send(t, http.MethodPost, "/auth/login", creds, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.send(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "New123!"}, "")
	assert.Equal(t, http.StatusOK, code)
}

func TestUsersRoutes_AdminGate(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	admin, err := a.creds.Register(ctx, service.RegisterInput{Email: "root@x.com", Password: "Admin123", FirstName: "R", LastName: "T", Role: model.RoleAdmin})
	require.NoError(t, err)
	user, err := a.creds.Register(ctx, service.RegisterInput{Email: "u@x.com", Password: "User1234A", FirstName: "U", LastName: "S"})
	require.NoError(t, err)

	code, _ := a.send(t, http.MethodGet, "/users", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = a.send(t, http.MethodGet, "/users", nil, user.Token)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.send(t, http.MethodGet, "/users", nil, admin.Token)
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.send(t, http.MethodDelete, "/users/1", nil, user.Token)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.send(t, http.MethodDelete, "/users/2", nil, admin.Token)
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.send(t, http.MethodGet, "/users/2", nil, admin.Token)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPublicRoutes(t *testing.T) {
	a := newApp(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	code, body := a.send(t, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["message"])

	req = httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set(echo.HeaderOrigin, "https://app.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec = httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
