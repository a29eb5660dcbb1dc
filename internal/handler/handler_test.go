package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/user-management-api/internal/middleware"
	"github.com/iliyamo/user-management-api/internal/model"
	"github.com/iliyamo/user-management-api/internal/repository/memory"
	"github.com/iliyamo/user-management-api/internal/service"
	"github.com/iliyamo/user-management-api/internal/utils"
)

type testEnv struct {
	e     *echo.Echo
	store *memory.Store
	creds *service.CredentialService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hasher, err := utils.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	signer, err := utils.NewSigner("handler-secret")
	require.NoError(t, err)

	store := memory.New()
	resets := service.NewResetTokens(store, hasher, nil)
	creds := service.NewCredentialService(store, resets, hasher, signer, nil, nil)
	auth := NewAuthHandler(creds, nil)
	users := NewUserHandler(service.NewUserService(store, hasher, nil), nil)

	e := echo.New()
	e.Validator = NewRequestValidator()
	e.POST("/auth/register", auth.Register)
	e.POST("/auth/login", auth.Login)
	e.POST("/auth/forgot-password", auth.ForgotPassword)
	e.POST("/auth/reset-password", auth.ResetPassword)
	e.GET("/auth/me", auth.Me, middleware.JWTAuth(creds))
	g := e.Group("/users", middleware.JWTAuth(creds))
	g.GET("/:id", users.Get)
	g.PUT("/:id", users.Update)
	return &testEnv{e: e, store: store, creds: creds}
}

func (env *testEnv) call(method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestRegister_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.call(http.MethodPost, "/auth/register",
		`{"email":"not-an-email","password":"short","firstName":"","lastName":"B","role":"root"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ValidationError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	fields := map[string]bool{}
	for _, f := range body.Fields {
		fields[f.Field] = true
	}
	assert.Equal(t, map[string]bool{"email": true, "password": true, "firstName": true, "role": true}, fields)
}

func TestRequestValidator_PasswordPolicy(t *testing.T) {
	rv := NewRequestValidator()
	for _, tc := range []struct {
		pw  string
		msg string
	}{
		{"New123!", ""},
		{"Test123!", ""},
		{"lower123", "must contain at least one uppercase letter and one number"},
		{"NoDigits!", "must contain at least one uppercase letter and one number"},
		{"A1", "must be at least 6 characters"},
		{strings.Repeat("A1", 37), "must be at most 72 bytes long"},
		{"", "is required"},
	} {
		err := rv.Validate(&resetReq{Token: "t", NewPassword: tc.pw})
		if tc.msg == "" {
			assert.NoError(t, err, "password %q", tc.pw)
			continue
		}
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "password %q", tc.pw)
		assert.Equal(t, []FieldError{{Field: "newPassword", Message: tc.msg}}, ve.Fields)
	}
}

func TestRequestValidator_UpdateFieldsAreOptional(t *testing.T) {
	rv := NewRequestValidator()
	assert.NoError(t, rv.Validate(&updateUserReq{}))

	err := rv.Validate(&updateUserReq{Email: "nope", Role: "root"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []FieldError{
		{Field: "email", Message: "must be a valid email"},
		{Field: "role", Message: "must be one of [user, admin]"},
	}, ve.Fields)
}

func TestRegister_DuplicateAndBadBody(t *testing.T) {
	env := newTestEnv(t)
	body := `{"email":"a@x.com","password":"Test123!","firstName":"A","lastName":"B"}`

	rec := env.call(http.MethodPost, "/auth/register", body, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.NotEmpty(t, got["token"])
	assert.NotEmpty(t, got["expiresAt"])
	user := got["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, user, "passwordHash")

	rec = env.call(http.MethodPost, "/auth/register", strings.Replace(body, "a@x.com", "A@X.com", 1), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"email already registered"}`, rec.Body.String())

	rec = env.call(http.MethodPost, "/auth/register", `{"email":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_SameResponseForUnknownAndWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.call(http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"Test123!","firstName":"A","lastName":"B"}`, "")

	unknown := env.call(http.MethodPost, "/auth/login", `{"email":"ghost@x.com","password":"Test123!"}`, "")
	wrong := env.call(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"Wrong123!"}`, "")
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, unknown.Code, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())

	rec := env.call(http.MethodPost, "/auth/login", `{"email":"a@x.com"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForgotPassword_Responses(t *testing.T) {
	env := newTestEnv(t)
	env.call(http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"Test123!","firstName":"A","lastName":"B"}`, "")

	assert.Equal(t, http.StatusBadRequest, env.call(http.MethodPost, "/auth/forgot-password", `{"email":"nope"}`, "").Code)
	assert.Equal(t, http.StatusNotFound, env.call(http.MethodPost, "/auth/forgot-password", `{"email":"ghost@x.com"}`, "").Code)

	rec := env.call(http.MethodPost, "/auth/forgot-password", `{"email":"a@x.com"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Len(t, got["token"], 64)
	assert.NotEmpty(t, got["message"])
}

func TestResetPassword_Responses(t *testing.T) {
	env := newTestEnv(t)

	rec := env.call(http.MethodPost, "/auth/reset-password", `{"token":"abc","newPassword":"weak"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "newPassword")

	rec = env.call(http.MethodPost, "/auth/reset-password", `{"token":"abc","newPassword":"New123!"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid or expired token"}`, rec.Body.String())
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.creds.Register(context.Background(), service.RegisterInput{
		Email: "a@x.com", Password: "Test123!", FirstName: "A", LastName: "B", Role: model.RoleAdmin,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, env.call(http.MethodGet, "/auth/me", "", "").Code)
	rec := env.call(http.MethodGet, "/auth/me", "", res.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"role":"admin"}`, rec.Body.String())
}

func TestUsers_GetAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, err := env.creds.Register(ctx, service.RegisterInput{Email: "alice@x.com", Password: "Test123!", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	bob, err := env.creds.Register(ctx, service.RegisterInput{Email: "bob@x.com", Password: "Test123!", FirstName: "B", LastName: "B"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, env.call(http.MethodGet, "/users/1", "", alice.Token).Code)
	assert.Equal(t, http.StatusForbidden, env.call(http.MethodGet, "/users/2", "", alice.Token).Code)
	assert.Equal(t, http.StatusBadRequest, env.call(http.MethodGet, "/users/abc", "", alice.Token).Code)

	rec := env.call(http.MethodPut, "/users/2", `{"firstName":"Robert"}`, bob.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "Robert", got["user"].(map[string]any)["firstName"])

	rec = env.call(http.MethodPut, "/users/2", `{"role":"admin"}`, bob.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.call(http.MethodPut, "/users/2", `{"email":"alice@x.com"}`, bob.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
