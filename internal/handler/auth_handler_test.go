package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nobody-social/nobody-api/internal/dto"
	"github.com/nobody-social/nobody-api/internal/handler"
	"github.com/nobody-social/nobody-api/internal/service"
)

type mockAuthService struct {
	signUpResponse dto.AuthResponse
	signUpErr      error
	loginResponse  dto.AuthResponse
	loginErr       error
	profile        dto.ProfileResponse
	profileErr     error
}

func (m *mockAuthService) SignUp(context.Context, dto.SignUpRequest) (dto.AuthResponse, error) {
	return m.signUpResponse, m.signUpErr
}

func (m *mockAuthService) Login(context.Context, dto.LoginRequest) (dto.AuthResponse, error) {
	return m.loginResponse, m.loginErr
}

func (m *mockAuthService) Profile(context.Context, string) (dto.ProfileResponse, error) {
	return m.profile, m.profileErr
}

func newAuthApp(svc service.AuthService) *fiber.App {
	app := fiber.New()
	handler.NewAuthHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/auth"), fakeSession("user-1"))
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthHandler_SignUpCreated(t *testing.T) {
	svc := &mockAuthService{signUpResponse: dto.AuthResponse{
		Token:   "token-1",
		Profile: dto.ProfileResponse{ID: "user-1", PersonaName: "Marina Artist", City: "sf"},
	}}
	app := newAuthApp(svc)

	resp := postJSON(t, app, "/api/v1/auth/signup", dto.SignUpRequest{
		Email:    "a@example.com",
		Password: "hunter22",
		City:     "sf",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var response struct {
		Success bool             `json:"success"`
		Data    dto.AuthResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, "token-1", response.Data.Token)
	require.Equal(t, "Marina Artist", response.Data.Profile.PersonaName)
}

func TestAuthHandler_SignUpConflict(t *testing.T) {
	app := newAuthApp(&mockAuthService{signUpErr: service.ErrEmailTaken})

	resp := postJSON(t, app, "/api/v1/auth/signup", dto.SignUpRequest{
		Email:    "a@example.com",
		Password: "hunter22",
		City:     "sf",
	})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestAuthHandler_LoginUnauthorized(t *testing.T) {
	app := newAuthApp(&mockAuthService{loginErr: service.ErrInvalidCredentials})

	resp := postJSON(t, app, "/api/v1/auth/login", dto.LoginRequest{
		Email:    "a@example.com",
		Password: "wrong!",
	})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var response struct {
		Success bool `json:"success"`
	}
	decodeResponse(t, resp, &response)
	require.False(t, response.Success)
}

func TestAuthHandler_Me(t *testing.T) {
	svc := &mockAuthService{profile: dto.ProfileResponse{ID: "user-1", PersonaEmoji: "🎨"}}
	app := newAuthApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data dto.ProfileResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "user-1", response.Data.ID)
	require.Equal(t, "🎨", response.Data.PersonaEmoji)
}
