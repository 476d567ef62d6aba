package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vendalink/ordersync/internal/api/handlers"
	"github.com/vendalink/ordersync/internal/api/middleware"
	"github.com/vendalink/ordersync/internal/config"
	"github.com/vendalink/ordersync/internal/pkg/logger"
	"github.com/vendalink/ordersync/internal/pkg/validator"
	"github.com/vendalink/ordersync/internal/services"
	"github.com/vendalink/ordersync/internal/testutil"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:          "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: time.Hour,
	}
}

func testLog() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func newAuthHandler() (*handlers.AuthHandler, *testutil.MockUserRepository) {
	users := testutil.NewMockUserRepository()
	svc := services.NewUserService(users, testAuthConfig(), testLog())
	return handlers.NewAuthHandler(svc, validator.New()), users
}

func decodeData(t *testing.T, body *bytes.Buffer, out interface{}) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func TestRegisterAndLogin(t *testing.T) {
	h, _ := newAuthHandler()

	body := `{"email":"ana@example.com","password":"hunter2secret"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Register status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var reg struct {
		AccessToken string `json:"accessToken"`
		User        struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	decodeData(t, rec.Body, &reg)
	if reg.AccessToken == "" {
		t.Error("Register returned empty access token")
	}
	if reg.User.Email != "ana@example.com" {
		t.Errorf("Register user email = %s", reg.User.Email)
	}

	req = httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(body))
	rec = httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Login status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, _ := newAuthHandler()

	register := `{"email":"ana@example.com","password":"hunter2secret"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewBufferString(register))
	h.Register(httptest.NewRecorder(), req)

	login := `{"email":"ana@example.com","password":"wrong-password"}`
	req = httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(login))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Login status = %d, want 401", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	h, _ := newAuthHandler()

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"password":"hunter2secret"}`},
		{"invalid email", `{"email":"not-an-email","password":"hunter2secret"}`},
		{"short password", `{"email":"ana@example.com","password":"short"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			h.Register(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, _ := newAuthHandler()

	body := `{"email":"dup@example.com","password":"hunter2secret"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewBufferString(body))
	h.Register(httptest.NewRecorder(), req)

	req = httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate Register status = %d, want 409", rec.Code)
	}
}

func TestMeRequiresAuthContext(t *testing.T) {
	h, users := newAuthHandler()

	req := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Me without context status = %d, want 401", rec.Code)
	}

	// Register a user, then call with the middleware's context key set.
	register := `{"email":"ana@example.com","password":"hunter2secret"}`
	h.Register(httptest.NewRecorder(), httptest.NewRequest("POST", "/", bytes.NewBufferString(register)))

	var uid int64
	for id := range users.Users {
		uid = id
	}

	req = httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, uid))
	rec = httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Me status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var me struct {
		Email string `json:"email"`
	}
	decodeData(t, rec.Body, &me)
	if me.Email != "ana@example.com" {
		t.Errorf("Me email = %s", me.Email)
	}
}
