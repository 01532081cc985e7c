package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Rohit00112/meetflow/internal/auth"
	"github.com/Rohit00112/meetflow/internal/middleware"
	"github.com/Rohit00112/meetflow/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn             func(ctx context.Context, name, email, password, avatarValue string) (*model.User, string, error)
	authenticateFn         func(ctx context.Context, email, password string) (*model.User, string, error)
	getUserFn              func(ctx context.Context, userID string) (*model.User, error)
	updateProfileFn        func(ctx context.Context, userID string, update auth.ProfileUpdate) (*model.User, string, error)
	changePasswordFn       func(ctx context.Context, userID, currentPassword, newPassword string) error
	requestPasswordResetFn func(ctx context.Context, email string) (string, error)
	consumePasswordResetFn func(ctx context.Context, resetToken, newPassword string) error
}

func (m *mockAuthService) Register(ctx context.Context, name, email, password, avatarValue string) (*model.User, string, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, name, email, password, avatarValue)
	}
	return nil, "", errors.New("not configured")
}

func (m *mockAuthService) Authenticate(ctx context.Context, email, password string) (*model.User, string, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, email, password)
	}
	return nil, "", errors.New("not configured")
}

func (m *mockAuthService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, userID)
	}
	return nil, errors.New("not configured")
}

func (m *mockAuthService) UpdateProfile(ctx context.Context, userID string, update auth.ProfileUpdate) (*model.User, string, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, update)
	}
	return nil, "", errors.New("not configured")
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, userID, currentPassword, newPassword)
	}
	return errors.New("not configured")
}

func (m *mockAuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if m.requestPasswordResetFn != nil {
		return m.requestPasswordResetFn(ctx, email)
	}
	return "", errors.New("not configured")
}

func (m *mockAuthService) ConsumePasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if m.consumePasswordResetFn != nil {
		return m.consumePasswordResetFn(ctx, resetToken, newPassword)
	}
	return errors.New("not configured")
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func testUser() *model.User {
	return &model.User{
		ID:        "user-1",
		Name:      "Taro Yamada",
		Email:     "taro@example.com",
		Avatar:    "https://ui-avatars.com/api/?name=Taro+Yamada&background=4285F4&color=fff&size=200",
		CreatedAt: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
	}
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func authedRequest(method, target string, body any) *http.Request {
	req := jsonRequest(method, target, body)
	ctx := middleware.ContextWithIdentity(req.Context(), middleware.Identity{
		UserID: "user-1",
		Email:  "taro@example.com",
		Name:   "Taro Yamada",
	})
	return req.WithContext(ctx)
}

// --- Register のテスト ---

func TestAuthHandler_Register_Success(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, name, email, password, avatarValue string) (*model.User, string, error) {
			return testUser(), "issued-token", nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{Environment: "development"})

	req := jsonRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "Taro Yamada",
		"email":    "taro@example.com",
		"password": "secret-password",
	})
	w := httptest.NewRecorder()

	h.Register(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var body authResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Token != "issued-token" {
		t.Errorf("token = %q, want %q", body.Token, "issued-token")
	}
	if body.User.ID != "user-1" || body.User.Email != "taro@example.com" {
		t.Errorf("unexpected user: %+v", body.User)
	}
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"email": "a@example.com", "password": "password123"}},
		{"missing email", map[string]string{"name": "Taro", "password": "password123"}},
		{"missing password", map[string]string{"name": "Taro", "email": "a@example.com"}},
		{"invalid email", map[string]string{"name": "Taro", "email": "not-an-email", "password": "password123"}},
		{"short password", map[string]string{"name": "Taro", "email": "a@example.com", "password": "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Register(w, jsonRequest(http.MethodPost, "/api/auth/register", tt.body))

			if w.Result().StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
			}

			var body apiErrorResponse
			json.NewDecoder(w.Result().Body).Decode(&body)
			if body.Code != model.ErrCodeValidation {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeValidation)
			}
		})
	}
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, name, email, password, avatarValue string) (*model.User, string, error) {
			return nil, "", model.NewDuplicateEmailError()
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.Register(w, jsonRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Taro", "email": "taro@example.com", "password": "password123",
	}))

	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusConflict)
	}
}

func TestAuthHandler_Register_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.Register(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- Login のテスト ---

func TestAuthHandler_Login_Success(t *testing.T) {
	svc := &mockAuthService{
		authenticateFn: func(ctx context.Context, email, password string) (*model.User, string, error) {
			return testUser(), "login-token", nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.Login(w, jsonRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "taro@example.com", "password": "secret-password",
	}))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body authResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Token != "login-token" {
		t.Errorf("token = %q, want %q", body.Token, "login-token")
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	svc := &mockAuthService{
		authenticateFn: func(ctx context.Context, email, password string) (*model.User, string, error) {
			return nil, "", model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.Login(w, jsonRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "taro@example.com", "password": "wrong",
	}))

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}

	var body apiErrorResponse
	json.NewDecoder(w.Result().Body).Decode(&body)
	if body.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidCredentials)
	}
}

// --- Me のテスト ---

func TestAuthHandler_Me(t *testing.T) {
	svc := &mockAuthService{
		getUserFn: func(ctx context.Context, userID string) (*model.User, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			return testUser(), nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.Me(w, authedRequest(http.MethodGet, "/api/auth/me", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body userResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.ID != "user-1" {
		t.Errorf("id = %q, want %q", body.ID, "user-1")
	}
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.Me(w, jsonRequest(http.MethodGet, "/api/auth/me", nil))

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- UpdateProfile のテスト ---

func TestAuthHandler_UpdateProfile_ReturnsNewToken(t *testing.T) {
	svc := &mockAuthService{
		updateProfileFn: func(ctx context.Context, userID string, update auth.ProfileUpdate) (*model.User, string, error) {
			u := testUser()
			u.Name = update.Name
			return u, "reissued-token", nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.UpdateProfile(w, authedRequest(http.MethodPut, "/api/auth/update-profile", map[string]string{
		"name": "Taro Updated",
	}))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body authResponse
	json.NewDecoder(resp.Body).Decode(&body)
	// プロフィール更新後はクレームが変わるため新トークンが必須
	if body.Token != "reissued-token" {
		t.Errorf("token = %q, want %q", body.Token, "reissued-token")
	}
	if body.User.Name != "Taro Updated" {
		t.Errorf("name = %q, want %q", body.User.Name, "Taro Updated")
	}
}

func TestAuthHandler_UpdateProfile_EmailTaken(t *testing.T) {
	svc := &mockAuthService{
		updateProfileFn: func(ctx context.Context, userID string, update auth.ProfileUpdate) (*model.User, string, error) {
			return nil, "", model.NewEmailTakenError()
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.UpdateProfile(w, authedRequest(http.MethodPut, "/api/auth/update-profile", map[string]string{
		"email": "jiro@example.com",
	}))

	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusConflict)
	}
}

// --- ChangePassword のテスト ---

func TestAuthHandler_ChangePassword(t *testing.T) {
	called := false
	svc := &mockAuthService{
		changePasswordFn: func(ctx context.Context, userID, currentPassword, newPassword string) error {
			called = true
			return nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.ChangePassword(w, authedRequest(http.MethodPost, "/api/auth/change-password", map[string]string{
		"currentPassword": "old-password",
		"newPassword":     "new-password",
	}))

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if !called {
		t.Error("service should have been called")
	}
}

func TestAuthHandler_ChangePassword_WrongCurrent(t *testing.T) {
	svc := &mockAuthService{
		changePasswordFn: func(ctx context.Context, userID, currentPassword, newPassword string) error {
			return model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.ChangePassword(w, authedRequest(http.MethodPost, "/api/auth/change-password", map[string]string{
		"currentPassword": "wrong",
		"newPassword":     "new-password",
	}))

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- ForgotPassword / ResetPassword のテスト ---

func TestAuthHandler_ForgotPassword_DevIncludesLink(t *testing.T) {
	svc := &mockAuthService{
		requestPasswordResetFn: func(ctx context.Context, email string) (string, error) {
			return "http://localhost:8080/auth/reset-password?token=abc", nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{Environment: "development"})

	w := httptest.NewRecorder()
	h.ForgotPassword(w, jsonRequest(http.MethodPost, "/api/auth/forgot-password", map[string]string{
		"email": "taro@example.com",
	}))

	var body map[string]string
	json.NewDecoder(w.Result().Body).Decode(&body)
	if body["resetLink"] == "" {
		t.Error("development environment should include resetLink")
	}
}

func TestAuthHandler_ForgotPassword_ProductionOmitsLink(t *testing.T) {
	svc := &mockAuthService{
		requestPasswordResetFn: func(ctx context.Context, email string) (string, error) {
			return "http://example.com/auth/reset-password?token=abc", nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{Environment: "production"})

	w := httptest.NewRecorder()
	h.ForgotPassword(w, jsonRequest(http.MethodPost, "/api/auth/forgot-password", map[string]string{
		"email": "taro@example.com",
	}))

	var body map[string]string
	json.NewDecoder(w.Result().Body).Decode(&body)
	if _, ok := body["resetLink"]; ok {
		t.Error("production must not expose resetLink")
	}
}

func TestAuthHandler_ForgotPassword_UnknownEmailSameResponse(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		requestPasswordResetFn: func(ctx context.Context, email string) (string, error) {
			return "", nil // 未知のメールアドレス
		},
	}, AuthHandlerConfig{Environment: "development"})

	w := httptest.NewRecorder()
	h.ForgotPassword(w, jsonRequest(http.MethodPost, "/api/auth/forgot-password", map[string]string{
		"email": "nobody@example.com",
	}))

	// 存在しないメールアドレスでも200で同一メッセージ（列挙防止）
	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body map[string]string
	json.NewDecoder(w.Result().Body).Decode(&body)
	if body["message"] == "" {
		t.Error("expected generic message")
	}
	if _, ok := body["resetLink"]; ok {
		t.Error("unknown email must not produce a reset link")
	}
}

func TestAuthHandler_ForgotPassword_InternalErrorReturns500(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		requestPasswordResetFn: func(ctx context.Context, email string) (string, error) {
			return "", errors.New("failed to save reset token: connection refused")
		},
	}, AuthHandlerConfig{Environment: "development"})

	w := httptest.NewRecorder()
	h.ForgotPassword(w, jsonRequest(http.MethodPost, "/api/auth/forgot-password", map[string]string{
		"email": "taro@example.com",
	}))

	// 列挙防止が隠すのはアカウントの有無だけで、内部障害まで成功扱いにはしない
	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}

func TestAuthHandler_ResetPassword_InvalidToken(t *testing.T) {
	svc := &mockAuthService{
		consumePasswordResetFn: func(ctx context.Context, resetToken, newPassword string) error {
			return model.NewInvalidResetTokenError()
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.ResetPassword(w, jsonRequest(http.MethodPost, "/api/auth/reset-password", map[string]string{
		"token":    "expired-or-unknown",
		"password": "new-password",
	}))

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestAuthHandler_ResetPassword_Success(t *testing.T) {
	svc := &mockAuthService{
		consumePasswordResetFn: func(ctx context.Context, resetToken, newPassword string) error {
			return nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.ResetPassword(w, jsonRequest(http.MethodPost, "/api/auth/reset-password", map[string]string{
		"token":    "valid-token",
		"password": "new-password",
	}))

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}
