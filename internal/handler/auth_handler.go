// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/Rohit00112/meetflow/internal/auth"
	"github.com/Rohit00112/meetflow/internal/middleware"
	"github.com/Rohit00112/meetflow/internal/model"
)

const minPasswordLength = 8

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, name, email, password, avatarValue string) (*model.User, string, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, string, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, update auth.ProfileUpdate) (*model.User, string, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ConsumePasswordReset(ctx context.Context, resetToken, newPassword string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// Environment はアプリケーションの実行環境（development/production）。
	// 本番環境ではリセットリンクをレスポンスに含めない。
	Environment string
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Bio    string `json:"bio"`
	Phone  string `json:"phone"`
	Avatar string `json:"avatar"`
}

// changePasswordRequest はパスワード変更リクエストのボディ。
type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// forgotPasswordRequest はパスワードリセット要求のボディ。
type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// resetPasswordRequest はパスワードリセット実行のボディ。
type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"password"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	Bio       string    `json:"bio,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// authResponse は認証成功時のAPIレスポンス。
type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

// Register は新規ユーザー登録を処理する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("名前、メールアドレス、パスワードは必須です。"))
		return
	}
	if !isValidEmail(req.Email) {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("メールアドレスの形式が不正です。"))
		return
	}
	if len(req.Password) < minPasswordLength {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("パスワードは8文字以上で指定してください。"))
		return
	}

	user, token, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password, req.Avatar)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(authResponse{
		User:  toUserResponse(user),
		Token: token,
	})
}

// Login はログインを処理する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("メールアドレスとパスワードは必須です。"))
		return
	}

	user, token, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authResponse{
		User:  toUserResponse(user),
		Token: token,
	})
}

// Me は現在のログインユーザー情報を返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetUser(r.Context(), identity.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// UpdateProfile はプロフィール更新を処理する。
// トークンを再発行してレスポンスに含める。
// PUT /api/auth/update-profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if req.Email != "" && !isValidEmail(req.Email) {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("メールアドレスの形式が不正です。"))
		return
	}

	user, token, err := h.service.UpdateProfile(r.Context(), identity.UserID, auth.ProfileUpdate{
		Name:   req.Name,
		Email:  req.Email,
		Bio:    req.Bio,
		Phone:  req.Phone,
		Avatar: req.Avatar,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authResponse{
		User:  toUserResponse(user),
		Token: token,
	})
}

// ChangePassword はパスワード変更を処理する。
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("現在のパスワードと新しいパスワードは必須です。"))
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("パスワードは8文字以上で指定してください。"))
		return
	}

	if err := h.service.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "パスワードを変更しました。"})
}

// ForgotPassword はパスワードリセット要求を処理する。
// メールアドレスの存在に関わらず常に同じレスポンスを返す。
// 開発環境に限り、動作確認のためリセットリンクをレスポンスに含める。
// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if req.Email == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("メールアドレスは必須です。"))
		return
	}

	// 未知のメールアドレスはサービス層が成功扱いで吸収するため、
	// ここでのエラーは純粋な内部障害として返す。
	resetLink, err := h.service.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	body := map[string]string{
		"message": "該当するアカウントが存在する場合、リセット手順を送信しました。",
	}
	if h.config.Environment != "production" && resetLink != "" {
		body["resetLink"] = resetLink
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

// ResetPassword はリセットトークンによるパスワード更新を処理する。
// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if req.Token == "" || req.NewPassword == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("トークンと新しいパスワードは必須です。"))
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("パスワードは8文字以上で指定してください。"))
		return
	}

	if err := h.service.ConsumePasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "パスワードを再設定しました。"})
}

// toUserResponse はドメインモデルをAPIレスポンス形式に変換する。
func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Avatar:    u.Avatar,
		Bio:       u.Bio,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

// isValidEmail はメールアドレスの形式を検証する。
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// writeInvalidBodyError はリクエストボディ解析失敗の統一レスポンスを書き込む。
func writeInvalidBodyError(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeInvalidAvatarURL, model.ErrCodeInvalidResetToken:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeDuplicateEmail, model.ErrCodeEmailTaken:
		return http.StatusConflict
	case model.ErrCodeUserNotFound, model.ErrCodeMeetingNotFound, model.ErrCodeParticipantNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
