// Package auth はパスワード認証、トークン発行、プロフィール管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rohit00112/meetflow/internal/avatar"
	"github.com/Rohit00112/meetflow/internal/model"
	"github.com/Rohit00112/meetflow/internal/repository"
	"github.com/Rohit00112/meetflow/internal/token"
)

// ProfileSanitizer はプロフィールテキストのサニタイズに必要なインターフェース。
// security.ProfileSanitizerServiceの部分集合として定義する。
type ProfileSanitizer interface {
	Sanitize(raw string) string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	ResetTokenTTL time.Duration // リセットトークンの有効期間（デフォルト1時間）
	BaseURL       string        // リセットリンクの組み立てに使用するベースURL
	BcryptCost    int           // bcryptのコストパラメータ
}

// ProfileUpdate はプロフィール更新のリクエストフィールドを表す。
// Avatarが空文字列の場合は既存のアバターを維持する。
type ProfileUpdate struct {
	Name   string
	Email  string
	Bio    string
	Phone  string
	Avatar string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo        repository.UserRepository
	resetRepo       repository.PasswordResetRepository
	issuer          *token.Issuer
	sanitizer       ProfileSanitizer
	avatarValidator avatar.ValidatorService
	config          ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	resetRepo repository.PasswordResetRepository,
	issuer *token.Issuer,
	sanitizer ProfileSanitizer,
	avatarValidator avatar.ValidatorService,
	config ServiceConfig,
) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.ResetTokenTTL == 0 {
		config.ResetTokenTTL = time.Hour
	}
	return &Service{
		userRepo:        userRepo,
		resetRepo:       resetRepo,
		issuer:          issuer,
		sanitizer:       sanitizer,
		avatarValidator: avatarValidator,
		config:          config,
	}
}

// Register は新規ユーザーを登録し、トークンを発行する。
// メールアドレスが登録済みの場合はDuplicateEmailエラーを返す。
// アバター未指定時はイニシャルから生成されるプレースホルダーURLを設定する。
func (s *Service) Register(ctx context.Context, name, email, password, avatarValue string) (*model.User, string, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, "", model.NewDuplicateEmailError()
	}

	name = s.sanitizer.Sanitize(name)
	if name == "" {
		return nil, "", model.NewValidationError("名前が空です。")
	}

	avatarURL, err := s.resolveAvatar(ctx, name, avatarValue)
	if err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Avatar:       avatarURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	tok, err := s.issuer.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, tok, nil
}

// Authenticate はメールアドレスとパスワードを検証し、成功時はトークンを発行する。
// 「ユーザーが存在しない」と「パスワードが違う」は同一のエラーを返す（列挙防止）。
// パスワード照合はbcryptの定数時間比較で行う。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	tok, err := s.issuer.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return user, tok, nil
}

// GetUser は指定IDのユーザーを取得する。見つからない場合はUserNotFoundエラーを返す。
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile はプロフィールを更新し、トークンを再発行する。
// トークンはname/emailをクレームに含むため、プロフィール変更後は
// 古いトークンのクレームが陳腐化する。呼び出し側は返却された
// 新トークンで手持ちのトークンを必ず差し替えること。
// 新しいメールアドレスが別ユーザーと衝突する場合はEmailTakenエラーを返す。
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*model.User, string, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, "", model.NewUserNotFoundError()
	}

	if update.Email != "" && update.Email != user.Email {
		other, err := s.userRepo.FindByEmail(ctx, update.Email)
		if err != nil {
			return nil, "", fmt.Errorf("failed to check email collision: %w", err)
		}
		if other != nil && other.ID != user.ID {
			return nil, "", model.NewEmailTakenError()
		}
		user.Email = update.Email
	}

	if update.Name != "" {
		name := s.sanitizer.Sanitize(update.Name)
		if name == "" {
			return nil, "", model.NewValidationError("名前が空です。")
		}
		user.Name = name
	}
	user.Bio = s.sanitizer.Sanitize(update.Bio)
	user.Phone = s.sanitizer.Sanitize(update.Phone)

	if update.Avatar != "" {
		avatarURL, err := s.resolveAvatar(ctx, user.Name, update.Avatar)
		if err != nil {
			return nil, "", err
		}
		user.Avatar = avatarURL
	}

	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to update user: %w", err)
	}

	// クレームが変わったため再発行
	tok, err := s.issuer.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to reissue token: %w", err)
	}

	slog.Info("user profile updated", slog.String("user_id", user.ID))

	return user, tok, nil
}

// ChangePassword は現在のパスワードを再検証した上で新しいパスワードに更新する。
// 現在のパスワードが一致しない場合はInvalidCredentialsエラーを返す。
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return model.NewInvalidCredentialsError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password changed", slog.String("user_id", user.ID))

	return nil
}

// RequestPasswordReset はパスワードリセットトークンを発行する。
// アカウント列挙を防ぐため、メールアドレスの存在に関わらず常に成功を返す。
// 該当ユーザーが存在する場合のみトークンを保存し、リセットリンクを返す。
// リンクの外部送信（メール配信）はスコープ外。
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// 存在しないメールアドレスでも成功扱い
		return "", nil
	}

	resetToken, err := generateResetToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	now := time.Now()
	reset := &model.PasswordReset{
		ID:        uuid.New().String(),
		Email:     email,
		Token:     resetToken,
		ExpiresAt: now.Add(s.config.ResetTokenTTL),
		CreatedAt: now,
	}

	if err := s.resetRepo.Create(ctx, reset); err != nil {
		return "", fmt.Errorf("failed to save reset token: %w", err)
	}

	resetLink := fmt.Sprintf("%s/auth/reset-password?token=%s", s.config.BaseURL, resetToken)

	slog.Info("password reset requested", slog.String("user_id", user.ID))

	return resetLink, nil
}

// ConsumePasswordReset はリセットトークンを検証してパスワードを更新する。
// トークンは単回使用であり、使用時または期限切れ検出時に削除される。
func (s *Service) ConsumePasswordReset(ctx context.Context, resetToken, newPassword string) error {
	reset, err := s.resetRepo.FindByToken(ctx, resetToken)
	if err != nil {
		return fmt.Errorf("failed to find reset token: %w", err)
	}
	if reset == nil {
		return model.NewInvalidResetTokenError()
	}

	if reset.IsExpired(time.Now()) {
		// 期限切れトークンは検出時に削除する
		if err := s.resetRepo.DeleteByToken(ctx, resetToken); err != nil {
			return fmt.Errorf("failed to delete expired reset token: %w", err)
		}
		return model.NewInvalidResetTokenError()
	}

	user, err := s.userRepo.FindByEmail(ctx, reset.Email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	// 使用済みトークンを削除（単回使用）
	if err := s.resetRepo.DeleteByToken(ctx, resetToken); err != nil {
		return fmt.Errorf("failed to delete used reset token: %w", err)
	}

	slog.Info("password reset completed", slog.String("user_id", user.ID))

	return nil
}

// resolveAvatar はアバター指定値を解決する。
// 空 → イニシャルのプレースホルダー、data:image → そのまま保存、
// 外部URL → SSRF検証と画像検証を通過した場合のみ保存。
func (s *Service) resolveAvatar(ctx context.Context, name, avatarValue string) (string, error) {
	if avatarValue == "" {
		return avatar.PlaceholderURL(name), nil
	}
	if avatar.IsDataImageURI(avatarValue) {
		return avatarValue, nil
	}
	if s.avatarValidator != nil {
		if err := s.avatarValidator.ValidateRemote(ctx, avatarValue); err != nil {
			return "", model.NewInvalidAvatarURLError(err.Error())
		}
	}
	return avatarValue, nil
}

// generateResetToken は暗号的に安全なリセットトークンを生成する。
func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
