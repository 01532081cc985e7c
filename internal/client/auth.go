package client

import (
	"context"
	"net/http"
	"time"

	"github.com/Rohit00112/meetflow/internal/model"
)

type userPayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	Bio       string    `json:"bio"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

type authPayload struct {
	User  userPayload `json:"user"`
	Token string      `json:"token"`
}

func (p userPayload) toUser() *model.User {
	return &model.User{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Avatar:    p.Avatar,
		Bio:       p.Bio,
		Phone:     p.Phone,
		CreatedAt: p.CreatedAt,
	}
}

// Register は新規ユーザーを登録し、セッションを確立する。
func (c *Client) Register(ctx context.Context, name, email, password, avatar string) (*model.User, error) {
	body := map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}
	if avatar != "" {
		body["avatar"] = avatar
	}

	var payload authPayload
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", body, &payload, false); err != nil {
		return nil, err
	}

	user := payload.User.toUser()
	if err := c.session.Establish(user, payload.Token); err != nil {
		return nil, err
	}
	return user, nil
}

// Login は認証を行い、セッションを確立する。
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var payload authPayload
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &payload, false); err != nil {
		return nil, err
	}

	user := payload.User.toUser()
	if err := c.session.Establish(user, payload.Token); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout はローカルのセッションを破棄する。
// トークンはステートレスなため、サーバー側の操作は発生しない。
func (c *Client) Logout() error {
	return c.session.Clear()
}

// Me は現在のユーザー情報をサーバーから取得する。
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var payload userPayload
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &payload, true); err != nil {
		return nil, err
	}
	return payload.toUser(), nil
}

// ProfileUpdate はプロフィール更新の入力項目。
type ProfileUpdate struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Bio    string `json:"bio"`
	Phone  string `json:"phone"`
	Avatar string `json:"avatar,omitempty"`
}

// UpdateProfile はプロフィールを更新する。
// サーバーが再発行したトークンでセッションを差し替える。
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*model.User, error) {
	var payload authPayload
	if err := c.doJSON(ctx, http.MethodPut, "/api/auth/update-profile", update, &payload, true); err != nil {
		return nil, err
	}

	user := payload.User.toUser()
	if err := c.session.UpdateUser(user, payload.Token); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword は現在のパスワードを検証して新パスワードへ変更する。
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	body := map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}
	return c.doJSON(ctx, http.MethodPost, "/api/auth/change-password", body, nil, true)
}

// ForgotPassword はパスワードリセットを要求する。
// 非本番環境ではサーバーがリセットリンクを返すことがある。
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	body := map[string]string{"email": email}

	var payload struct {
		Message   string `json:"message"`
		ResetLink string `json:"resetLink"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/forgot-password", body, &payload, false); err != nil {
		return "", err
	}
	return payload.ResetLink, nil
}

// ResetPassword はリセットトークンを使ってパスワードを再設定する。
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{
		"token":    token,
		"password": newPassword,
	}
	return c.doJSON(ctx, http.MethodPost, "/api/auth/reset-password", body, nil, false)
}
