// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュであり、APIレスポンスには決して含めない。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Avatar       string
	Bio          string
	Phone        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PasswordReset はパスワードリセット用のワンタイムトークンを表す。
// トークンは単回使用であり、使用または期限切れ検出時に削除される。
type PasswordReset struct {
	ID        string
	Email     string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired はリセットトークンが期限切れかを判定する。
func (p *PasswordReset) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
