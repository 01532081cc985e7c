// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/Rohit00112/meetflow/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。
	// 大文字小文字を区別する完全一致。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザーのプロフィール情報を更新する。
	Update(ctx context.Context, user *model.User) error

	// UpdatePassword は指定ユーザーのパスワードハッシュのみを更新する。
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// PasswordResetRepository はパスワードリセットトークンの永続化インターフェース。
type PasswordResetRepository interface {
	// Create はリセットトークンを作成する。
	Create(ctx context.Context, reset *model.PasswordReset) error

	// FindByToken はトークン値でリセットレコードを検索する。見つからない場合はnilを返す。
	// 期限切れレコードも返す（期限判定と削除は呼び出し側）。
	FindByToken(ctx context.Context, token string) (*model.PasswordReset, error)

	// DeleteByToken は指定トークンのレコードを削除する。単回使用の保証に使用する。
	DeleteByToken(ctx context.Context, token string) error

	// DeleteExpired は期限切れの全レコードを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// MeetingStore は会議レジストリのスナップショット永続化インターフェース。
// 毎回の変更後にコレクション全体を1つのブロブとして書き込み、
// 起動時にブロブ全体を読み戻す（部分更新は行わない）。
type MeetingStore interface {
	// Load は保存済みの会議コレクション全体を読み込む。
	// 保存データが存在しない、または壊れている場合は空のコレクションを返し、
	// ストアをリセットする（フェイルオープン）。
	Load(ctx context.Context) ([]*model.Meeting, error)

	// Save は会議コレクション全体をシリアライズして書き込む。
	Save(ctx context.Context, meetings []*model.Meeting) error
}
