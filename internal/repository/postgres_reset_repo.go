package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Rohit00112/meetflow/internal/model"
)

// PostgresPasswordResetRepo はPostgreSQLを使用したパスワードリセットリポジトリ。
type PostgresPasswordResetRepo struct {
	db *sql.DB
}

// NewPostgresPasswordResetRepo はPostgresPasswordResetRepoを生成する。
func NewPostgresPasswordResetRepo(db *sql.DB) *PostgresPasswordResetRepo {
	return &PostgresPasswordResetRepo{db: db}
}

// Create はリセットトークンを作成する。
func (r *PostgresPasswordResetRepo) Create(ctx context.Context, reset *model.PasswordReset) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_resets (id, email, token, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		reset.ID, reset.Email, reset.Token, reset.ExpiresAt, reset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create password reset: %w", err)
	}
	return nil
}

// FindByToken はトークン値でリセットレコードを検索する。見つからない場合はnilを返す。
func (r *PostgresPasswordResetRepo) FindByToken(ctx context.Context, token string) (*model.PasswordReset, error) {
	reset := &model.PasswordReset{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, token, expires_at, created_at
		 FROM password_resets WHERE token = $1`,
		token,
	).Scan(&reset.ID, &reset.Email, &reset.Token, &reset.ExpiresAt, &reset.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find password reset: %w", err)
	}

	return reset, nil
}

// DeleteByToken は指定トークンのレコードを削除する。
func (r *PostgresPasswordResetRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM password_resets WHERE token = $1`,
		token,
	)
	if err != nil {
		return fmt.Errorf("failed to delete password reset: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れの全レコードを削除し、削除件数を返す。
func (r *PostgresPasswordResetRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM password_resets WHERE expires_at < now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired password resets: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ PasswordResetRepository = (*PostgresPasswordResetRepo)(nil)
