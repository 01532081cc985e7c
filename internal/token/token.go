// Package token は署名付きベアラートークンの発行・検証を提供する。
// トークンはHS256署名のJWTで、id/email/nameのクレームと有効期限を持つ。
// サーバー側の照会なしに検証できる。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken は検証に失敗したトークンを示す。
// 署名不正・構造不正・期限切れのいずれも区別せずこのエラーに集約する。
var ErrInvalidToken = errors.New("token: invalid or expired token")

// Claims はトークンに埋め込むクレームを表す。
// 表示用フィールド（name/email）をクレームに含めるため、
// プロフィール更新後はトークンの再発行が必要になる。
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Issuer はトークンの発行と検証を行う。
type Issuer struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// NewIssuer はIssuerを生成する。validityはトークンの有効期間（デフォルト想定は7日）。
func NewIssuer(secret string, validity time.Duration) *Issuer {
	return &Issuer{
		secret:   []byte(secret),
		validity: validity,
		now:      time.Now,
	}
}

// Issue は指定ユーザーのクレームを持つ署名付きトークンを発行する。
// 副作用はなく、同一入力でも発行時刻により異なるトークンになる。
func (i *Issuer) Issue(userID, email, name string) (string, error) {
	now := i.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.validity)),
		},
	})
	return t.SignedString(i.secret)
}

// IssueWithValidity は有効期間を個別指定してトークンを発行する。テスト用。
func (i *Issuer) IssueWithValidity(userID, email, name string, validity time.Duration) (string, error) {
	now := i.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
	})
	return t.SignedString(i.secret)
}

// Verify はトークンの署名と有効期限を検証し、成功時はクレームを返す。
// いかなる失敗でもpanicせず、ErrInvalidTokenを返す。
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExpiresAt はトークンの有効期限を検証なしで取り出す。
// クライアント側の遅延期限検出（埋め込みexpクレームの読み出し）に使用する。
// パースできない場合はゼロ値を返す。
func ExpiresAt(tokenString string) time.Time {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}
	}
	if claims.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.RegisteredClaims.ExpiresAt.Time
}
