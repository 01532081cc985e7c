package avatar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxAvatarSize はリモートアバターの最大サイズ（2MB）。
const maxAvatarSize = 2 * 1024 * 1024

// avatarTimeout はリモートアバター検証のタイムアウト。
const avatarTimeout = 5 * time.Second

// SSRFValidator はURLの事前検証とSSRF防止クライアント生成のインターフェース。
// security.SSRFGuardServiceの部分集合として定義する。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// ValidatorService はアバターURL検証のインターフェース。
type ValidatorService interface {
	// ValidateRemote は外部アバターURLが安全かつ画像を指していることを検証する。
	ValidateRemote(ctx context.Context, avatarURL string) error
}

// Validator はリモートアバターURLの検証実装。
type Validator struct {
	ssrfGuard SSRFValidator
}

// NewValidator はValidatorの新しいインスタンスを生成する。
func NewValidator(ssrfGuard SSRFValidator) *Validator {
	return &Validator{ssrfGuard: ssrfGuard}
}

// ValidateRemote は外部アバターURLを検証する。
// SSRF検証の後、SSRF防止付きクライアントで実際に取得を試み、
// Content-Typeがimage/*であることとサイズ上限を確認する。
func (v *Validator) ValidateRemote(ctx context.Context, avatarURL string) error {
	if err := v.ssrfGuard.ValidateURL(avatarURL); err != nil {
		return fmt.Errorf("unsafe avatar URL: %w", err)
	}

	client := v.ssrfGuard.NewSafeClient(avatarTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatarURL, nil)
	if err != nil {
		return fmt.Errorf("invalid avatar URL: %w", err)
	}
	req.Header.Set("User-Agent", "MeetFlow/1.0")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("アバター検証: HTTPリクエスト失敗",
			slog.String("url", avatarURL),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to fetch avatar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("avatar fetch returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("avatar URL does not point to an image (content-type: %s)", contentType)
	}

	// サイズ上限の確認: 上限+1バイトまで読んで超過を検出する
	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxAvatarSize+1))
	if err != nil {
		return fmt.Errorf("failed to read avatar body: %w", err)
	}
	if n > maxAvatarSize {
		return fmt.Errorf("avatar exceeds size limit (%d bytes)", maxAvatarSize)
	}

	return nil
}

// compile-time interface check
var _ ValidatorService = (*Validator)(nil)
