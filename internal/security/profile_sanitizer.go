// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ProfileSanitizerService はユーザーが入力するプロフィールテキスト
// （表示名・自己紹介・電話番号）をサニタイズし、格納値へのHTML混入を防ぐ。
// bluemondayのStrictPolicyにより全てのタグを除去し、プレーンテキストのみを残す。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ProfileSanitizerService はプロフィールテキストのサニタイズ機能のインターフェース。
// 登録時とプロフィール更新時の保存前に使用される。
type ProfileSanitizerService interface {
	// Sanitize は入力テキストから全HTMLタグを除去し、前後の空白を取り除いて返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// profileSanitizer はProfileSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type profileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はProfileSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全ての要素と属性を除去し、テキストノードのみを通過させる。
func NewProfileSanitizer() *profileSanitizer {
	return &profileSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力テキストから全HTMLタグを除去し、前後の空白を取り除いて返す。
func (s *profileSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
