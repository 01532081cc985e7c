// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, conflict, meeting, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeInvalidResetToken   = "INVALID_OR_EXPIRED_TOKEN"
	ErrCodeMeetingNotFound     = "MEETING_NOT_FOUND"
	ErrCodeParticipantNotFound = "PARTICIPANT_NOT_FOUND"
	ErrCodeInvalidAvatarURL    = "INVALID_AVATAR_URL"
)

// NewValidationError は入力不備エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// アカウント列挙を防ぐため、「ユーザーが存在しない」と「パスワードが違う」を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewDuplicateEmailError は登録済みメールアドレスでの再登録エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "conflict",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewEmailTakenError はプロフィール更新時のメールアドレス衝突エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは別のユーザーが使用しています。",
		Category: "conflict",
		Action:   "別のメールアドレスを指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidResetTokenError は無効または期限切れのリセットトークンエラーを生成する。
func NewInvalidResetTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidResetToken,
		Message:  "リセットトークンが無効または期限切れです。",
		Category: "auth",
		Action:   "パスワードリセットを再度リクエストしてください。",
	}
}

// NewMeetingNotFoundError は会議が見つからない、または終了済みの場合のエラーを生成する。
func NewMeetingNotFoundError(meetingID string) *APIError {
	return &APIError{
		Code:     ErrCodeMeetingNotFound,
		Message:  fmt.Sprintf("指定された会議が見つかりません: %s", meetingID),
		Category: "meeting",
		Action:   "会議コードを確認してください。",
	}
}

// NewParticipantNotFoundError は参加者が見つからない場合のエラーを生成する。
func NewParticipantNotFoundError(participantID string) *APIError {
	return &APIError{
		Code:     ErrCodeParticipantNotFound,
		Message:  fmt.Sprintf("指定された参加者が見つかりません: %s", participantID),
		Category: "meeting",
		Action:   "参加者IDを確認してください。",
	}
}

// NewInvalidAvatarURLError は安全でないアバターURLのエラーを生成する。
func NewInvalidAvatarURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAvatarURL,
		Message:  fmt.Sprintf("アバターURLが無効です: %s", reason),
		Category: "validation",
		Action:   "公開されているhttpsのURL、またはdata:image形式を指定してください。",
	}
}
