// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrCodeSessionViolation = "SESSION_SECURITY_VIOLATION"
	ErrCodeDuplicateUser    = "DUPLICATE_USER"
	ErrCodeWeakPassword     = "WEAK_PASSWORD"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeLoginFailed      = "LOGIN_FAILED"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeFavoriteNotFound = "FAVORITE_NOT_FOUND"
)

// NewUnauthenticatedError は未認証エラーを生成する。
// 期限切れ・トークン不在・検証失敗のいずれもクライアントにはこの形で返す。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewLoginFailedError はログイン失敗エラーを生成する。
// 原因（パスワード不一致・未登録メール・トークン検証失敗）は意図的に区別しない。
func NewLoginFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidRequestError は必須フィールド不足などのリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "必須フィールドを確認してください。",
	}
}

// NewDuplicateUserError はメールアドレス重複エラーを生成する。
func NewDuplicateUserError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "ログインするか、別のメールアドレスで登録してください。",
	}
}

// NewWeakPasswordError はパスワード強度不足エラーを生成する。
// violationsには違反したルールすべてを渡す（最初の1件だけではない）。
func NewWeakPasswordError(violations []string) *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  fmt.Sprintf("パスワードが要件を満たしていません: %s", strings.Join(violations, "、")),
		Category: "validation",
		Action:   "8文字以上で、大文字・小文字・数字・記号を含めてください。",
	}
}

// NewRateLimitedError はレート制限エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewSessionViolationError はフィンガープリント不一致エラーを生成する。
// このエラーが返された時点でセッションは強制失効済み。
func NewSessionViolationError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionViolation,
		Message:  "セッションが無効化されました。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewStoreUnavailableError はデータストア障害エラーを生成する。
// 認証エラーと区別し、障害をセキュリティイベントとして隠蔽しない。
func NewStoreUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewFavoriteNotFoundError はお気に入り未検出エラーを生成する。
func NewFavoriteNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeFavoriteNotFound,
		Message:  fmt.Sprintf("指定されたお気に入りが見つかりません: %s", id),
		Category: "validation",
		Action:   "お気に入りIDを確認してください。",
	}
}
