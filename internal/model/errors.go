// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, article, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeArticleNotFound   = "ARTICLE_NOT_FOUND"
	ErrCodeTagNameTooLong    = "TAG_NAME_TOO_LONG"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeDuplicateUsername = "DUPLICATE_USERNAME"
	ErrCodeInvalidCredential = "INVALID_CREDENTIALS"
)

// NewArticleNotFoundError は記事未検出エラーを生成する。
// 閲覧権限がない非公開記事への直接アクセスも、存在を漏らさないため同じエラーで返す。
func NewArticleNotFoundError(articleID string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", articleID),
		Category: "article",
		Action:   "記事IDを確認してください。",
	}
}

// NewTagNameTooLongError はタグ名の長さ超過エラーを生成する。
// 違反したタグ名をメッセージに含め、操作全体を中断させる。
func NewTagNameTooLongError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeTagNameTooLong,
		Message:  fmt.Sprintf("タグ名が長すぎます（最大%d文字）: %s", MaxTagNameLength, name),
		Category: "validation",
		Action:   "タグ名を短くしてから再度お試しください。",
	}
}

// NewValidationError は入力バリデーションエラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
// 記事の存在が既知のコンテキスト（API等）でのみ使用する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この記事を変更する権限がありません。",
		Category: "auth",
		Action:   "自分が作成した記事のみ編集・削除できます。",
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

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s", detail),
		Category: "auth",
		Action:   "ユーザー名を確認してください。",
	}
}

// NewDuplicateUsernameError はユーザー名の重複エラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// ユーザー名の存在有無を漏らさないよう、原因は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredential,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "認証情報を確認して再度お試しください。",
	}
}
