// Package tag はタグ名の正規化と解決（get-or-create）を提供する。
package tag

import (
	"strings"

	"github.com/hitoshi/blogman/internal/model"
)

// SplitText はカンマ区切りのタグ入力テキストをタグ名のリストに分割する。
// Webフォームのtags_inputフィールド用。分割後はNormalizeNamesで正規化する。
func SplitText(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// NormalizeNames はタグ名のリストを正規化済みの集合に変換する。
// 各名前をtrim + 小文字化し、空文字列を除去し、重複を排除する。
// 結果の順序は最初に現れた順で安定している。
// 正規化は冪等であり、正規化済みの入力には同じ集合を返す。
func NormalizeNames(names []string) []string {
	var result []string
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		result = append(result, normalized)
	}

	return result
}

// ValidateNames は正規化済みタグ名の長さ制約を検証する。
// 最大長を超える名前が1つでもあれば、その名前を含むバリデーションエラーを返す。
// 検証は一切の作成処理より先に行われるため、部分的なタグ作成は発生しない。
func ValidateNames(names []string) error {
	for _, name := range names {
		if len([]rune(name)) > model.MaxTagNameLength {
			return model.NewTagNameTooLongError(name)
		}
	}
	return nil
}
