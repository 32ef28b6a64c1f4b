// Package policy は記事の閲覧・変更権限の判定を提供する。
//
// viewerIDは認証済みユーザーのIDで、未認証の場合は空文字列を渡す。
// 権限判定はWeb UIとJSON APIの両方がこのパッケージを経由するため、
// 入口によらず同一のセマンティクスが保証される。
package policy

import "github.com/hitoshi/blogman/internal/model"

// CanView は記事の閲覧可否を判定する。
// 公開記事は誰でも閲覧でき、非公開記事は著者本人のみ閲覧できる。
// ID直指定の取得でfalseとなった場合、呼び出し側は「見つからない」として
// 提示すること（非公開記事の存在を漏らさないため）。
func CanView(viewerID string, article *model.Article) bool {
	if article.IsPublished {
		return true
	}
	return viewerID != "" && viewerID == article.AuthorID
}

// CanMutate は記事の編集・削除可否を判定する。
// 認証済みの著者本人のみ許可する。公開状態は変更権限に影響しない。
func CanMutate(viewerID string, article *model.Article) bool {
	return viewerID != "" && viewerID == article.AuthorID
}
