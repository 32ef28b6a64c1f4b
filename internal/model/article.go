// Package model はドメインモデルを定義する。
package model

import "time"

// 記事のバリデーション制約。
const (
	// MaxTitleLength は記事タイトルの最大長。
	MaxTitleLength = 200
	// MaxTagNameLength はタグ名の最大長。
	MaxTagNameLength = 50
)

// Article はブログ記事を表す。
// AuthorIDは作成時に認証セッションから設定され、以後変更されない。
type Article struct {
	ID          string
	Title       string
	Content     string
	AuthorID    string
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ArticleWithAuthor は記事と著者情報、タグ集合を結合したモデル。
// articles JOIN users、およびarticle_tags経由のタグ取得で構成される。
type ArticleWithAuthor struct {
	Article
	AuthorUsername string
	AuthorEmail    string
	Tags           []Tag
}

// ArticleStatus は「自分の記事」一覧の公開状態フィルタを表す。
type ArticleStatus string

const (
	// ArticleStatusAll は公開状態で絞り込まないことを示す。
	ArticleStatusAll ArticleStatus = ""
	// ArticleStatusPublished は公開済み記事のみを示す。
	ArticleStatusPublished ArticleStatus = "published"
	// ArticleStatusDraft は下書き記事のみを示す。
	ArticleStatusDraft ArticleStatus = "draft"
)

// ArticleFilter は記事一覧の絞り込み条件を表す。
// ゼロ値のフィールドは条件なしとして扱われ、設定された条件はANDで結合される。
type ArticleFilter struct {
	// Query はタイトル・本文・タグ名に対する部分一致検索文字列（大文字小文字を区別しない）。
	Query string
	// TagName は指定タグ名との完全一致で絞り込む。
	TagName string
	// AuthorID は著者IDで絞り込む。設定時は公開状態の制限を外す（自分の記事一覧用）。
	AuthorID string
	// Status はAuthorID指定時の公開状態フィルタ。
	Status ArticleStatus
}
