// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/blogman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// ListActive はis_active=trueのユーザー一覧をusername昇順で返す。
	ListActive(ctx context.Context) ([]model.User, error)

	// Create はユーザーを作成する。
	// username重複はusersテーブルのUNIQUE制約違反として返る。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// TagRepository はタグデータの永続化インターフェース。
// タグ名の一意性はtagsテーブルのUNIQUE制約で保証される。
type TagRepository interface {
	// FindByName は正規化済みタグ名でタグを検索する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Tag, error)

	// Create はタグを作成する。
	// 同名タグが同時に作成された場合はUNIQUE制約違反のエラーが返る。
	// 呼び出し側はIsUniqueViolationで判定し、FindByNameで再取得して解決する。
	Create(ctx context.Context, tag *model.Tag) error

	// ListAll は全タグをname昇順で返す。
	ListAll(ctx context.Context) ([]model.Tag, error)
}

// ArticleRepository は記事データの永続化インターフェース。
// 記事本体とタグ関連（article_tags）の永続化を単一トランザクションで扱う。
type ArticleRepository interface {
	// FindByID は指定IDの記事を著者情報・タグ付きで取得する。見つからない場合はnilを返す。
	// 公開状態による絞り込みは行わない。可視性判定は呼び出し側のポリシーに委ねる。
	FindByID(ctx context.Context, id string) (*model.ArticleWithAuthor, error)

	// List はフィルタ条件に合致する記事をupdated_at降順で返す。
	// 検索条件がタグ経由で複数マッチしても同一記事は1回だけ現れる。
	List(ctx context.Context, filter model.ArticleFilter, limit, offset int) ([]model.ArticleWithAuthor, error)

	// Count はフィルタ条件に合致する記事の総数を返す。ページネーションのメタデータ用。
	Count(ctx context.Context, filter model.ArticleFilter) (int, error)

	// ListSimilar は指定記事とタグを1つ以上共有する公開記事を返す。
	// 指定記事自身は除外し、重複なくlimit件まで返す。
	ListSimilar(ctx context.Context, articleID string, limit int) ([]model.ArticleWithAuthor, error)

	// CreateWithTags は記事とタグ関連を同一トランザクションで作成する。
	CreateWithTags(ctx context.Context, article *model.Article, tagIDs []string) error

	// UpdateWithTags は記事の更新とタグ関連の全置換を同一トランザクションで行う。
	// replaceTagsがfalseの場合、タグ関連は変更しない。
	UpdateWithTags(ctx context.Context, article *model.Article, tagIDs []string, replaceTags bool) error

	// Delete は記事を削除する。article_tagsの関連行はCASCADE削除されるが、
	// タグ自体は残る（他の記事と共有されうるため）。
	Delete(ctx context.Context, id string) error
}
