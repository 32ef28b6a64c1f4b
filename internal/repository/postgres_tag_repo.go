package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/blogman/internal/model"
)

// PostgresTagRepo はPostgreSQLを使用したタグリポジトリ。
type PostgresTagRepo struct {
	db *sql.DB
}

// NewPostgresTagRepo はPostgresTagRepoを生成する。
func NewPostgresTagRepo(db *sql.DB) *PostgresTagRepo {
	return &PostgresTagRepo{db: db}
}

// FindByName は正規化済みタグ名でタグを検索する。見つからない場合はnilを返す。
func (r *PostgresTagRepo) FindByName(ctx context.Context, name string) (*model.Tag, error) {
	tag := &model.Tag{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tags WHERE name = $1`,
		name,
	).Scan(&tag.ID, &tag.Name, &tag.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タグ名によるタグの検索に失敗しました: %w", err)
	}

	return tag, nil
}

// Create はタグを作成する。
// 同名タグが既に存在する場合はUNIQUE制約違反のエラーが返る。
// 呼び出し側はIsUniqueViolationで判定し、FindByNameで再取得して解決する。
func (r *PostgresTagRepo) Create(ctx context.Context, tag *model.Tag) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tags (id, name, created_at) VALUES ($1, $2, $3)`,
		tag.ID, tag.Name, tag.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("タグの作成に失敗しました: %w", err)
	}
	return nil
}

// ListAll は全タグをname昇順で返す。
func (r *PostgresTagRepo) ListAll(ctx context.Context) ([]model.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM tags ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("タグ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var tag model.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("タグ行の読み取りに失敗しました: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タグ一覧の走査に失敗しました: %w", err)
	}

	return tags, nil
}

// compile-time interface check
var _ TagRepository = (*PostgresTagRepo)(nil)
