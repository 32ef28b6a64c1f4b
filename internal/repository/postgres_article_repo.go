package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/blogman/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

// articleSelectColumns は記事一覧・詳細で共通のSELECT句。
const articleSelectColumns = `
	a.id, a.title, a.content, a.author_id, a.is_published, a.created_at, a.updated_at,
	u.username, u.email`

// FindByID は指定IDの記事を著者情報・タグ付きで取得する。見つからない場合はnilを返す。
// 公開状態による絞り込みは行わない。可視性判定は呼び出し側のポリシーに委ねる。
func (r *PostgresArticleRepo) FindByID(ctx context.Context, id string) (*model.ArticleWithAuthor, error) {
	article := &model.ArticleWithAuthor{}
	err := r.db.QueryRowContext(ctx,
		`SELECT`+articleSelectColumns+`
		 FROM articles a
		 JOIN users u ON u.id = a.author_id
		 WHERE a.id = $1`,
		id,
	).Scan(
		&article.ID, &article.Title, &article.Content, &article.AuthorID,
		&article.IsPublished, &article.CreatedAt, &article.UpdatedAt,
		&article.AuthorUsername, &article.AuthorEmail,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}

	if err := r.loadTags(ctx, []*model.ArticleWithAuthor{article}); err != nil {
		return nil, err
	}

	return article, nil
}

// buildFilterClause はArticleFilterをWHERE句の条件列に変換する。
// 条件の適用順序は固定: 基本述語（著者/公開状態）→ 検索文字列 → タグ名。
// 戻り値はWHERE句（"WHERE ..."形式）とプレースホルダ引数。
func buildFilterClause(filter model.ArticleFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	argIndex := 1

	next := func() int {
		i := argIndex
		argIndex++
		return i
	}

	// 基本述語: 著者指定時はその著者の全記事、未指定時は公開記事のみ
	if filter.AuthorID != "" {
		conds = append(conds, fmt.Sprintf("a.author_id = $%d", next()))
		args = append(args, filter.AuthorID)

		switch filter.Status {
		case model.ArticleStatusPublished:
			conds = append(conds, "a.is_published = TRUE")
		case model.ArticleStatusDraft:
			conds = append(conds, "a.is_published = FALSE")
		}
		// それ以外の値は絞り込みなし
	} else {
		conds = append(conds, "a.is_published = TRUE")
	}

	// 検索文字列: タイトル・本文・タグ名のいずれかに部分一致（大文字小文字を区別しない）。
	// タグはEXISTSで判定するため、複数タグにマッチしても結果行は重複しない。
	if filter.Query != "" {
		i := next()
		conds = append(conds, fmt.Sprintf(
			`(a.title ILIKE $%d OR a.content ILIKE $%d
			  OR EXISTS (
			      SELECT 1 FROM article_tags at
			      JOIN tags t ON t.id = at.tag_id
			      WHERE at.article_id = a.id AND t.name ILIKE $%d))`,
			i, i, i,
		))
		args = append(args, "%"+escapeLikePattern(filter.Query)+"%")
	}

	// タグ名: 完全一致
	if filter.TagName != "" {
		conds = append(conds, fmt.Sprintf(
			`EXISTS (
			     SELECT 1 FROM article_tags at
			     JOIN tags t ON t.id = at.tag_id
			     WHERE at.article_id = a.id AND t.name = $%d)`,
			next(),
		))
		args = append(args, filter.TagName)
	}

	where := ""
	for i, cond := range conds {
		if i == 0 {
			where = "WHERE " + cond
		} else {
			where += " AND " + cond
		}
	}

	return where, args
}

// escapeLikePattern はLIKE/ILIKEのメタ文字をエスケープする。
// 検索文字列はワイルドカードではなくリテラルな部分一致として扱うため、
// `%`と`_`（およびエスケープ文字自身の`\`）を無効化する。
func escapeLikePattern(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`%`, `\%`,
		`_`, `\_`,
	)
	return replacer.Replace(s)
}

// List はフィルタ条件に合致する記事をupdated_at降順で返す。
func (r *PostgresArticleRepo) List(ctx context.Context, filter model.ArticleFilter, limit, offset int) ([]model.ArticleWithAuthor, error) {
	where, args := buildFilterClause(filter)

	query := fmt.Sprintf(
		`SELECT`+articleSelectColumns+`
		 FROM articles a
		 JOIN users u ON u.id = a.author_id
		 %s
		 ORDER BY a.updated_at DESC
		 LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	articles, err := scanArticleRows(rows)
	if err != nil {
		return nil, err
	}

	refs := make([]*model.ArticleWithAuthor, len(articles))
	for i := range articles {
		refs[i] = &articles[i]
	}
	if err := r.loadTags(ctx, refs); err != nil {
		return nil, err
	}

	return articles, nil
}

// Count はフィルタ条件に合致する記事の総数を返す。
func (r *PostgresArticleRepo) Count(ctx context.Context, filter model.ArticleFilter) (int, error) {
	where, args := buildFilterClause(filter)

	var count int
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM articles a %s`, where),
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("記事件数の取得に失敗しました: %w", err)
	}

	return count, nil
}

// ListSimilar は指定記事とタグを1つ以上共有する公開記事をupdated_at降順で返す。
// 指定記事自身は除外し、共有タグが複数あっても同一記事は1回だけ現れる。
func (r *PostgresArticleRepo) ListSimilar(ctx context.Context, articleID string, limit int) ([]model.ArticleWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+articleSelectColumns+`
		 FROM articles a
		 JOIN users u ON u.id = a.author_id
		 WHERE a.is_published = TRUE
		   AND a.id <> $1
		   AND EXISTS (
		       SELECT 1 FROM article_tags at
		       WHERE at.article_id = a.id
		         AND at.tag_id IN (SELECT tag_id FROM article_tags WHERE article_id = $1))
		 ORDER BY a.updated_at DESC
		 LIMIT $2`,
		articleID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("類似記事の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	articles, err := scanArticleRows(rows)
	if err != nil {
		return nil, err
	}

	refs := make([]*model.ArticleWithAuthor, len(articles))
	for i := range articles {
		refs[i] = &articles[i]
	}
	if err := r.loadTags(ctx, refs); err != nil {
		return nil, err
	}

	return articles, nil
}

// CreateWithTags は記事とタグ関連を同一トランザクションで作成する。
// 記事行の挿入後にarticle_tagsへ関連を挿入するため、途中失敗時は両方ロールバックされる。
func (r *PostgresArticleRepo) CreateWithTags(ctx context.Context, article *model.Article, tagIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO articles (id, title, content, author_id, is_published, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		article.ID, article.Title, article.Content, article.AuthorID,
		article.IsPublished, article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("記事の作成に失敗しました: %w", err)
	}

	if err := insertArticleTags(ctx, tx, article.ID, tagIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// UpdateWithTags は記事の更新とタグ関連の全置換を同一トランザクションで行う。
// replaceTagsがtrueの場合、既存のタグ関連を全削除してから新しい関連を挿入する（差分マージはしない）。
func (r *PostgresArticleRepo) UpdateWithTags(ctx context.Context, article *model.Article, tagIDs []string, replaceTags bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE articles SET title = $2, content = $3, is_published = $4, updated_at = $5
		 WHERE id = $1`,
		article.ID, article.Title, article.Content, article.IsPublished, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("記事の更新に失敗しました: %w", err)
	}

	if replaceTags {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM article_tags WHERE article_id = $1`,
			article.ID,
		)
		if err != nil {
			return fmt.Errorf("タグ関連の削除に失敗しました: %w", err)
		}

		if err := insertArticleTags(ctx, tx, article.ID, tagIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// Delete は記事を削除する。article_tagsの関連行はON DELETE CASCADEで削除される。
func (r *PostgresArticleRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM articles WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}
	return nil
}

// insertArticleTags はトランザクション内でarticle_tagsへ関連行を挿入する。
func insertArticleTags(ctx context.Context, tx *sql.Tx, articleID string, tagIDs []string) error {
	for _, tagID := range tagIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO article_tags (article_id, tag_id) VALUES ($1, $2)`,
			articleID, tagID,
		)
		if err != nil {
			return fmt.Errorf("タグ関連の挿入に失敗しました: %w", err)
		}
	}
	return nil
}

// scanArticleRows は記事一覧クエリの結果行を読み取る。
func scanArticleRows(rows *sql.Rows) ([]model.ArticleWithAuthor, error) {
	var articles []model.ArticleWithAuthor
	for rows.Next() {
		var a model.ArticleWithAuthor
		if err := rows.Scan(
			&a.ID, &a.Title, &a.Content, &a.AuthorID,
			&a.IsPublished, &a.CreatedAt, &a.UpdatedAt,
			&a.AuthorUsername, &a.AuthorEmail,
		); err != nil {
			return nil, fmt.Errorf("記事行の読み取りに失敗しました: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事一覧の走査に失敗しました: %w", err)
	}
	return articles, nil
}

// loadTags は記事集合のタグをまとめて取得し、各記事のTagsフィールドに設定する。
// 記事ごとのN+1クエリを避けるため、article_id = ANY($1)で一括取得する。
func (r *PostgresArticleRepo) loadTags(ctx context.Context, articles []*model.ArticleWithAuthor) error {
	if len(articles) == 0 {
		return nil
	}

	ids := make([]string, len(articles))
	byID := make(map[string]*model.ArticleWithAuthor, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
		byID[a.ID] = a
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT at.article_id, t.id, t.name, t.created_at
		 FROM article_tags at
		 JOIN tags t ON t.id = at.tag_id
		 WHERE at.article_id = ANY($1)
		 ORDER BY t.name`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("記事タグの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var articleID string
		var tag model.Tag
		if err := rows.Scan(&articleID, &tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return fmt.Errorf("記事タグ行の読み取りに失敗しました: %w", err)
		}
		if a, ok := byID[articleID]; ok {
			a.Tags = append(a.Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("記事タグの走査に失敗しました: %w", err)
	}

	return nil
}

// compile-time interface check
var _ ArticleRepository = (*PostgresArticleRepo)(nil)
