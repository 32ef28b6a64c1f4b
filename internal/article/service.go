// Package article は記事のライフサイクル管理と一覧クエリを提供する。
package article

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/policy"
	"github.com/hitoshi/blogman/internal/repository"
)

const (
	// PageSize は記事一覧の1ページあたりの件数（固定）。
	PageSize = 10

	// SimilarLimit は類似記事（タグを共有する公開記事）の最大件数。
	SimilarLimit = 5
)

// TagResolver はタグ名リストをタグ実体の集合に解決するインターフェース。
// tag.Serviceの部分集合として定義する。
type TagResolver interface {
	Resolve(ctx context.Context, names []string) ([]model.Tag, error)
}

// MetricsRecorder は記事操作数を記録するインターフェース。
type MetricsRecorder interface {
	RecordArticleCreated()
	RecordArticleUpdated()
	RecordArticleDeleted()
}

// Service は記事の作成・更新・削除と一覧取得のサービス層。
// 権限判定はpolicyパッケージに、タグ解決はTagResolverに委譲する。
type Service struct {
	articleRepo repository.ArticleRepository
	tags        TagResolver
	metrics     MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilを許容する。
func NewService(articleRepo repository.ArticleRepository, tags TagResolver, metrics MetricsRecorder) *Service {
	return &Service{
		articleRepo: articleRepo,
		tags:        tags,
		metrics:     metrics,
	}
}

// Page は記事一覧の1ページ分の結果とページネーションメタデータ。
type Page struct {
	Articles   []model.ArticleWithAuthor
	Number     int // クランプ後の1始まりページ番号
	TotalCount int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

// ListPublished は公開記事の一覧をupdated_at降順・ページネーション付きで返す。
// queryとtagNameはゼロ値なら条件なし。設定された条件はANDで結合される。
func (s *Service) ListPublished(ctx context.Context, query, tagName string, page int) (*Page, error) {
	filter := model.ArticleFilter{
		Query:   strings.TrimSpace(query),
		TagName: tagName,
	}
	return s.listPage(ctx, filter, page)
}

// ListPublishedByAuthor は指定著者の公開記事一覧を返す。
// 公開一覧を著者で絞り込むための派生形で、下書きは含まれない。
func (s *Service) ListPublishedByAuthor(ctx context.Context, authorID, query, tagName string, page int) (*Page, error) {
	filter := model.ArticleFilter{
		Query:    strings.TrimSpace(query),
		TagName:  tagName,
		AuthorID: authorID,
		Status:   model.ArticleStatusPublished,
	}
	return s.listPage(ctx, filter, page)
}

// ListByAuthor は指定著者の記事一覧を公開状態の制限なしで返す（自分の記事一覧用）。
// statusは"published"/"draft"で絞り込み、それ以外の値は絞り込みなしとして扱う。
func (s *Service) ListByAuthor(ctx context.Context, authorID, query, tagName string, status model.ArticleStatus, page int) (*Page, error) {
	filter := model.ArticleFilter{
		Query:    strings.TrimSpace(query),
		TagName:  tagName,
		AuthorID: authorID,
		Status:   status,
	}
	return s.listPage(ctx, filter, page)
}

// listPage はフィルタ適用済みの記事一覧を1ページ分取得する。
// ページ番号は1始まりで、範囲外の値は最初または最後の有効ページにクランプされる。
func (s *Service) listPage(ctx context.Context, filter model.ArticleFilter, page int) (*Page, error) {
	total, err := s.articleRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := (total + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}

	// 範囲外のページ番号はエラーにせず最寄りの有効ページにクランプする
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	offset := (page - 1) * PageSize
	articles, err := s.articleRepo.List(ctx, filter, PageSize, offset)
	if err != nil {
		return nil, err
	}

	return &Page{
		Articles:   articles,
		Number:     page,
		TotalCount: total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}, nil
}

// Detail は記事詳細の結果。類似記事と閲覧者の編集可否フラグを含む。
type Detail struct {
	Article *model.ArticleWithAuthor
	Similar []model.ArticleWithAuthor
	CanEdit bool
}

// Get は記事詳細を類似記事付きで返す。
// 記事が存在しない場合、および閲覧権限がない場合はどちらも記事未検出エラーを返す
// （非公開記事の存在を漏らさないため、両者は呼び出し側から区別できない）。
func (s *Service) Get(ctx context.Context, viewerID, articleID string) (*Detail, error) {
	article, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if article == nil || !policy.CanView(viewerID, &article.Article) {
		return nil, model.NewArticleNotFoundError(articleID)
	}

	similar, err := s.articleRepo.ListSimilar(ctx, articleID, SimilarLimit)
	if err != nil {
		return nil, err
	}

	return &Detail{
		Article: article,
		Similar: similar,
		CanEdit: policy.CanMutate(viewerID, &article.Article),
	}, nil
}

// Input は記事の作成・更新の入力ペイロード。
// TagsProvidedがfalseの場合、更新時にタグ集合を変更しない。
type Input struct {
	Title        string
	Content      string
	TagNames     []string
	TagsProvided bool
	IsPublished  bool
}

// validateInput はタイトルと本文の必須・長さ制約を検証する。
func validateInput(in Input) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.NewValidationError("タイトルは必須です")
	}
	if len([]rune(title)) > model.MaxTitleLength {
		return model.NewValidationError("タイトルが長すぎます（最大200文字）")
	}
	if strings.TrimSpace(in.Content) == "" {
		return model.NewValidationError("本文は必須です")
	}
	return nil
}

// Create は新しい記事を作成する。
// 著者は認証セッション由来のauthorIDであり、クライアント提供のペイロードからは決して取らない。
// タグ解決（検証含む）は記事行の挿入より先に行い、失敗時は何も永続化しない。
// 記事行とタグ関連の挿入は単一トランザクションで行われる。
func (s *Service) Create(ctx context.Context, authorID string, in Input) (*model.ArticleWithAuthor, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	tags, err := s.tags.Resolve(ctx, in.TagNames)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	article := &model.Article{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		AuthorID:    authorID,
		IsPublished: in.IsPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.articleRepo.CreateWithTags(ctx, article, tagIDs(tags)); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordArticleCreated()
	}
	slog.Info("記事を作成しました",
		slog.String("article_id", article.ID),
		slog.String("author_id", authorID),
		slog.Int("tag_count", len(tags)),
	)

	return s.articleRepo.FindByID(ctx, article.ID)
}

// Update は既存記事を更新する。
// 閲覧権限のない記事は未検出として扱い、閲覧できるが変更権限のない記事は
// 権限エラーを返す（APIのように記事の存在が既知のコンテキスト用）。
// タグ入力が与えられた場合はタグ集合を全置換する（差分マージはしない）。
// updated_atは常に更新時刻に刷新される。
func (s *Service) Update(ctx context.Context, viewerID, articleID string, in Input) (*model.ArticleWithAuthor, error) {
	existing, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if existing == nil || !policy.CanView(viewerID, &existing.Article) {
		return nil, model.NewArticleNotFoundError(articleID)
	}
	if !policy.CanMutate(viewerID, &existing.Article) {
		return nil, model.NewForbiddenError()
	}

	if err := validateInput(in); err != nil {
		return nil, err
	}

	var ids []string
	if in.TagsProvided {
		tags, err := s.tags.Resolve(ctx, in.TagNames)
		if err != nil {
			return nil, err
		}
		ids = tagIDs(tags)
	}

	updated := existing.Article
	updated.Title = strings.TrimSpace(in.Title)
	updated.Content = in.Content
	updated.IsPublished = in.IsPublished
	updated.UpdatedAt = time.Now()

	if err := s.articleRepo.UpdateWithTags(ctx, &updated, ids, in.TagsProvided); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordArticleUpdated()
	}
	slog.Info("記事を更新しました",
		slog.String("article_id", articleID),
		slog.String("author_id", viewerID),
	)

	return s.articleRepo.FindByID(ctx, articleID)
}

// Delete は記事を削除する。権限判定はUpdateと同一。
// article_tagsの関連行は削除されるが、タグ自体は残る（他の記事と共有されうるため）。
func (s *Service) Delete(ctx context.Context, viewerID, articleID string) error {
	existing, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return err
	}
	if existing == nil || !policy.CanView(viewerID, &existing.Article) {
		return model.NewArticleNotFoundError(articleID)
	}
	if !policy.CanMutate(viewerID, &existing.Article) {
		return model.NewForbiddenError()
	}

	if err := s.articleRepo.Delete(ctx, articleID); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordArticleDeleted()
	}
	slog.Info("記事を削除しました",
		slog.String("article_id", articleID),
		slog.String("author_id", viewerID),
	)

	return nil
}

// tagIDs はタグ集合からID列を取り出す。
func tagIDs(tags []model.Tag) []string {
	ids := make([]string, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	return ids
}
