package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blogman/internal/article"
	"github.com/hitoshi/blogman/internal/middleware"
	"github.com/hitoshi/blogman/internal/model"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	// ListPublished は公開記事の一覧をページネーション付きで返す。
	ListPublished(ctx context.Context, query, tagName string, page int) (*article.Page, error)
	// ListPublishedByAuthor は指定著者の公開記事一覧を返す。
	ListPublishedByAuthor(ctx context.Context, authorID, query, tagName string, page int) (*article.Page, error)
	// Get は記事詳細を類似記事付きで返す。
	Get(ctx context.Context, viewerID, articleID string) (*article.Detail, error)
	// Create は新しい記事を作成する。
	Create(ctx context.Context, authorID string, in article.Input) (*model.ArticleWithAuthor, error)
	// Update は既存記事を更新する。
	Update(ctx context.Context, viewerID, articleID string, in article.Input) (*model.ArticleWithAuthor, error)
	// Delete は記事を削除する。
	Delete(ctx context.Context, viewerID, articleID string) error
}

// AuthorResolver は著者名クエリパラメータをユーザーに解決するインターフェース。
type AuthorResolver interface {
	ResolveByUsername(ctx context.Context, username string) (*model.User, error)
}

// ArticleHandler は記事管理のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
	users   AuthorResolver
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface, users AuthorResolver) *ArticleHandler {
	return &ArticleHandler{
		service: service,
		users:   users,
	}
}

// --- リクエスト・レスポンス型 ---

// articleSummaryResponse は記事一覧のフラットなサマリーレスポンス。
// 著者はauthor_usernameに、タグは名前のリストに平坦化する。
type articleSummaryResponse struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	AuthorUsername string   `json:"author_username"`
	IsPublished    bool     `json:"is_published"`
	Tags           []string `json:"tags"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// articleListResponse は記事一覧のページネーション付きレスポンス。
type articleListResponse struct {
	Articles   []articleSummaryResponse `json:"articles"`
	Page       int                      `json:"page"`
	TotalPages int                      `json:"total_pages"`
	TotalCount int                      `json:"total_count"`
	HasPrev    bool                     `json:"has_prev"`
	HasNext    bool                     `json:"has_next"`
}

// tagResponse はタグのレスポンス。
type tagResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// authorResponse は記事レスポンスに埋め込む著者オブジェクト。
type authorResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// articleDetailResponse は記事詳細の完全なレスポンス。
// 一覧のフラットなサマリーと異なり、著者はネストしたオブジェクトで返す。
type articleDetailResponse struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Author      authorResponse `json:"author"`
	IsPublished bool           `json:"is_published"`
	Tags        []tagResponse  `json:"tags"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

// articleWithSimilarResponse は記事詳細と類似記事のレスポンス。
type articleWithSimilarResponse struct {
	articleDetailResponse
	Similar []articleSummaryResponse `json:"similar_articles"`
}

// articleRequest は記事の作成・更新リクエストのボディ。
// Tagsがnilの場合、更新時にタグ集合を変更しない（キー省略とみなす）。
type articleRequest struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Tags        *[]string `json:"tags"`
	IsPublished bool      `json:"is_published"`
}

// ListArticles は公開記事の一覧を取得する。
// GET /api/articles?q=xxx&tag=yyy&author=zzz&page=n
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	tagName := r.URL.Query().Get("tag")
	authorName := r.URL.Query().Get("author")
	page := parsePage(r.URL.Query().Get("page"))

	var (
		result *article.Page
		err    error
	)
	if authorName != "" {
		// 著者名での絞り込み。未知の著者は指定可能なユーザー名の一覧付きで404
		author, resolveErr := h.users.ResolveByUsername(r.Context(), authorName)
		if resolveErr != nil {
			handleServiceError(w, resolveErr)
			return
		}
		result, err = h.service.ListPublishedByAuthor(r.Context(), author.ID, query, tagName, page)
	} else {
		result, err = h.service.ListPublished(r.Context(), query, tagName, page)
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toArticleListResponse(result))
}

// GetArticle は記事詳細を類似記事付きで取得する。
// GET /api/articles/:id
// 非公開記事は著者本人のみ取得でき、他のユーザーには404を返す。
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.OptionalUserIDFromContext(r.Context())
	articleID := chi.URLParam(r, "id")

	detail, err := h.service.Get(r.Context(), viewerID, articleID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := articleWithSimilarResponse{
		articleDetailResponse: toArticleDetailResponse(detail.Article),
		Similar:               toArticleSummaries(detail.Similar),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CreateArticle は新しい記事を作成する。
// POST /api/articles
// 著者は認証セッションのユーザーであり、リクエストボディでは指定できない。
func (h *ArticleHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	created, err := h.service.Create(r.Context(), userID, toArticleInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toArticleDetailResponse(created))
}

// UpdateArticle は既存記事を更新する。
// PUT /api/articles/:id
// tagsキーが省略された場合は既存のタグ集合を維持し、
// 指定された場合は（空配列を含めて）タグ集合を全置換する。
func (h *ArticleHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	articleID := chi.URLParam(r, "id")

	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	updated, err := h.service.Update(r.Context(), userID, articleID, toArticleInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toArticleDetailResponse(updated))
}

// DeleteArticle は記事を削除する。
// DELETE /api/articles/:id
func (h *ArticleHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	articleID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, articleID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// parsePage はページ番号クエリパラメータを解析する。
// 数値でない値や欠落は1として扱う（範囲のクランプはサービス層が行う）。
func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return page
}

// toArticleInput はAPIリクエストをサービス層の入力に変換する。
func toArticleInput(req articleRequest) article.Input {
	in := article.Input{
		Title:       req.Title,
		Content:     req.Content,
		IsPublished: req.IsPublished,
	}
	if req.Tags != nil {
		in.TagNames = *req.Tags
		in.TagsProvided = true
	}
	return in
}

// toArticleSummary は記事をフラットなサマリーレスポンスに変換する。
func toArticleSummary(a *model.ArticleWithAuthor) articleSummaryResponse {
	tagNames := make([]string, len(a.Tags))
	for i, t := range a.Tags {
		tagNames[i] = t.Name
	}
	return articleSummaryResponse{
		ID:             a.ID,
		Title:          a.Title,
		AuthorUsername: a.AuthorUsername,
		IsPublished:    a.IsPublished,
		Tags:           tagNames,
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      a.UpdatedAt.Format(time.RFC3339),
	}
}

func toArticleSummaries(articles []model.ArticleWithAuthor) []articleSummaryResponse {
	out := make([]articleSummaryResponse, len(articles))
	for i := range articles {
		out[i] = toArticleSummary(&articles[i])
	}
	return out
}

// toArticleDetailResponse は記事を完全なレスポンスに変換する。
func toArticleDetailResponse(a *model.ArticleWithAuthor) articleDetailResponse {
	tags := make([]tagResponse, len(a.Tags))
	for i, t := range a.Tags {
		tags[i] = tagResponse{ID: t.ID, Name: t.Name}
	}
	return articleDetailResponse{
		ID:      a.ID,
		Title:   a.Title,
		Content: a.Content,
		Author: authorResponse{
			ID:       a.AuthorID,
			Username: a.AuthorUsername,
			Email:    a.AuthorEmail,
		},
		IsPublished: a.IsPublished,
		Tags:        tags,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   a.UpdatedAt.Format(time.RFC3339),
	}
}

// toArticleListResponse はページ結果を一覧レスポンスに変換する。
func toArticleListResponse(p *article.Page) articleListResponse {
	return articleListResponse{
		Articles:   toArticleSummaries(p.Articles),
		Page:       p.Number,
		TotalPages: p.TotalPages,
		TotalCount: p.TotalCount,
		HasPrev:    p.HasPrev,
		HasNext:    p.HasNext,
	}
}
