package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blogman/internal/article"
	"github.com/hitoshi/blogman/internal/middleware"
	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/security"
)

const (
	sessionCookieName = "session_id"
	flashCookieName   = "flash"
)

// ArticleService はWebハンドラーが必要とする記事サービスインターフェース。
type ArticleService interface {
	ListPublished(ctx context.Context, query, tagName string, page int) (*article.Page, error)
	ListByAuthor(ctx context.Context, authorID, query, tagName string, status model.ArticleStatus, page int) (*article.Page, error)
	Get(ctx context.Context, viewerID, articleID string) (*article.Detail, error)
	Create(ctx context.Context, authorID string, in article.Input) (*model.ArticleWithAuthor, error)
	Update(ctx context.Context, viewerID, articleID string, in article.Input) (*model.ArticleWithAuthor, error)
	Delete(ctx context.Context, viewerID, articleID string) error
}

// TagLister はタグサイドバー用のインターフェース。
type TagLister interface {
	ListAll(ctx context.Context) ([]model.Tag, error)
}

// AuthService はWebのログイン・登録フォームが必要とする認証サービスインターフェース。
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*model.User, *model.Session, error)
	Login(ctx context.Context, username, password string) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// Config はWebハンドラーのCookie設定。
type Config struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// Handler はサーバーレンダリングUIのHTTPハンドラー。
type Handler struct {
	articles  ArticleService
	tags      TagLister
	auth      AuthService
	sanitizer security.ContentSanitizerService
	templates map[string]*template.Template
	config    Config
}

// NewHandler はHandlerを生成する。埋め込みテンプレートのパースに失敗した場合はエラーを返す。
func NewHandler(articles ArticleService, tags TagLister, auth AuthService, sanitizer security.ContentSanitizerService, config Config) (*Handler, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Handler{
		articles:  articles,
		tags:      tags,
		auth:      auth,
		sanitizer: sanitizer,
		templates: templates,
		config:    config,
	}, nil
}

// Routes はWebの全ページのルーティングを返す。
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.List)

	r.Get("/login", h.LoginForm)
	r.Post("/login", h.LoginSubmit)
	r.Get("/register", h.RegisterForm)
	r.Post("/register", h.RegisterSubmit)
	r.Post("/logout", h.Logout)

	r.Get("/my/articles", h.MyArticles)

	r.Route("/articles", func(r chi.Router) {
		r.Get("/new", h.NewForm)
		r.Post("/", h.CreateSubmit)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Detail)
			r.Get("/edit", h.EditForm)
			r.Post("/edit", h.EditSubmit)
			r.Get("/delete", h.DeleteConfirm)
			r.Post("/delete", h.DeleteSubmit)
		})
	})

	return r
}

// --- ビューデータ ---

// baseData は全ページ共通のビューデータ。
type baseData struct {
	Title       string
	CurrentUser *model.User
	CSRFToken   string
	Flash       string
}

// pagination はページネーションリンクのビューデータ。
// PrevURL/NextURLは検索条件を保ったページ遷移URL。
type pagination struct {
	Page    *article.Page
	PrevURL string
	NextURL string
}

// --- 共通ヘルパー ---

// base は共通ビューデータを組み立てる。Flashは読み取りと同時にクリアされる。
func (h *Handler) base(w http.ResponseWriter, r *http.Request, title string) baseData {
	return baseData{
		Title:       title,
		CurrentUser: h.currentUser(r),
		CSRFToken:   middleware.CSRFTokenFromRequest(r),
		Flash:       h.popFlash(w, r),
	}
}

// currentUser はセッションCookieから現在のログインユーザーを取得する。
// 未ログインまたはセッション無効の場合はnilを返す。
func (h *Handler) currentUser(r *http.Request) *model.User {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	user, err := h.auth.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return user
}

// redirectToLogin は未ログインユーザーをログインページへ誘導する。
func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	h.setFlash(w, "ログインが必要です。")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// setFlash は次のページ表示で一度だけ表示されるメッセージを設定する。
func (h *Handler) setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash はフラッシュメッセージを読み取り、Cookieをクリアする。
func (h *Handler) popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	msg, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return msg
}

// errorMessage はサービス層のエラーから画面表示用のメッセージを取り出す。
func errorMessage(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "内部エラーが発生しました。しばらく待ってから再度お試しください。"
}

// renderServiceError はフォーム以外のページでのサービスエラーを描画する。
func renderServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeArticleNotFound, model.ErrCodeUserNotFound:
			http.Error(w, apiErr.Message, http.StatusNotFound)
			return
		case model.ErrCodeForbidden:
			http.Error(w, apiErr.Message, http.StatusForbidden)
			return
		case model.ErrCodeValidation, model.ErrCodeTagNameTooLong:
			http.Error(w, apiErr.Message, http.StatusBadRequest)
			return
		}
	}
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// parsePage はページ番号クエリパラメータを解析する。数値でない値は1として扱う。
func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return page
}

// paginationFor は検索条件を保ったままページ遷移するリンクを組み立てる。
func paginationFor(p *article.Page, path string, params url.Values) pagination {
	return pagination{
		Page:    p,
		PrevURL: pageURL(path, params, p.Number-1),
		NextURL: pageURL(path, params, p.Number+1),
	}
}

func pageURL(path string, params url.Values, page int) string {
	q := url.Values{}
	for key, values := range params {
		if len(values) > 0 && values[0] != "" {
			q.Set(key, values[0])
		}
	}
	q.Set("page", strconv.Itoa(page))
	return path + "?" + q.Encode()
}
