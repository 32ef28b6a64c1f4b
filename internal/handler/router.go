package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blogman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 基盤依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// /metrics エンドポイント（Prometheusレジストリのハンドラー）
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 記事
	ArticleService ArticleServiceInterface

	// タグ・ユーザー
	TagService   TagServiceInterface
	UserService  UserServiceInterface
	UserResolver AuthorResolver

	// サーバーレンダリングUI（/ 以下にマウントする）
	Web http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → CSRF
//
// JSON APIは /api 以下、認証は /auth 以下、WebのUIはルート以下に配置する。
// 公開の読み取りルートはセッション任意（未ログインでも閲覧可能、
// ログイン済みなら自分の下書きが見える）、書き込みルートはセッション必須。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	articleHandler := NewArticleHandler(deps.ArticleService, deps.UserResolver)
	tagHandler := NewTagHandler(deps.TagService)
	userHandler := NewUserHandler(deps.UserService)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Check)

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Handle("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 公開の読み取りルート ---
	// セッションは任意。ログイン済みなら下書きの可視性判定に使われる。
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))

		r.Get("/api/articles", articleHandler.ListArticles)
		r.Get("/api/articles/{id}", articleHandler.GetArticle)
		r.Get("/api/tags", tagHandler.ListTags)
		r.Get("/api/users", userHandler.ListUsers)
	})

	// --- 認証が必要な書き込みルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// POST /api/articles - 記事作成（作成専用レート制限を追加）
		r.With(deps.RateLimiter.ArticleCreationMiddleware()).Post("/api/articles", articleHandler.CreateArticle)

		r.Put("/api/articles/{id}", articleHandler.UpdateArticle)
		r.Delete("/api/articles/{id}", articleHandler.DeleteArticle)
	})

	// --- サーバーレンダリングUI ---
	if deps.Web != nil {
		r.Mount("/", deps.Web)
	}

	return r
}
