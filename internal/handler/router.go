package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/shopgate/internal/metrics"
	"github.com/hitoshi/shopgate/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionValidator  middleware.SessionValidator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// サービス
	AccountService     AccountServiceInterface
	PreferencesService PreferencesServiceInterface
	FavoritesService   FavoritesServiceInterface
	AuthConfig         AuthHandlerConfig

	// 運用
	DB        Pinger
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → CORS → SecurityHeaders → Logging → Recovery
//
// 認証エンドポイント（signup/login）にはレート制限を追加で適用する。
// レート制限はセッション検証やストアアクセスより前に判定される。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AccountService, deps.AuthConfig, deps.Collector)
	prefsHandler := NewPreferencesHandler(deps.PreferencesService)
	favsHandler := NewFavoritesHandler(deps.FavoritesService)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.DB))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// 認証エンドポイント（IP+エンドポイント別レート制限付き）
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.LoginMiddleware())

		r.Post("/api/signup/email", authHandler.SignupEmail)
		r.Post("/api/login/email", authHandler.LoginEmail)
		r.Post("/api/login/google", authHandler.LoginGoogle)
	})

	// ログアウトは常に200を返す冪等操作なので、セッション検証もレート制限も通さない
	r.Post("/api/logout", authHandler.Logout)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionValidator, deps.Collector))

		r.Get("/api/status", authHandler.Status)
		r.Get("/api/token", authHandler.Token)

		r.Route("/api/preferences", func(r chi.Router) {
			r.Get("/", prefsHandler.Get)
			r.Put("/", prefsHandler.Update)
		})

		r.Route("/api/favorites", func(r chi.Router) {
			r.Get("/", favsHandler.List)
			r.Post("/", favsHandler.Add)
			r.Delete("/{id}", favsHandler.Remove)
		})
	})

	return r
}
