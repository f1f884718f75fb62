package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/shopgate/internal/account"
	"github.com/hitoshi/shopgate/internal/config"
	"github.com/hitoshi/shopgate/internal/database"
	"github.com/hitoshi/shopgate/internal/handler"
	"github.com/hitoshi/shopgate/internal/identity"
	"github.com/hitoshi/shopgate/internal/logger"
	"github.com/hitoshi/shopgate/internal/metrics"
	"github.com/hitoshi/shopgate/internal/middleware"
	"github.com/hitoshi/shopgate/internal/repository"
	"github.com/hitoshi/shopgate/internal/security"
	"github.com/hitoshi/shopgate/internal/session"
	"github.com/hitoshi/shopgate/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandCleanup:
		return runCleanup(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	prefsRepo := repository.NewPostgresPreferencesRepo(db)
	favoriteRepo := repository.NewPostgresFavoriteRepo(db)

	// 3. IDトークン検証の初期化
	// 公開鍵取得は外向きHTTPなので、SSRF防止付きクライアントを通す
	guard := security.NewOutboundGuard()
	keyRing := identity.NewKeyRing(identity.KeyRingConfig{
		CertsURL:     cfg.CertsURL,
		TTL:          cfg.CertsCacheTTL,
		FetchTimeout: cfg.CertsFetchTimeout,
		Client:       guard.NewSafeClient(cfg.CertsFetchTimeout),
	})
	verifier := identity.NewService(keyRing, cfg.GoogleClientID)

	// 4. ドメインサービスの初期化
	sessionManager := session.NewManager(sessionRepo, time.Duration(cfg.SessionMaxAge)*time.Second)
	accountService := account.NewService(userRepo, sessionManager, verifier)
	profileService := account.NewProfileService(prefsRepo, favoriteRepo)

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	collector := metrics.NewCollector(registry)

	// 6. レート制限の初期化
	rateLimiter := middleware.NewRateLimiter(loginRateLimiterConfig(cfg), collector)
	defer rateLimiter.Stop()

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		SessionValidator:  sessionManager,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		AccountService:     accountService,
		PreferencesService: profileService,
		FavoritesService:   profileService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		DB:        db,
		Collector: collector,
		Gatherer:  registry,
	}

	router := handler.NewRouter(deps)

	// 8. 期限切れセッション掃除ジョブをバックグラウンドで起動
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())
	go cleanupJob.RunPeriodically(ctx, cfg.SessionCleanupInterval)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// loginRateLimiterConfig はConfigのログイン試行上限（回数/時間窓）を
// req/sec単位のレートリミッター設定に変換する。
// 上限または時間窓が未設定（0以下）の場合はデフォルト設定をそのまま返す。
func loginRateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitLogin > 0 && cfg.RateLimitLoginWindow > 0 {
		rlCfg.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / cfg.RateLimitLoginWindow.Seconds())
		rlCfg.LoginBurst = cfg.RateLimitLogin
	}
	return rlCfg
}

// runCleanup は期限切れセッションの掃除ジョブを1回実行して終了する。
// cronなどの外部スケジューラから呼び出されることを想定している。
func runCleanup(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	job := cleanup.NewCleanupJob(db, slog.Default())
	if err := job.Run(context.Background()); err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
