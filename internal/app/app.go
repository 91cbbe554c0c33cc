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
	"golang.org/x/time/rate"

	"github.com/hitoshi/midori/internal/article"
	"github.com/hitoshi/midori/internal/auth"
	"github.com/hitoshi/midori/internal/config"
	"github.com/hitoshi/midori/internal/database"
	"github.com/hitoshi/midori/internal/event"
	"github.com/hitoshi/midori/internal/handler"
	"github.com/hitoshi/midori/internal/importer"
	"github.com/hitoshi/midori/internal/logger"
	"github.com/hitoshi/midori/internal/metrics"
	"github.com/hitoshi/midori/internal/middleware"
	"github.com/hitoshi/midori/internal/plant"
	"github.com/hitoshi/midori/internal/repository"
	"github.com/hitoshi/midori/internal/security"
	"github.com/hitoshi/midori/internal/settings"
	"github.com/hitoshi/midori/internal/storage"
	"github.com/hitoshi/midori/internal/taxonomy"
	"github.com/hitoshi/midori/internal/user"
	"github.com/hitoshi/midori/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前のログも出せるよう、まず既定レベルで初期化する
	logger.SetupDefault(w, "")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, cfg.LogLevel)
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
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
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
	articleRepo := repository.NewPostgresArticleRepo(db)
	categoryRepo := repository.NewPostgresCategoryRepo(db)
	plantTypeRepo := repository.NewPostgresPlantTypeRepo(db)
	plantRepo := repository.NewPostgresPlantRepo(db)
	eventRepo := repository.NewPostgresEventRepo(db)
	entryRepo := repository.NewPostgresEntryRepo(db)
	settingsRepo := repository.NewPostgresSettingsRepo(db)

	// 3. 画像ストアとセキュリティサービスの初期化
	imageStore, err := storage.NewLocalImageStore(cfg.UploadDir, cfg.BaseURL+"/uploads", cfg.UploadMaxSize)
	if err != nil {
		return fmt.Errorf("failed to initialize image store: %w", err)
	}
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. ドメインサービスの初期化
	authService := auth.NewService(userRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge})
	articleService := article.NewService(
		articleRepo, categoryRepo, plantTypeRepo, imageStore, sanitizer, collector)
	importService := importer.NewService(
		articleRepo, imageStore, sanitizer, ssrfGuard,
		slog.Default(), collector, cfg.ImportTimeout, cfg.ImportMaxSize)
	taxonomyService := taxonomy.NewService(categoryRepo, plantTypeRepo, articleRepo)
	plantService := plant.NewService(plantRepo, plantTypeRepo, imageStore)
	eventService := event.NewService(eventRepo, entryRepo, imageStore, sanitizer, collector)
	settingsService := settings.NewService(settingsRepo, imageStore)
	userService := user.NewService(userRepo)

	// 6. レート制限の初期化
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rateLimiterCfg.GeneralRate = rate.Limit(cfg.RateLimitGeneral) / 60.0
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitImport > 0 {
		rateLimiterCfg.ImportRate = rate.Limit(cfg.RateLimitImport) / 60.0
		rateLimiterCfg.ImportBurst = cfg.RateLimitImport
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:             slog.Default(),
		SessionFinder:      sessionRepo,
		UserFinder:         userRepo,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        rateLimiter,
		MetricsCollector:   collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieSecure:  cfg.CookieSecure,
			CookieDomain:  cfg.CookieDomain,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ArticleService:  articleService,
		ImportService:   importService,
		TaxonomyService: taxonomyService,
		PlantService:    plantService,
		EventService:    eventService,
		SettingsService: settingsService,
		UserService:     userService,

		UploadDir: imageStore.BaseDir(),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// メトリクスは管理用ポートで別サーバーとして公開する
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("metrics server starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Warn("metrics server shutdown failed", slog.String("error", err.Error()))
	}
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// クリーンアップジョブを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. 依存の初期化
	sessionRepo := repository.NewPostgresSessionRepo(db)
	imageStore, err := storage.NewLocalImageStore(cfg.UploadDir, cfg.BaseURL+"/uploads", cfg.UploadMaxSize)
	if err != nil {
		return fmt.Errorf("failed to initialize image store: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, sessionRepo, imageStore, slog.Default(), collector)
	cleanupJob.StaleEditRequestDays = cfg.EditRequestStaleDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("stale_edit_request_days", cfg.EditRequestStaleDays),
	)

	// 起動直後に1回実行し、以降は間隔実行する
	if err := cleanupJob.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped gracefully")
			return nil
		case <-ticker.C:
			if err := cleanupJob.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
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
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
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
