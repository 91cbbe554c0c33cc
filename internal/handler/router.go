package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/midori/internal/metrics"
	"github.com/hitoshi/midori/internal/middleware"
	"github.com/hitoshi/midori/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	SessionFinder      middleware.SessionFinder
	UserFinder         middleware.UserFinder
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	MetricsCollector   metrics.MetricsCollector // nil可

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 記事ワークフロー
	ArticleService ArticleServiceInterface
	ImportService  ImportServiceInterface

	// タクソノミー・植物カタログ
	TaxonomyService TaxonomyServiceInterface
	PlantService    PlantServiceInterface

	// イベント・コンペ
	EventService EventServiceInterface

	// サイト設定・ユーザー管理
	SettingsService SettingsServiceInterface
	UserService     UserServiceInterface

	// アップロード画像の配信ディレクトリ
	UploadDir string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → HTTPMetrics
//
// 公開ルートにはOptionalSessionを適用し、認証済みならアクターを解決する。
// 認証必須ルートはSession → RateLimit(General)の順に通す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.MetricsCollector != nil {
		r.Use(metrics.NewHTTPMetricsMiddleware(deps.MetricsCollector))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	articleHandler := NewArticleHandler(deps.ArticleService)
	importHandler := NewImportHandler(deps.ImportService)
	taxonomyHandler := NewTaxonomyHandler(deps.TaxonomyService)
	plantHandler := NewPlantHandler(deps.PlantService)
	eventHandler := NewEventHandler(deps.EventService)
	settingsHandler := NewSettingsHandler(deps.SettingsService)
	userHandler := NewUserHandler(deps.UserService)

	requireSession := middleware.NewSessionMiddleware(deps.SessionFinder, deps.UserFinder)
	optionalSession := middleware.NewOptionalSessionMiddleware(deps.SessionFinder, deps.UserFinder)
	requireAdmin := middleware.NewRequireRolesMiddleware(model.RoleAdmin)
	requireWriter := middleware.NewRequireRolesMiddleware(model.RoleJournalist, model.RoleAdmin)

	// ヘルスチェック
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// アップロード画像の静的配信
	if deps.UploadDir != "" {
		fileServer := http.FileServer(http.Dir(deps.UploadDir))
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))
	}

	// --- 認証ルート ---
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(requireSession).Get("/me", authHandler.Me)
	})

	// --- 公開ルート ---
	// セッションは任意。認証済みならアクターを解決して非公開記事の閲覧判定に使う。
	r.Group(func(r chi.Router) {
		r.Use(optionalSession)

		r.Get("/api/articles", articleHandler.ListPublished)
		r.Get("/api/articles/{id}", articleHandler.Get)
		r.Get("/api/categories", taxonomyHandler.ListCategories)
		r.Get("/api/plant-types", taxonomyHandler.ListPlantTypes)
		r.Get("/api/plants", plantHandler.List)
		r.Get("/api/plants/{id}", plantHandler.Get)
		r.Get("/api/events", eventHandler.ListUpcoming)
		r.Get("/api/events/{id}", eventHandler.Get)
		r.Get("/api/events/{id}/entries", eventHandler.ListApprovedEntries)
		r.Get("/api/settings", settingsHandler.Get)
	})

	// --- 認証必須ルート ---
	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// コンペ応募
		r.Post("/api/events/{id}/entries", eventHandler.SubmitEntry)
		r.Delete("/api/entries/{id}", eventHandler.WithdrawEntry)

		// 記事ワークフロー（ジャーナリスト・管理者）
		r.Group(func(r chi.Router) {
			r.Use(requireWriter)

			r.Post("/api/articles", articleHandler.Create)
			r.Get("/api/articles/mine", articleHandler.ListMine)
			r.Get("/api/articles/mine/counts", articleHandler.CountsMine)

			// インポートは外部フィード取得を伴う管理者専用ツール。専用レート制限を追加する
			r.With(requireAdmin, deps.RateLimiter.ImportMiddleware()).Post("/api/articles/import", importHandler.ImportFromFeed)

			r.Route("/api/articles/{id}", func(r chi.Router) {
				r.Put("/", articleHandler.Update)
				r.Delete("/", articleHandler.Delete)
				r.Post("/transitions", articleHandler.Transition)
				r.Post("/edit-request", articleHandler.EditRequest)
			})
		})

		// 管理者ルート
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/articles/review-queue", articleHandler.ReviewQueue)
			r.Get("/articles/edit-requests", articleHandler.PendingEditRequests)

			r.Post("/categories", taxonomyHandler.CreateCategory)
			r.Put("/categories/{id}", taxonomyHandler.UpdateCategory)
			r.Delete("/categories/{id}", taxonomyHandler.DeleteCategory)
			r.Post("/plant-types", taxonomyHandler.CreatePlantType)
			r.Put("/plant-types/{id}", taxonomyHandler.UpdatePlantType)
			r.Delete("/plant-types/{id}", taxonomyHandler.DeletePlantType)

			r.Post("/plants", plantHandler.Create)
			r.Put("/plants/{id}", plantHandler.Update)
			r.Delete("/plants/{id}", plantHandler.Delete)

			r.Get("/events", eventHandler.ListAll)
			r.Post("/events", eventHandler.Create)
			r.Put("/events/{id}", eventHandler.Update)
			r.Delete("/events/{id}", eventHandler.Delete)
			r.Get("/entries", eventHandler.ListSubmittedEntries)
			r.Post("/entries/{id}/moderate", eventHandler.ModerateEntry)

			r.Put("/settings", settingsHandler.Update)
			r.Get("/users/{id}", userHandler.Get)
			r.Put("/users/{id}/role", userHandler.ChangeRole)
		})
	})

	return r
}
