package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/labpractice/internal/middleware"
	"github.com/hitoshi/labpractice/internal/model"
	"github.com/hitoshi/labpractice/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Sessions          *session.Manager
	Authz             *middleware.Authz
	StatusRecorder    middleware.StatusRecorder
	Logger            *slog.Logger
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig

	// ヘルスチェック・メトリクス
	HealthChecker  HealthChecker
	Readiness      ReadinessChecker
	MetricsHandler http.Handler

	// 認証
	AuthService   AuthServiceInterface
	AuthConfig    AuthHandlerConfig
	LoginRecorder LoginRecorder

	// リソース
	UserFinder      UserFinder
	PracticeService PracticeServiceInterface
	ReportService   ReportServiceInterface
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Session → Logging → CSRF → Authz(ルートごと)
//
// CSRF検証は認可より先に評価されるため、トークンなしの状態変更リクエストはロールに関係なく403になる。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authz := deps.Authz
	if authz == nil {
		authz = middleware.NewAuthz(nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(deps.Sessions.Middleware)
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))

	authHandler := NewAuthHandler(deps.AuthService, deps.Sessions, deps.LoginRecorder, deps.AuthConfig)
	healthHandler := NewHealthHandler(deps.HealthChecker, deps.Readiness)
	userHandler := NewUserHandler(deps.UserFinder)
	practiceHandler := NewPracticeHandler(deps.PracticeService)
	reportHandler := NewReportHandler(deps.ReportService)

	instructors := authz.RequireRole(model.RoleInstructor, model.RoleAdministrator)
	students := authz.RequireRole(model.RoleStudent)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler.Readiness)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	csrf := middleware.NewCSRFMiddleware(deps.CSRFConfig)

	// OIDCフロー
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.With(csrf).Post("/logout", authHandler.Logout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Liveness)
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// --- 認証が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(csrf)
			r.Use(authz.RequireAuthenticated())

			r.Get("/user/me", userHandler.Me)
			r.Get("/practicas", practiceHandler.List)
			r.Get("/practicas/{id}", practiceHandler.Get)
		})

		// 教員・管理者
		r.Group(func(r chi.Router) {
			r.Use(csrf)
			r.Use(instructors)

			r.Post("/practicas", practiceHandler.Create)
			r.Patch("/practicas/{id}", practiceHandler.Update)
			r.Post("/practicas/{id}/cerrar", practiceHandler.Close)
			r.Get("/practicas/{id}/informes", reportHandler.ListForPractice)
			r.Put("/informes/{id}/calificar", reportHandler.Grade)
		})

		// 学生
		r.Group(func(r chi.Router) {
			r.Use(csrf)
			r.Use(students)

			r.Post("/practicas/{id}/informes", reportHandler.Submit)
			r.Get("/mis-informes", reportHandler.ListMine)
		})
	})

	return r
}
