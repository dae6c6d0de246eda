// Package app はサブコマンドの解析と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/labpractice/internal/auth"
	"github.com/hitoshi/labpractice/internal/config"
	"github.com/hitoshi/labpractice/internal/database"
	"github.com/hitoshi/labpractice/internal/handler"
	"github.com/hitoshi/labpractice/internal/logger"
	"github.com/hitoshi/labpractice/internal/metrics"
	"github.com/hitoshi/labpractice/internal/middleware"
	"github.com/hitoshi/labpractice/internal/practice"
	"github.com/hitoshi/labpractice/internal/report"
	"github.com/hitoshi/labpractice/internal/repository"
	"github.com/hitoshi/labpractice/internal/security"
	"github.com/hitoshi/labpractice/internal/session"
	"github.com/hitoshi/labpractice/internal/worker/cleanup"
)

const (
	databaseConnectTimeout = 10 * time.Second
	shutdownTimeout        = 30 * time.Second
	defaultHealthcheckPort = "3000"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込んでログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)
	if cmd == CommandHelp {
		return printUsage(w)
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = defaultHealthcheckPort
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
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// IdPのディスカバリはバックグラウンドで行い、完了までログインは503を返す。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), databaseConnectTimeout)
	db, err := database.Connect(connectCtx, cfg.DatabaseURL)
	cancelConnect()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	slog.Info("database connection established")

	if cfg.MigrateOnStart {
		if err := runMigrate(cfg); err != nil {
			return err
		}
	}

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	practiceRepo := repository.NewPostgresPracticeRepo(db)
	reportRepo := repository.NewPostgresReportRepo(db)

	// 3. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// バックグラウンド処理のライフサイクル
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. IdPのディスカバリ（バックグラウンド）
	gate := auth.NewProviderGate(collector.SetOIDCReady)
	oidcConfig := auth.OIDCConfig{
		IssuerURL:    cfg.OIDCIssuerURL,
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
	}
	go func() {
		_ = gate.Discover(ctx, func(ctx context.Context) (auth.IdentityProvider, error) {
			p, err := auth.DiscoverOIDCProvider(ctx, oidcConfig)
			if err != nil {
				return nil, err
			}
			return p, nil
		}, auth.DiscoveryConfig{
			AttemptTimeout: cfg.OIDCDiscoveryTimeout,
			MaxElapsed:     cfg.OIDCDiscoveryMaxElapsed,
		}, slog.Default())
	}()

	// 5. ドメインサービスの初期化
	sanitizer := security.NewContentSanitizer()
	authService := auth.NewService(gate, userRepo)
	practiceService := practice.NewService(practiceRepo, sanitizer)
	reportService := report.NewService(reportRepo, practiceRepo, sanitizer)

	// 6. セッション
	codec, err := session.NewCodec(cfg.SessionSecret)
	if err != nil {
		return fmt.Errorf("failed to create session codec: %w", err)
	}
	sessionStore := session.NewMemoryStore()
	sessions := session.NewManager(sessionStore, codec, session.Config{
		MaxAge: cfg.SessionTTL(),
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
	})

	sweeper := cleanup.NewSessionSweeper(sessionStore, collector, slog.Default())
	go sweeper.Start(ctx, cfg.SessionSweepInterval)

	// 7. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Sessions:          sessions,
		Authz:             middleware.NewAuthz(collector),
		StatusRecorder:    collector,
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		HealthChecker:  db,
		Readiness:      gate,
		MetricsHandler: metrics.Handler(registry),

		AuthService:   authService,
		AuthConfig:    handler.AuthHandlerConfig{FrontendURL: cfg.FrontendURL},
		LoginRecorder: collector,

		UserFinder:      userRepo,
		PracticeService: practiceService,
		ReportService:   reportService,
	})

	// 8. HTTPサーバーの起動
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
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// 解析できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
