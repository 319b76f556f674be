// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
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

	"github.com/gachitda/gachitda/internal/auth"
	"github.com/gachitda/gachitda/internal/config"
	"github.com/gachitda/gachitda/internal/database"
	"github.com/gachitda/gachitda/internal/handler"
	"github.com/gachitda/gachitda/internal/logger"
	"github.com/gachitda/gachitda/internal/mail"
	"github.com/gachitda/gachitda/internal/metrics"
	"github.com/gachitda/gachitda/internal/middleware"
	"github.com/gachitda/gachitda/internal/notification"
	"github.com/gachitda/gachitda/internal/post"
	"github.com/gachitda/gachitda/internal/repository"
	"github.com/gachitda/gachitda/internal/security"
	"github.com/gachitda/gachitda/internal/token"
	"github.com/gachitda/gachitda/internal/user"
	"github.com/gachitda/gachitda/internal/verification"
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
		slog.String("client_url", cfg.ClientURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
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
	postRepo := repository.NewPostgresPostRepo(db)

	// 3. セキュリティサービスの初期化
	sanitizer := security.NewContentSanitizer()
	endpointGuard := security.NewEndpointGuard()

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. ドメインサービスの初期化
	oauthProvider := auth.NewKakaoOAuthProvider(auth.KakaoOAuthConfig{
		RESTAPIKey:  cfg.KakaoRESTAPIKey,
		RedirectURI: cfg.KakaoRedirectURI,
	})

	tokenService := token.NewService(token.Config{
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		RefreshTTL:    cfg.RefreshTokenTTL,
		AccessTTL:     cfg.AccessTokenTTL,
	})

	authService := auth.NewService(oauthProvider, userRepo, tokenService, collector)

	verificationService := verification.NewService(
		userRepo, newMailSender(cfg),
		verification.ServiceConfig{
			CodeLength:      cfg.CodeLength,
			CodeTTL:         cfg.CodeTTL,
			AllowedSuffixes: cfg.AllowedEmailSuffixes,
		},
		collector,
	)

	postService := post.NewService(postRepo, userRepo, sanitizer, collector)
	userService := user.NewService(userRepo)
	notiService := notification.NewService(userRepo, endpointGuard, notification.LogSender{})

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitEmailSend),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		TokenVerifier:     tokenService,
		UserFinder:        userRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger: &handler.LoggerDeps{
			Middleware: middleware.NewLoggingMiddleware(slog.Default(), collector),
		},

		AuthService:         authService,
		VerificationService: verificationService,
		PostService:         postService,
		UserService:         userService,
		NotificationService: notiService,

		AuthConfig: handler.AuthHandlerConfig{
			ClientURL:       cfg.ClientURL,
			CookieDomain:    cfg.CookieDomain,
			CookieSecure:    cfg.CookieSecure,
			RefreshTokenTTL: cfg.RefreshTokenTTL,
		},

		MetricsHandler: metrics.Handler(registry),
		DB:             db,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newMailSender は設定に応じたメール送信実装を返す。
// SMTP_ADDRが未設定の環境ではログ出力のみのセンダーで代替する。
func newMailSender(cfg *config.Config) verification.MailSender {
	if cfg.SMTPAddr == "" {
		slog.Warn("SMTP_ADDR not set, verification emails will only be logged")
		return mail.LogSender{}
	}
	return mail.NewSMTPSender(mail.SMTPConfig{
		Addr:     cfg.SMTPAddr,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
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
