package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gachitda/gachitda/internal/middleware"
)

// DBPinger はヘルスチェックに必要なデータベース接続のインターフェース。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.AccessTokenVerifier
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *LoggerDeps

	// サービス
	AuthService         AuthServiceInterface
	VerificationService VerificationServiceInterface
	PostService         PostServiceInterface
	UserService         UserServiceInterface
	NotificationService NotificationServiceInterface

	// 設定
	AuthConfig AuthHandlerConfig

	// 運用エンドポイント
	MetricsHandler http.Handler
	DB             DBPinger
}

// LoggerDeps はロギングミドルウェアの依存。
type LoggerDeps struct {
	Middleware func(next http.Handler) http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → [Auth → RateLimit(General)]
//
// OAuthコールバック、アクセストークン発行、公開リード系エンドポイントは
// 認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(deps.Logger.Middleware)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.VerificationService, deps.AuthConfig)
	postHandler := NewPostHandler(deps.PostService)
	userHandler := NewUserHandler(deps.UserService)
	notiHandler := NewNotificationHandler(deps.NotificationService)

	// --- 認証不要のルート ---

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/kakao/callback", authHandler.KakaoCallback)
		r.Get("/access-token", authHandler.AccessToken)
	})
	r.Post("/logout", authHandler.Logout)

	// 公開リード系
	r.Get("/api/posts", postHandler.AllPosts)
	r.Get("/api/post/{postId}", postHandler.ThisPost)
	r.Get("/api/user/{userId}", userHandler.UserData)

	// 運用エンドポイント
	r.Get("/health", newHealthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// メール認証（送信には送信専用レート制限を追加）
		r.With(deps.RateLimiter.EmailSendMiddleware()).Post("/api/auth/email", authHandler.SendEmail)
		r.Post("/api/auth/email/verify", authHandler.VerifyEmail)

		// 投稿・応募・マッチ
		r.Post("/api/post", postHandler.NewPost)
		r.Post("/api/post/{postId}/apply", postHandler.ApplyPost)
		r.Post("/api/post/{postId}/match", postHandler.MatchPost)
		r.Get("/api/posts/my", postHandler.MyPosts)

		// プロフィール・ロール
		r.Get("/api/user", userHandler.MyInfo)
		r.Post("/api/role", userHandler.MyRole)

		// プッシュ通知
		r.Route("/api/noti", func(r chi.Router) {
			r.Post("/subscription", notiHandler.Subscription)
			r.Post("/sendpush", notiHandler.SendPush)
		})
	})

	return r
}

// newHealthHandler はデータベース接続を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(db DBPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
