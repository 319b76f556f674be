// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gachitda/gachitda/internal/auth"
	"github.com/gachitda/gachitda/internal/middleware"
	"github.com/gachitda/gachitda/internal/model"
)

const refreshTokenCookie = "refreshtoken"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	HandleCallback(ctx context.Context, code string) (*auth.CallbackResult, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
}

// VerificationServiceInterface はメール認証ハンドラーが必要とするサービスインターフェース。
type VerificationServiceInterface interface {
	RequestCode(ctx context.Context, user *model.User, email string) error
	VerifyCode(ctx context.Context, user *model.User, code string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	ClientURL       string
	CookieDomain    string
	CookieSecure    bool
	RefreshTokenTTL time.Duration // リフレッシュトークンCookieの有効期間
}

// AuthHandler はOAuthログインとメール認証のHTTPハンドラー。
type AuthHandler struct {
	service      AuthServiceInterface
	verification VerificationServiceInterface
	config       AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, verification VerificationServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:      service,
		verification: verification,
		config:       config,
	}
}

// KakaoCallback はKakao OAuthコールバックを処理する。
// GET /api/auth/kakao/callback?code=xxx
//
// 成功時はリフレッシュトークンをHTTP Only Cookieに設定し、
// メール認証済みユーザーは/homeへ、未認証ユーザーは/roleへリダイレクトする。
// 失敗時は5xxを返さず、フロントエンドのルートへリダイレクトする。
func (h *AuthHandler) KakaoCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("oauth callback without code")
		http.Redirect(w, r, h.config.ClientURL+"/", http.StatusFound)
		return
	}

	result, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.config.ClientURL+"/", http.StatusFound)
		return
	}

	// フロントエンドとバックエンドはオリジンが異なるため、SameSite=Noneで
	// クロスサイトのcredentials送信を許可する
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    result.RefreshToken,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(h.config.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})

	destination := h.config.ClientURL + "/role"
	if result.EmailVerified {
		destination = h.config.ClientURL + "/home"
	}
	http.Redirect(w, r, destination, http.StatusFound)
}

// AccessToken はリフレッシュトークンCookieからアクセストークンを発行する。
// GET /api/auth/access-token
func (h *AuthHandler) AccessToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil || cookie.Value == "" {
		middleware.WriteErrorResponse(w, model.ErrNoRefreshToken)
		return
	}

	accessToken, err := h.service.RefreshAccessToken(r.Context(), cookie.Value)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": accessToken})
}

// Logout はリフレッシュトークンCookieをクリアする。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
	w.WriteHeader(http.StatusOK)
}

// sendEmailRequest は認証コード送信リクエストのボディ。
type sendEmailRequest struct {
	Email string `json:"email"`
}

// SendEmail は学校メールアドレスへ認証コードを送信する。
// POST /api/auth/email
func (h *AuthHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, model.ErrInvalidAccessToken)
		return
	}

	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		middleware.WriteErrorResponse(w, model.ErrInvalidRequest)
		return
	}

	if err := h.verification.RequestCode(r.Context(), user, req.Email); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// verifyEmailRequest は認証コード検証リクエストのボディ。
type verifyEmailRequest struct {
	Code string `json:"code"`
}

// VerifyEmail は提出された認証コードを検証する。
// POST /api/auth/email/verify
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, model.ErrInvalidAccessToken)
		return
	}

	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		middleware.WriteErrorResponse(w, model.ErrInvalidRequest)
		return
	}

	if err := h.verification.VerifyCode(r.Context(), user, req.Code); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
