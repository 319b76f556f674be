package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gachitda/gachitda/internal/auth"
	"github.com/gachitda/gachitda/internal/middleware"
	"github.com/gachitda/gachitda/internal/model"
)

// mockAuthService はテスト用のAuthServiceInterfaceモック
type mockAuthService struct {
	handleCallbackFunc func(ctx context.Context, code string) (*auth.CallbackResult, error)
	refreshFunc        func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*auth.CallbackResult, error) {
	if m.handleCallbackFunc != nil {
		return m.handleCallbackFunc(ctx, code)
	}
	return nil, errors.New("not configured")
}

func (m *mockAuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx, refreshToken)
	}
	return "", errors.New("not configured")
}

// mockVerificationService はテスト用のVerificationServiceInterfaceモック
type mockVerificationService struct {
	requestCodeFunc func(ctx context.Context, user *model.User, email string) error
	verifyCodeFunc  func(ctx context.Context, user *model.User, code string) error
}

func (m *mockVerificationService) RequestCode(ctx context.Context, user *model.User, email string) error {
	if m.requestCodeFunc != nil {
		return m.requestCodeFunc(ctx, user, email)
	}
	return nil
}

func (m *mockVerificationService) VerifyCode(ctx context.Context, user *model.User, code string) error {
	if m.verifyCodeFunc != nil {
		return m.verifyCodeFunc(ctx, user, code)
	}
	return nil
}

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		ClientURL:       "https://gachitda.app",
		CookieSecure:    true,
		RefreshTokenTTL: 30 * 24 * time.Hour,
	}
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Error
}

func TestKakaoCallback(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		result       *auth.CallbackResult
		serviceErr   error
		wantLocation string
		wantCookie   bool
	}{
		{
			name:         "メール認証済みユーザーは/homeへ",
			query:        "?code=auth-code",
			result:       &auth.CallbackResult{RefreshToken: "refresh-jwt", EmailVerified: true},
			wantLocation: "https://gachitda.app/home",
			wantCookie:   true,
		},
		{
			name:         "メール未認証ユーザーは/roleへ",
			query:        "?code=auth-code",
			result:       &auth.CallbackResult{RefreshToken: "refresh-jwt", EmailVerified: false},
			wantLocation: "https://gachitda.app/role",
			wantCookie:   true,
		},
		{
			name:         "codeなしはルートへ",
			query:        "",
			wantLocation: "https://gachitda.app/",
		},
		{
			name:         "交換失敗はルートへ",
			query:        "?code=bad-code",
			serviceErr:   errors.New("exchange failed"),
			wantLocation: "https://gachitda.app/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				handleCallbackFunc: func(ctx context.Context, code string) (*auth.CallbackResult, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return tt.result, nil
				},
			}
			h := NewAuthHandler(svc, &mockVerificationService{}, testAuthConfig())

			req := httptest.NewRequest(http.MethodGet, "/api/auth/kakao/callback"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.KakaoCallback(rec, req)

			if rec.Code != http.StatusFound {
				t.Errorf("status = %d, want 302", rec.Code)
			}
			if got := rec.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}

			cookie := findCookie(t, rec, refreshTokenCookie)
			if tt.wantCookie {
				if cookie == nil {
					t.Fatal("refreshtoken cookie must be set")
				}
				if cookie.Value != "refresh-jwt" {
					t.Errorf("cookie value = %q, want refresh-jwt", cookie.Value)
				}
				if !cookie.HttpOnly {
					t.Error("cookie must be HttpOnly")
				}
				if !cookie.Secure {
					t.Error("cookie must be Secure")
				}
				if cookie.SameSite != http.SameSiteNoneMode {
					t.Errorf("cookie SameSite = %v, want None", cookie.SameSite)
				}
			} else if cookie != nil {
				t.Error("refreshtoken cookie must not be set on failure")
			}
		})
	}
}

func TestAccessToken(t *testing.T) {
	tests := []struct {
		name       string
		cookie     *http.Cookie
		token      string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "有効なリフレッシュトークン",
			cookie:     &http.Cookie{Name: refreshTokenCookie, Value: "refresh-jwt"},
			token:      "access-jwt",
			wantStatus: http.StatusOK,
		},
		{
			name:       "Cookieなし",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "NO_REFRESH_TOKEN",
		},
		{
			name:       "無効なリフレッシュトークン",
			cookie:     &http.Cookie{Name: refreshTokenCookie, Value: "tampered"},
			serviceErr: model.ErrInvalidRefreshToken,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_REFRESH_TOKEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				refreshFunc: func(ctx context.Context, refreshToken string) (string, error) {
					if tt.serviceErr != nil {
						return "", tt.serviceErr
					}
					return tt.token, nil
				},
			}
			h := NewAuthHandler(svc, &mockVerificationService{}, testAuthConfig())

			req := httptest.NewRequest(http.MethodGet, "/api/auth/access-token", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()
			h.AccessToken(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if got := decodeError(t, rec); got != tt.wantCode {
					t.Errorf("error = %q, want %q", got, tt.wantCode)
				}
				return
			}

			var body struct {
				Token string `json:"token"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Token != "access-jwt" {
				t.Errorf("token = %q, want access-jwt", body.Token)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockVerificationService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	cookie := findCookie(t, rec, refreshTokenCookie)
	if cookie == nil {
		t.Fatal("refreshtoken cookie must be cleared")
	}
	if cookie.MaxAge != -1 {
		t.Errorf("cookie MaxAge = %d, want -1", cookie.MaxAge)
	}
}

func TestSendEmail(t *testing.T) {
	user := &model.User{ID: "user-1"}

	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "正常に送信",
			body:       `{"email":"student@snu.ac.kr"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "emailフィールドなし",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "不正なJSON",
			body:       `not json`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "許可されていないドメイン",
			body:       `{"email":"x@gmail.com"}`,
			serviceErr: model.ErrInvalidEmail,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_EMAIL",
		},
		{
			name:       "メール送信失敗",
			body:       `{"email":"student@snu.ac.kr"}`,
			serviceErr: model.ErrEmailSendFailed,
			wantStatus: http.StatusInternalServerError,
			wantCode:   "EMAIL_SEND_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verification := &mockVerificationService{
				requestCodeFunc: func(ctx context.Context, user *model.User, email string) error {
					return tt.serviceErr
				},
			}
			h := NewAuthHandler(&mockAuthService{}, verification, testAuthConfig())

			req := httptest.NewRequest(http.MethodPost, "/api/auth/email", strings.NewReader(tt.body))
			req = req.WithContext(middleware.ContextWithUser(req.Context(), user))
			rec := httptest.NewRecorder()
			h.SendEmail(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if got := decodeError(t, rec); got != tt.wantCode {
					t.Errorf("error = %q, want %q", got, tt.wantCode)
				}
			}
		})
	}
}

func TestVerifyEmail(t *testing.T) {
	user := &model.User{ID: "user-1"}

	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "正常に検証",
			body:       `{"code":"1234"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "codeフィールドなし",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "保留コードなし",
			body:       `{"code":"1234"}`,
			serviceErr: model.ErrNoVerificationPending,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "NO_VERIFICATION_PENDING",
		},
		{
			name:       "期限切れ",
			body:       `{"code":"1234"}`,
			serviceErr: model.ErrCodeExpired,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "CODE_EXPIRED",
		},
		{
			name:       "コード不一致",
			body:       `{"code":"9999"}`,
			serviceErr: model.ErrInvalidCode,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_CODE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verification := &mockVerificationService{
				verifyCodeFunc: func(ctx context.Context, user *model.User, code string) error {
					return tt.serviceErr
				},
			}
			h := NewAuthHandler(&mockAuthService{}, verification, testAuthConfig())

			req := httptest.NewRequest(http.MethodPost, "/api/auth/email/verify", strings.NewReader(tt.body))
			req = req.WithContext(middleware.ContextWithUser(req.Context(), user))
			rec := httptest.NewRecorder()
			h.VerifyEmail(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if got := decodeError(t, rec); got != tt.wantCode {
					t.Errorf("error = %q, want %q", got, tt.wantCode)
				}
			}
		})
	}
}
