package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newKakaoUserPayload(id int64, nickname, image, email string) map[string]interface{} {
	return map[string]interface{}{
		"id": id,
		"kakao_account": map[string]interface{}{
			"email": email,
			"profile": map[string]interface{}{
				"nickname":          nickname,
				"profile_image_url": image,
			},
		},
	}
}

func TestKakaoOAuthProvider_ExchangeCode_Success(t *testing.T) {
	// テスト用のHTTPサーバーを立てる
	// Kakao Token Endpoint
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token request method = %q, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q, want authorization_code", got)
		}
		if got := r.PostForm.Get("client_id"); got != "test-rest-api-key" {
			t.Errorf("client_id = %q, want test-rest-api-key", got)
		}
		if got := r.PostForm.Get("code"); got != "test-auth-code" {
			t.Errorf("code = %q, want test-auth-code", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-access-token",
			"token_type":   "bearer",
			"expires_in":   21599,
		})
	}))
	defer tokenServer.Close()

	// Kakao UserInfo Endpoint
	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "Bearer test-access-token" {
			t.Errorf("unexpected Authorization header: %q", authHeader)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(newKakaoUserPayload(
			12345, "nick", "https://example.com/p.png", "nick@kakao.com",
		))
	}))
	defer userInfoServer.Close()

	provider := NewKakaoOAuthProvider(KakaoOAuthConfig{
		RESTAPIKey:  "test-rest-api-key",
		RedirectURI: "http://localhost:8080/api/auth/kakao/callback",
		TokenURL:    tokenServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	ctx := context.Background()
	userInfo, err := provider.ExchangeCode(ctx, "test-auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}

	if userInfo.ProviderID != "12345" {
		t.Errorf("ProviderID = %q, want %q", userInfo.ProviderID, "12345")
	}
	if userInfo.Nickname != "nick" {
		t.Errorf("Nickname = %q, want %q", userInfo.Nickname, "nick")
	}
	if userInfo.ProfileImage != "https://example.com/p.png" {
		t.Errorf("ProfileImage = %q, want %q", userInfo.ProfileImage, "https://example.com/p.png")
	}
	if userInfo.Email != "nick@kakao.com" {
		t.Errorf("Email = %q, want %q", userInfo.Email, "nick@kakao.com")
	}
}

func TestKakaoOAuthProvider_ExchangeCode_TokenEndpointError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer tokenServer.Close()

	provider := NewKakaoOAuthProvider(KakaoOAuthConfig{
		RESTAPIKey: "test-rest-api-key",
		TokenURL:   tokenServer.URL,
	})

	_, err := provider.ExchangeCode(context.Background(), "expired-code")
	if err == nil {
		t.Fatal("expected error for token endpoint failure")
	}
}

func TestKakaoOAuthProvider_ExchangeCode_EmptyAccessToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token_type":"bearer"}`))
	}))
	defer tokenServer.Close()

	provider := NewKakaoOAuthProvider(KakaoOAuthConfig{
		RESTAPIKey: "test-rest-api-key",
		TokenURL:   tokenServer.URL,
	})

	_, err := provider.ExchangeCode(context.Background(), "test-auth-code")
	if err == nil {
		t.Fatal("expected error for empty access token")
	}
}

func TestKakaoOAuthProvider_ExchangeCode_UserInfoError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-access-token",
		})
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer userInfoServer.Close()

	provider := NewKakaoOAuthProvider(KakaoOAuthConfig{
		RESTAPIKey:  "test-rest-api-key",
		TokenURL:    tokenServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	_, err := provider.ExchangeCode(context.Background(), "test-auth-code")
	if err == nil {
		t.Fatal("expected error for user info endpoint failure")
	}
}

func TestKakaoOAuthProvider_ExchangeCode_MissingUserID(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-access-token",
		})
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer userInfoServer.Close()

	provider := NewKakaoOAuthProvider(KakaoOAuthConfig{
		RESTAPIKey:  "test-rest-api-key",
		TokenURL:    tokenServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	_, err := provider.ExchangeCode(context.Background(), "test-auth-code")
	if err == nil {
		t.Fatal("expected error for missing user id")
	}
}

func TestNewKakaoOAuthProvider_DefaultsURLs(t *testing.T) {
	provider := NewKakaoOAuthProvider(KakaoOAuthConfig{
		RESTAPIKey: "test-rest-api-key",
	})

	if provider.config.TokenURL != defaultKakaoTokenURL {
		t.Errorf("TokenURL = %q, want %q", provider.config.TokenURL, defaultKakaoTokenURL)
	}
	if provider.config.UserInfoURL != defaultKakaoUserInfoURL {
		t.Errorf("UserInfoURL = %q, want %q", provider.config.UserInfoURL, defaultKakaoUserInfoURL)
	}
}
