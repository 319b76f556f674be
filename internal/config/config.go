// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 起動時に環境変数から1回読み込み、イミュータブルとして扱う。
// 署名シークレット等はここからコンストラクタへ明示的に渡し、
// 各コンポーネントが環境変数を直接参照することはない。
type Config struct {
	// Database
	DatabaseURL string

	// Kakao OAuth
	KakaoRESTAPIKey  string
	KakaoRedirectURI string

	// Token
	RefreshTokenSecret string
	AccessTokenSecret  string
	RefreshTokenTTL    time.Duration
	AccessTokenTTL     time.Duration

	// Email verification
	CodeLength           int
	CodeTTL              time.Duration
	AllowedEmailSuffixes []string

	// SMTP（未設定の場合はログ出力のみのセンダーを使用する）
	SMTPAddr     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	// Rate Limit（req/min/user）
	RateLimitGeneral   int
	RateLimitEmailSend int

	// Server
	ServerPort string
	ClientURL  string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.KakaoRESTAPIKey = os.Getenv("KAKAO_REST_API_KEY")
	if cfg.KakaoRESTAPIKey == "" {
		missing = append(missing, "KAKAO_REST_API_KEY")
	}

	cfg.KakaoRedirectURI = os.Getenv("KAKAO_REDIRECT_URI")
	if cfg.KakaoRedirectURI == "" {
		missing = append(missing, "KAKAO_REDIRECT_URI")
	}

	cfg.RefreshTokenSecret = os.Getenv("REFRESH_TOKEN_SECRET")
	if cfg.RefreshTokenSecret == "" {
		missing = append(missing, "REFRESH_TOKEN_SECRET")
	}

	cfg.AccessTokenSecret = os.Getenv("ACCESS_TOKEN_SECRET")
	if cfg.AccessTokenSecret == "" {
		missing = append(missing, "ACCESS_TOKEN_SECRET")
	}

	cfg.ClientURL = os.Getenv("CLIENT_URL")
	if cfg.ClientURL == "" {
		missing = append(missing, "CLIENT_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// リフレッシュとアクセスで同一シークレットを使うと
	// トークンクラスの区別が崩れるため起動時に拒否する
	if cfg.RefreshTokenSecret == cfg.AccessTokenSecret {
		return nil, fmt.Errorf("REFRESH_TOKEN_SECRET and ACCESS_TOKEN_SECRET must differ")
	}

	// Optional fields with defaults
	cfg.RefreshTokenTTL = getEnvDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour)
	cfg.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", time.Hour)
	cfg.CodeLength = getEnvInt("VERIFICATION_CODE_LENGTH", 4)
	cfg.CodeTTL = getEnvDuration("VERIFICATION_CODE_TTL", 5*time.Minute)
	cfg.AllowedEmailSuffixes = splitAndTrim(getEnvString("EMAIL_ALLOWED_SUFFIXES", ".ac.kr,.edu"))
	cfg.SMTPAddr = os.Getenv("SMTP_ADDR")
	cfg.SMTPFrom = os.Getenv("SMTP_FROM")
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitEmailSend = getEnvInt("RATE_LIMIT_EMAIL_SEND", 5)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.ClientURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
