// Package token は2系統の署名付きベアラークレームの発行と検証を提供する。
//
// リフレッシュトークン（長寿命・HTTP Only Cookieで保持）と
// アクセストークン（短寿命・Authorizationヘッダーで提示）は
// それぞれ独立したHMACシークレットで署名される。
// サーバー側に失効リストは持たず、署名と有効期限のみを正とする。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken は検証に失敗したトークンを表す。
// 署名不正・ペイロード不正・期限切れのいずれであっても
// 呼び出し側には区別を見せない。
var ErrInvalidToken = errors.New("invalid token")

// Config はトークンサービスの設定。
type Config struct {
	RefreshSecret []byte
	AccessSecret  []byte
	RefreshTTL    time.Duration
	AccessTTL     time.Duration
}

// Service はリフレッシュ／アクセストークンの発行と検証を行う。
type Service struct {
	config Config
}

// NewService はServiceを生成する。
func NewService(config Config) *Service {
	return &Service{config: config}
}

// claims はトークンに格納するクレーム。SubjectにproviderIDのみを持つ。
type claims struct {
	jwt.RegisteredClaims
}

// IssueRefresh はproviderIDに対するリフレッシュトークンを発行する。
func (s *Service) IssueRefresh(providerID string) (string, error) {
	return s.issue(providerID, s.config.RefreshSecret, s.config.RefreshTTL)
}

// IssueAccess はproviderIDに対するアクセストークンを発行する。
func (s *Service) IssueAccess(providerID string) (string, error) {
	return s.issue(providerID, s.config.AccessSecret, s.config.AccessTTL)
}

// VerifyRefresh はリフレッシュトークンを検証し、providerIDを返す。
func (s *Service) VerifyRefresh(tokenString string) (string, error) {
	return s.verify(tokenString, s.config.RefreshSecret)
}

// VerifyAccess はアクセストークンを検証し、providerIDを返す。
func (s *Service) VerifyAccess(tokenString string) (string, error) {
	return s.verify(tokenString, s.config.AccessSecret)
}

func (s *Service) issue(providerID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   providerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString(secret)
}

func (s *Service) verify(tokenString string, secret []byte) (string, error) {
	t, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !t.Valid {
		return "", ErrInvalidToken
	}

	c, ok := t.Claims.(*claims)
	if !ok || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}
