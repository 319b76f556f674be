package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gachitda/gachitda/internal/metrics"
	"github.com/gachitda/gachitda/internal/model"
	"github.com/gachitda/gachitda/internal/repository"
	"github.com/google/uuid"
)

// TokenIssuer は認証サービスが必要とするトークン操作のインターフェース。
// token.Serviceの部分集合として定義する。
type TokenIssuer interface {
	IssueRefresh(providerID string) (string, error)
	IssueAccess(providerID string) (string, error)
	VerifyRefresh(tokenString string) (string, error)
}

// CallbackResult はOAuthコールバック処理の結果。
type CallbackResult struct {
	RefreshToken  string
	EmailVerified bool // リダイレクト先の決定に使用する
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth     OAuthProvider
	users     repository.UserRepository
	tokens    TokenIssuer
	collector metrics.Collector
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, users repository.UserRepository, tokens TokenIssuer, collector metrics.Collector) *Service {
	return &Service{
		oauth:     oauth,
		users:     users,
		tokens:    tokens,
		collector: collector,
	}
}

// HandleCallback はKakao OAuthコールバックを処理し、リフレッシュトークンを発行する。
// providerIDでユーザーをupsertする: 未登録ならemail_verified=false, role未設定で作成し、
// 登録済みなら既存レコードを変更せずそのまま使う。
// 何度ログインしてもproviderIDごとにユーザーは1人しか作られない。
func (s *Service) HandleCallback(ctx context.Context, code string) (*CallbackResult, error) {
	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	// プロフィール取得まで成功しなければユーザーの作成・変更は一切行わない
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		s.collector.RecordLogin(false)
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. providerIDで既存ユーザーを検索
	user, err := s.users.FindByProviderID(ctx, userInfo.ProviderID)
	if err != nil {
		s.collector.RecordLogin(false)
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		// 3. 新規ユーザーを作成
		now := time.Now()
		user = &model.User{
			ID:            uuid.New().String(),
			ProviderID:    userInfo.ProviderID,
			Nickname:      userInfo.Nickname,
			ProfileImage:  userInfo.ProfileImage,
			KakaoEmail:    userInfo.Email,
			EmailVerified: false,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			s.collector.RecordLogin(false)
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		slog.Info("new user created",
			slog.String("user_id", user.ID),
			slog.String("provider_id", user.ProviderID),
		)
	} else {
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
			slog.String("provider_id", user.ProviderID),
		)
	}

	// 4. リフレッシュトークンを発行
	refreshToken, err := s.tokens.IssueRefresh(user.ProviderID)
	if err != nil {
		s.collector.RecordLogin(false)
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	s.collector.RecordLogin(true)
	return &CallbackResult{
		RefreshToken:  refreshToken,
		EmailVerified: user.EmailVerified,
	}, nil
}

// RefreshAccessToken はリフレッシュトークンを検証し、新しいアクセストークンを発行する。
// 検証失敗とユーザー解決失敗はどちらもINVALID_REFRESH_TOKENとして返す。
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	providerID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", model.ErrInvalidRefreshToken
	}

	user, err := s.users.FindByProviderID(ctx, providerID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", model.ErrInvalidRefreshToken
	}

	accessToken, err := s.tokens.IssueAccess(user.ProviderID)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	return accessToken, nil
}
