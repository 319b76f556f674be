// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gachitda/gachitda/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// AccessTokenVerifier はアクセストークンの検証に必要なインターフェース。
// token.Serviceの部分集合として定義する。
type AccessTokenVerifier interface {
	VerifyAccess(tokenString string) (string, error)
}

// UserFinder はプロバイダーIDによるユーザー検索に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByProviderID(ctx context.Context, providerID string) (*model.User, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerアクセストークンを検証し、
// 認証済みユーザーをリクエストコンテキストに注入するミドルウェアを返す。
// ヘッダー欠落、形式不正、トークン無効はそれぞれ別のエラーコードで401を返す。
func NewAuthMiddleware(tokens AccessTokenVerifier, users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				WriteErrorResponse(w, model.ErrMissingAuthorizationHeader)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				WriteErrorResponse(w, model.ErrInvalidAuthorizationFormat)
				return
			}

			providerID, err := tokens.VerifyAccess(parts[1])
			if err != nil {
				WriteErrorResponse(w, model.ErrInvalidAccessToken)
				return
			}

			user, err := users.FindByProviderID(r.Context(), providerID)
			if err != nil {
				slog.Error("failed to find user for access token",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if user == nil {
				// トークン自体は正規でも対象ユーザーが消えていれば無効扱い
				WriteErrorResponse(w, model.ErrInvalidAccessToken)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not found in context")
	}
	return user, nil
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
