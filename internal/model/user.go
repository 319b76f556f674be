// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"time"
)

// User はサービス利用ユーザーを表す。
// Kakaoログインの初回成功時に作成され、以降providerIDで同一ユーザーに解決される。
type User struct {
	ID           string
	ProviderID   string // Kakaoが発行する不変の外部ID
	Nickname     string
	ProfileImage string
	KakaoEmail   string

	// 学校メール認証の状態。PendingCodeとCodeExpiresAtは
	// 必ず両方nilか両方非nilのどちらかになる。
	Email         string
	EmailVerified bool
	PendingCode   *string
	CodeExpiresAt *time.Time

	Role             string // "learner" | "giver"、オンボーディングで1回設定
	PushSubscription json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPendingCode は有効期限付き認証コードが発行済みかどうかを返す。
func (u *User) HasPendingCode() bool {
	return u.PendingCode != nil && u.CodeExpiresAt != nil
}
