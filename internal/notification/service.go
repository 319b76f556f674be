// Package notification はプッシュ通知の購読登録と送信を提供する。
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gachitda/gachitda/internal/model"
	"github.com/gachitda/gachitda/internal/repository"
	"github.com/gachitda/gachitda/internal/security"
)

// PushSender はプッシュ通知配送トランスポートのインターフェース。
// 実際の配送プロトコルはスコープ外であり、このコントラクトのみを消費する。
type PushSender interface {
	// Send は購読情報に対してペイロードを配送する。
	Send(ctx context.Context, subscription json.RawMessage, payload []byte) error
}

// LogSender は配送の代わりにログへ書き出すPushSender実装。
type LogSender struct{}

// Send はペイロードをログに出力する。
func (LogSender) Send(ctx context.Context, subscription json.RawMessage, payload []byte) error {
	slog.Info("push notification", slog.String("payload", string(payload)))
	return nil
}

// pushPayload はクライアントへ配送する通知の本体。
type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// pushTitle は通知の固定タイトル。
const pushTitle = "알림"

// subscriptionEnvelope は購読JSONから検証対象のエンドポイントを取り出すための構造体。
type subscriptionEnvelope struct {
	Endpoint string `json:"endpoint"`
}

// Service はプッシュ通知のビジネスロジックを提供する。
type Service struct {
	users  repository.UserRepository
	guard  security.EndpointGuardService
	sender PushSender
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, guard security.EndpointGuardService, sender PushSender) *Service {
	return &Service{
		users:  users,
		guard:  guard,
		sender: sender,
	}
}

// Subscribe は購読情報を検証して保存する。
// 購読JSONはendpointフィールドを持つ必要があり、エンドポイントURLは
// SSRF防止の検証を通過しなければならない。
func (s *Service) Subscribe(ctx context.Context, user *model.User, subscription json.RawMessage) error {
	var envelope subscriptionEnvelope
	if err := json.Unmarshal(subscription, &envelope); err != nil {
		return model.ErrInvalidSubscription
	}
	if envelope.Endpoint == "" {
		return model.ErrInvalidSubscription
	}

	if err := s.guard.ValidateEndpoint(envelope.Endpoint); err != nil {
		slog.Warn("rejected push endpoint",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return model.ErrInvalidSubscription
	}

	if err := s.users.SetPushSubscription(ctx, user.ID, subscription); err != nil {
		return fmt.Errorf("failed to store subscription: %w", err)
	}

	slog.Info("push subscription registered", slog.String("user_id", user.ID))
	return nil
}

// SendPush はユーザーの購読先へ通知を送信する。
// 購読が未登録の場合や配送に失敗した場合もエラーにせず、ログだけを残す。
// 通知はベストエフォートであり、呼び出し元のリクエストを失敗させてはならない。
func (s *Service) SendPush(ctx context.Context, user *model.User, body string) error {
	if len(user.PushSubscription) == 0 {
		slog.Info("push skipped, no subscription", slog.String("user_id", user.ID))
		return nil
	}

	payload, err := json.Marshal(pushPayload{Title: pushTitle, Body: body})
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	if err := s.sender.Send(ctx, user.PushSubscription, payload); err != nil {
		slog.Error("push delivery failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	slog.Info("push delivered", slog.String("user_id", user.ID))
	return nil
}
