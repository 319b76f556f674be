package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gachitda/gachitda/internal/middleware"
	"github.com/gachitda/gachitda/internal/model"
)

// NotificationServiceInterface は通知ハンドラーが必要とするサービスインターフェース。
type NotificationServiceInterface interface {
	Subscribe(ctx context.Context, user *model.User, subscription json.RawMessage) error
	SendPush(ctx context.Context, user *model.User, body string) error
}

// NotificationHandler はプッシュ通知のHTTPハンドラー。
type NotificationHandler struct {
	service NotificationServiceInterface
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(service NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// subscriptionRequest は購読登録リクエストのボディ。
// subscriptionの中身はプッシュトランスポートへそのまま渡す不透明なJSON。
type subscriptionRequest struct {
	Subscription json.RawMessage `json:"subscription"`
}

// Subscription はプッシュ購読情報を登録する。
// POST /api/noti/subscription
func (h *NotificationHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, model.ErrInvalidAccessToken)
		return
	}

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Subscription) == 0 {
		middleware.WriteErrorResponse(w, model.ErrInvalidSubscription)
		return
	}

	if err := h.service.Subscribe(r.Context(), user, req.Subscription); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// sendPushRequest はプッシュ送信リクエストのボディ。
type sendPushRequest struct {
	Text string `json:"text"`
}

// SendPush は自分の購読先へ通知を送信する。
// POST /api/noti/sendpush
func (h *NotificationHandler) SendPush(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, model.ErrInvalidAccessToken)
		return
	}

	var req sendPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, model.ErrInvalidRequest)
		return
	}

	if err := h.service.SendPush(r.Context(), user, req.Text); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
