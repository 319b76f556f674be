package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gachitda/gachitda/internal/middleware"
	"github.com/gachitda/gachitda/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	FindByID(ctx context.Context, userID string) (*model.User, error)
	SetRole(ctx context.Context, user *model.User, role string) error
}

// UserHandler はユーザープロフィールとロール設定のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// myInfoResponse は自分のプロフィールのレスポンス。
type myInfoResponse struct {
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profileimage"`
	KakaoMail    string `json:"kakaomail"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Subscription bool   `json:"subscription"`
}

// MyInfo は自分のプロフィールを返す。
// GET /api/user
func (h *UserHandler) MyInfo(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, model.ErrInvalidAccessToken)
		return
	}

	writeJSON(w, http.StatusOK, myInfoResponse{
		Nickname:     user.Nickname,
		ProfileImage: user.ProfileImage,
		KakaoMail:    user.KakaoEmail,
		Email:        user.Email,
		Role:         user.Role,
		Subscription: len(user.PushSubscription) > 0,
	})
}

// userDataResponse は公開プロフィールのレスポンス。
type userDataResponse struct {
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profileimage"`
	KakaoMail    string `json:"kakaomail"`
	Email        string `json:"email"`
}

// UserData は指定ユーザーの公開プロフィールを返す。
// GET /api/user/{userId}
func (h *UserHandler) UserData(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	user, err := h.service.FindByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userDataResponse{
		Nickname:     user.Nickname,
		ProfileImage: user.ProfileImage,
		KakaoMail:    user.KakaoEmail,
		Email:        user.Email,
	})
}

// myRoleRequest はロール設定リクエストのボディ。
type myRoleRequest struct {
	Role string `json:"role"`
}

// MyRole は自分のロールを設定する。
// POST /api/role
func (h *UserHandler) MyRole(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, model.ErrInvalidAccessToken)
		return
	}

	var req myRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, model.ErrInvalidRole)
		return
	}

	if err := h.service.SetRole(r.Context(), user, req.Role); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
