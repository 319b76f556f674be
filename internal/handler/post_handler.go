package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gachitda/gachitda/internal/middleware"
	"github.com/gachitda/gachitda/internal/model"
	"github.com/gachitda/gachitda/internal/post"
	"github.com/gachitda/gachitda/internal/repository"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	Create(ctx context.Context, writer *model.User, input post.CreateInput) (*model.Post, error)
	ListAll(ctx context.Context) ([]repository.PostWithApplicantCount, error)
	Detail(ctx context.Context, postID string) (*post.Detail, error)
	Apply(ctx context.Context, user *model.User, postID string) error
	Match(ctx context.Context, postID string, userIDs []string) error
	ListMine(ctx context.Context, userID string) (*post.MyPosts, error)
}

// PostHandler は投稿・応募・マッチのHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

// newPostRequest は投稿作成リクエストのボディ。
// Descriptionフィールドの大文字始まりはクライアントとの既存契約。
type newPostRequest struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"Description"`
	Address     string `json:"address"`
	TeachAt     string `json:"teachAt"`
}

// NewPost は投稿を作成する。
// POST /api/post
func (h *PostHandler) NewPost(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, model.ErrInvalidAccessToken)
		return
	}

	var req newPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, model.ErrInvalidRequest)
		return
	}

	created, err := h.service.Create(r.Context(), user, post.CreateInput{
		Category:    req.Category,
		Title:       req.Title,
		Subtitle:    req.Subtitle,
		Description: req.Description,
		Address:     req.Address,
		TeachAt:     req.TeachAt,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"postId": created.ID})
}

// postSummaryResponse は投稿一覧の1エントリ。
type postSummaryResponse struct {
	PostID         string    `json:"postId"`
	WriterID       string    `json:"writerId"`
	Category       string    `json:"category"`
	Title          string    `json:"title"`
	Subtitle       string    `json:"subtitle"`
	AppliedTalents int       `json:"appliedTalents"`
	Address        string    `json:"address"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	TeachAt        time.Time `json:"teachAt"`
}

// AllPosts は全投稿の一覧を返す。
// GET /api/posts
func (h *PostHandler) AllPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	summaries := make([]postSummaryResponse, 0, len(posts))
	for _, p := range posts {
		summaries = append(summaries, postSummaryResponse{
			PostID:         p.ID,
			WriterID:       p.WriterID,
			Category:       p.Category,
			Title:          p.Title,
			Subtitle:       p.Subtitle,
			AppliedTalents: p.ApplicantCount,
			Address:        p.Address,
			Status:         p.Status,
			CreatedAt:      p.CreatedAt,
			TeachAt:        p.TeachAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"posts": summaries})
}

// talentEntryResponse は応募・マッチ済みユーザーの表示情報。
type talentEntryResponse struct {
	UserID       string `json:"userId"`
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profileimage"`
	Email        string `json:"email"`
}

// postDetailResponse は投稿詳細のレスポンス。
type postDetailResponse struct {
	WriterName         string                `json:"writerName"`
	WriterProfileImage string                `json:"writerprofileimage"`
	WriterEmail        string                `json:"writerEmail"`
	AppliedTalents     []talentEntryResponse `json:"appliedTalents"`
	MatchedTalents     []talentEntryResponse `json:"matchedTalents"`
	Category           string                `json:"category"`
	Title              string                `json:"title"`
	Subtitle           string                `json:"subtitle"`
	Description        string                `json:"Description"`
	Address            string                `json:"address"`
	Status             string                `json:"status"`
	CreatedAt          time.Time             `json:"createdAt"`
	TeachAt            time.Time             `json:"teachAt"`
}

// toTalentEntries はユーザーの表示情報リストへ変換する。
func toTalentEntries(users []*model.User) []talentEntryResponse {
	entries := make([]talentEntryResponse, 0, len(users))
	for _, u := range users {
		entries = append(entries, talentEntryResponse{
			UserID:       u.ID,
			Nickname:     u.Nickname,
			ProfileImage: u.ProfileImage,
			Email:        u.Email,
		})
	}
	return entries
}

// ThisPost は投稿詳細を返す。
// GET /api/post/{postId}
func (h *PostHandler) ThisPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")

	detail, err := h.service.Detail(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := postDetailResponse{
		AppliedTalents: toTalentEntries(detail.Applicants),
		MatchedTalents: toTalentEntries(detail.Matched),
		Category:       detail.Post.Category,
		Title:          detail.Post.Title,
		Subtitle:       detail.Post.Subtitle,
		Description:    detail.Post.Description,
		Address:        detail.Post.Address,
		Status:         detail.Post.Status,
		CreatedAt:      detail.Post.CreatedAt,
		TeachAt:        detail.Post.TeachAt,
	}
	if detail.Writer != nil {
		resp.WriterName = detail.Writer.Nickname
		resp.WriterProfileImage = detail.Writer.ProfileImage
		resp.WriterEmail = detail.Writer.Email
	}

	writeJSON(w, http.StatusOK, resp)
}

// ApplyPost は投稿への応募を処理する。
// POST /api/post/{postId}/apply
func (h *PostHandler) ApplyPost(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, model.ErrInvalidAccessToken)
		return
	}

	postID := chi.URLParam(r, "postId")
	if err := h.service.Apply(r.Context(), user, postID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// matchEntryRequest はマッチリクエストの1エントリ。
type matchEntryRequest struct {
	UserID string `json:"userId"`
}

// matchFailedResponse はマッチ失敗時のレスポンス。
// 前提条件を満たさなかったユーザーIDの一覧を含む。
type matchFailedResponse struct {
	Error         string   `json:"error"`
	FailedUserIDs []string `json:"failedUserIds"`
}

// MatchPost は応募者の一括マッチを処理する。
// POST /api/post/{postId}/match
//
// 一括処理はall-or-nothingで実行する。1人でも前提条件を満たさない場合は
// 何も書き込まず、該当ユーザーIDの一覧を400で返す。
func (h *PostHandler) MatchPost(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserFromContext(r.Context()); err != nil {
		middleware.WriteErrorResponse(w, model.ErrInvalidAccessToken)
		return
	}

	var entries []matchEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		middleware.WriteErrorResponse(w, model.ErrInvalidRequest)
		return
	}

	userIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		userIDs = append(userIDs, entry.UserID)
	}

	postID := chi.URLParam(r, "postId")
	if err := h.service.Match(r.Context(), postID, userIDs); err != nil {
		var matchErr *post.MatchFailedError
		if errors.As(err, &matchErr) {
			writeJSON(w, http.StatusBadRequest, matchFailedResponse{
				Error:         model.ErrInvalidUserID.Code,
				FailedUserIDs: matchErr.FailedUserIDs,
			})
			return
		}
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// writtenPostResponse は自分が作成した投稿の1エントリ。
type writtenPostResponse struct {
	PostID         string    `json:"postId"`
	Category       string    `json:"category"`
	Title          string    `json:"title"`
	Subtitle       string    `json:"subtitle"`
	AppliedTalents int       `json:"appliedTalents"`
	Address        string    `json:"address"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	TeachAt        time.Time `json:"teachAt"`
}

// appliedPostResponse は自分が応募した投稿の1エントリ。
type appliedPostResponse struct {
	PostID             string    `json:"postId"`
	WriterName         string    `json:"writerName"`
	WriterProfileImage string    `json:"writerprofileimage"`
	WriterEmail        string    `json:"writerEmail"`
	Category           string    `json:"category"`
	Title              string    `json:"title"`
	Subtitle           string    `json:"subtitle"`
	Address            string    `json:"address"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
	TeachAt            time.Time `json:"teachAt"`
}

// MyPosts は自分が作成・応募した投稿の一覧を返す。
// GET /api/posts/my
func (h *PostHandler) MyPosts(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, model.ErrInvalidAccessToken)
		return
	}

	mine, err := h.service.ListMine(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	written := make([]writtenPostResponse, 0, len(mine.Written))
	for _, p := range mine.Written {
		written = append(written, writtenPostResponse{
			PostID:         p.ID,
			Category:       p.Category,
			Title:          p.Title,
			Subtitle:       p.Subtitle,
			AppliedTalents: p.ApplicantCount,
			Address:        p.Address,
			Status:         p.Status,
			CreatedAt:      p.CreatedAt,
			TeachAt:        p.TeachAt,
		})
	}

	applied := make([]appliedPostResponse, 0, len(mine.Applied))
	for _, p := range mine.Applied {
		applied = append(applied, appliedPostResponse{
			PostID:             p.ID,
			WriterName:         p.WriterNickname,
			WriterProfileImage: p.WriterProfileImage,
			WriterEmail:        p.WriterEmail,
			Category:           p.Category,
			Title:              p.Title,
			Subtitle:           p.Subtitle,
			Address:            p.Address,
			Status:             p.Status,
			CreatedAt:          p.CreatedAt,
			TeachAt:            p.TeachAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"writtenPosts": written,
		"appliedPosts": applied,
	})
}
