package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gachitda/gachitda/internal/middleware"
	"github.com/gachitda/gachitda/internal/model"
	"github.com/gachitda/gachitda/internal/post"
	"github.com/gachitda/gachitda/internal/repository"
)

// mockPostService はテスト用のPostServiceInterfaceモック
type mockPostService struct {
	createFunc   func(ctx context.Context, writer *model.User, input post.CreateInput) (*model.Post, error)
	listAllFunc  func(ctx context.Context) ([]repository.PostWithApplicantCount, error)
	detailFunc   func(ctx context.Context, postID string) (*post.Detail, error)
	applyFunc    func(ctx context.Context, user *model.User, postID string) error
	matchFunc    func(ctx context.Context, postID string, userIDs []string) error
	listMineFunc func(ctx context.Context, userID string) (*post.MyPosts, error)
}

func (m *mockPostService) Create(ctx context.Context, writer *model.User, input post.CreateInput) (*model.Post, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, writer, input)
	}
	return &model.Post{ID: "post-1"}, nil
}

func (m *mockPostService) ListAll(ctx context.Context) ([]repository.PostWithApplicantCount, error) {
	if m.listAllFunc != nil {
		return m.listAllFunc(ctx)
	}
	return nil, nil
}

func (m *mockPostService) Detail(ctx context.Context, postID string) (*post.Detail, error) {
	if m.detailFunc != nil {
		return m.detailFunc(ctx, postID)
	}
	return nil, model.ErrInvalidPostID
}

func (m *mockPostService) Apply(ctx context.Context, user *model.User, postID string) error {
	if m.applyFunc != nil {
		return m.applyFunc(ctx, user, postID)
	}
	return nil
}

func (m *mockPostService) Match(ctx context.Context, postID string, userIDs []string) error {
	if m.matchFunc != nil {
		return m.matchFunc(ctx, postID, userIDs)
	}
	return nil
}

func (m *mockPostService) ListMine(ctx context.Context, userID string) (*post.MyPosts, error) {
	if m.listMineFunc != nil {
		return m.listMineFunc(ctx, userID)
	}
	return &post.MyPosts{}, nil
}

// newChiRequest はURLパラメータ付きのリクエストを作る
func newChiRequest(method, target, body string, params map[string]string, user *model.User) *http.Request {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if user != nil {
		ctx = middleware.ContextWithUser(ctx, user)
	}
	return req.WithContext(ctx)
}

func TestNewPost(t *testing.T) {
	user := &model.User{ID: "writer-1"}
	validBody := `{"category":"music","title":"ギター入門","subtitle":"コードから","Description":"基本を練習","address":"서울","teachAt":"2025-07-01"}`

	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "正常に作成",
			body:       validBody,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "不正なJSON",
			body:       `not json`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "必須フィールド欠落",
			body:       `{"title":"ギター入門"}`,
			serviceErr: model.ErrMissingRequiredFields,
			wantStatus: http.StatusBadRequest,
			wantCode:   "MISSING_REQUIRED_FIELDS",
		},
		{
			name:       "日付形式不正",
			body:       validBody,
			serviceErr: model.ErrInvalidDateFormat,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_DATE_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotInput post.CreateInput
			svc := &mockPostService{
				createFunc: func(ctx context.Context, writer *model.User, input post.CreateInput) (*model.Post, error) {
					gotInput = input
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return &model.Post{ID: "post-1"}, nil
				},
			}
			h := NewPostHandler(svc)

			req := newChiRequest(http.MethodPost, "/api/post", tt.body, nil, user)
			rec := httptest.NewRecorder()
			h.NewPost(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if got := decodeError(t, rec); got != tt.wantCode {
					t.Errorf("error = %q, want %q", got, tt.wantCode)
				}
				return
			}

			var body struct {
				PostID string `json:"postId"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.PostID != "post-1" {
				t.Errorf("postId = %q, want post-1", body.PostID)
			}
			if gotInput.Description != "基本を練習" {
				t.Errorf("Description = %q, want 基本を練習", gotInput.Description)
			}
		})
	}
}

func TestAllPosts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := &mockPostService{
		listAllFunc: func(ctx context.Context) ([]repository.PostWithApplicantCount, error) {
			return []repository.PostWithApplicantCount{
				{
					Post: model.Post{
						ID: "post-1", WriterID: "writer-1", Category: "music",
						Title: "ギター入門", Subtitle: "コードから", Address: "서울",
						CreatedAt: now, TeachAt: now.AddDate(0, 1, 0),
					},
					ApplicantCount: 2,
				},
			}, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	rec := httptest.NewRecorder()
	h.AllPosts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Posts []map[string]any `json:"posts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Posts) != 1 {
		t.Fatalf("len(posts) = %d, want 1", len(body.Posts))
	}
	p := body.Posts[0]
	if p["postId"] != "post-1" {
		t.Errorf("postId = %v, want post-1", p["postId"])
	}
	if p["appliedTalents"] != float64(2) {
		t.Errorf("appliedTalents = %v, want 2", p["appliedTalents"])
	}
}

func TestThisPost(t *testing.T) {
	detail := &post.Detail{
		Post: &model.Post{
			ID: "post-1", WriterID: "writer-1", Category: "music",
			Title: "ギター入門", Description: "基本を練習",
		},
		Writer:     &model.User{ID: "writer-1", Nickname: "선생님", ProfileImage: "https://img/x.png", Email: "t@snu.ac.kr"},
		Applicants: []*model.User{{ID: "u1", Nickname: "지원자"}},
		Matched:    []*model.User{},
	}
	svc := &mockPostService{
		detailFunc: func(ctx context.Context, postID string) (*post.Detail, error) {
			if postID == "post-1" {
				return detail, nil
			}
			return nil, model.ErrInvalidPostID
		},
	}
	h := NewPostHandler(svc)

	t.Run("存在する投稿", func(t *testing.T) {
		req := newChiRequest(http.MethodGet, "/api/post/post-1", "", map[string]string{"postId": "post-1"}, nil)
		rec := httptest.NewRecorder()
		h.ThisPost(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var body map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body["writerName"] != "선생님" {
			t.Errorf("writerName = %v, want 선생님", body["writerName"])
		}
		if body["Description"] != "基本を練習" {
			t.Errorf("Description = %v, want 基本を練習", body["Description"])
		}
		applied, ok := body["appliedTalents"].([]any)
		if !ok || len(applied) != 1 {
			t.Fatalf("appliedTalents = %v, want 1 entry", body["appliedTalents"])
		}
		matched, ok := body["matchedTalents"].([]any)
		if !ok || len(matched) != 0 {
			t.Errorf("matchedTalents = %v, want empty array", body["matchedTalents"])
		}
	})

	t.Run("存在しない投稿", func(t *testing.T) {
		req := newChiRequest(http.MethodGet, "/api/post/missing", "", map[string]string{"postId": "missing"}, nil)
		rec := httptest.NewRecorder()
		h.ThisPost(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if got := decodeError(t, rec); got != "INVALID_POSTID" {
			t.Errorf("error = %q, want INVALID_POSTID", got)
		}
	})
}

func TestApplyPost(t *testing.T) {
	user := &model.User{ID: "user-1"}

	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{name: "正常に応募", wantStatus: http.StatusOK},
		{name: "存在しない投稿", serviceErr: model.ErrInvalidPostID, wantStatus: http.StatusBadRequest, wantCode: "INVALID_POSTID"},
		{name: "二重応募は409", serviceErr: model.ErrAlreadyApplied, wantStatus: http.StatusConflict, wantCode: "ALREADY_APPLIED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPostService{
				applyFunc: func(ctx context.Context, user *model.User, postID string) error {
					return tt.serviceErr
				},
			}
			h := NewPostHandler(svc)

			req := newChiRequest(http.MethodPost, "/api/post/post-1/apply", "", map[string]string{"postId": "post-1"}, user)
			rec := httptest.NewRecorder()
			h.ApplyPost(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if got := decodeError(t, rec); got != tt.wantCode {
					t.Errorf("error = %q, want %q", got, tt.wantCode)
				}
			}
		})
	}
}

func TestMatchPost(t *testing.T) {
	user := &model.User{ID: "writer-1"}

	t.Run("全員マッチ成功", func(t *testing.T) {
		var gotUserIDs []string
		svc := &mockPostService{
			matchFunc: func(ctx context.Context, postID string, userIDs []string) error {
				gotUserIDs = userIDs
				return nil
			},
		}
		h := NewPostHandler(svc)

		body := `[{"userId":"u1"},{"userId":"u2"}]`
		req := newChiRequest(http.MethodPost, "/api/post/post-1/match", body, map[string]string{"postId": "post-1"}, user)
		rec := httptest.NewRecorder()
		h.MatchPost(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if len(gotUserIDs) != 2 || gotUserIDs[0] != "u1" || gotUserIDs[1] != "u2" {
			t.Errorf("userIDs = %v, want [u1 u2]", gotUserIDs)
		}
	})

	t.Run("前提条件を満たさないユーザーがいると400", func(t *testing.T) {
		svc := &mockPostService{
			matchFunc: func(ctx context.Context, postID string, userIDs []string) error {
				return &post.MatchFailedError{FailedUserIDs: []string{"u2"}}
			},
		}
		h := NewPostHandler(svc)

		body := `[{"userId":"u1"},{"userId":"u2"}]`
		req := newChiRequest(http.MethodPost, "/api/post/post-1/match", body, map[string]string{"postId": "post-1"}, user)
		rec := httptest.NewRecorder()
		h.MatchPost(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}

		var resp matchFailedResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if resp.Error != "INVALID_USERID" {
			t.Errorf("error = %q, want INVALID_USERID", resp.Error)
		}
		if len(resp.FailedUserIDs) != 1 || resp.FailedUserIDs[0] != "u2" {
			t.Errorf("failedUserIds = %v, want [u2]", resp.FailedUserIDs)
		}
	})

	t.Run("不正なJSON", func(t *testing.T) {
		h := NewPostHandler(&mockPostService{})

		req := newChiRequest(http.MethodPost, "/api/post/post-1/match", `{"userId":"u1"}`, map[string]string{"postId": "post-1"}, user)
		rec := httptest.NewRecorder()
		h.MatchPost(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if got := decodeError(t, rec); got != "INVALID_REQUEST" {
			t.Errorf("error = %q, want INVALID_REQUEST", got)
		}
	})
}

func TestMyPosts(t *testing.T) {
	user := &model.User{ID: "user-1"}
	svc := &mockPostService{
		listMineFunc: func(ctx context.Context, userID string) (*post.MyPosts, error) {
			return &post.MyPosts{
				Written: []repository.PostWithApplicantCount{
					{Post: model.Post{ID: "post-1"}, ApplicantCount: 3},
				},
				Applied: []repository.PostWithWriter{
					{Post: model.Post{ID: "post-2"}, WriterNickname: "다른사람"},
				},
			}, nil
		},
	}
	h := NewPostHandler(svc)

	req := newChiRequest(http.MethodGet, "/api/posts/my", "", nil, user)
	rec := httptest.NewRecorder()
	h.MyPosts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		WrittenPosts []map[string]any `json:"writtenPosts"`
		AppliedPosts []map[string]any `json:"appliedPosts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.WrittenPosts) != 1 || body.WrittenPosts[0]["appliedTalents"] != float64(3) {
		t.Errorf("writtenPosts = %v, want 1 entry with 3 applicants", body.WrittenPosts)
	}
	if len(body.AppliedPosts) != 1 || body.AppliedPosts[0]["writerName"] != "다른사람" {
		t.Errorf("appliedPosts = %v, want 1 entry with writer 다른사람", body.AppliedPosts)
	}
}
