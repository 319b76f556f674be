// Package post はタレントセッション投稿のビジネスロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gachitda/gachitda/internal/metrics"
	"github.com/gachitda/gachitda/internal/model"
	"github.com/gachitda/gachitda/internal/repository"
	"github.com/gachitda/gachitda/internal/security"
)

// CreateInput は投稿作成の入力。TeachAtは文字列のまま受け取り、
// サービス側で日付としてパースする。
type CreateInput struct {
	Category    string
	Title       string
	Subtitle    string
	Description string
	Address     string
	TeachAt     string
}

// Detail は投稿詳細の表示に必要な情報一式。
type Detail struct {
	Post       *model.Post
	Writer     *model.User
	Applicants []*model.User
	Matched    []*model.User
}

// MatchFailedError はマッチ一括処理の前提条件を満たさないユーザーが
// 含まれていたことを表す。処理は全体が取り消され、何も書き込まれない。
type MatchFailedError struct {
	FailedUserIDs []string
}

// Error はerrorインターフェースを実装する。
func (e *MatchFailedError) Error() string {
	return fmt.Sprintf("match failed for users: %s", strings.Join(e.FailedUserIDs, ", "))
}

// teachAtLayouts はTeachAtとして受け付ける日付フォーマット。
// 上から順に試行する。
var teachAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Service は投稿・応募・マッチのビジネスロジックを提供する。
type Service struct {
	posts     repository.PostRepository
	users     repository.UserRepository
	sanitizer security.ContentSanitizerService
	collector metrics.Collector
	now       func() time.Time // テストで固定するためのフック
}

// NewService はServiceを生成する。
func NewService(posts repository.PostRepository, users repository.UserRepository, sanitizer security.ContentSanitizerService, collector metrics.Collector) *Service {
	return &Service{
		posts:     posts,
		users:     users,
		sanitizer: sanitizer,
		collector: collector,
		now:       time.Now,
	}
}

// Create は投稿を作成する。
// 全フィールドが必須で、欠けている場合はMISSING_REQUIRED_FIELDSを返す。
// 説明文は保存前にサニタイズされる。
func (s *Service) Create(ctx context.Context, writer *model.User, input CreateInput) (*model.Post, error) {
	if input.Category == "" || input.Title == "" || input.Subtitle == "" ||
		input.Description == "" || input.Address == "" || input.TeachAt == "" {
		return nil, model.ErrMissingRequiredFields
	}

	teachAt, err := parseTeachAt(input.TeachAt)
	if err != nil {
		return nil, model.ErrInvalidDateFormat
	}

	post := &model.Post{
		ID:          uuid.New().String(),
		WriterID:    writer.ID,
		Category:    input.Category,
		Title:       input.Title,
		Subtitle:    input.Subtitle,
		Description: s.sanitizer.Sanitize(input.Description),
		Address:     input.Address,
		CreatedAt:   s.now(),
		TeachAt:     teachAt,
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.collector.RecordPostCreated()
	slog.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("writer_id", writer.ID),
	)
	return post, nil
}

// parseTeachAt はteachAtLayoutsを順に試して日付をパースする。
func parseTeachAt(value string) (time.Time, error) {
	for _, layout := range teachAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", value)
}

// ListAll は全投稿を応募者数付きで返す。
func (s *Service) ListAll(ctx context.Context) ([]repository.PostWithApplicantCount, error) {
	return s.posts.ListAll(ctx)
}

// Detail は投稿詳細を投稿者・応募者・マッチ済みユーザーの表示情報付きで返す。
// 投稿が存在しない場合はINVALID_POSTIDを返す。
func (s *Service) Detail(ctx context.Context, postID string) (*Detail, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.ErrInvalidPostID
	}

	writer, err := s.users.FindByID(ctx, post.WriterID)
	if err != nil {
		return nil, fmt.Errorf("failed to find writer: %w", err)
	}

	applicants, err := s.posts.ListApplicants(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}

	matched, err := s.posts.ListMatched(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matched users: %w", err)
	}

	return &Detail{
		Post:       post,
		Writer:     writer,
		Applicants: applicants,
		Matched:    matched,
	}, nil
}

// Apply はユーザーを投稿に応募させる。
// 投稿が存在しない場合はINVALID_POSTID、応募済みの場合はALREADY_APPLIEDを返す。
func (s *Service) Apply(ctx context.Context, user *model.User, postID string) error {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return model.ErrInvalidPostID
	}

	if err := s.posts.AddApplication(ctx, postID, user.ID); err != nil {
		return err
	}

	s.collector.RecordApplication()
	slog.Info("application added",
		slog.String("post_id", postID),
		slog.String("user_id", user.ID),
	)
	return nil
}

// Match は指定ユーザー群を投稿のマッチ集合へ一括追加する。
// 1人でも「応募済みかつ未マッチ」を満たさない場合は全体を取り消し、
// 該当ユーザーIDを載せたMatchFailedErrorを返す。
func (s *Service) Match(ctx context.Context, postID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return model.ErrInvalidRequest
	}

	failed, err := s.posts.MatchApplicants(ctx, postID, userIDs)
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return &MatchFailedError{FailedUserIDs: failed}
	}

	s.collector.RecordMatch(len(userIDs))
	slog.Info("applicants matched",
		slog.String("post_id", postID),
		slog.Int("count", len(userIDs)),
	)
	return nil
}

// MyPosts はユーザーが作成した投稿と応募した投稿をまとめて返す。
type MyPosts struct {
	Written []repository.PostWithApplicantCount
	Applied []repository.PostWithWriter
}

// ListMine はユーザー自身の投稿活動の一覧を返す。
func (s *Service) ListMine(ctx context.Context, userID string) (*MyPosts, error) {
	written, err := s.posts.ListWrittenByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list written posts: %w", err)
	}

	applied, err := s.posts.ListAppliedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied posts: %w", err)
	}

	return &MyPosts{Written: written, Applied: applied}, nil
}
