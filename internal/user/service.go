// Package user はユーザープロフィールとロール設定のビジネスロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gachitda/gachitda/internal/model"
	"github.com/gachitda/gachitda/internal/repository"
)

// Service はユーザープロフィール関連のビジネスロジックを提供する。
type Service struct {
	users repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository) *Service {
	return &Service{users: users}
}

// FindByID は指定IDのユーザーを取得する。
// 見つからない場合はINVALID_USERIDを返す。
func (s *Service) FindByID(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.ErrInvalidUserID
	}
	return user, nil
}

// SetRole はユーザーのロールを設定する。空のロールはINVALID_ROLEで拒否する。
func (s *Service) SetRole(ctx context.Context, user *model.User, role string) error {
	if role == "" {
		return model.ErrInvalidRole
	}

	if err := s.users.SetRole(ctx, user.ID, role); err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}

	slog.Info("role updated",
		slog.String("user_id", user.ID),
		slog.String("role", role),
	)
	return nil
}
