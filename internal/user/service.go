// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"

	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/repository"
)

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// Get は指定IDのユーザーを取得する。
func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// ChangeRole はユーザーの役割を変更する。管理者のみが実行できる。
// ジャーナリストの任命・解任と管理者の追加に使用する。
func (s *Service) ChangeRole(ctx context.Context, actor model.Actor, userID string, role model.Role) (*model.User, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}

	switch role {
	case model.RoleAdmin, model.RoleJournalist, model.RoleUser:
	default:
		return nil, model.NewValidationError("未定義の役割です: " + string(role))
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return nil, fmt.Errorf("役割の更新に失敗しました: %w", err)
	}

	user.Role = role
	return user, nil
}
