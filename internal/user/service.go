// Package user はユーザー参照のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/repository"
)

// Service はユーザー参照のサービス層。
// 記事投稿APIの著者名解決と、ユーザー一覧の提供を担う。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// ListActive は有効なユーザーの一覧をusername昇順で返す。
func (s *Service) ListActive(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// ResolveByUsername はユーザー名からユーザーを解決する。
// 見つからない場合、登録済みの有効なユーザー名の一覧をエラー詳細に含める
// （クライアントが指定可能な値を知るためのヒント）。
func (s *Service) ResolveByUsername(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.NewValidationError("ユーザー名は必須です")
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user != nil && user.IsActive {
		return user, nil
	}

	available, err := s.userRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	names := make([]string, len(available))
	for i, u := range available {
		names[i] = u.Username
	}
	detail := fmt.Sprintf("ユーザー %q は存在しません。指定可能なユーザー名: %s", username, strings.Join(names, ", "))
	return nil, model.NewUserNotFoundError(detail)
}
