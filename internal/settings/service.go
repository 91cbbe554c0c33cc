// Package settings はサイト全体設定のドメインロジックを提供する。
package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/repository"
	"github.com/hitoshi/midori/internal/storage"
)

// Input はサイト設定更新の入力。
type Input struct {
	SiteTitleJa     string
	SiteTitleEn     string
	ContactEmail    string
	ArticlesPerPage int
	HeroImageData   []byte // 任意。指定された場合はヒーロー画像を差し替える。
}

// Service はサイト設定のサービス層。参照は誰でも、更新は管理者のみ。
type Service struct {
	settingsRepo repository.SettingsRepository
	images       storage.ImageStore
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(settingsRepo repository.SettingsRepository, images storage.ImageStore) *Service {
	return &Service{settingsRepo: settingsRepo, images: images}
}

// Get はサイト設定を返す。
func (s *Service) Get(ctx context.Context) (*model.SiteSettings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("サイト設定の取得に失敗しました: %w", err)
	}
	return settings, nil
}

// Update はサイト設定を更新する。管理者のみ。
func (s *Service) Update(ctx context.Context, actor model.Actor, input Input) (*model.SiteSettings, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}

	if input.SiteTitleJa == "" || input.SiteTitleEn == "" {
		return nil, model.NewValidationError("サイトタイトルは日英両方必須です")
	}
	if input.ContactEmail != "" && !strings.Contains(input.ContactEmail, "@") {
		return nil, model.NewValidationError("連絡先メールアドレスの形式が正しくありません")
	}
	if input.ArticlesPerPage < 1 || input.ArticlesPerPage > 100 {
		return nil, model.NewValidationError("ページあたり記事数は1〜100の範囲で指定してください")
	}

	current, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("サイト設定の取得に失敗しました: %w", err)
	}

	oldImageURL := ""
	if len(input.HeroImageData) > 0 {
		newURL, err := s.images.Store(input.HeroImageData)
		if err != nil {
			return nil, err
		}
		oldImageURL = current.HeroImageURL
		current.HeroImageURL = newURL
	}

	current.SiteTitleJa = input.SiteTitleJa
	current.SiteTitleEn = input.SiteTitleEn
	current.ContactEmail = input.ContactEmail
	current.ArticlesPerPage = input.ArticlesPerPage

	if err := s.settingsRepo.Update(ctx, current); err != nil {
		if oldImageURL != "" {
			_ = s.images.Delete(current.HeroImageURL)
		}
		return nil, fmt.Errorf("サイト設定の保存に失敗しました: %w", err)
	}

	if oldImageURL != "" && oldImageURL != current.HeroImageURL {
		_ = s.images.Delete(oldImageURL)
	}
	return current, nil
}
