// Package taxonomy はカテゴリと植物タイプの管理ロジックを提供する。
package taxonomy

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/repository"
)

// slugPattern はURLセーフなslugの形式。
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Service はタクソノミー管理のサービス層。
// 参照系は誰でも、変更系は管理者のみが実行できる。
type Service struct {
	categoryRepo  repository.CategoryRepository
	plantTypeRepo repository.PlantTypeRepository
	articleRepo   repository.ArticleRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	categoryRepo repository.CategoryRepository,
	plantTypeRepo repository.PlantTypeRepository,
	articleRepo repository.ArticleRepository,
) *Service {
	return &Service{
		categoryRepo:  categoryRepo,
		plantTypeRepo: plantTypeRepo,
		articleRepo:   articleRepo,
	}
}

// ListCategories は全カテゴリを返す。
func (s *Service) ListCategories(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return categories, nil
}

// CreateCategory はカテゴリを作成する。管理者のみ。
func (s *Service) CreateCategory(ctx context.Context, actor model.Actor, slug, nameJa, nameEn string) (*model.Category, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	if err := validateNames(slug, nameJa, nameEn); err != nil {
		return nil, err
	}

	now := time.Now()
	category := &model.Category{
		ID:        uuid.New().String(),
		Slug:      slug,
		NameJa:    nameJa,
		NameEn:    nameEn,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("カテゴリの作成に失敗しました: %w", err)
	}
	return category, nil
}

// UpdateCategory はカテゴリを更新する。管理者のみ。
func (s *Service) UpdateCategory(ctx context.Context, actor model.Actor, id, slug, nameJa, nameEn string) (*model.Category, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	if err := validateNames(slug, nameJa, nameEn); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(id)
	}

	category.Slug = slug
	category.NameJa = nameJa
	category.NameEn = nameEn
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("カテゴリの更新に失敗しました: %w", err)
	}
	return category, nil
}

// DeleteCategory はカテゴリを削除する。管理者のみ。
// 記事から参照されているカテゴリは削除できない。
func (s *Service) DeleteCategory(ctx context.Context, actor model.Actor, id string) error {
	if !actor.IsAdmin() {
		return model.NewForbiddenError()
	}

	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return model.NewCategoryNotFoundError(id)
	}

	count, err := s.articleRepo.CountByCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("カテゴリ参照記事数の取得に失敗しました: %w", err)
	}
	if count > 0 {
		return model.NewCategoryInUseError()
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("カテゴリの削除に失敗しました: %w", err)
	}
	return nil
}

// ListPlantTypes は全植物タイプを返す。
func (s *Service) ListPlantTypes(ctx context.Context) ([]*model.PlantType, error) {
	types, err := s.plantTypeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("植物タイプ一覧の取得に失敗しました: %w", err)
	}
	return types, nil
}

// CreatePlantType は植物タイプを作成する。管理者のみ。
func (s *Service) CreatePlantType(ctx context.Context, actor model.Actor, slug, nameJa, nameEn string) (*model.PlantType, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	if err := validateNames(slug, nameJa, nameEn); err != nil {
		return nil, err
	}

	now := time.Now()
	plantType := &model.PlantType{
		ID:        uuid.New().String(),
		Slug:      slug,
		NameJa:    nameJa,
		NameEn:    nameEn,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.plantTypeRepo.Create(ctx, plantType); err != nil {
		return nil, fmt.Errorf("植物タイプの作成に失敗しました: %w", err)
	}
	return plantType, nil
}

// UpdatePlantType は植物タイプを更新する。管理者のみ。
func (s *Service) UpdatePlantType(ctx context.Context, actor model.Actor, id, slug, nameJa, nameEn string) (*model.PlantType, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	if err := validateNames(slug, nameJa, nameEn); err != nil {
		return nil, err
	}

	plantType, err := s.plantTypeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("植物タイプの取得に失敗しました: %w", err)
	}
	if plantType == nil {
		return nil, model.NewPlantTypeNotFoundError(id)
	}

	plantType.Slug = slug
	plantType.NameJa = nameJa
	plantType.NameEn = nameEn
	if err := s.plantTypeRepo.Update(ctx, plantType); err != nil {
		return nil, fmt.Errorf("植物タイプの更新に失敗しました: %w", err)
	}
	return plantType, nil
}

// DeletePlantType は植物タイプを削除する。管理者のみ。
// 参照整合性はDBの外部キー（ON DELETE SET NULL）に委ねる。
func (s *Service) DeletePlantType(ctx context.Context, actor model.Actor, id string) error {
	if !actor.IsAdmin() {
		return model.NewForbiddenError()
	}

	plantType, err := s.plantTypeRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("植物タイプの取得に失敗しました: %w", err)
	}
	if plantType == nil {
		return model.NewPlantTypeNotFoundError(id)
	}

	if err := s.plantTypeRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("植物タイプの削除に失敗しました: %w", err)
	}
	return nil
}

// validateNames はslugとバイリンガル名の形式を検証する。
func validateNames(slug, nameJa, nameEn string) error {
	if !slugPattern.MatchString(slug) {
		return model.NewValidationError("slugは英小文字・数字・ハイフンのみ使用できます")
	}
	if nameJa == "" || nameEn == "" {
		return model.NewValidationError("名前は日英両方必須です")
	}
	return nil
}
