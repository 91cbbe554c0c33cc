// Package plant は植物カタログのドメインロジックを提供する。
package plant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/repository"
	"github.com/hitoshi/midori/internal/storage"
)

// Input は植物の作成・更新の入力。
type Input struct {
	PlantTypeID    string
	NameJa         string
	NameEn         string
	ScientificName string
	DescriptionJa  string
	DescriptionEn  string
	ImageData      []byte // 任意。指定された場合は画像を差し替える。
}

// Service は植物カタログのサービス層。
// 参照系は誰でも、変更系は管理者のみが実行できる。
type Service struct {
	plantRepo     repository.PlantRepository
	plantTypeRepo repository.PlantTypeRepository
	images        storage.ImageStore
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(plantRepo repository.PlantRepository, plantTypeRepo repository.PlantTypeRepository, images storage.ImageStore) *Service {
	return &Service{
		plantRepo:     plantRepo,
		plantTypeRepo: plantTypeRepo,
		images:        images,
	}
}

// List は植物一覧を返す。plantTypeIDが空でない場合はタイプで絞り込む。
func (s *Service) List(ctx context.Context, plantTypeID string) ([]*model.Plant, error) {
	plants, err := s.plantRepo.List(ctx, plantTypeID)
	if err != nil {
		return nil, fmt.Errorf("植物一覧の取得に失敗しました: %w", err)
	}
	return plants, nil
}

// Get は指定IDの植物を返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Plant, error) {
	plant, err := s.plantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("植物の取得に失敗しました: %w", err)
	}
	if plant == nil {
		return nil, model.NewPlantNotFoundError(id)
	}
	return plant, nil
}

// Create は植物を作成する。管理者のみ。
func (s *Service) Create(ctx context.Context, actor model.Actor, input Input) (*model.Plant, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	if err := s.validate(ctx, &input); err != nil {
		return nil, err
	}

	imageURL := ""
	if len(input.ImageData) > 0 {
		url, err := s.images.Store(input.ImageData)
		if err != nil {
			return nil, err
		}
		imageURL = url
	}

	now := time.Now()
	plant := &model.Plant{
		ID:             uuid.New().String(),
		PlantTypeID:    input.PlantTypeID,
		NameJa:         input.NameJa,
		NameEn:         input.NameEn,
		ScientificName: input.ScientificName,
		DescriptionJa:  input.DescriptionJa,
		DescriptionEn:  input.DescriptionEn,
		ImageURL:       imageURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.plantRepo.Create(ctx, plant); err != nil {
		if imageURL != "" {
			_ = s.images.Delete(imageURL)
		}
		return nil, fmt.Errorf("植物の作成に失敗しました: %w", err)
	}
	return plant, nil
}

// Update は植物を更新する。管理者のみ。
// 画像差し替え時は新しい画像の保存と行更新が成功してから旧ファイルを削除する。
func (s *Service) Update(ctx context.Context, actor model.Actor, id string, input Input) (*model.Plant, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	if err := s.validate(ctx, &input); err != nil {
		return nil, err
	}

	plant, err := s.plantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("植物の取得に失敗しました: %w", err)
	}
	if plant == nil {
		return nil, model.NewPlantNotFoundError(id)
	}

	oldImageURL := ""
	if len(input.ImageData) > 0 {
		newURL, err := s.images.Store(input.ImageData)
		if err != nil {
			return nil, err
		}
		oldImageURL = plant.ImageURL
		plant.ImageURL = newURL
	}

	plant.PlantTypeID = input.PlantTypeID
	plant.NameJa = input.NameJa
	plant.NameEn = input.NameEn
	plant.ScientificName = input.ScientificName
	plant.DescriptionJa = input.DescriptionJa
	plant.DescriptionEn = input.DescriptionEn

	if err := s.plantRepo.Update(ctx, plant); err != nil {
		if oldImageURL != "" {
			_ = s.images.Delete(plant.ImageURL)
		}
		return nil, fmt.Errorf("植物の更新に失敗しました: %w", err)
	}

	if oldImageURL != "" && oldImageURL != plant.ImageURL {
		_ = s.images.Delete(oldImageURL)
	}
	return plant, nil
}

// Delete は植物を削除する。管理者のみ。削除後に保存済み画像も除去する。
func (s *Service) Delete(ctx context.Context, actor model.Actor, id string) error {
	if !actor.IsAdmin() {
		return model.NewForbiddenError()
	}

	plant, err := s.plantRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("植物の取得に失敗しました: %w", err)
	}
	if plant == nil {
		return model.NewPlantNotFoundError(id)
	}

	if err := s.plantRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("植物の削除に失敗しました: %w", err)
	}

	if plant.ImageURL != "" {
		_ = s.images.Delete(plant.ImageURL)
	}
	return nil
}

// validate は必須フィールドと植物タイプ参照を検証する。
func (s *Service) validate(ctx context.Context, input *Input) error {
	if input.NameJa == "" || input.NameEn == "" {
		return model.NewValidationError("名前は日英両方必須です")
	}
	if input.PlantTypeID == "" {
		return model.NewValidationError("植物タイプは必須です")
	}

	plantType, err := s.plantTypeRepo.FindByID(ctx, input.PlantTypeID)
	if err != nil {
		return fmt.Errorf("植物タイプの取得に失敗しました: %w", err)
	}
	if plantType == nil {
		return model.NewValidationError("存在しない植物タイプが指定されています: " + input.PlantTypeID)
	}
	return nil
}
