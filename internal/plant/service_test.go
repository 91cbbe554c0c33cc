package plant

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/midori/internal/model"
)

type mockPlantRepo struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Plant, error)
	listFunc     func(ctx context.Context, plantTypeID string) ([]*model.Plant, error)
	createFunc   func(ctx context.Context, plant *model.Plant) error
	updateFunc   func(ctx context.Context, plant *model.Plant) error
	deleteFunc   func(ctx context.Context, id string) error
}

func (m *mockPlantRepo) FindByID(ctx context.Context, id string) (*model.Plant, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockPlantRepo) List(ctx context.Context, plantTypeID string) ([]*model.Plant, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, plantTypeID)
	}
	return nil, nil
}

func (m *mockPlantRepo) Create(ctx context.Context, plant *model.Plant) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, plant)
	}
	return nil
}

func (m *mockPlantRepo) Update(ctx context.Context, plant *model.Plant) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, plant)
	}
	return nil
}

func (m *mockPlantRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockPlantTypeRepo struct {
	findByIDFunc func(ctx context.Context, id string) (*model.PlantType, error)
}

func (m *mockPlantTypeRepo) FindByID(ctx context.Context, id string) (*model.PlantType, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.PlantType{ID: id}, nil
}

func (m *mockPlantTypeRepo) List(ctx context.Context) ([]*model.PlantType, error) { return nil, nil }
func (m *mockPlantTypeRepo) Create(ctx context.Context, p *model.PlantType) error { return nil }
func (m *mockPlantTypeRepo) Update(ctx context.Context, p *model.PlantType) error { return nil }
func (m *mockPlantTypeRepo) Delete(ctx context.Context, id string) error          { return nil }

type mockImageStore struct {
	storeFunc   func(data []byte) (string, error)
	deletedURLs []string
}

func (m *mockImageStore) Store(data []byte) (string, error) {
	if m.storeFunc != nil {
		return m.storeFunc(data)
	}
	return "/uploads/new-plant.jpg", nil
}

func (m *mockImageStore) Delete(url string) error {
	m.deletedURLs = append(m.deletedURLs, url)
	return nil
}

func (m *mockImageStore) ListURLs() ([]string, error) { return nil, nil }

var (
	admin  = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
	member = model.Actor{ID: "user-1", Role: model.RoleUser}
)

func validInput() Input {
	return Input{
		PlantTypeID:    "type-1",
		NameJa:         "ガジュマル",
		NameEn:         "Chinese Banyan",
		ScientificName: "Ficus microcarpa",
	}
}

func storedPlant() *model.Plant {
	return &model.Plant{
		ID:          "plant-1",
		PlantTypeID: "type-1",
		NameJa:      "ガジュマル",
		NameEn:      "Chinese Banyan",
		ImageURL:    "/uploads/plant.jpg",
	}
}

func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", wantCode)
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("error code = %s, want %s", apiErr.Code, wantCode)
	}
}

func TestGet_MissingReturnsNotFound(t *testing.T) {
	service := NewService(&mockPlantRepo{}, &mockPlantTypeRepo{}, &mockImageStore{})

	_, err := service.Get(context.Background(), "missing")
	assertAPIErrorCode(t, err, model.ErrCodePlantNotFound)
}

func TestList_PassesTypeFilter(t *testing.T) {
	var gotFilter string
	repo := &mockPlantRepo{
		listFunc: func(ctx context.Context, plantTypeID string) ([]*model.Plant, error) {
			gotFilter = plantTypeID
			return []*model.Plant{storedPlant()}, nil
		},
	}
	service := NewService(repo, &mockPlantTypeRepo{}, &mockImageStore{})

	plants, err := service.List(context.Background(), "type-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if gotFilter != "type-1" {
		t.Errorf("filter = %q, want type-1", gotFilter)
	}
	if len(plants) != 1 {
		t.Errorf("len(plants) = %d, want 1", len(plants))
	}
}

func TestCreate_RequiresAdmin(t *testing.T) {
	service := NewService(&mockPlantRepo{}, &mockPlantTypeRepo{}, &mockImageStore{})

	_, err := service.Create(context.Background(), member, validInput())
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)
}

func TestCreate_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"日本語名なし", func(in *Input) { in.NameJa = "" }},
		{"英語名なし", func(in *Input) { in.NameEn = "" }},
		{"植物タイプなし", func(in *Input) { in.PlantTypeID = "" }},
	}

	service := NewService(&mockPlantRepo{}, &mockPlantTypeRepo{}, &mockImageStore{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)
			_, err := service.Create(context.Background(), admin, input)
			assertAPIErrorCode(t, err, model.ErrCodeValidation)
		})
	}
}

func TestCreate_UnknownPlantTypeFails(t *testing.T) {
	plantTypes := &mockPlantTypeRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.PlantType, error) {
			return nil, nil
		},
	}
	service := NewService(&mockPlantRepo{}, plantTypes, &mockImageStore{})

	_, err := service.Create(context.Background(), admin, validInput())
	assertAPIErrorCode(t, err, model.ErrCodeValidation)
}

func TestCreate_WithImageSucceeds(t *testing.T) {
	var created *model.Plant
	repo := &mockPlantRepo{
		createFunc: func(ctx context.Context, p *model.Plant) error {
			created = p
			return nil
		},
	}
	service := NewService(repo, &mockPlantTypeRepo{}, &mockImageStore{})

	input := validInput()
	input.ImageData = []byte("image-bytes")
	plant, err := service.Create(context.Background(), admin, input)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created == nil {
		t.Fatal("plant was not persisted")
	}
	if plant.ImageURL != "/uploads/new-plant.jpg" {
		t.Errorf("ImageURL = %q", plant.ImageURL)
	}
	if plant.ID == "" {
		t.Error("ID should be generated")
	}
}

// 行作成に失敗したら保存済み画像を孤立させない。
func TestCreate_RepoFailureCleansStoredImage(t *testing.T) {
	repo := &mockPlantRepo{
		createFunc: func(ctx context.Context, p *model.Plant) error {
			return errors.New("db down")
		},
	}
	images := &mockImageStore{}
	service := NewService(repo, &mockPlantTypeRepo{}, images)

	input := validInput()
	input.ImageData = []byte("image-bytes")
	_, err := service.Create(context.Background(), admin, input)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(images.deletedURLs) != 1 || images.deletedURLs[0] != "/uploads/new-plant.jpg" {
		t.Errorf("deletedURLs = %v, want stored image only", images.deletedURLs)
	}
}

func TestUpdate_MissingReturnsNotFound(t *testing.T) {
	service := NewService(&mockPlantRepo{}, &mockPlantTypeRepo{}, &mockImageStore{})

	_, err := service.Update(context.Background(), admin, "missing", validInput())
	assertAPIErrorCode(t, err, model.ErrCodePlantNotFound)
}

// 画像差し替え時は行更新が成功してから旧ファイルを削除する。
func TestUpdate_ReplacesImageAfterRowUpdate(t *testing.T) {
	images := &mockImageStore{}
	repo := &mockPlantRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Plant, error) {
			return storedPlant(), nil
		},
		updateFunc: func(ctx context.Context, p *model.Plant) error {
			if len(images.deletedURLs) != 0 {
				t.Error("old image must not be deleted before the row update")
			}
			return nil
		},
	}
	service := NewService(repo, &mockPlantTypeRepo{}, images)

	input := validInput()
	input.ImageData = []byte("image-bytes")
	plant, err := service.Update(context.Background(), admin, "plant-1", input)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if plant.ImageURL != "/uploads/new-plant.jpg" {
		t.Errorf("ImageURL = %q", plant.ImageURL)
	}
	if len(images.deletedURLs) != 1 || images.deletedURLs[0] != "/uploads/plant.jpg" {
		t.Errorf("deletedURLs = %v, want old image only", images.deletedURLs)
	}
}

func TestDelete_RequiresAdmin(t *testing.T) {
	service := NewService(&mockPlantRepo{}, &mockPlantTypeRepo{}, &mockImageStore{})

	err := service.Delete(context.Background(), member, "plant-1")
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)
}

func TestDelete_RemovesRowThenImage(t *testing.T) {
	deleteCalled := false
	repo := &mockPlantRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Plant, error) {
			return storedPlant(), nil
		},
		deleteFunc: func(ctx context.Context, id string) error {
			deleteCalled = true
			return nil
		},
	}
	images := &mockImageStore{}
	service := NewService(repo, &mockPlantTypeRepo{}, images)

	if err := service.Delete(context.Background(), admin, "plant-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !deleteCalled {
		t.Error("row was not deleted")
	}
	if len(images.deletedURLs) != 1 || images.deletedURLs[0] != "/uploads/plant.jpg" {
		t.Errorf("deletedURLs = %v, want plant image", images.deletedURLs)
	}
}
