package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/plant"
)

// PlantServiceInterface は植物カタログハンドラーが必要とするサービスインターフェース。
type PlantServiceInterface interface {
	List(ctx context.Context, plantTypeID string) ([]*model.Plant, error)
	Get(ctx context.Context, id string) (*model.Plant, error)
	Create(ctx context.Context, actor model.Actor, input plant.Input) (*model.Plant, error)
	Update(ctx context.Context, actor model.Actor, id string, input plant.Input) (*model.Plant, error)
	Delete(ctx context.Context, actor model.Actor, id string) error
}

// PlantHandler は植物カタログのHTTPハンドラー。
type PlantHandler struct {
	service PlantServiceInterface
}

// NewPlantHandler はPlantHandlerを生成する。
func NewPlantHandler(service PlantServiceInterface) *PlantHandler {
	return &PlantHandler{service: service}
}

// plantResponse は植物のAPIレスポンス。
type plantResponse struct {
	ID             string    `json:"id"`
	PlantTypeID    string    `json:"plant_type_id"`
	NameJa         string    `json:"name_ja"`
	NameEn         string    `json:"name_en"`
	ScientificName string    `json:"scientific_name,omitempty"`
	DescriptionJa  string    `json:"description_ja,omitempty"`
	DescriptionEn  string    `json:"description_en,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toPlantResponse(p *model.Plant) plantResponse {
	return plantResponse{
		ID:             p.ID,
		PlantTypeID:    p.PlantTypeID,
		NameJa:         p.NameJa,
		NameEn:         p.NameEn,
		ScientificName: p.ScientificName,
		DescriptionJa:  p.DescriptionJa,
		DescriptionEn:  p.DescriptionEn,
		ImageURL:       p.ImageURL,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// parsePlantInput はmultipartフォームから植物の入力を読み取る。
func parsePlantInput(r *http.Request) (plant.Input, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return plant.Input{}, model.NewValidationError("マルチパートフォームの解析に失敗しました")
	}

	imageData, err := readImageFile(r)
	if err != nil {
		return plant.Input{}, err
	}

	return plant.Input{
		PlantTypeID:    r.FormValue("plant_type_id"),
		NameJa:         r.FormValue("name_ja"),
		NameEn:         r.FormValue("name_en"),
		ScientificName: r.FormValue("scientific_name"),
		DescriptionJa:  r.FormValue("description_ja"),
		DescriptionEn:  r.FormValue("description_en"),
		ImageData:      imageData,
	}, nil
}

// List は植物一覧を返す。plant_type_idで絞り込める。未認証でアクセスできる。
// GET /api/plants?plant_type_id=
func (h *PlantHandler) List(w http.ResponseWriter, r *http.Request) {
	plants, err := h.service.List(r.Context(), r.URL.Query().Get("plant_type_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]plantResponse, 0, len(plants))
	for _, p := range plants {
		responses = append(responses, toPlantResponse(p))
	}
	writeJSON(w, http.StatusOK, responses)
}

// Get は植物を1件返す。未認証でアクセスできる。
// GET /api/plants/{id}
func (h *PlantHandler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlantResponse(found))
}

// Create は植物を登録する。管理者のみ。
// POST /api/admin/plants
func (h *PlantHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	input, err := parsePlantInput(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	created, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPlantResponse(created))
}

// Update は植物を更新する。管理者のみ。
// PUT /api/admin/plants/{id}
func (h *PlantHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	id := chi.URLParam(r, "id")

	input, err := parsePlantInput(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	updated, err := h.service.Update(r.Context(), actor, id, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPlantResponse(updated))
}

// Delete は植物を削除する。管理者のみ。
// DELETE /api/admin/plants/{id}
func (h *PlantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
