package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/midori/internal/model"
)

// TaxonomyServiceInterface はタクソノミーハンドラーが必要とするサービスインターフェース。
type TaxonomyServiceInterface interface {
	ListCategories(ctx context.Context) ([]*model.Category, error)
	CreateCategory(ctx context.Context, actor model.Actor, slug, nameJa, nameEn string) (*model.Category, error)
	UpdateCategory(ctx context.Context, actor model.Actor, id, slug, nameJa, nameEn string) (*model.Category, error)
	DeleteCategory(ctx context.Context, actor model.Actor, id string) error
	ListPlantTypes(ctx context.Context) ([]*model.PlantType, error)
	CreatePlantType(ctx context.Context, actor model.Actor, slug, nameJa, nameEn string) (*model.PlantType, error)
	UpdatePlantType(ctx context.Context, actor model.Actor, id, slug, nameJa, nameEn string) (*model.PlantType, error)
	DeletePlantType(ctx context.Context, actor model.Actor, id string) error
}

// TaxonomyHandler はカテゴリと植物タイプのHTTPハンドラー。
type TaxonomyHandler struct {
	service TaxonomyServiceInterface
}

// NewTaxonomyHandler はTaxonomyHandlerを生成する。
func NewTaxonomyHandler(service TaxonomyServiceInterface) *TaxonomyHandler {
	return &TaxonomyHandler{service: service}
}

// taxonomyRequest はカテゴリ・植物タイプの作成・更新リクエストボディ。
type taxonomyRequest struct {
	Slug   string `json:"slug"`
	NameJa string `json:"name_ja"`
	NameEn string `json:"name_en"`
}

// taxonomyResponse はカテゴリ・植物タイプのAPIレスポンス。
type taxonomyResponse struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	NameJa    string    `json:"name_ja"`
	NameEn    string    `json:"name_en"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCategoryResponse(c *model.Category) taxonomyResponse {
	return taxonomyResponse{
		ID:        c.ID,
		Slug:      c.Slug,
		NameJa:    c.NameJa,
		NameEn:    c.NameEn,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toPlantTypeResponse(pt *model.PlantType) taxonomyResponse {
	return taxonomyResponse{
		ID:        pt.ID,
		Slug:      pt.Slug,
		NameJa:    pt.NameJa,
		NameEn:    pt.NameEn,
		CreatedAt: pt.CreatedAt,
		UpdatedAt: pt.UpdatedAt,
	}
}

// ListCategories はカテゴリ一覧を返す。未認証でアクセスできる。
// GET /api/categories
func (h *TaxonomyHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]taxonomyResponse, 0, len(categories))
	for _, c := range categories {
		responses = append(responses, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, responses)
}

// CreateCategory はカテゴリを作成する。管理者のみ。
// POST /api/admin/categories
func (h *TaxonomyHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req taxonomyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	category, err := h.service.CreateCategory(r.Context(), actor, req.Slug, req.NameJa, req.NameEn)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// UpdateCategory はカテゴリを更新する。管理者のみ。
// PUT /api/admin/categories/{id}
func (h *TaxonomyHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	id := chi.URLParam(r, "id")

	var req taxonomyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), actor, id, req.Slug, req.NameJa, req.NameEn)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// DeleteCategory はカテゴリを削除する。記事から参照中の場合は409を返す。
// DELETE /api/admin/categories/{id}
func (h *TaxonomyHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.DeleteCategory(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPlantTypes は植物タイプ一覧を返す。未認証でアクセスできる。
// GET /api/plant-types
func (h *TaxonomyHandler) ListPlantTypes(w http.ResponseWriter, r *http.Request) {
	plantTypes, err := h.service.ListPlantTypes(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]taxonomyResponse, 0, len(plantTypes))
	for _, pt := range plantTypes {
		responses = append(responses, toPlantTypeResponse(pt))
	}
	writeJSON(w, http.StatusOK, responses)
}

// CreatePlantType は植物タイプを作成する。管理者のみ。
// POST /api/admin/plant-types
func (h *TaxonomyHandler) CreatePlantType(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req taxonomyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	plantType, err := h.service.CreatePlantType(r.Context(), actor, req.Slug, req.NameJa, req.NameEn)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPlantTypeResponse(plantType))
}

// UpdatePlantType は植物タイプを更新する。管理者のみ。
// PUT /api/admin/plant-types/{id}
func (h *TaxonomyHandler) UpdatePlantType(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	id := chi.URLParam(r, "id")

	var req taxonomyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	plantType, err := h.service.UpdatePlantType(r.Context(), actor, id, req.Slug, req.NameJa, req.NameEn)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPlantTypeResponse(plantType))
}

// DeletePlantType は植物タイプを削除する。参照中の場合は409を返す。
// DELETE /api/admin/plant-types/{id}
func (h *TaxonomyHandler) DeletePlantType(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.DeletePlantType(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
