package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/settings"
)

// SettingsServiceInterface はサイト設定ハンドラーが必要とするサービスインターフェース。
type SettingsServiceInterface interface {
	Get(ctx context.Context) (*model.SiteSettings, error)
	Update(ctx context.Context, actor model.Actor, input settings.Input) (*model.SiteSettings, error)
}

// SettingsHandler はサイト設定のHTTPハンドラー。
type SettingsHandler struct {
	service SettingsServiceInterface
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(service SettingsServiceInterface) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// settingsResponse はサイト設定のAPIレスポンス。
type settingsResponse struct {
	SiteTitleJa     string    `json:"site_title_ja"`
	SiteTitleEn     string    `json:"site_title_en"`
	ContactEmail    string    `json:"contact_email,omitempty"`
	HeroImageURL    string    `json:"hero_image_url,omitempty"`
	ArticlesPerPage int       `json:"articles_per_page"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toSettingsResponse(s *model.SiteSettings) settingsResponse {
	return settingsResponse{
		SiteTitleJa:     s.SiteTitleJa,
		SiteTitleEn:     s.SiteTitleEn,
		ContactEmail:    s.ContactEmail,
		HeroImageURL:    s.HeroImageURL,
		ArticlesPerPage: s.ArticlesPerPage,
		UpdatedAt:       s.UpdatedAt,
	}
}

// Get はサイト設定を返す。未認証でアクセスできる。
// GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.service.Get(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(found))
}

// Update はサイト設定を更新する。管理者のみ。
// PUT /api/admin/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("マルチパートフォームの解析に失敗しました"))
		return
	}

	input := settings.Input{
		SiteTitleJa:  r.FormValue("site_title_ja"),
		SiteTitleEn:  r.FormValue("site_title_en"),
		ContactEmail: r.FormValue("contact_email"),
	}
	if perPage := r.FormValue("articles_per_page"); perPage != "" {
		parsed, err := strconv.Atoi(perPage)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("articles_per_page は整数で指定してください"))
			return
		}
		input.ArticlesPerPage = parsed
	}

	heroImage, err := readImageFile(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	input.HeroImageData = heroImage

	updated, err := h.service.Update(r.Context(), actor, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(updated))
}
