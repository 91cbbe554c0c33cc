package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/midori/internal/importer"
	"github.com/hitoshi/midori/internal/model"
)

// ImportServiceInterface はRSSインポートハンドラーが必要とするサービスインターフェース。
type ImportServiceInterface interface {
	ImportFromFeed(ctx context.Context, actor model.Actor, feedURL string) (*importer.Result, error)
}

// ImportHandler はRSSフィードインポートのHTTPハンドラー。
type ImportHandler struct {
	service ImportServiceInterface
}

// NewImportHandler はImportHandlerを生成する。
func NewImportHandler(service ImportServiceInterface) *ImportHandler {
	return &ImportHandler{service: service}
}

// importRequest はインポートリクエストのボディ。
type importRequest struct {
	FeedURL string `json:"feed_url"`
}

// importResponse はインポート結果のレスポンス。
type importResponse struct {
	FeedTitle string `json:"feed_title"`
	Imported  int    `json:"imported"`
	Skipped   int    `json:"skipped"`
}

// ImportFromFeed はRSSフィードから記事をdraftとして取り込む。
// ジャーナリストと管理者のみ。外部フィードの取得を伴うため、
// 専用のレート制限ミドルウェアの背後に配置する。
// POST /api/articles/import
func (h *ImportHandler) ImportFromFeed(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.FeedURL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("feed_url は必須です"))
		return
	}

	result, err := h.service.ImportFromFeed(r.Context(), actor, req.FeedURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, importResponse{
		FeedTitle: result.FeedTitle,
		Imported:  result.Imported,
		Skipped:   result.Skipped,
	})
}
