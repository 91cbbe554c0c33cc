// Package handler はHTTP APIのハンドラー層を提供する。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/midori/internal/middleware"
	"github.com/hitoshi/midori/internal/model"
)

// maxMultipartMemory はmultipartフォーム解析時にメモリに保持する上限。
const maxMultipartMemory = 32 << 20 // 32MB

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeInvalidRequestBody はJSONボディ解析失敗の統一レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeArticleNotFound,
		model.ErrCodeCategoryNotFound,
		model.ErrCodePlantTypeNotFound,
		model.ErrCodePlantNotFound,
		model.ErrCodeEventNotFound,
		model.ErrCodeEntryNotFound,
		model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidState, model.ErrCodeDeadlinePassed:
		return http.StatusUnprocessableEntity
	case model.ErrCodeVersionConflict,
		model.ErrCodeCategoryInUse,
		model.ErrCodeDuplicateEntry,
		model.ErrCodeEmailTaken:
		return http.StatusConflict
	case model.ErrCodeValidation, model.ErrCodeInvalidImage:
		return http.StatusBadRequest
	case model.ErrCodeImportFetchFailed:
		return http.StatusBadGateway
	case model.ErrCodeImportParseFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// actorFromRequest はリクエストコンテキストから実行者を取得する。
// セッションミドルウェア通過後のハンドラーで使用する。
func actorFromRequest(r *http.Request) (model.Actor, bool) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		return model.Actor{}, false
	}
	return actor, true
}

// readImageFile はmultipartフォームの"image"フィールドからファイルを読み取る。
// フィールドが存在しない場合はnilを返す（画像は任意）。
func readImageFile(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewValidationError("画像フィールドの読み取りに失敗しました")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, model.NewValidationError("画像データの読み取りに失敗しました")
	}
	return data, nil
}
