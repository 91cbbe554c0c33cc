package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/midori/internal/model"
)

// UserServiceInterface はユーザー管理ハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Get(ctx context.Context, userID string) (*model.User, error)
	ChangeRole(ctx context.Context, actor model.Actor, userID string, role model.Role) (*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// changeRoleRequest はロール変更リクエストのボディ。
type changeRoleRequest struct {
	Role string `json:"role"`
}

// Get はユーザーを1件返す。管理者のみ。
// GET /api/admin/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// ChangeRole はユーザーのロールを変更する。管理者のみ。
// 変更は対象ユーザーの次のリクエストから有効になる。
// PUT /api/admin/users/{id}/role
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	userID := chi.URLParam(r, "id")

	var req changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	user, err := h.service.ChangeRole(r.Context(), actor, userID, model.Role(req.Role))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}
