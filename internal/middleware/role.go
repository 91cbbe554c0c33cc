package middleware

import (
	"net/http"

	"github.com/hitoshi/midori/internal/model"
)

// NewRequireRolesMiddleware は実行者の役割が許可リストに含まれる場合のみ
// リクエストを通すミドルウェアを返す。
// セッションミドルウェアの後段に配置する前提であり、
// 実行者が未注入の場合は401、役割不一致の場合は403を返す。
func NewRequireRolesMiddleware(roles ...model.Role) func(next http.Handler) http.Handler {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := ActorFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			if _, ok := allowed[actor.Role]; !ok {
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
